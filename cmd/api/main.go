// Command api serves the dashboard HTTP API: sentiment aggregates, stored
// posts, run history, and an on-demand ingestion trigger.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-sky-sentiment/internal/bluesky"
	"github.com/tbourn/go-sky-sentiment/internal/config"
	httpapi "github.com/tbourn/go-sky-sentiment/internal/http"
	"github.com/tbourn/go-sky-sentiment/internal/observability"
	"github.com/tbourn/go-sky-sentiment/internal/pipeline"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
	"github.com/tbourn/go-sky-sentiment/internal/sentiment"
	"github.com/tbourn/go-sky-sentiment/internal/sysutil"
	"github.com/tbourn/go-sky-sentiment/internal/translate"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("database_url", cfg.DatabaseURL).Msg("database open failed")
	}

	ing := pipeline.NewService(
		db,
		bluesky.NewClient(cfg.Bluesky),
		translate.NewGoogle(cfg.Translate.URL, cfg.Translate.TargetLang),
		sentiment.NewHTTPClassifier(cfg.Sentiment),
	)
	ing.MaxPosts = cfg.Bluesky.MaxPosts

	r := gin.New()
	httpapi.RegisterRoutes(r, db, ing, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
