// Command ingest executes one ingestion run and exits. It is the entry point
// for scheduled execution (cron, CI scheduler): fetch posts for the query,
// clean, translate, classify, and store them, recording the run outcome.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-sky-sentiment/internal/bluesky"
	"github.com/tbourn/go-sky-sentiment/internal/config"
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

	queryFlag := flag.String("query", "", "search term to ingest (defaults to DEFAULT_QUERY)")
	flag.Parse()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Cancel the run on SIGINT/SIGTERM; the run row is finalized regardless.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("database_url", cfg.DatabaseURL).Msg("database open failed")
	}

	svc := pipeline.NewService(
		db,
		bluesky.NewClient(cfg.Bluesky),
		translate.NewGoogle(cfg.Translate.URL, cfg.Translate.TargetLang),
		sentiment.NewHTTPClassifier(cfg.Sentiment),
	)
	svc.MaxPosts = cfg.Bluesky.MaxPosts

	query := sysutil.FirstNonEmpty(*queryFlag, cfg.DefaultQuery)

	report, err := svc.Run(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("ingestion run failed")
		os.Exit(1)
	}
	log.Info().
		Str("run_id", report.RunID).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("skipped", report.Skipped).
		Msg("ingestion run complete")
}
