// Command migrate creates or updates the database schema. It is a one-time
// operation to be run before first use and after upgrades; the other
// binaries assume the schema already exists.
package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-sky-sentiment/internal/config"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
	"github.com/tbourn/go-sky-sentiment/internal/sysutil"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := repo.OpenDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("database_url", cfg.DatabaseURL).Msg("database open failed")
	}

	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Str("database_url", cfg.DatabaseURL).Msg("schema up to date")
}
