// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP API, the ingestion pipeline (BlueSky credentials, fetch bounds), the
// translation and sentiment services, persistence, logging, rate limiting,
// and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-sky-sentiment")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BlueskyConfig holds credentials and endpoints for the BlueSky feed API.
type BlueskyConfig struct {
	Username  string // BLUESKY_USERNAME (handle or email)
	Password  string // BLUESKY_PASSWORD (app password)
	AuthURL   string // session endpoint base, e.g. "https://bsky.social"
	SearchURL string // search endpoint base, e.g. "https://api.bsky.app"
	MaxPosts  int    // upper bound of posts per run
	PageSize  int    // posts per search page (platform max 100)
	PageRPS   float64
}

// TranslateConfig holds the translation service settings.
type TranslateConfig struct {
	URL        string       // TRANSLATE_URL
	TargetLang language.Tag // parsed from TARGET_LANG
}

// SentimentConfig holds the sentiment inference endpoint settings.
type SentimentConfig struct {
	URL      string // SENTIMENT_URL (inference endpoint for the fixed model)
	Token    string // SENTIMENT_TOKEN (optional bearer token)
	MaxRunes int    // input truncation budget (leading portion kept)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DatabaseURL  string // postgres URL or a SQLite file path
	DefaultQuery string // initial search term for ingestion

	Bluesky   BlueskyConfig
	Translate TranslateConfig
	Sentiment SentimentConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DatabaseURL:  getenv("DATABASE_URL", "skysentiment.db"),
		DefaultQuery: getenv("DEFAULT_QUERY", "Macron"),

		Bluesky: BlueskyConfig{
			Username:  getenv("BLUESKY_USERNAME", ""),
			Password:  getenv("BLUESKY_PASSWORD", ""),
			AuthURL:   getenv("BLUESKY_AUTH_URL", "https://bsky.social"),
			SearchURL: getenv("BLUESKY_SEARCH_URL", "https://api.bsky.app"),
			MaxPosts:  getint("FETCH_MAX_POSTS", 500),
			PageSize:  getint("FETCH_PAGE_SIZE", 100),
			PageRPS:   getfloat("FETCH_PAGE_RPS", 2.0),
		},

		Translate: TranslateConfig{
			URL: getenv("TRANSLATE_URL", "https://translate.googleapis.com/translate_a/single"),
		},

		Sentiment: SentimentConfig{
			URL:      getenv("SENTIMENT_URL", "https://api-inference.huggingface.co/models/distilbert-base-uncased-finetuned-sst-2-english"),
			Token:    getenv("SENTIMENT_TOKEN", ""),
			MaxRunes: getint("SENTIMENT_MAX_RUNES", 512),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-sky-sentiment"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	tag, err := language.Parse(getenv("TARGET_LANG", "en"))
	if err != nil {
		return cfg, errors.New("TARGET_LANG must be a valid BCP 47 language tag")
	}
	cfg.Translate.TargetLang = tag

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("DATABASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.DefaultQuery) == "" {
		return cfg, errors.New("DEFAULT_QUERY must not be empty")
	}
	if cfg.Bluesky.MaxPosts < 1 {
		return cfg, errors.New("FETCH_MAX_POSTS must be >= 1")
	}
	if cfg.Bluesky.PageSize < 1 || cfg.Bluesky.PageSize > 100 {
		return cfg, errors.New("FETCH_PAGE_SIZE must be in [1,100]")
	}
	if cfg.Bluesky.PageRPS <= 0 {
		return cfg, errors.New("FETCH_PAGE_RPS must be > 0")
	}
	if cfg.Sentiment.MaxRunes < 1 {
		return cfg, errors.New("SENTIMENT_MAX_RUNES must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
