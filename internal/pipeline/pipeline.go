// Package pipeline – ingestion orchestrator
//
// This file implements the Service that drives a full ingestion run: fetch
// posts from the feed, normalize their text, translate to the target
// language, classify sentiment, and persist the survivors. Each run is
// recorded as an IngestRun row with per-outcome counters so operators can
// audit what a run did after the fact.
//
// Per-post failures (translation, classification, storage) skip that post
// and never abort the run; only fetch/auth failures and context
// cancellation are terminal.
//
// Observability: Run is OpenTelemetry-instrumented and exports Prometheus
// counters for posts by outcome and runs by terminal status.
package pipeline

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-sky-sentiment/internal/bluesky"
	"github.com/tbourn/go-sky-sentiment/internal/domain"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
	"github.com/tbourn/go-sky-sentiment/internal/sentiment"
	"github.com/tbourn/go-sky-sentiment/internal/text"
	"github.com/tbourn/go-sky-sentiment/internal/translate"
)

// ErrFetchFailed wraps feed-level failures (login or search) that abort a run.
var ErrFetchFailed = errors.New("feed fetch failed")

// FeedClient is the feed contract required by the pipeline.
type FeedClient interface {
	// Login authenticates against the feed and caches the session token.
	Login(ctx context.Context) error

	// SearchPosts returns up to max records matching query. On a mid-run
	// page failure it returns the records fetched so far alongside the error.
	SearchPosts(ctx context.Context, query string, max int) ([]bluesky.Record, error)
}

// Translator converts text to the configured target language.
type Translator interface {
	Translate(ctx context.Context, text string) (translate.Result, error)
}

// Classifier assigns a sentiment label and confidence to a text.
type Classifier interface {
	Classify(ctx context.Context, text string) (sentiment.Prediction, error)
}

var (
	// pipelinePosts counts per-post outcomes across all runs.
	pipelinePosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_posts_total",
			Help: "Total posts handled by the ingestion pipeline, by outcome.",
		},
		[]string{"outcome"}, // inserted | duplicate | skipped
	)

	// pipelineRuns counts finished runs by terminal status.
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total ingestion runs, by terminal status.",
		},
		[]string{"status"}, // succeeded | failed
	)
)

func init() {
	prometheus.MustRegister(pipelinePosts, pipelineRuns)
}

// Service orchestrates one ingestion run end to end.
type Service struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Feed supplies raw posts.
	Feed FeedClient
	// Translator normalizes language before classification.
	Translator Translator
	// Classifier assigns sentiment labels.
	Classifier Classifier

	// MaxPosts caps how many records a single run fetches.
	MaxPosts int
}

// NewService constructs a pipeline Service with a default fetch cap.
func NewService(db *gorm.DB, feed FeedClient, tr Translator, cl Classifier) *Service {
	return &Service{
		DB:         db,
		Feed:       feed,
		Translator: tr,
		Classifier: cl,
		MaxPosts:   500,
	}
}

// Report summarizes a finished run.
type Report struct {
	RunID      string `json:"run_id"`
	Query      string `json:"query"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Status     string `json:"status"`
}

// Run executes one ingestion pass for query and records it as an IngestRun.
//
// Fetch failures (authentication, search) mark the run failed and return an
// error; any records fetched before a mid-run page failure are still
// processed. Per-post translation or classification failures skip only that
// post. A post whose URI is already stored counts as a duplicate and is
// short-circuited before any network call.
func (s *Service) Run(ctx context.Context, query string) (*Report, error) {
	tr := otel.Tracer("pipeline/Service")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(attribute.String("feed.query", query)),
	)
	defer span.End()

	run, err := repo.CreateRun(ctx, s.DB, query)
	if err != nil {
		return nil, err
	}

	records, fetchErr := s.fetch(ctx, query)
	run.Fetched = len(records)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, run, err)
		}
		switch s.process(ctx, run, query, rec) {
		case outcomeInserted:
			run.Inserted++
			pipelinePosts.WithLabelValues("inserted").Inc()
		case outcomeDuplicate:
			run.Duplicates++
			pipelinePosts.WithLabelValues("duplicate").Inc()
		case outcomeSkipped:
			run.Skipped++
			pipelinePosts.WithLabelValues("skipped").Inc()
		}
	}

	return s.finish(ctx, run, fetchErr)
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeDuplicate
	outcomeSkipped
)

// fetch logs in and pulls up to MaxPosts records for query.
func (s *Service) fetch(ctx context.Context, query string) ([]bluesky.Record, error) {
	if err := s.Feed.Login(ctx); err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	records, err := s.Feed.SearchPosts(ctx, query, s.MaxPosts)
	if err != nil {
		return records, errors.Join(ErrFetchFailed, err)
	}
	return records, nil
}

// process pushes one record through clean -> translate -> classify -> insert.
func (s *Service) process(ctx context.Context, run *domain.IngestRun, query string, rec bluesky.Record) outcome {
	exists, err := repo.PostExists(ctx, s.DB, rec.URI)
	if err != nil {
		log.Warn().Err(err).Str("uri", rec.URI).Msg("pipeline: existence check failed")
		return outcomeSkipped
	}
	if exists {
		return outcomeDuplicate
	}

	cleaned := text.Clean(rec.Text)
	if cleaned == "" {
		return outcomeSkipped
	}

	res, err := s.Translator.Translate(ctx, cleaned)
	if err != nil {
		log.Warn().Err(err).Str("uri", rec.URI).Msg("pipeline: translation failed, skipping post")
		return outcomeSkipped
	}

	pred, err := s.Classifier.Classify(ctx, res.Text)
	if err != nil {
		log.Warn().Err(err).Str("uri", rec.URI).Msg("pipeline: classification failed, skipping post")
		return outcomeSkipped
	}

	post := &domain.Post{
		URI:         rec.URI,
		CID:         rec.CID,
		Author:      rec.Author,
		Text:        rec.Text,
		CleanedText: res.Text,
		Language:    res.Language,
		Sentiment:   pred.Label,
		Confidence:  pred.Score,
		CreatedAt:   rec.CreatedAt,
		Query:       query,
	}
	inserted, err := repo.InsertPost(ctx, s.DB, post)
	if err != nil {
		log.Warn().Err(err).Str("uri", rec.URI).Msg("pipeline: insert failed, skipping post")
		return outcomeSkipped
	}
	if !inserted {
		// Concurrent run got there first; dedup is enforced by the unique index.
		return outcomeDuplicate
	}
	return outcomeInserted
}

// finish stamps the run's terminal state and builds the report.
func (s *Service) finish(ctx context.Context, run *domain.IngestRun, runErr error) (*Report, error) {
	run.Status = domain.RunStatusSucceeded
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	}
	pipelineRuns.WithLabelValues(run.Status).Inc()

	// Use a fresh context so a canceled run still gets its terminal row.
	if err := repo.FinishRun(context.WithoutCancel(ctx), s.DB, run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("pipeline: failed to finalize run")
	}

	report := &Report{
		RunID:      run.ID,
		Query:      run.Query,
		Fetched:    run.Fetched,
		Inserted:   run.Inserted,
		Duplicates: run.Duplicates,
		Skipped:    run.Skipped,
		Status:     run.Status,
	}

	log.Info().
		Str("run_id", run.ID).
		Str("query", run.Query).
		Int("fetched", run.Fetched).
		Int("inserted", run.Inserted).
		Int("duplicates", run.Duplicates).
		Int("skipped", run.Skipped).
		Str("status", run.Status).
		Msg("pipeline: run finished")

	return report, runErr
}
