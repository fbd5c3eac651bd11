package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-sky-sentiment/internal/bluesky"
	"github.com/tbourn/go-sky-sentiment/internal/domain"
	"github.com/tbourn/go-sky-sentiment/internal/sentiment"
	"github.com/tbourn/go-sky-sentiment/internal/translate"
)

// --- fakes ---

type fakeFeed struct {
	loginErr  error
	records   []bluesky.Record
	searchErr error
}

func (f *fakeFeed) Login(ctx context.Context) error { return f.loginErr }

func (f *fakeFeed) SearchPosts(ctx context.Context, query string, max int) ([]bluesky.Record, error) {
	if len(f.records) > max {
		return f.records[:max], f.searchErr
	}
	return f.records, f.searchErr
}

type fakeTranslator struct {
	failOn map[string]bool // keyed by input text
	calls  int
}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (translate.Result, error) {
	f.calls++
	if f.failOn[text] {
		return translate.Result{}, errors.New("translate boom")
	}
	return translate.Result{Text: text, Language: "en"}, nil
}

type fakeClassifier struct {
	label string
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (sentiment.Prediction, error) {
	f.calls++
	if f.err != nil {
		return sentiment.Prediction{}, f.err
	}
	label := f.label
	if label == "" {
		label = domain.SentimentPositive
	}
	return sentiment.Prediction{Label: label, Score: 0.95}, nil
}

func newPipelineDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("pipeline_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Post{}, &domain.IngestRun{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func record(id, txt string) bluesky.Record {
	return bluesky.Record{
		URI:       "at://did:plc:test/app.bsky.feed.post/" + id,
		CID:       "cid-" + id,
		Author:    "alice.bsky.social",
		Text:      txt,
		Language:  "en",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func countPosts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Post{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// --- tests ---

func TestRun_InsertsAndRecordsRun(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{records: []bluesky.Record{
		record("1", "I love this"),
		record("2", "I hate this"),
	}}
	svc := NewService(db, feed, &fakeTranslator{}, &fakeClassifier{})

	rep, err := svc.Run(context.Background(), "macron")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Fetched != 2 || rep.Inserted != 2 || rep.Duplicates != 0 || rep.Skipped != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Status != domain.RunStatusSucceeded {
		t.Fatalf("status = %q", rep.Status)
	}
	if got := countPosts(t, db); got != 2 {
		t.Fatalf("rows = %d", got)
	}

	var run domain.IngestRun
	if err := db.First(&run, "id = ?", rep.RunID).Error; err != nil {
		t.Fatalf("load run: %v", err)
	}
	if run.Status != domain.RunStatusSucceeded || run.Inserted != 2 || run.FinishedAt == nil {
		t.Fatalf("run row = %+v", run)
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{records: []bluesky.Record{
		record("1", "first post"),
		record("2", "second post"),
	}}
	tr := &fakeTranslator{}
	svc := NewService(db, feed, tr, &fakeClassifier{})
	ctx := context.Background()

	if _, err := svc.Run(ctx, "macron"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := tr.calls

	// Same two IDs plus one new record.
	feed.records = append(feed.records, record("3", "third post"))
	rep, err := svc.Run(ctx, "macron")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.Inserted != 1 || rep.Duplicates != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if got := countPosts(t, db); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	// Duplicates are short-circuited before translation.
	if tr.calls != firstCalls+1 {
		t.Fatalf("translator calls = %d, want %d", tr.calls, firstCalls+1)
	}
}

func TestRun_AuthFailure(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{loginErr: bluesky.ErrAuthFailed}
	svc := NewService(db, feed, &fakeTranslator{}, &fakeClassifier{})

	rep, err := svc.Run(context.Background(), "macron")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if !errors.Is(err, bluesky.ErrAuthFailed) {
		t.Fatalf("err = %v, must wrap ErrAuthFailed", err)
	}
	if rep.Status != domain.RunStatusFailed || rep.Inserted != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if got := countPosts(t, db); got != 0 {
		t.Fatalf("rows = %d, want 0", got)
	}

	var run domain.IngestRun
	if err := db.First(&run, "id = ?", rep.RunID).Error; err != nil {
		t.Fatalf("load run: %v", err)
	}
	if run.Status != domain.RunStatusFailed || run.Error == "" {
		t.Fatalf("run row = %+v", run)
	}
}

func TestRun_TranslationFailureSkipsOnlyThatPost(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{records: []bluesky.Record{
		record("1", "good post"),
		record("2", "broken post"),
		record("3", "fine post"),
	}}
	tr := &fakeTranslator{failOn: map[string]bool{"broken post": true}}
	svc := NewService(db, feed, tr, &fakeClassifier{})

	rep, err := svc.Run(context.Background(), "macron")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Inserted != 2 || rep.Skipped != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if got := countPosts(t, db); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
}

func TestRun_ClassifierFailureSkips(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{records: []bluesky.Record{record("1", "some post")}}
	svc := NewService(db, feed, &fakeTranslator{}, &fakeClassifier{err: errors.New("model down")})

	rep, err := svc.Run(context.Background(), "macron")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Skipped != 1 || rep.Inserted != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Status != domain.RunStatusSucceeded {
		t.Fatalf("status = %q", rep.Status)
	}
}

func TestRun_EmptyAfterCleaningSkips(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{records: []bluesky.Record{record("1", "@alice.bsky.social https://example.com")}}
	cl := &fakeClassifier{}
	svc := NewService(db, feed, &fakeTranslator{}, cl)

	rep, err := svc.Run(context.Background(), "macron")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Skipped != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if cl.calls != 0 {
		t.Fatalf("classifier called %d times for empty text", cl.calls)
	}
}

func TestRun_PartialFetchStillStores(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{
		records:   []bluesky.Record{record("1", "partial page")},
		searchErr: errors.New("page 2 unavailable"),
	}
	svc := NewService(db, feed, &fakeTranslator{}, &fakeClassifier{})

	rep, err := svc.Run(context.Background(), "macron")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if rep.Inserted != 1 || rep.Status != domain.RunStatusFailed {
		t.Fatalf("report = %+v", rep)
	}
	if got := countPosts(t, db); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestRun_MaxPostsCap(t *testing.T) {
	db := newPipelineDB(t)
	feed := &fakeFeed{records: []bluesky.Record{
		record("1", "one"), record("2", "two"), record("3", "three"),
	}}
	svc := NewService(db, feed, &fakeTranslator{}, &fakeClassifier{})
	svc.MaxPosts = 2

	rep, err := svc.Run(context.Background(), "macron")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Fetched != 2 || rep.Inserted != 2 {
		t.Fatalf("report = %+v", rep)
	}
}
