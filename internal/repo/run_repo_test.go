package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

func TestCreateAndFinishRun(t *testing.T) {
	db := newRepoDB(t, &domain.IngestRun{})
	ctx := context.Background()

	r, err := CreateRun(ctx, db, "macron")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if r.ID == "" || r.Status != domain.RunStatusRunning || r.StartedAt.IsZero() {
		t.Fatalf("unexpected run: %+v", r)
	}

	r.Fetched = 10
	r.Inserted = 7
	r.Duplicates = 2
	r.Skipped = 1
	r.Status = domain.RunStatusSucceeded
	if err := FinishRun(ctx, db, r); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	var got domain.IngestRun
	if err := db.First(&got, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.RunStatusSucceeded || got.Inserted != 7 || got.FinishedAt == nil {
		t.Fatalf("unexpected finished run: %+v", got)
	}
}

func TestFinishRun_Missing(t *testing.T) {
	db := newRepoDB(t, &domain.IngestRun{})
	r := &domain.IngestRun{ID: "nope", Status: domain.RunStatusFailed}
	if err := FinishRun(context.Background(), db, r); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRuns_NewestFirstAndLimit(t *testing.T) {
	db := newRepoDB(t, &domain.IngestRun{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		run := domain.IngestRun{
			ID:        id,
			Query:     "macron",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    domain.RunStatusSucceeded,
		}
		if err := db.Create(&run).Error; err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	runs, err := ListRuns(ctx, db, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	// Non-positive limit falls back to the default.
	runs, err = ListRuns(ctx, db, 0)
	if err != nil {
		t.Fatalf("ListRuns default: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len = %d", len(runs))
	}
}
