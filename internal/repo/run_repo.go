// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the IngestRun
// model, the operational history of pipeline executions.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

// CreateRun inserts a new run row in the "running" state and returns it.
func CreateRun(ctx context.Context, db *gorm.DB, query string) (*domain.IngestRun, error) {
	r := &domain.IngestRun{
		ID:        uuid.NewString(),
		Query:     query,
		StartedAt: time.Now().UTC(),
		Status:    domain.RunStatusRunning,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// FinishRun stamps a run with its terminal status, counters, and optional
// error text. Updating a missing run returns ErrNotFound.
func FinishRun(ctx context.Context, db *gorm.DB, r *domain.IngestRun) error {
	now := time.Now().UTC()
	r.FinishedAt = &now
	res := db.WithContext(ctx).
		Model(&domain.IngestRun{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"finished_at": r.FinishedAt,
			"fetched":     r.Fetched,
			"inserted":    r.Inserted,
			"duplicates":  r.Duplicates,
			"skipped":     r.Skipped,
			"status":      r.Status,
			"error":       r.Error,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func ListRuns(ctx context.Context, db *gorm.DB, limit int) ([]domain.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []domain.IngestRun{}
	err := db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
