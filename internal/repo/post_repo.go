// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition.
//
// Error semantics:
//   - InsertPost reports a unique-constraint hit on the URI as a normal
//     "duplicate" outcome (false, nil), never as an error. Idempotent
//     ingestion leans on this plus the storage-layer unique index.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// PostExists reports whether a post with the given URI is already stored.
// Used by the pipeline as a cheap dedup short-circuit before cleaning,
// translation, and classification are paid for.
func PostExists(ctx context.Context, db *gorm.DB, uri string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("uri = ?", uri).
		Count(&count).Error
	return count > 0, err
}

// InsertPost persists a fully-populated post. The first return value is true
// when a new row was written and false when the URI already existed. The
// storage-layer unique index closes the check-then-insert race between
// overlapping runs, so a duplicate here is an expected outcome, not an error.
func InsertPost(ctx context.Context, db *gorm.DB, p *domain.Post) (bool, error) {
	if p.FetchedAt.IsZero() {
		p.FetchedAt = time.Now().UTC()
	}
	err := db.WithContext(ctx).Create(p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListPosts returns all posts for a query, optionally bounded by a
// [from, to] window on the platform creation time, ordered deterministically
// (CreatedAt ASC, ID ASC). An empty result is a valid, empty slice.
func ListPosts(ctx context.Context, db *gorm.DB, query string, from, to *time.Time) ([]domain.Post, error) {
	out := []domain.Post{}
	q := db.WithContext(ctx).
		Where("query = ?", query).
		Order("created_at ASC, id ASC")
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountPosts returns the number of stored posts for a query within the
// optional window.
func CountPosts(ctx context.Context, db *gorm.DB, query string, from, to *time.Time) (int64, error) {
	var total int64
	q := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("query = ?", query)
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListPostsPage returns a paginated slice of posts for a query, newest
// first. Use CountPosts for pagination metadata.
func ListPostsPage(ctx context.Context, db *gorm.DB, query string, offset, limit int) ([]domain.Post, error) {
	out := []domain.Post{}
	err := db.WithContext(ctx).
		Where("query = ?", query).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
