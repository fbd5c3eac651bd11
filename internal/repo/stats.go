// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

// PostsStats returns aggregate metadata for a query's posts: the total
// number of rows and the maximum FetchedAt timestamp among them. When the
// query has no posts, the returned count is 0 and maxFetchedAt is nil.
//
// The pair (count, maxFetchedAt) changes whenever a run inserts new rows,
// which makes it a cheap weak-ETag input for every read endpoint.
func PostsStats(ctx context.Context, db *gorm.DB, query string) (count int64, maxFetchedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Post{}).Where("query = ?", query)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest fetched_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		FetchedAt time.Time
	}
	if err = q.Select("fetched_at").Order("fetched_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.FetchedAt, nil
}
