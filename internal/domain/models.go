// Package domain defines the persistence models for fetched posts and
// ingestion runs. These types are mapped with GORM and form the core data
// layer of the sentiment pipeline.
package domain

import (
	"time"
)

// Sentiment labels produced by the classifier. The pipeline stores exactly
// one of these per post; there is no neutral class.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

// Post is a single BlueSky post that survived the full pipeline
// (fetch → clean → translate → classify). Rows are written exactly once and
// never updated: the sentiment label and score are fixed at ingestion time.
//
// Fields:
//   - URI: platform-native post identifier (at:// URI); unique index, the
//     sole dedup key across all queries.
//   - CID: content hash reported by the platform.
//   - Author: handle of the posting account.
//   - Text / CleanedText: raw text as fetched and its normalized form.
//   - Language: ISO code reported or detected; "machine-<lang>" when the
//     stored text is a machine translation.
//   - Sentiment / Confidence: classifier output, set once at ingestion.
//   - CreatedAt: platform-reported creation time (UTC).
//   - Query: the search term this post was fetched under.
type Post struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	URI         string    `json:"uri"          gorm:"type:varchar(512);not null;uniqueIndex:ux_posts_uri"`
	CID         string    `json:"cid"          gorm:"type:varchar(255)"`
	Author      string    `json:"author"       gorm:"type:varchar(255)"`
	Text        string    `json:"text"         gorm:"type:text"`
	CleanedText string    `json:"cleaned_text" gorm:"type:text;not null"`
	Language    string    `json:"language"     gorm:"type:varchar(32)"`
	Sentiment   string    `json:"sentiment"    gorm:"type:varchar(16);not null;check:sentiment IN ('positive','negative')"`
	Confidence  float64   `json:"confidence"   gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_posts_query_created,priority:2"`
	Query       string    `json:"query"        gorm:"type:varchar(255);not null;index:idx_posts_query_created,priority:1"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Run states for IngestRun.Status.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// IngestRun records one execution of the pipeline over one fetch result set.
// It exists for operational visibility only; the dedup continuation mechanism
// is the posts table itself, never this history.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Query: search term the run fetched.
//   - StartedAt / FinishedAt: run boundaries (UTC); FinishedAt nil while running.
//   - Fetched / Inserted / Duplicates / Skipped: per-run outcome counters.
//   - Status: running | succeeded | failed.
//   - Error: terminal failure description (auth errors and the like).
type IngestRun struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	Query      string     `json:"query"       gorm:"type:varchar(255);not null;index"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Fetched    int        `json:"fetched"`
	Inserted   int        `json:"inserted"`
	Duplicates int        `json:"duplicates"`
	Skipped    int        `json:"skipped"`
	Status     string     `json:"status"      gorm:"type:varchar(16);not null;check:status IN ('running','succeeded','failed')"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for IngestRun.
func (IngestRun) TableName() string { return "ingest_runs" }
