// Analytics HTTP handlers.
//
// This file exposes the read-side REST endpoints that power the dashboard:
//   - GET /summary             (sentiment distribution)
//   - GET /trend               (time-bucketed sentiment series)
//   - GET /words               (word-frequency ranking)
//   - GET /words/by-sentiment  (top words per sentiment label)
//   - GET /lengths             (text length vs. net sentiment series)
//   - GET /heatmap             (day-of-week x hour-of-day activity matrix)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (query term, RFC 3339 time window, top_n)
//   - delegate to the analytics service
//   - implement conditional responses (weak ETag over the post set)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-sky-sentiment/internal/analytics"
	"github.com/tbourn/go-sky-sentiment/internal/pipeline"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
	"github.com/tbourn/go-sky-sentiment/internal/utils"
)

// Analytics is the read-side contract required by the handlers.
type Analytics interface {
	Summary(ctx context.Context, query string, from, to *time.Time) (*analytics.Summary, error)
	Trend(ctx context.Context, query string, from, to *time.Time) (*analytics.Trend, error)
	WordFrequency(ctx context.Context, query string, from, to *time.Time, topN int) ([]analytics.WordCount, error)
	TopWordsBySentiment(ctx context.Context, query string, from, to *time.Time, topN int) (*analytics.SentimentWords, error)
	TextLengthSentiment(ctx context.Context, query string, from, to *time.Time) (*analytics.LengthSentiment, error)
	Heatmap(ctx context.Context, query string, from, to *time.Time) (*analytics.Heatmap, error)
}

// Ingester is the write-side contract required by the ingest handler.
type Ingester interface {
	Run(ctx context.Context, query string) (*pipeline.Report, error)
}

// Handlers bundles the HTTP endpoints and their dependencies.
type Handlers struct {
	db           *gorm.DB
	analytics    Analytics
	ingester     Ingester
	defaultQuery string
}

// New constructs the Handlers set.
func New(db *gorm.DB, a Analytics, ing Ingester, defaultQuery string) *Handlers {
	return &Handlers{db: db, analytics: a, ingester: ing, defaultQuery: defaultQuery}
}

//
// Helpers
//

// queryTerm returns the requested query term, falling back to the default.
func (h *Handlers) queryTerm(c *gin.Context) string {
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		return q
	}
	return h.defaultQuery
}

// parseWindow reads optional from/to query parameters as RFC 3339 timestamps.
// A malformed bound or an inverted window yields an error.
func parseWindow(c *gin.Context) (from, to *time.Time, err error) {
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			return nil, nil, fmt.Errorf("from must be RFC 3339")
		}
		from = &t
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			return nil, nil, fmt.Errorf("to must be RFC 3339")
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to must not precede from")
	}
	return from, to, nil
}

// clampTopN parses top_n with a default of 20 and a cap of 100.
func clampTopN(c *gin.Context) int {
	const (
		defaultTopN = 20
		maxTopN     = 100
	)
	n := utils.AtoiDefault(c.Query("top_n"), defaultTopN)
	if n < 1 {
		n = 1
	}
	if n > maxTopN {
		n = maxTopN
	}
	return n
}

// setETag computes a weak ETag over the query's post set and writes it. It
// returns true when the client already holds the current representation and
// a 304 was sent. Stat failures skip the ETag rather than failing the read.
func (h *Handlers) setETag(c *gin.Context, scope, query string) (done bool) {
	count, maxTS, err := repo.PostsStats(c.Request.Context(), h.db, query)
	if err != nil {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d"`, scope, query, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

//
// Handlers
//

// Summary godoc
// @ID          getSummary
// @Summary     Sentiment distribution
// @Description Returns positive/negative counts, the positive share, and the
// @Description average confidence for posts matching the query and window.
// @Tags        Analytics
// @Produce     json
//
// @Param       q     query  string  false "Query term (defaults to the configured term)"  example(Macron)
// @Param       from  query  string  false "Window start (RFC 3339)"  example(2025-06-01T00:00:00Z)
// @Param       to    query  string  false "Window end (RFC 3339)"    example(2025-06-08T00:00:00Z)
//
// @Success     200  {object}  analytics.Summary
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /summary [get]
func (h *Handlers) Summary(c *gin.Context) {
	query := h.queryTerm(c)
	from, to, err := parseWindow(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if h.setETag(c, "summary", query) {
		return
	}

	sum, err := h.analytics.Summary(c.Request.Context(), query, from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}

// Trend godoc
// @ID          getTrend
// @Summary     Sentiment trend over time
// @Description Returns per-bucket positive/negative counts. Windows spanning
// @Description at most 48 hours are bucketed by hour, wider ones by day.
// @Tags        Analytics
// @Produce     json
//
// @Param       q     query  string  false "Query term"
// @Param       from  query  string  false "Window start (RFC 3339)"
// @Param       to    query  string  false "Window end (RFC 3339)"
//
// @Success     200  {object}  analytics.Trend
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /trend [get]
func (h *Handlers) Trend(c *gin.Context) {
	query := h.queryTerm(c)
	from, to, err := parseWindow(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if h.setETag(c, "trend", query) {
		return
	}

	trend, err := h.analytics.Trend(c.Request.Context(), query, from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, trend)
}

// WordsResponse wraps a word-frequency ranking.
type WordsResponse struct {
	Words []analytics.WordCount `json:"words"`
}

// Words godoc
// @ID          getWords
// @Summary     Word-frequency ranking
// @Description Returns the most frequent words across cleaned post text,
// @Description after stopword and rare-word filtering.
// @Tags        Analytics
// @Produce     json
//
// @Param       q      query  string  false "Query term"
// @Param       from   query  string  false "Window start (RFC 3339)"
// @Param       to     query  string  false "Window end (RFC 3339)"
// @Param       top_n  query  int     false "Ranking size"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.WordsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /words [get]
func (h *Handlers) Words(c *gin.Context) {
	query := h.queryTerm(c)
	from, to, err := parseWindow(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if h.setETag(c, "words", query) {
		return
	}

	words, err := h.analytics.WordFrequency(c.Request.Context(), query, from, to, clampTopN(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, WordsResponse{Words: words})
}

// WordsBySentiment godoc
// @ID          getWordsBySentiment
// @Summary     Top words per sentiment label
// @Description Returns separate word rankings over positive and negative posts.
// @Tags        Analytics
// @Produce     json
//
// @Param       q      query  string  false "Query term"
// @Param       from   query  string  false "Window start (RFC 3339)"
// @Param       to     query  string  false "Window end (RFC 3339)"
// @Param       top_n  query  int     false "Ranking size per label"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  analytics.SentimentWords
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /words/by-sentiment [get]
func (h *Handlers) WordsBySentiment(c *gin.Context) {
	query := h.queryTerm(c)
	from, to, err := parseWindow(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if h.setETag(c, "words-by-sentiment", query) {
		return
	}

	words, err := h.analytics.TopWordsBySentiment(c.Request.Context(), query, from, to, clampTopN(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, words)
}

// Lengths godoc
// @ID          getLengths
// @Summary     Text length vs. sentiment
// @Description Returns one point per post relating the cleaned-text word
// @Description count to the net sentiment score in [-1, 1]. Posts under
// @Description three words are excluded.
// @Tags        Analytics
// @Produce     json
//
// @Param       q     query  string  false "Query term"
// @Param       from  query  string  false "Window start (RFC 3339)"
// @Param       to    query  string  false "Window end (RFC 3339)"
//
// @Success     200  {object}  analytics.LengthSentiment
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /lengths [get]
func (h *Handlers) Lengths(c *gin.Context) {
	query := h.queryTerm(c)
	from, to, err := parseWindow(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if h.setETag(c, "lengths", query) {
		return
	}

	ls, err := h.analytics.TextLengthSentiment(c.Request.Context(), query, from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ls)
}

// Heatmap godoc
// @ID          getHeatmap
// @Summary     Activity heatmap
// @Description Returns a 7x24 post-count matrix by day-of-week (Monday first)
// @Description and hour-of-day, in UTC.
// @Tags        Analytics
// @Produce     json
//
// @Param       q     query  string  false "Query term"
// @Param       from  query  string  false "Window start (RFC 3339)"
// @Param       to    query  string  false "Window end (RFC 3339)"
//
// @Success     200  {object}  analytics.Heatmap
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /heatmap [get]
func (h *Handlers) Heatmap(c *gin.Context) {
	query := h.queryTerm(c)
	from, to, err := parseWindow(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if h.setETag(c, "heatmap", query) {
		return
	}

	hm, err := h.analytics.Heatmap(c.Request.Context(), query, from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, hm)
}
