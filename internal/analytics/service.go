// Package analytics – read-side aggregation layer
//
// This file implements the Service that turns stored posts into
// presentation-ready aggregates: sentiment counts, time-bucketed trends,
// word frequencies, per-sentiment top words, a text-length versus sentiment
// series, and an activity heatmap. All
// methods are pure reads over the Post table scoped to one query term and
// an optional time window; an empty result set yields well-formed empty
// aggregates rather than an error.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the query term and result cardinality.
package analytics

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
)

// hourBucketSpan is the largest window that is still bucketed by hour.
// Wider windows fall back to day buckets.
const hourBucketSpan = 48 * time.Hour

// Granularity values reported by Trend.
const (
	GranularityHour = "hour"
	GranularityDay  = "day"
)

// Service computes aggregates over stored posts.
type Service struct {
	// DB is the GORM handle used for reads.
	DB *gorm.DB
}

// NewService constructs an analytics Service.
func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Summary holds the sentiment distribution for a query.
type Summary struct {
	Total         int     `json:"total"`
	Positive      int     `json:"positive"`
	Negative      int     `json:"negative"`
	PositiveShare float64 `json:"positive_share"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Summary computes the sentiment distribution for query within the window.
func (s *Service) Summary(ctx context.Context, query string, from, to *time.Time) (*Summary, error) {
	tr := otel.Tracer("analytics/Service")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(attribute.String("feed.query", query)),
	)
	defer span.End()

	posts, err := repo.ListPosts(ctx, s.DB, query, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))

	out := &Summary{}
	var confSum float64
	for _, p := range posts {
		out.Total++
		confSum += p.Confidence
		if p.Sentiment == domain.SentimentPositive {
			out.Positive++
		} else {
			out.Negative++
		}
	}
	if out.Total > 0 {
		out.PositiveShare = float64(out.Positive) / float64(out.Total)
		out.AvgConfidence = confSum / float64(out.Total)
	}
	return out, nil
}

// TrendPoint is one time bucket of the sentiment trend.
type TrendPoint struct {
	Bucket   time.Time `json:"bucket"`
	Positive int       `json:"positive"`
	Negative int       `json:"negative"`
}

// Trend is a time-bucketed sentiment series.
type Trend struct {
	Granularity string       `json:"granularity"`
	Points      []TrendPoint `json:"points"`
}

// Trend buckets posts over time. Windows spanning at most 48 hours are
// bucketed by hour, wider ones by day. The span is taken from the explicit
// window when given, otherwise from the posts themselves. Only buckets
// containing posts are emitted, in ascending order.
func (s *Service) Trend(ctx context.Context, query string, from, to *time.Time) (*Trend, error) {
	tr := otel.Tracer("analytics/Service")
	ctx, span := tr.Start(ctx, "Trend",
		trace.WithAttributes(attribute.String("feed.query", query)),
	)
	defer span.End()

	posts, err := repo.ListPosts(ctx, s.DB, query, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))

	out := &Trend{Granularity: GranularityDay, Points: []TrendPoint{}}
	if len(posts) == 0 {
		return out, nil
	}

	if windowSpan(posts, from, to) <= hourBucketSpan {
		out.Granularity = GranularityHour
	}

	buckets := make(map[time.Time]*TrendPoint)
	for _, p := range posts {
		b := bucketOf(p.CreatedAt, out.Granularity)
		pt, ok := buckets[b]
		if !ok {
			pt = &TrendPoint{Bucket: b}
			buckets[b] = pt
		}
		if p.Sentiment == domain.SentimentPositive {
			pt.Positive++
		} else {
			pt.Negative++
		}
	}

	for _, pt := range buckets {
		out.Points = append(out.Points, *pt)
	}
	sort.Slice(out.Points, func(i, j int) bool {
		return out.Points[i].Bucket.Before(out.Points[j].Bucket)
	})
	return out, nil
}

// windowSpan derives the trend span from the explicit window when both
// bounds are set, otherwise from the first/last post timestamps.
func windowSpan(posts []domain.Post, from, to *time.Time) time.Duration {
	if from != nil && to != nil {
		return to.Sub(*from)
	}
	// Posts arrive ordered by created_at ascending.
	return posts[len(posts)-1].CreatedAt.Sub(posts[0].CreatedAt)
}

// bucketOf truncates t (in UTC) to the bucket boundary for the granularity.
func bucketOf(t time.Time, granularity string) time.Time {
	t = t.UTC()
	if granularity == GranularityHour {
		return t.Truncate(time.Hour)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WordCount is one entry of a word-frequency ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequency ranks words across the cleaned text of matching posts.
// Tokens shorter than three letters, stopwords, and words occurring only
// once are dropped; the remainder is ranked by count descending with
// alphabetical tie-breaks, capped at topN.
func (s *Service) WordFrequency(ctx context.Context, query string, from, to *time.Time, topN int) ([]WordCount, error) {
	tr := otel.Tracer("analytics/Service")
	ctx, span := tr.Start(ctx, "WordFrequency",
		trace.WithAttributes(
			attribute.String("feed.query", query),
			attribute.Int("top_n", topN),
		),
	)
	defer span.End()

	posts, err := repo.ListPosts(ctx, s.DB, query, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))

	counts := make(map[string]int)
	for _, p := range posts {
		countWords(counts, p.CleanedText)
	}
	// Words seen only once are noise at dashboard scale.
	for w, n := range counts {
		if n < 2 {
			delete(counts, w)
		}
	}
	return rank(counts, topN), nil
}

// SentimentWords groups top words by the sentiment of their posts.
type SentimentWords struct {
	Positive []WordCount `json:"positive"`
	Negative []WordCount `json:"negative"`
}

// TopWordsBySentiment ranks words separately over positive and negative
// posts, topN per label. Unlike WordFrequency it keeps single-occurrence
// words, since per-label corpora are smaller.
func (s *Service) TopWordsBySentiment(ctx context.Context, query string, from, to *time.Time, topN int) (*SentimentWords, error) {
	tr := otel.Tracer("analytics/Service")
	ctx, span := tr.Start(ctx, "TopWordsBySentiment",
		trace.WithAttributes(
			attribute.String("feed.query", query),
			attribute.Int("top_n", topN),
		),
	)
	defer span.End()

	posts, err := repo.ListPosts(ctx, s.DB, query, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))

	pos := make(map[string]int)
	neg := make(map[string]int)
	for _, p := range posts {
		if p.Sentiment == domain.SentimentPositive {
			countWords(pos, p.CleanedText)
		} else {
			countWords(neg, p.CleanedText)
		}
	}
	return &SentimentWords{
		Positive: rank(pos, topN),
		Negative: rank(neg, topN),
	}, nil
}

// LengthPoint pairs the word count of one post's cleaned text with its
// scaled sentiment score.
type LengthPoint struct {
	TextLength   int     `json:"text_length"`
	NetSentiment float64 `json:"net_sentiment"`
}

// LengthSentiment relates post length to sentiment strength.
type LengthSentiment struct {
	Points []LengthPoint `json:"points"`
}

// minLengthWords drops posts too short to carry a length signal.
const minLengthWords = 3

// TextLengthSentiment maps each matching post to a (word count, net
// sentiment) point. Net sentiment rescales the classifier confidence to
// [-1, 1]: confident positives approach 1, confident negatives -1, and
// either label at confidence 0.5 sits at zero. Posts under three words are
// skipped. Points come back ordered by length ascending.
func (s *Service) TextLengthSentiment(ctx context.Context, query string, from, to *time.Time) (*LengthSentiment, error) {
	tr := otel.Tracer("analytics/Service")
	ctx, span := tr.Start(ctx, "TextLengthSentiment",
		trace.WithAttributes(attribute.String("feed.query", query)),
	)
	defer span.End()

	posts, err := repo.ListPosts(ctx, s.DB, query, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))

	out := &LengthSentiment{Points: []LengthPoint{}}
	for _, p := range posts {
		wc := len(strings.Fields(p.CleanedText))
		if wc < minLengthWords {
			continue
		}
		net := 2 * (p.Confidence - 0.5)
		if p.Sentiment != domain.SentimentPositive {
			net = -net
		}
		out.Points = append(out.Points, LengthPoint{TextLength: wc, NetSentiment: net})
	}
	sort.SliceStable(out.Points, func(i, j int) bool {
		return out.Points[i].TextLength < out.Points[j].TextLength
	})
	return out, nil
}

// Heatmap is a day-of-week by hour-of-day activity matrix, Monday first.
type Heatmap struct {
	Days   []string `json:"days"`
	Counts [][]int  `json:"counts"` // Counts[day][hour], 7x24
}

// heatmapDays is the row order of the heatmap, Monday first.
var heatmapDays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Heatmap counts posts per (day-of-week, hour-of-day) cell in UTC.
func (s *Service) Heatmap(ctx context.Context, query string, from, to *time.Time) (*Heatmap, error) {
	tr := otel.Tracer("analytics/Service")
	ctx, span := tr.Start(ctx, "Heatmap",
		trace.WithAttributes(attribute.String("feed.query", query)),
	)
	defer span.End()

	posts, err := repo.ListPosts(ctx, s.DB, query, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))

	counts := make([][]int, len(heatmapDays))
	for i := range counts {
		counts[i] = make([]int, 24)
	}
	for _, p := range posts {
		t := p.CreatedAt.UTC()
		day := (int(t.Weekday()) + 6) % 7 // shift Sunday-first to Monday-first
		counts[day][t.Hour()]++
	}
	return &Heatmap{Days: heatmapDays, Counts: counts}, nil
}

// --- word counting helpers ---

// wordRE extracts lowercase word tokens from cleaned text. Cleaned text is
// already lowercased, so uppercase ranges are unnecessary.
var wordRE = regexp.MustCompile(`[a-z']+`)

// countWords tallies qualifying tokens of cleaned text into counts.
func countWords(counts map[string]int, cleaned string) {
	for _, tok := range wordRE.FindAllString(cleaned, -1) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}
}

// rank sorts a count map by count descending, alphabetical on ties, and
// caps the result at topN. topN <= 0 means unlimited.
func rank(counts map[string]int, topN int) []WordCount {
	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// stopwords is a compact English stopword set applied before ranking.
// Contractions are expanded during cleaning, so their long forms are
// covered here ("not", "will", "would").
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "your": {}, "yours": {}, "all": {}, "any": {}, "can": {},
	"had": {}, "has": {}, "have": {}, "her": {}, "his": {}, "him": {},
	"its": {}, "our": {}, "out": {}, "she": {}, "they": {}, "them": {},
	"their": {}, "theirs": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "would": {}, "could": {},
	"should": {}, "what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"who": {}, "whom": {}, "why": {}, "how": {}, "from": {}, "into": {},
	"about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "during": {}, "each": {}, "few": {},
	"further": {}, "here": {}, "more": {}, "most": {}, "other": {},
	"over": {}, "own": {}, "same": {}, "some": {}, "such": {}, "than": {},
	"then": {}, "there": {}, "through": {}, "too": {}, "under": {},
	"until": {}, "very": {}, "just": {}, "now": {}, "only": {}, "once": {},
	"does": {}, "did": {}, "doing": {}, "down": {},
}
