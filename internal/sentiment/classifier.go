// Package sentiment wraps a pre-trained binary sentiment model exposed over
// HTTP. The model is a black box to this codebase: the package only owns the
// input/output contract (text in, positive/negative label plus confidence
// out) and the truncation policy for over-long input.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/go-sky-sentiment/internal/config"
	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

// Prediction is one classified text: a label from the domain sentiment set
// and a confidence score in [0,1].
type Prediction struct {
	Label string
	Score float64
}

// HTTPClassifier calls a hosted text-classification inference endpoint
// (HuggingFace inference protocol: POST {"inputs": text} → ranked label
// scores). For a fixed model version the output is deterministic.
type HTTPClassifier struct {
	URL        string
	Token      string
	MaxRunes   int // leading-truncation budget for model input
	HTTPClient *http.Client
}

// NewHTTPClassifier builds a classifier from configuration.
func NewHTTPClassifier(cfg config.SentimentConfig) *HTTPClassifier {
	return &HTTPClassifier{
		URL:        cfg.URL,
		Token:      cfg.Token,
		MaxRunes:   cfg.MaxRunes,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Classify returns the sentiment label and confidence for text. Input longer
// than the model window is truncated to its leading MaxRunes runes. Errors
// are returned to the caller; the pipeline treats them as per-post failures.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	text = Truncate(text, c.MaxRunes)

	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("sentiment: status %d: %s", resp.StatusCode, msg)
	}

	// The endpoint returns [[{"label":"POSITIVE","score":0.99}, ...]].
	var ranked [][]struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ranked); err != nil {
		return Prediction{}, fmt.Errorf("sentiment: decoding response: %w", err)
	}
	if len(ranked) == 0 || len(ranked[0]) == 0 {
		return Prediction{}, fmt.Errorf("sentiment: empty prediction")
	}

	best := ranked[0][0]
	for _, cand := range ranked[0][1:] {
		if cand.Score > best.Score {
			best = cand
		}
	}

	label, err := normalizeLabel(best.Label)
	if err != nil {
		return Prediction{}, err
	}
	if best.Score < 0 || best.Score > 1 {
		return Prediction{}, fmt.Errorf("sentiment: score %f out of range", best.Score)
	}
	return Prediction{Label: label, Score: best.Score}, nil
}

// normalizeLabel maps model label spellings onto the domain sentiment set.
func normalizeLabel(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "label_1", "pos":
		return domain.SentimentPositive, nil
	case "negative", "label_0", "neg":
		return domain.SentimentNegative, nil
	default:
		return "", fmt.Errorf("sentiment: unrecognized label %q", raw)
	}
}

// Truncate keeps the leading max runes of s. A max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
