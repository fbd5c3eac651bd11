// Package translate normalizes post text into the pipeline's working
// language. Translation is best-effort: the service implementation detects
// the source language and translates in a single call, and any service
// failure degrades to a logged passthrough of the original text. It never
// blocks the pipeline.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// Result is the outcome of one translation attempt.
//
// Language is the code recorded on the stored post: the target language code
// when the input already was in the target language, "machine-<target>" when
// a translation was applied, the detected source code when translation
// degraded to passthrough, or "unknown" when even detection failed.
type Result struct {
	Text     string
	Language string
}

// Google translates via a Google-translate-compatible endpoint
// (translate_a/single with client=gtx). Detection and translation happen in
// one request, so already-target-language text costs a single round trip and
// is returned byte-identical.
type Google struct {
	URL        string
	Target     language.Tag
	HTTPClient *http.Client
}

// NewGoogle builds a Google translator for the given endpoint and target tag.
func NewGoogle(endpoint string, target language.Tag) *Google {
	return &Google{
		URL:        endpoint,
		Target:     target,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Translate maps text into the target language.
//
// Failure semantics: service or decode failures are logged and swallowed;
// the original text comes back with Language "unknown". Only context
// cancellation is surfaced as an error, so callers can abort a run cleanly.
func (g *Google) Translate(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Text: text, Language: g.Target.String()}, nil
	}

	translated, detected, err := g.call(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warn().Err(err).Msg("translation failed, passing text through")
		return Result{Text: text, Language: "unknown"}, nil
	}

	if detected == g.Target.String() {
		// Already in the working language: byte-identical passthrough.
		return Result{Text: text, Language: detected}, nil
	}
	return Result{Text: translated, Language: "machine-" + g.Target.String()}, nil
}

// call performs the HTTP request and decodes the positional-array payload
// the gtx endpoint returns: index 0 holds translated segments, index 2 the
// detected source language.
func (g *Google) call(ctx context.Context, text string) (translated, detected string, err error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", g.Target.String())
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL+"?"+q.Encode(), nil)
	if err != nil {
		return "", "", err
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", "", fmt.Errorf("translate: status %d: %s", resp.StatusCode, msg)
	}

	var payload []any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("translate: decoding response: %w", err)
	}
	if len(payload) < 3 {
		return "", "", fmt.Errorf("translate: short response")
	}

	segments, ok := payload[0].([]any)
	if !ok {
		return "", "", fmt.Errorf("translate: unexpected segment shape")
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}

	detected, ok = payload[2].(string)
	if !ok {
		return "", "", fmt.Errorf("translate: missing detected language")
	}
	return b.String(), detected, nil
}
