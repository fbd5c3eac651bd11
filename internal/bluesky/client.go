// Package bluesky implements the feed-fetching boundary against the BlueSky
// (AT Protocol) HTTP API: session authentication and paginated post search.
//
// The client validates every record at the boundary and drops malformed ones
// so only typed, well-formed posts reach the pipeline. Page requests are
// paced with a token bucket to stay polite toward the platform.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-sky-sentiment/internal/config"
)

const (
	sessionPath = "/xrpc/com.atproto.server.createSession"
	searchPath  = "/xrpc/app.bsky.feed.searchPosts"
)

// ErrAuthFailed indicates the createSession call was rejected. Authentication
// failures are fatal for a run: nothing is fetched.
var ErrAuthFailed = errors.New("bluesky: authentication failed")

// Record is one validated post as returned by the search API. Only the
// fields the pipeline consumes are retained.
type Record struct {
	URI       string
	CID       string
	Author    string
	Text      string
	Language  string // first entry of record.langs, may be empty
	CreatedAt time.Time
}

// Client talks to the BlueSky HTTP API. Construct with NewClient; the zero
// value is not usable.
type Client struct {
	authURL    string
	searchURL  string
	username   string
	password   string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter

	accessJwt string
}

// NewClient builds a Client from configuration. The HTTP client applies a
// conservative request timeout; the platform enforces its own beyond that.
func NewClient(cfg config.BlueskyConfig) *Client {
	return &Client{
		authURL:    cfg.AuthURL,
		searchURL:  cfg.SearchURL,
		username:   cfg.Username,
		password:   cfg.Password,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.PageRPS), 1),
	}
}

// Login authenticates against the platform and stores the access JWT for
// subsequent search calls. Missing credentials or a non-200 response yield
// ErrAuthFailed.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return fmt.Errorf("%w: missing credentials", ErrAuthFailed)
	}

	body, err := json.Marshal(map[string]string{
		"identifier": c.username,
		"password":   c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+sessionPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode, msg)
	}

	var session struct {
		AccessJwt string `json:"accessJwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("%w: decoding session: %v", ErrAuthFailed, err)
	}
	if session.AccessJwt == "" {
		return fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}
	c.accessJwt = session.AccessJwt
	return nil
}

// searchResponse mirrors the subset of the searchPosts payload we consume.
type searchResponse struct {
	Cursor string `json:"cursor"`
	Posts  []struct {
		URI    string `json:"uri"`
		CID    string `json:"cid"`
		Author struct {
			Handle string `json:"handle"`
		} `json:"author"`
		Record struct {
			Text      string   `json:"text"`
			CreatedAt string   `json:"createdAt"`
			Langs     []string `json:"langs"`
		} `json:"record"`
	} `json:"posts"`
}

// SearchPosts pages through search results for query until max records have
// been collected or the platform reports no further cursor.
//
// Partial-success policy: when a page request fails mid-stream, the records
// collected so far are returned together with the error. Callers decide
// whether a partial batch is still worth processing. Malformed records are
// logged and dropped, never returned.
func (c *Client) SearchPosts(ctx context.Context, query string, max int) ([]Record, error) {
	if max < 1 {
		return nil, nil
	}

	var (
		out    []Record
		cursor string
	)
	for len(out) < max {
		if err := c.limiter.Wait(ctx); err != nil {
			return out, err
		}

		page, err := c.fetchPage(ctx, query, cursor)
		if err != nil {
			return out, err
		}

		for _, p := range page.Posts {
			rec, ok := validate(p.URI, p.CID, p.Author.Handle, p.Record.Text, p.Record.CreatedAt, p.Record.Langs)
			if !ok {
				continue
			}
			out = append(out, rec)
			if len(out) >= max {
				break
			}
		}

		if page.Cursor == "" || len(page.Posts) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return out, nil
}

// fetchPage performs a single search request.
func (c *Client) fetchPage(ctx context.Context, query, cursor string) (*searchResponse, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bluesky: search page failed: status %d: %s", resp.StatusCode, msg)
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("bluesky: decoding search page: %w", err)
	}
	return &page, nil
}

// validate turns a raw API post into a typed Record. Records without a URI,
// without text, or with an unparseable timestamp are quarantined (dropped
// with a warning) rather than passed downstream.
func validate(uri, cid, handle, text, createdAt string, langs []string) (Record, bool) {
	if uri == "" || text == "" {
		log.Warn().Str("uri", uri).Msg("dropping malformed post record")
		return Record{}, false
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		log.Warn().Str("uri", uri).Str("created_at", createdAt).Msg("dropping post with invalid timestamp")
		return Record{}, false
	}
	lang := ""
	if len(langs) > 0 {
		lang = langs[0]
	}
	return Record{
		URI:       uri,
		CID:       cid,
		Author:    handle,
		Text:      text,
		Language:  lang,
		CreatedAt: ts.UTC(),
	}, true
}
