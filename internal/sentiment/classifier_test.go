package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tbourn/go-sky-sentiment/internal/config"
	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

func newTestClassifier(url string) *HTTPClassifier {
	return NewHTTPClassifier(config.SentimentConfig{
		URL:      url,
		Token:    "secret",
		MaxRunes: 512,
	})
}

func TestClassify_PicksHighestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("Authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["inputs"] != "i love this!" {
			t.Fatalf("inputs = %q", body["inputs"])
		}
		fmt.Fprint(w, `[[{"label":"NEGATIVE","score":0.002},{"label":"POSITIVE","score":0.998}]]`)
	}))
	defer srv.Close()

	p, err := newTestClassifier(srv.URL).Classify(context.Background(), "i love this!")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if p.Label != domain.SentimentPositive {
		t.Fatalf("Label = %q", p.Label)
	}
	if p.Score != 0.998 {
		t.Fatalf("Score = %f", p.Score)
	}
}

func TestClassify_NegativeLabelNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[{"label":"NEGATIVE","score":0.91}]]`)
	}))
	defer srv.Close()

	p, err := newTestClassifier(srv.URL).Classify(context.Background(), "terrible day")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if p.Label != domain.SentimentNegative || p.Score != 0.91 {
		t.Fatalf("unexpected prediction: %+v", p)
	}
}

func TestClassify_TruncatesLeadingPortion(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		received = body["inputs"]
		fmt.Fprint(w, `[[{"label":"POSITIVE","score":0.6}]]`)
	}))
	defer srv.Close()

	c := newTestClassifier(srv.URL)
	c.MaxRunes = 10
	long := strings.Repeat("é", 40)
	if _, err := c.Classify(context.Background(), long); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if utf8.RuneCountInString(received) != 10 {
		t.Fatalf("model received %d runes, want 10", utf8.RuneCountInString(received))
	}
	if !strings.HasPrefix(long, received) {
		t.Fatal("truncation must keep the leading portion")
	}
}

func TestClassify_ErrorPaths(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		},
		"empty prediction": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		},
		"unknown label": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[[{"label":"NEUTRAL","score":0.5}]]`)
		},
		"score out of range": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[[{"label":"POSITIVE","score":1.5}]]`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			if _, err := newTestClassifier(srv.URL).Classify(context.Background(), "x"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 0); got != "hello" {
		t.Fatalf("max=0 must disable truncation, got %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("rune-aware truncation failed: %q", got)
	}
}
