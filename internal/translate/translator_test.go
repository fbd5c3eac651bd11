package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

func TestTranslate_PassthroughForTargetLanguage(t *testing.T) {
	const input = "already english text"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tl"); got != "en" {
			t.Fatalf("tl = %q", got)
		}
		fmt.Fprintf(w, `[[["already english text","already english text"]],null,"en"]`)
	}))
	defer srv.Close()

	g := NewGoogle(srv.URL, language.English)
	res, err := g.Translate(context.Background(), input)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != input {
		t.Fatalf("passthrough must be byte-identical: %q", res.Text)
	}
	if res.Language != "en" {
		t.Fatalf("Language = %q, want en", res.Language)
	}
}

func TestTranslate_TranslatesForeignText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two segments exercise segment concatenation.
		fmt.Fprint(w, `[[["what a ","quelle "],["great day","belle journée"]],null,"fr"]`)
	}))
	defer srv.Close()

	g := NewGoogle(srv.URL, language.English)
	res, err := g.Translate(context.Background(), "quelle belle journée")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "what a great day" {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.Language != "machine-en" {
		t.Fatalf("Language = %q, want machine-en", res.Language)
	}
}

func TestTranslate_ServiceFailureDegradesToPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGoogle(srv.URL, language.English)
	res, err := g.Translate(context.Background(), "bonjour tout le monde")
	if err != nil {
		t.Fatalf("service failure must not surface as error, got %v", err)
	}
	if res.Text != "bonjour tout le monde" {
		t.Fatalf("Text = %q, want original", res.Text)
	}
	if res.Language != "unknown" {
		t.Fatalf("Language = %q, want unknown", res.Language)
	}
}

func TestTranslate_GarbledResponseDegradesToPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"an array"}`)
	}))
	defer srv.Close()

	g := NewGoogle(srv.URL, language.English)
	res, err := g.Translate(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "hola" || res.Language != "unknown" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTranslate_EmptyInputSkipsNetwork(t *testing.T) {
	g := NewGoogle("http://127.0.0.1:0", language.English) // would fail if dialed
	res, err := g.Translate(context.Background(), "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "" || res.Language != "en" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTranslate_ContextCancellationSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGoogle(srv.URL, language.English)
	if _, err := g.Translate(ctx, "text"); err == nil {
		t.Fatal("expected context error")
	}
}
