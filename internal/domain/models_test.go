package domain

import "testing"

func TestTableNames(t *testing.T) {
	if got := (Post{}).TableName(); got != "posts" {
		t.Fatalf("Post table name = %q, want posts", got)
	}
	if got := (IngestRun{}).TableName(); got != "ingest_runs" {
		t.Fatalf("IngestRun table name = %q, want ingest_runs", got)
	}
}

func TestSentimentLabels(t *testing.T) {
	if SentimentPositive == SentimentNegative {
		t.Fatal("labels must differ")
	}
	if SentimentPositive != "positive" || SentimentNegative != "negative" {
		t.Fatalf("unexpected labels: %q %q", SentimentPositive, SentimentNegative)
	}
}
