package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
)

func TestOpenDBAndAutoMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "open_test.db")

	db, err := OpenDB(dsn)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Schema is usable end to end.
	p := seedPost("at://1", "macron", domain.SentimentPositive, time.Now().UTC())
	if _, err := InsertPost(context.Background(), db, p); err != nil {
		t.Fatalf("InsertPost after migrate: %v", err)
	}
	if _, err := CreateRun(context.Background(), db, "macron"); err != nil {
		t.Fatalf("CreateRun after migrate: %v", err)
	}
}

func TestOpenDB_MissingParentDir(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "does-not-exist", "x.db")
	if _, err := OpenDB(dsn); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
