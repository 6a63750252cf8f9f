package termstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/seinsight/insight-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenWithoutPersistence(t *testing.T) {
	s, err := Open(context.Background(), config.TermsConfig{Persist: false}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Put(context.Background(), "kubernetes", "container orchestration"); err != nil {
		t.Fatalf("no-op put failed: %v", err)
	}
	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("no-op all failed: %v", err)
	}
	if all != nil {
		t.Fatalf("disabled store must hold nothing, got %v", all)
	}
}

func TestPutDeleteRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.TermsConfig{Persist: true, StorePath: filepath.Join(tmp, "terms.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open term store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Put(context.Background(), "Kubernetes", "container orchestration"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(context.Background(), "kubernetes", "an orchestration platform"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 term after upsert, got %d", len(all))
	}
	if all["kubernetes"] != "an orchestration platform" {
		t.Fatalf("unexpected definition: %q", all["kubernetes"])
	}

	if err := s.Delete(context.Background(), "KUBERNETES"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err = s.All(context.Background())
	if err != nil {
		t.Fatalf("all after delete: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store after delete, got %v", all)
	}
}
