package asr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seinsight/insight-core/internal/audio"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testWindow() *audio.Window {
	return &audio.Window{Samples: make([]int16, 1600), SampleRate: 16000, Channels: 1}
}

type stubEngine struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Transcribe(ctx context.Context, _ *audio.Window) (Result, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{Text: s.text, Confidence: 0.95, Engine: s.name, Timestamp: time.Now().UTC()}, nil
}

func TestMockEngineAlwaysSucceeds(t *testing.T) {
	engine := NewMockEngine()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		result, err := engine.Transcribe(context.Background(), testWindow())
		if err != nil {
			t.Fatalf("mock engine must not fail, got %v", err)
		}
		if result.Text == "" {
			t.Fatal("mock engine must produce text")
		}
		if result.Confidence != 0.7 {
			t.Fatalf("mock confidence must be fixed at 0.7, got %v", result.Confidence)
		}
		seen[result.Text] = true
	}
	if len(seen) < 2 {
		t.Fatalf("mock engine should rotate responses, saw %d distinct", len(seen))
	}
}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &stubEngine{name: "whisper", text: "from whisper"}
	second := &stubEngine{name: "google", text: "from google"}
	chain := NewChain([]*Loader{Resolved(first), Resolved(second)}, time.Second, newTestLogger())

	result, err := chain.Transcribe(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "from whisper" {
		t.Fatalf("expected primary engine result, got %q", result.Text)
	}
	if second.calls.Load() != 0 {
		t.Fatal("chain must stop after the first success")
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &stubEngine{name: "whisper", err: errors.New("model crashed")}
	second := &stubEngine{name: "google", text: "recovered"}
	chain := NewChain([]*Loader{Resolved(first), Resolved(second)}, time.Second, newTestLogger())

	result, err := chain.Transcribe(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "recovered" {
		t.Fatalf("expected fallback result, got %q", result.Text)
	}
	if first.calls.Load() != 1 {
		t.Fatalf("failed engine should have been tried once, got %d", first.calls.Load())
	}
}

func TestChainAppendsMockFallback(t *testing.T) {
	failing := &stubEngine{name: "whisper", err: errors.New("down")}
	chain := NewChain([]*Loader{Resolved(failing)}, time.Second, newTestLogger())

	result, err := chain.Transcribe(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("chain ending in mock must not exhaust: %v", err)
	}
	if result.Confidence != 0.7 {
		t.Fatalf("expected mock confidence 0.7, got %v", result.Confidence)
	}
	if result.Engine != "mock" {
		t.Fatalf("expected mock engine result, got %q", result.Engine)
	}
}

func TestChainSkipsUnreadyLoader(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	slow := Load("whisper", func() (Engine, error) {
		<-release
		return &stubEngine{name: "whisper", text: "late"}, nil
	})
	ready := &stubEngine{name: "google", text: "ready"}
	chain := NewChain([]*Loader{slow, Resolved(ready)}, time.Second, newTestLogger())

	result, err := chain.Transcribe(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "ready" {
		t.Fatalf("chain must skip a loading engine, got %q", result.Text)
	}

	caps := chain.Capabilities()
	if caps["whisper"] {
		t.Fatal("whisper should not report ready while loading")
	}
	if !caps["google"] || !caps["mock"] {
		t.Fatalf("expected google and mock ready, got %v", caps)
	}
}

func TestChainAbandonsSlowEngine(t *testing.T) {
	slow := &stubEngine{name: "whisper", text: "too late", delay: time.Second}
	chain := NewChain([]*Loader{Resolved(slow)}, 20*time.Millisecond, newTestLogger())

	start := time.Now()
	result, err := chain.Transcribe(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Engine != "mock" {
		t.Fatalf("slow engine should be abandoned for the mock, got %q", result.Engine)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("chain took %v, timeout not applied", elapsed)
	}
}

func TestChainProcessingTimeSpansFailedEngines(t *testing.T) {
	slowFailure := &stubEngine{name: "whisper", err: errors.New("down"), delay: 30 * time.Millisecond}
	winner := &stubEngine{name: "google", text: "ok"}
	chain := NewChain([]*Loader{Resolved(slowFailure), Resolved(winner)}, time.Second, newTestLogger())

	result, err := chain.Transcribe(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProcessingTime < 30*time.Millisecond {
		t.Fatalf("processing time must include the failed attempt, got %v", result.ProcessingTime)
	}
}

func TestChainExhaustionCountsFailure(t *testing.T) {
	// Naming the failing stub "mock" suppresses the auto-appended fallback so
	// exhaustion is reachable.
	failing := &stubEngine{name: "mock", err: errors.New("down")}
	chain := NewChain([]*Loader{Resolved(failing)}, time.Second, newTestLogger())

	if _, err := chain.Transcribe(context.Background(), testWindow()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	snap := chain.Stats().Snapshot()
	if snap.Failed != 1 || snap.TotalRequests != 1 || snap.Successful != 0 {
		t.Fatalf("unexpected stats after exhaustion: %+v", snap)
	}
}
