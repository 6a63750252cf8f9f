package asr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/seinsight/insight-core/internal/audio"
)

// ErrExhausted is returned when every configured engine failed for a window.
// With the mock engine terminating the chain this only happens if a caller
// builds a chain without it.
var ErrExhausted = errors.New("all transcription engines failed")

// Chain tries engines in configured priority order until one succeeds. Each
// engine runs under its own timeout so a hung backend is abandoned in favor
// of the next entry rather than stalling the session.
type Chain struct {
	loaders []*Loader
	timeout time.Duration
	stats   *Stats
	log     *slog.Logger
}

// NewChain assembles the fallback chain. A mock loader is appended when the
// caller's list does not already end the chain with one, keeping the
// guarantee that a chain attempt always has a terminal engine that succeeds.
func NewChain(loaders []*Loader, perEngineTimeout time.Duration, log *slog.Logger) *Chain {
	hasMock := false
	for _, l := range loaders {
		if l.Name() == "mock" {
			hasMock = true
		}
	}
	if !hasMock {
		loaders = append(loaders, Resolved(NewMockEngine()))
	}
	return &Chain{
		loaders: loaders,
		timeout: perEngineTimeout,
		stats:   NewStats(),
		log:     log.With(slog.String("component", "asr-chain")),
	}
}

// Stats exposes the process-wide counters updated by Transcribe.
func (c *Chain) Stats() *Stats { return c.stats }

// Capabilities reports per-engine readiness, for the welcome message and the
// health endpoint.
func (c *Chain) Capabilities() map[string]bool {
	caps := make(map[string]bool, len(c.loaders))
	for _, l := range c.loaders {
		caps[l.Name()] = l.Ready()
	}
	return caps
}

// Transcribe runs the chain for one window. Processing time on the returned
// result spans the whole attempt, including engines that failed before the
// winner.
func (c *Chain) Transcribe(ctx context.Context, w *audio.Window) (Result, error) {
	start := time.Now()
	c.stats.RecordRequest()

	for _, loader := range c.loaders {
		engine, ok := loader.Engine()
		if !ok {
			// Still loading or failed to build; fall through to the next
			// configured engine.
			c.log.Debug("engine unavailable, skipping", slog.String("engine", loader.Name()))
			continue
		}

		engineCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result, err := engine.Transcribe(engineCtx, w)
		cancel()
		if err != nil {
			c.log.Warn("engine failed, trying next",
				slog.String("engine", loader.Name()),
				slog.String("error", err.Error()))
			continue
		}

		result.ProcessingTime = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = time.Now().UTC()
		}
		c.stats.RecordSuccess(result.ProcessingTime)
		return result, nil
	}

	c.stats.RecordFailure()
	return Result{}, ErrExhausted
}
