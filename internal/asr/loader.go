package asr

import (
	"context"
	"sync"
)

// Loader is the readiness handle for an engine whose construction may be slow
// (model load, client dial). Construction runs on its own goroutine; the chain
// skips loaders that are not ready yet instead of blocking on them.
type Loader struct {
	name string
	done chan struct{}

	mu     sync.Mutex
	engine Engine
	err    error
}

// Load starts building an engine in the background and returns immediately.
func Load(name string, build func() (Engine, error)) *Loader {
	l := &Loader{name: name, done: make(chan struct{})}
	go func() {
		engine, err := build()
		l.mu.Lock()
		l.engine, l.err = engine, err
		l.mu.Unlock()
		close(l.done)
	}()
	return l
}

// Resolved wraps an already-constructed engine, for backends with no load cost.
func Resolved(engine Engine) *Loader {
	l := &Loader{name: engine.Name(), done: make(chan struct{})}
	l.engine = engine
	close(l.done)
	return l
}

func (l *Loader) Name() string { return l.name }

// Ready reports whether construction finished successfully.
func (l *Loader) Ready() bool {
	select {
	case <-l.done:
	default:
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err == nil && l.engine != nil
}

// Engine returns the built engine, or false while loading or after a failed
// build.
func (l *Loader) Engine() (Engine, bool) {
	select {
	case <-l.done:
	default:
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil || l.engine == nil {
		return nil, false
	}
	return l.engine, true
}

// Err exposes a failed build, for health reporting.
func (l *Loader) Err() error {
	select {
	case <-l.done:
	default:
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Wait blocks until construction finishes or ctx is cancelled. Used by tests
// and by shutdown paths that want a settled state.
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return nil
	}
}
