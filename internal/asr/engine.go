package asr

import (
	"context"
	"time"

	"github.com/seinsight/insight-core/internal/audio"
)

// Result captures one engine's output for a single window. Confidence values
// are engine-specific fixed estimates when the backend reports none.
type Result struct {
	Text           string
	Confidence     float64
	Engine         string
	Timestamp      time.Time
	ProcessingTime time.Duration
}

// Engine abstracts a transcription backend. Implementations must be safe for
// concurrent use; the pipeline calls them from worker goroutines.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, w *audio.Window) (Result, error)
}
