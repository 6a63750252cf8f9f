package asr

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/seinsight/insight-core/internal/audio"
)

// mockConfidence is deliberately lower than any real engine's estimate so
// canned results are distinguishable from genuine recognition.
const mockConfidence = 0.7

var mockResponses = []string{
	"Software architecture defines the fundamental structures of a system.",
	"We need to implement a rest api for our microservices architecture.",
	"The database design pattern should follow normalization principles.",
	"Object oriented programming uses classes and inheritance mechanisms.",
	"Functional programming emphasizes immutable data structures and pure functions.",
	"Algorithm complexity analysis helps optimize system performance.",
	"Design patterns provide reusable solutions to common programming problems.",
}

type mockEngine struct {
	next atomic.Uint64
}

// NewMockEngine returns the terminal fallback engine. It never fails, so a
// chain that ends with it always produces some result.
func NewMockEngine() Engine {
	return &mockEngine{}
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Transcribe(_ context.Context, _ *audio.Window) (Result, error) {
	i := m.next.Add(1) - 1
	return Result{
		Text:       mockResponses[i%uint64(len(mockResponses))],
		Confidence: mockConfidence,
		Engine:     m.Name(),
		Timestamp:  time.Now().UTC(),
	}, nil
}
