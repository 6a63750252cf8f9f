package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/seinsight/insight-core/internal/config"
)

// Window is one fixed-length slice of buffered samples submitted as a single
// transcription unit.
type Window struct {
	Samples    []int16
	SampleRate int
	Channels   int
	Extracted  time.Time
}

// Duration reports the audio length the window covers.
func (w *Window) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Bytes re-encodes the samples as little-endian 16-bit PCM.
func (w *Window) Bytes() []byte {
	out := make([]byte, len(w.Samples)*2)
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Windower accumulates raw PCM for one session and yields fixed-length,
// overlapping windows. The ingest path and the extraction path run on
// different goroutines, so all buffer access is guarded by a single mutex.
type Windower struct {
	sampleRate int
	channels   int
	windowLen  int
	overlap    int
	maxBuffer  int

	mu     sync.Mutex
	buffer []int16
}

// NewWindower sizes the window from the configured sample rate and duration.
// The overlap retained between consecutive windows is always strictly shorter
// than the window itself (enforced by config validation).
func NewWindower(cfg config.AudioConfig) *Windower {
	windowLen := int(float64(cfg.SampleRate) * cfg.WindowSeconds)
	maxBuffer := int(float64(cfg.SampleRate) * cfg.MaxBufferSeconds)
	if maxBuffer < windowLen {
		maxBuffer = windowLen
	}
	return &Windower{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		windowLen:  windowLen,
		overlap:    int(cfg.OverlapFraction * float64(windowLen)),
		maxBuffer:  maxBuffer,
	}
}

// AddSamples decodes data as little-endian 16-bit PCM, appends it to the
// buffer, and reports whether a full window is now available. When the buffer
// would exceed its cap the oldest samples are discarded.
func (w *Windower) AddSamples(data []byte) (bool, error) {
	if len(data)%2 != 0 {
		return false, fmt.Errorf("pcm payload not aligned: %d bytes", len(data))
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = append(w.buffer, samples...)
	if len(w.buffer) > w.maxBuffer {
		drop := len(w.buffer) - w.maxBuffer
		w.buffer = append(w.buffer[:0], w.buffer[drop:]...)
	}
	return len(w.buffer) >= w.windowLen, nil
}

// TakeWindow extracts one window from the front of the buffer. The tail
// overlap of the extracted window becomes the new buffer head so short
// utterances spanning a window edge are seen twice. Returns false when not
// enough samples have accumulated.
func (w *Windower) TakeWindow() (*Window, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buffer) < w.windowLen {
		return nil, false
	}

	samples := make([]int16, w.windowLen)
	copy(samples, w.buffer[:w.windowLen])

	retainFrom := w.windowLen - w.overlap
	remaining := len(w.buffer) - retainFrom
	rest := make([]int16, remaining)
	copy(rest, w.buffer[retainFrom:])
	w.buffer = rest

	return &Window{
		Samples:    samples,
		SampleRate: w.sampleRate,
		Channels:   w.channels,
		Extracted:  time.Now().UTC(),
	}, true
}

// WindowLen reports the configured window length in samples.
func (w *Windower) WindowLen() int { return w.windowLen }

// Buffered reports the current number of buffered samples.
func (w *Windower) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}
