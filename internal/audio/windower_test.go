package audio

import (
	"encoding/binary"
	"testing"

	"github.com/seinsight/insight-core/internal/config"
)

func testAudioConfig() config.AudioConfig {
	// A tiny window keeps test payloads small: 100 Hz * 1 s = 100 samples.
	return config.AudioConfig{
		SampleRate:       100,
		Channels:         1,
		BitDepth:         16,
		WindowSeconds:    1.0,
		OverlapFraction:  0.25,
		MaxBufferSeconds: 5.0,
	}
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func rampSamples(n int, start int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = start + int16(i)
	}
	return out
}

func TestTakeWindowEmptyBuffer(t *testing.T) {
	w := NewWindower(testAudioConfig())
	if _, ok := w.TakeWindow(); ok {
		t.Fatal("expected no window from empty buffer")
	}
}

func TestShortInputYieldsNoWindow(t *testing.T) {
	w := NewWindower(testAudioConfig())
	ready, err := w.AddSamples(pcmBytes(rampSamples(99, 0)))
	if err != nil {
		t.Fatalf("add samples: %v", err)
	}
	if ready {
		t.Fatal("99 of 100 samples should not be ready")
	}
	if _, ok := w.TakeWindow(); ok {
		t.Fatal("expected no window below the window length")
	}
}

func TestWindowReadyAtExactLength(t *testing.T) {
	w := NewWindower(testAudioConfig())
	ready, err := w.AddSamples(pcmBytes(rampSamples(100, 0)))
	if err != nil {
		t.Fatalf("add samples: %v", err)
	}
	if !ready {
		t.Fatal("expected ready at exactly one window of samples")
	}
	win, ok := w.TakeWindow()
	if !ok {
		t.Fatal("expected a window")
	}
	if len(win.Samples) != 100 {
		t.Fatalf("expected 100 samples, got %d", len(win.Samples))
	}
	if win.Samples[0] != 0 || win.Samples[99] != 99 {
		t.Fatalf("window content mismatch: first=%d last=%d", win.Samples[0], win.Samples[99])
	}
}

func TestOverlapRetainedAcrossWindows(t *testing.T) {
	w := NewWindower(testAudioConfig())
	// Two windows' worth: 100-sample window, 25-sample overlap, so the second
	// window starts at sample 75.
	if _, err := w.AddSamples(pcmBytes(rampSamples(175, 0))); err != nil {
		t.Fatalf("add samples: %v", err)
	}

	first, ok := w.TakeWindow()
	if !ok {
		t.Fatal("expected first window")
	}
	if first.Samples[0] != 0 || first.Samples[99] != 99 {
		t.Fatalf("first window content mismatch: first=%d last=%d", first.Samples[0], first.Samples[99])
	}
	if got := w.Buffered(); got != 100 {
		t.Fatalf("expected 100 buffered samples after extraction (25 overlap + 75 new), got %d", got)
	}

	second, ok := w.TakeWindow()
	if !ok {
		t.Fatal("expected second window")
	}
	if second.Samples[0] != 75 {
		t.Fatalf("second window should begin at the overlap tail (sample 75), got %d", second.Samples[0])
	}
	if second.Samples[24] != 99 || second.Samples[25] != 100 {
		t.Fatalf("overlap boundary mismatch: samples[24]=%d samples[25]=%d", second.Samples[24], second.Samples[25])
	}
	if got := w.Buffered(); got != 25 {
		t.Fatalf("expected only the overlap retained, got %d", got)
	}
	if _, ok := w.TakeWindow(); ok {
		t.Fatal("overlap alone must not produce another window")
	}
}

func TestUnalignedPayloadRejected(t *testing.T) {
	w := NewWindower(testAudioConfig())
	if _, err := w.AddSamples([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected error for odd-length payload")
	}
	if got := w.Buffered(); got != 0 {
		t.Fatalf("rejected payload must not touch the buffer, got %d samples", got)
	}
}

func TestBufferCapDiscardsOldest(t *testing.T) {
	cfg := testAudioConfig()
	cfg.MaxBufferSeconds = 2.0 // cap at 200 samples
	w := NewWindower(cfg)

	if _, err := w.AddSamples(pcmBytes(rampSamples(250, 0))); err != nil {
		t.Fatalf("add samples: %v", err)
	}
	if got := w.Buffered(); got != 200 {
		t.Fatalf("expected buffer capped at 200 samples, got %d", got)
	}
	win, ok := w.TakeWindow()
	if !ok {
		t.Fatal("expected a window")
	}
	if win.Samples[0] != 50 {
		t.Fatalf("expected oldest samples discarded, window starts at %d", win.Samples[0])
	}
}

func TestWindowBytesRoundTrip(t *testing.T) {
	win := &Window{Samples: []int16{0, -1, 32767, -32768}, SampleRate: 16000, Channels: 1}
	got := win.Bytes()
	want := pcmBytes(win.Samples)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: %x vs %x", i, got[i], want[i])
		}
	}
}
