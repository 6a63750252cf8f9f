package audio

import (
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes a window as a 16-bit PCM WAV stream, the input format the
// exec-style engines expect.
func WriteWAV(ws io.WriteSeeker, w *Window) error {
	buffer := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: w.Channels, SampleRate: w.SampleRate},
	}
	buffer.Data = make([]int, len(w.Samples))
	for i, s := range w.Samples {
		buffer.Data[i] = int(s)
	}

	enc := wav.NewEncoder(ws, w.SampleRate, 16, w.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
