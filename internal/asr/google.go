package asr

import (
	"context"
	"fmt"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"github.com/seinsight/insight-core/internal/audio"
	"github.com/seinsight/insight-core/internal/config"
)

// googleConfidence is the fixed estimate used when the API omits a score for
// the winning alternative.
const googleConfidence = 0.8

// googleEngine runs one synchronous Recognize call per window against Google
// Cloud Speech-to-Text. Credentials come from the ambient application-default
// mechanism.
type googleEngine struct {
	client   *speech.Client
	language string
}

// NewGoogleEngine dials the Speech API; the dial is the slow part, so this
// constructor is meant to run behind a Loader.
func NewGoogleEngine(ctx context.Context, cfg config.ASRConfig) (Engine, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	return &googleEngine{client: client, language: language}, nil
}

func (e *googleEngine) Name() string { return "google" }

func (e *googleEngine) Transcribe(ctx context.Context, w *audio.Window) (Result, error) {
	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(w.SampleRate),
			LanguageCode:    e.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: w.Bytes()},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("speech recognize: %w", err)
	}

	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			if alt.Transcript == "" {
				continue
			}
			confidence := float64(alt.Confidence)
			if confidence <= 0 {
				confidence = googleConfidence
			}
			return Result{
				Text:       alt.Transcript,
				Confidence: confidence,
				Engine:     e.Name(),
				Timestamp:  time.Now().UTC(),
			}, nil
		}
	}
	return Result{}, fmt.Errorf("speech recognize returned no transcript")
}

// Close releases the underlying gRPC connection.
func (e *googleEngine) Close() error {
	return e.client.Close()
}
