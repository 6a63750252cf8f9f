package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/seinsight/insight-core/internal/asr"
	"github.com/seinsight/insight-core/internal/audio"
	"github.com/seinsight/insight-core/internal/bus"
	"github.com/seinsight/insight-core/internal/config"
	"github.com/seinsight/insight-core/internal/protocol"
	"github.com/seinsight/insight-core/internal/session"
	"github.com/seinsight/insight-core/internal/terms"
)

// Coordinator drives the per-window processing chain: buffer audio, run the
// engine chain, extract and enrich terminology, deliver the result. Window
// failures produce an error message on the session; the connection stays up.
type Coordinator struct {
	cfg      config.ASRConfig
	registry *session.Registry
	chain    *asr.Chain
	dict     *terms.Dictionary
	enricher *terms.Enricher
	bus      *bus.Client
	log      *slog.Logger
	tracer   trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(parent context.Context, cfg config.ASRConfig, registry *session.Registry, chain *asr.Chain, dict *terms.Dictionary, enricher *terms.Enricher, busClient *bus.Client, log *slog.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		cfg:      cfg,
		registry: registry,
		chain:    chain,
		dict:     dict,
		enricher: enricher,
		bus:      busClient,
		log:      log.With(slog.String("component", "pipeline")),
		tracer:   otel.Tracer("github.com/seinsight/insight-core/pipeline"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close waits for in-flight windows to finish.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// OnAudio ingests one binary frame for the session. Windows that become
// ready are processed off the transport goroutine so slow engines never
// stall the read loop.
func (c *Coordinator) OnAudio(s *session.Session, data []byte) {
	c.registry.RecordPacket(s)

	ready, err := s.Windower.AddSamples(data)
	if err != nil {
		c.log.Warn("rejected audio frame",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()))
		c.sendError(s, "invalid audio payload: "+err.Error())
		return
	}
	if !ready {
		return
	}

	for {
		window, ok := s.Windower.TakeWindow()
		if !ok {
			break
		}
		c.wg.Add(1)
		go func(w *audio.Window) {
			defer c.wg.Done()
			c.processWindow(s, w)
		}(window)
	}
}

func (c *Coordinator) processWindow(s *session.Session, w *audio.Window) {
	ctx, span := c.tracer.Start(c.ctx, "pipeline.process_window",
		trace.WithAttributes(attribute.String("session.id", s.ID)))
	defer span.End()

	result, err := c.chain.Transcribe(ctx, w)
	if err != nil {
		c.log.Warn("transcription failed",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()))
		c.sendError(s, "transcription failed")
		return
	}
	if result.Text == "" {
		return
	}
	if result.Confidence < c.cfg.ConfidenceThreshold {
		c.log.Debug("dropped low-confidence result",
			slog.String("session_id", s.ID),
			slog.String("engine", result.Engine),
			slog.Float64("confidence", result.Confidence))
		return
	}

	keywords := c.dict.Extract(result.Text)
	explanations := c.enricher.ExplainAll(keywords, result.Text)
	payload := make(map[string]any, len(explanations))
	for term, expl := range explanations {
		payload[term] = expl
	}

	msg := protocol.Transcription{
		Type:           protocol.TypeTranscription,
		Text:           result.Text,
		Keywords:       keywords,
		Explanations:   payload,
		Confidence:     result.Confidence,
		Timestamp:      result.Timestamp,
		ProcessingTime: result.ProcessingTime.Seconds(),
	}
	if err := c.registry.Send(s.ID, msg); err != nil {
		c.log.Debug("session gone before delivery", slog.String("session_id", s.ID))
		return
	}
	c.registry.RecordTranscription(s)

	event := protocol.TranscriptEvent{
		SessionID:  s.ID,
		Text:       result.Text,
		Keywords:   keywords,
		Engine:     result.Engine,
		Confidence: result.Confidence,
		Timestamp:  result.Timestamp,
	}
	if err := c.bus.PublishJSON(protocol.SubjectTranscriptFinal, event); err != nil {
		c.log.Warn("failed to publish transcript event", slog.String("error", err.Error()))
	}
}

func (c *Coordinator) sendError(s *session.Session, message string) {
	msg := protocol.ErrorMessage{
		Type:      protocol.TypeError,
		Error:     message,
		Timestamp: time.Now().UTC(),
	}
	if err := c.registry.Send(s.ID, msg); err != nil {
		c.log.Debug("session gone before error delivery", slog.String("session_id", s.ID))
	}
}
