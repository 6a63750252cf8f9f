package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/seinsight/insight-core/internal/audio"
	"github.com/seinsight/insight-core/internal/config"
)

// ErrTooManyConnections is returned by Admit once the configured
// connection limit is reached.
var ErrTooManyConnections = errors.New("connection limit reached")

const outboundBufferSize = 16

// Stats aggregates counters across all sessions, past and present.
type Stats struct {
	TotalConnections    uint64          `json:"total_connections"`
	CurrentConnections  int             `json:"current_connections"`
	TotalAudioPackets   uint64          `json:"total_audio_packets"`
	TotalTranscriptions uint64          `json:"total_transcriptions"`
	Sessions            map[string]Info `json:"sessions"`
}

// Summary describes a closed session; it feeds the close log line and
// the session-closed bus event.
type Summary struct {
	SessionID      string
	TabID          string
	Duration       time.Duration
	Packets        uint64
	Transcriptions uint64
	Reason         string
}

// Registry owns every live session. It enforces the connection limit,
// aggregates counters, and sweeps idle sessions on a timer.
type Registry struct {
	cfg      config.ConnectionConfig
	audioCfg config.AudioConfig
	log      *slog.Logger
	cancel   context.CancelFunc

	mu                  sync.RWMutex
	sessions            map[string]*Session
	totalConnections    uint64
	totalAudioPackets   uint64
	totalTranscriptions uint64

	onClosed func(Summary)

	meter        metric.Meter
	sessionGauge metric.Int64ObservableGauge
}

// NewRegistry builds the registry and starts its idle sweep. onClosed, if
// non-nil, is invoked after each session is removed.
func NewRegistry(ctx context.Context, cfg config.ConnectionConfig, audioCfg config.AudioConfig, log *slog.Logger, onClosed func(Summary)) *Registry {
	ctx, cancel := context.WithCancel(ctx)
	r := &Registry{
		cfg:      cfg,
		audioCfg: audioCfg,
		log:      log.With(slog.String("component", "session-registry")),
		cancel:   cancel,
		sessions: make(map[string]*Session),
		onClosed: onClosed,
		meter:    otel.Meter("github.com/seinsight/insight-core/session"),
	}

	if err := r.initMetrics(); err != nil {
		r.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}

	go r.runSweep(ctx)
	return r
}

// Close stops the sweep and tears down every remaining session.
func (r *Registry) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Remove(id, "server_shutdown")
	}
}

// Admit registers a new session with a fresh audio buffer. The session
// starts in the connecting state; Activate moves it to active once the
// handshake completes.
func (r *Registry) Admit() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.MaxConnections > 0 && len(r.sessions) >= r.cfg.MaxConnections {
		return nil, ErrTooManyConnections
	}

	s := newSession(audio.NewWindower(r.audioCfg), outboundBufferSize)
	r.sessions[s.ID] = s
	r.totalConnections++

	r.log.Info("session admitted",
		slog.String("session_id", s.ID),
		slog.Int("current_connections", len(r.sessions)))
	return s, nil
}

// Activate marks the session's handshake as complete.
func (r *Registry) Activate(s *Session) {
	s.activate()
}

// Get looks up a live session by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove closes the session and drops it from the registry. It is safe to
// call more than once; only the first call runs teardown. It returns the
// close summary when this call performed the removal.
func (r *Registry) Remove(id, reason string) (Summary, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok || !s.beginClose() {
		return Summary{}, false
	}
	s.finishClose()

	info := s.Snapshot()
	summary := Summary{
		SessionID:      s.ID,
		TabID:          info.TabID,
		Duration:       time.Since(s.ConnectedAt),
		Packets:        info.Packets,
		Transcriptions: info.Transcriptions,
		Reason:         reason,
	}

	r.log.Info("session closed",
		slog.String("session_id", summary.SessionID),
		slog.String("reason", summary.Reason),
		slog.Duration("duration", summary.Duration),
		slog.Uint64("audio_packets", summary.Packets),
		slog.Uint64("transcriptions", summary.Transcriptions))

	if r.onClosed != nil {
		r.onClosed(summary)
	}
	return summary, true
}

// Send delivers an outbound message to the session, removing it when the
// session has already shut down.
func (r *Registry) Send(id string, msg any) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrClosed
	}
	if err := s.Deliver(msg); err != nil {
		r.Remove(id, "send_failed")
		return err
	}
	return nil
}

// RecordPacket bumps the per-session and aggregate audio counters.
func (r *Registry) RecordPacket(s *Session) {
	s.recordPacket()
	r.mu.Lock()
	r.totalAudioPackets++
	r.mu.Unlock()
}

// RecordTranscription bumps the per-session and aggregate result counters.
func (r *Registry) RecordTranscription(s *Session) {
	s.recordTranscription()
	r.mu.Lock()
	r.totalTranscriptions++
	r.mu.Unlock()
}

// Stats snapshots the aggregate counters and every live session.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalConnections:    r.totalConnections,
		CurrentConnections:  len(r.sessions),
		TotalAudioPackets:   r.totalAudioPackets,
		TotalTranscriptions: r.totalTranscriptions,
		Sessions:            make(map[string]Info, len(r.sessions)),
	}
	for id, s := range r.sessions {
		stats.Sessions[id] = s.Snapshot()
	}
	return stats
}

func (r *Registry) runSweep(ctx context.Context) {
	interval := time.Duration(r.cfg.SweepIntervalS) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepIdle(time.Now())
		}
	}
}

// sweepIdle removes every session whose last activity is older than the
// idle timeout.
func (r *Registry) sweepIdle(now time.Time) {
	timeout := time.Duration(r.cfg.IdleTimeoutS) * time.Second
	if timeout <= 0 {
		return
	}

	r.mu.RLock()
	var idle []string
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity()) > timeout {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range idle {
		r.Remove(id, "idle_timeout")
	}
}

func (r *Registry) initMetrics() error {
	if r.meter == nil {
		return nil
	}
	gauge, err := r.meter.Int64ObservableGauge("insight.sessions.active", metric.WithDescription("Number of live client sessions"))
	if err != nil {
		return err
	}
	r.sessionGauge = gauge
	_, err = r.meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		r.mu.RLock()
		count := int64(len(r.sessions))
		r.mu.RUnlock()
		obs.ObserveInt64(gauge, count)
		return nil
	}, gauge)
	return err
}
