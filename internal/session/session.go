package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seinsight/insight-core/internal/audio"
	"github.com/seinsight/insight-core/internal/protocol"
)

// ErrClosed is returned when delivering to a session whose outbound channel
// has been shut down. Callers treat it as a disconnect signal, not a fault.
var ErrClosed = errors.New("session closed")

// State tracks the connection lifecycle. Transitions only move forward.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateDisconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "closed"
	}
}

// Session is the server-side state for one client connection: its audio
// buffer, activity timestamps, counters, and outbound message channel.
type Session struct {
	ID          string
	ConnectedAt time.Time
	Windower    *audio.Windower

	outbound chan any
	done     chan struct{}

	mu             sync.Mutex
	state          State
	tabID          string
	audioFormat    *protocol.AudioFormat
	lastActivity   time.Time
	packets        uint64
	transcriptions uint64
}

// Info is the read-only snapshot used for stats reporting and the close
// summary.
type Info struct {
	ID             string    `json:"id"`
	TabID          string    `json:"tab_id,omitempty"`
	ConnectedAt    time.Time `json:"connected_at"`
	LastActivity   time.Time `json:"last_activity"`
	Packets        uint64    `json:"audio_packets_received"`
	Transcriptions uint64    `json:"transcriptions_sent"`
	State          string    `json:"state"`
}

func newSession(windower *audio.Windower, outboundBuffer int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		ConnectedAt:  now,
		Windower:     windower,
		outbound:     make(chan any, outboundBuffer),
		done:         make(chan struct{}),
		state:        StateConnecting,
		lastActivity: now,
	}
}

// Outbound is the channel the transport writer drains. It is never closed;
// writers stop when Done is closed.
func (s *Session) Outbound() <-chan any { return s.outbound }

// Done is closed once the session leaves the active state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Deliver queues one outbound message, failing with ErrClosed once the
// session is shut down.
func (s *Session) Deliver(msg any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case <-s.done:
		return ErrClosed
	case s.outbound <- msg:
		return nil
	}
}

// Touch refreshes the activity timestamp; every inbound frame calls it.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

// SetInfo records the client-announced tab and audio format.
func (s *Session) SetInfo(tabID string, format *protocol.AudioFormat) {
	s.mu.Lock()
	if tabID != "" {
		s.tabID = tabID
	}
	if format != nil {
		s.audioFormat = format
	}
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

// TabID returns the client-announced tab identifier, if any.
func (s *Session) TabID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabID
}

// LastActivity returns the most recent inbound-message timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) recordPacket() {
	s.mu.Lock()
	s.packets++
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Session) recordTranscription() {
	s.mu.Lock()
	s.transcriptions++
	s.mu.Unlock()
}

// Snapshot copies the session counters for reporting.
func (s *Session) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:             s.ID,
		TabID:          s.tabID,
		ConnectedAt:    s.ConnectedAt,
		LastActivity:   s.lastActivity,
		Packets:        s.packets,
		Transcriptions: s.transcriptions,
		State:          s.state.String(),
	}
}

// activate moves Connecting → Active; later states are left untouched.
func (s *Session) activate() {
	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateActive
	}
	s.mu.Unlock()
}

// beginClose moves the session to Disconnecting and reports whether this
// caller won the transition; only the winner runs teardown.
func (s *Session) beginClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= StateDisconnecting {
		return false
	}
	s.state = StateDisconnecting
	return true
}

// finishClose marks the session Closed and releases delivery waiters.
func (s *Session) finishClose() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	close(s.done)
}
