package protocol

import "time"

// Message types exchanged over the /ws/audio channel. Clients send textual
// control frames; binary frames carry raw PCM and have no envelope.
const (
	TypeConnection    = "connection"
	TypeDisconnect    = "disconnect"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeGetStats      = "get_stats"
	TypeStats         = "stats"
	TypeTranscription = "transcription"
	TypeError         = "error"
)

// AudioFormat describes the PCM stream a client is sending.
type AudioFormat struct {
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// ControlMessage is the envelope for inbound textual frames.
type ControlMessage struct {
	Type        string       `json:"type"`
	TabID       string       `json:"tabId,omitempty"`
	AudioFormat *AudioFormat `json:"audioFormat,omitempty"`
}

// Welcome is sent once after a connection is admitted, enumerating the
// configured transcription engines and the active audio format.
type Welcome struct {
	Type         string       `json:"type"`
	Status       string       `json:"status"`
	ClientID     string       `json:"client_id"`
	Message      string       `json:"message,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities advertises engine availability and the server-side audio config.
type Capabilities struct {
	Engines     map[string]bool `json:"asr_engines"`
	AudioFormat AudioFormat     `json:"audio_config"`
}

// ConnectionAck acknowledges a client connection-info update.
type ConnectionAck struct {
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	TabID      string    `json:"tab_id,omitempty"`
	ServerTime time.Time `json:"server_time"`
}

// DisconnectAck acknowledges an explicit disconnect request before the server
// closes the channel.
type DisconnectAck struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Pong answers a heartbeat ping.
type Pong struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsMessage carries aggregate connection and processing statistics.
type StatsMessage struct {
	Type            string    `json:"type"`
	ConnectionStats any       `json:"connection_stats"`
	Timestamp       time.Time `json:"timestamp"`
}

// Transcription is the enriched result for one recognized audio window.
type Transcription struct {
	Type           string         `json:"type"`
	Text           string         `json:"text"`
	Keywords       []string       `json:"keywords"`
	Explanations   map[string]any `json:"explanations"`
	Confidence     float64        `json:"confidence"`
	Timestamp      time.Time      `json:"timestamp"`
	ProcessingTime float64        `json:"processing_time"`
}

// ErrorMessage reports a non-fatal per-window failure; the connection stays up.
type ErrorMessage struct {
	Type      string    `json:"type"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Events published on the bus for external observers.
const (
	SubjectTranscriptFinal = "insight.transcript.final"
	SubjectSessionClosed   = "insight.session.closed"
)

// TranscriptEvent mirrors a delivered transcription on the bus.
type TranscriptEvent struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Keywords   []string  `json:"keywords,omitempty"`
	Engine     string    `json:"engine,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionClosedEvent is the final per-session summary.
type SessionClosedEvent struct {
	SessionID      string        `json:"session_id"`
	TabID          string        `json:"tab_id,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
	AudioPackets   uint64        `json:"audio_packets"`
	Transcriptions uint64        `json:"transcriptions"`
	Reason         string        `json:"reason"`
	Timestamp      time.Time     `json:"timestamp"`
}
