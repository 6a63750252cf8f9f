package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seinsight/insight-core/internal/protocol"
	"github.com/seinsight/insight-core/internal/session"
)

const writeTimeout = 10 * time.Second

func (s *Server) handleAudioSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	sess, err := s.registry.Admit()
	if err != nil {
		s.log.Warn("rejected connection", slog.String("error", err.Error()))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeTimeout))
		conn.Close()
		return
	}

	conn.SetReadLimit(int64(s.cfg.Connection.MaxMessageBytes))

	go s.writeLoop(conn, sess)

	welcome := protocol.Welcome{
		Type:     protocol.TypeConnection,
		Status:   "connected",
		ClientID: sess.ID,
		Message:  "ready for audio",
		Capabilities: protocol.Capabilities{
			Engines: s.chain.Capabilities(),
			AudioFormat: protocol.AudioFormat{
				Format:     "pcm",
				SampleRate: s.cfg.Audio.SampleRate,
				Channels:   s.cfg.Audio.Channels,
			},
		},
	}
	if err := sess.Deliver(welcome); err != nil {
		s.registry.Remove(sess.ID, "transport_closed")
		return
	}
	s.registry.Activate(sess)

	s.readLoop(conn, sess)
}

// readLoop is the per-connection inbound task. It never blocks on engine
// work; binary frames hand off to the pipeline's own goroutines.
func (s *Server) readLoop(conn *websocket.Conn, sess *session.Session) {
	// The write loop owns closing the connection; removal here closes the
	// session, which the writer observes after draining queued messages.
	defer s.registry.Remove(sess.ID, "transport_closed")

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("websocket read failed",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.coord.OnAudio(sess, data)
		case websocket.TextMessage:
			if done := s.handleControl(sess, data); done {
				return
			}
		}
	}
}

// handleControl dispatches one textual frame. It reports true when the
// session requested disconnect and the read loop should stop.
func (s *Server) handleControl(sess *session.Session, data []byte) bool {
	sess.Touch()

	var msg protocol.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("invalid control message",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
		return false
	}

	switch msg.Type {
	case protocol.TypeConnection:
		sess.SetInfo(msg.TabID, msg.AudioFormat)
		s.deliver(sess, protocol.ConnectionAck{
			Type:       protocol.TypeConnection,
			Status:     "acknowledged",
			TabID:      msg.TabID,
			ServerTime: time.Now().UTC(),
		})
	case protocol.TypeDisconnect:
		s.deliver(sess, protocol.DisconnectAck{
			Type:      protocol.TypeDisconnect,
			Status:    "acknowledged",
			Timestamp: time.Now().UTC(),
		})
		s.registry.Remove(sess.ID, "client_disconnect")
		return true
	case protocol.TypePing:
		s.deliver(sess, protocol.Pong{
			Type:      protocol.TypePong,
			Timestamp: time.Now().UTC(),
		})
	case protocol.TypeGetStats:
		s.deliver(sess, protocol.StatsMessage{
			Type:            protocol.TypeStats,
			ConnectionStats: s.registry.Stats(),
			Timestamp:       time.Now().UTC(),
		})
	default:
		s.log.Debug("unknown control message type",
			slog.String("session_id", sess.ID),
			slog.String("type", msg.Type))
	}
	return false
}

func (s *Server) deliver(sess *session.Session, msg any) {
	if err := sess.Deliver(msg); err != nil {
		s.log.Debug("session closed before delivery", slog.String("session_id", sess.ID))
	}
}

// writeLoop is the single writer for the connection. It drains queued
// outbound messages after close so disconnect acks still reach the client,
// and keeps the transport alive with periodic pings.
func (s *Server) writeLoop(conn *websocket.Conn, sess *session.Session) {
	heartbeat := time.Duration(s.cfg.Connection.HeartbeatS) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sess.Outbound():
			if !s.writeJSON(conn, sess, msg) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				s.registry.Remove(sess.ID, "transport_closed")
				conn.Close()
				return
			}
		case <-sess.Done():
			for {
				select {
				case msg := <-sess.Outbound():
					if !s.writeJSON(conn, sess, msg) {
						return
					}
				default:
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeTimeout))
					conn.Close()
					return
				}
			}
		}
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, sess *session.Session, msg any) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Debug("websocket write failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
		s.registry.Remove(sess.ID, "transport_closed")
		conn.Close()
		return false
	}
	return true
}
