package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   s.cfg.RuntimeName,
		"status":    "running",
		"websocket": "/ws/audio",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"uptime_s":           time.Since(s.started).Seconds(),
		"engines":            s.chain.Capabilities(),
		"active_connections": stats.CurrentConnections,
		"processing":         s.chain.Stats().Snapshot(),
		"timestamp":          time.Now().UTC(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": s.registry.Stats(),
		"processing":  s.chain.Stats().Snapshot(),
		"timestamp":   time.Now().UTC(),
	})
}

func (s *Server) handleListTerms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"terms":      s.dict.All(),
		"count":      s.dict.Len(),
		"categories": s.dict.Categories(),
	})
}

func (s *Server) handleExplainTerm(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	query := r.URL.Query()
	explanation := s.enricher.Explain(term, query.Get("context"), query.Get("user_level"))
	if !explanation.Enhanced {
		writeJSON(w, http.StatusNotFound, explanation)
		return
	}
	writeJSON(w, http.StatusOK, explanation)
}

type termRequest struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

func (s *Server) handleAddTerm(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Term = strings.TrimSpace(req.Term)
	req.Definition = strings.TrimSpace(req.Definition)
	if req.Term == "" || req.Definition == "" {
		writeError(w, http.StatusBadRequest, "term and definition must not be empty")
		return
	}

	s.dict.Add(req.Term, req.Definition)
	if err := s.store.Put(r.Context(), req.Term, req.Definition); err != nil {
		s.log.Error("failed to persist term",
			slog.String("term", req.Term),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to persist term")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"term":   strings.ToLower(req.Term),
		"status": "added",
	})
}

func (s *Server) handleDeleteTerm(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	if !s.dict.Delete(term) {
		writeError(w, http.StatusNotFound, "term not found")
		return
	}
	if err := s.store.Delete(r.Context(), term); err != nil {
		s.log.Error("failed to remove persisted term",
			slog.String("term", term),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to remove persisted term")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"term":   strings.ToLower(term),
		"status": "deleted",
	})
}
