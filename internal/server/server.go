package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seinsight/insight-core/internal/asr"
	"github.com/seinsight/insight-core/internal/config"
	"github.com/seinsight/insight-core/internal/pipeline"
	"github.com/seinsight/insight-core/internal/session"
	"github.com/seinsight/insight-core/internal/terms"
	"github.com/seinsight/insight-core/internal/termstore"
)

// Server exposes the websocket audio channel and the HTTP query surface.
// It holds no pipeline state of its own; every handler delegates to the
// registry, chain, or dictionary.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	registry *session.Registry
	coord    *pipeline.Coordinator
	chain    *asr.Chain
	dict     *terms.Dictionary
	enricher *terms.Enricher
	store    *termstore.Store
	started  time.Time
	upgrader websocket.Upgrader
}

func New(cfg config.Config, registry *session.Registry, coord *pipeline.Coordinator, chain *asr.Chain, dict *terms.Dictionary, enricher *terms.Enricher, store *termstore.Store, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.With(slog.String("component", "server")),
		registry: registry,
		coord:    coord,
		chain:    chain,
		dict:     dict,
		enricher: enricher,
		store:    store,
		started:  time.Now().UTC(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the route table. The metrics handler is mounted when
// telemetry produced one.
func (s *Server) Handler(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /terms", s.handleListTerms)
	mux.HandleFunc("POST /terms", s.handleAddTerm)
	mux.HandleFunc("DELETE /terms/{term}", s.handleDeleteTerm)
	mux.HandleFunc("GET /terms/{term}/enhanced", s.handleExplainTerm)
	mux.HandleFunc("/ws/audio", s.handleAudioSocket)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
