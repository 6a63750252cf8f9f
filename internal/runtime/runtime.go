package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seinsight/insight-core/internal/asr"
	"github.com/seinsight/insight-core/internal/bus"
	"github.com/seinsight/insight-core/internal/config"
	"github.com/seinsight/insight-core/internal/natsserver"
	"github.com/seinsight/insight-core/internal/pipeline"
	"github.com/seinsight/insight-core/internal/protocol"
	"github.com/seinsight/insight-core/internal/server"
	"github.com/seinsight/insight-core/internal/session"
	"github.com/seinsight/insight-core/internal/terms"
	"github.com/seinsight/insight-core/internal/termstore"
)

// Runtime owns the component lifecycle: telemetry, the optional event bus,
// the term store, the engine chain, the session registry, the pipeline, and
// the HTTP/websocket server. Start blocks until the context is cancelled.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	httpServer  *http.Server
	telemetry   func(context.Context) error
	embedded    *natsserver.EmbeddedServer
	busClient   *bus.Client
	store       *termstore.Store
	registry    *session.Registry
	coordinator *pipeline.Coordinator
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	telemetryShutdown, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.telemetry = telemetryShutdown

	if err := r.startBus(ctx); err != nil {
		return err
	}

	store, err := termstore.Open(ctx, r.cfg.Terms, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open term store: %w", err)
	}
	r.store = store

	persisted, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted terms: %w", err)
	}
	dict := terms.NewDictionaryWith(persisted)
	enricher := terms.NewEnricher(dict)

	chain := asr.NewChain(
		r.buildLoaders(ctx),
		time.Duration(r.cfg.ASR.MaxProcessingMS)*time.Millisecond,
		r.logger,
	)

	r.registry = session.NewRegistry(ctx, r.cfg.Connection, r.cfg.Audio, r.logger, r.publishSessionClosed)
	r.coordinator = pipeline.NewCoordinator(ctx, r.cfg.ASR, r.registry, chain, dict, enricher, r.busClient, r.logger)

	srv := server.New(r.cfg, r.registry, r.coordinator, chain, dict, enricher, store, r.logger)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.Any("engines", r.cfg.ASR.Engines))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.shutdown()
	return nil
}

func (r *Runtime) startBus(ctx context.Context) error {
	if !r.cfg.Bus.Enabled {
		return nil
	}

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded NATS server: %w", err)
	}
	r.embedded = embedded

	busCfg := r.cfg.Bus
	if embedded != nil {
		busCfg.Servers = []string{embedded.ClientURL()}
	}
	client, err := bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		r.embedded.Shutdown()
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	r.busClient = client
	return nil
}

// buildLoaders turns the configured engine order into loaders. Heavy engines
// initialize in the background; the chain skips them until they are ready.
func (r *Runtime) buildLoaders(ctx context.Context) []*asr.Loader {
	asrCfg := r.cfg.ASR
	var loaders []*asr.Loader
	for _, name := range asrCfg.Engines {
		switch name {
		case "whisper":
			loaders = append(loaders, asr.Load("whisper", func() (asr.Engine, error) {
				return asr.NewWhisperEngine(asrCfg)
			}))
		case "google":
			loaders = append(loaders, asr.Load("google", func() (asr.Engine, error) {
				return asr.NewGoogleEngine(ctx, asrCfg)
			}))
		case "mock":
			loaders = append(loaders, asr.Resolved(asr.NewMockEngine()))
		}
	}
	return loaders
}

func (r *Runtime) publishSessionClosed(summary session.Summary) {
	event := protocol.SessionClosedEvent{
		SessionID:      summary.SessionID,
		TabID:          summary.TabID,
		Duration:       summary.Duration,
		AudioPackets:   summary.Packets,
		Transcriptions: summary.Transcriptions,
		Reason:         summary.Reason,
		Timestamp:      time.Now().UTC(),
	}
	if err := r.busClient.PublishJSON(protocol.SubjectSessionClosed, event); err != nil {
		r.logger.Warn("failed to publish session closed event", slog.String("error", err.Error()))
	}
}

func (r *Runtime) shutdown() {
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.registry != nil {
		r.registry.Close()
	}
	if r.coordinator != nil {
		r.coordinator.Close()
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Error("term store close error", slog.String("error", err.Error()))
		}
	}
	r.busClient.Close()
	r.embedded.Shutdown()

	if r.telemetry != nil {
		if err := r.telemetry(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}
