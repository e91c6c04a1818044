package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/deskmesh/deskmesh/config"
	"github.com/deskmesh/deskmesh/coordinator"
	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
	"github.com/deskmesh/deskmesh/memory"
	"github.com/deskmesh/deskmesh/model"
	"github.com/deskmesh/deskmesh/model/anthropic"
	"github.com/deskmesh/deskmesh/model/openai"
	"github.com/deskmesh/deskmesh/quality"
	"github.com/deskmesh/deskmesh/session"
	"github.com/deskmesh/deskmesh/specialist"
	"github.com/deskmesh/deskmesh/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the turn endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	logger := newLogger(cfg.Logging)

	store, closeStore, err := newSessionStore(cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := specialist.NewRegistry()
	searchAdapter := tool.NewSearchAdapter(tool.NewStaticProvider(), func(o *tool.SearchOptions) {
		o.Rate = cfg.Search.Rate
		o.Burst = cfg.Search.Burst
	})
	specialists := []specialist.Specialist{
		specialist.NewGeneral(newModel(cfg.Model)),
		specialist.NewProduct(tool.NewCatalogAdapter(), searchAdapter),
		specialist.NewCalculation(tool.NewSandboxAdapter()),
	}
	for _, sp := range specialists {
		if err := registry.Register(sp); err != nil {
			return fmt.Errorf("registering specialist %s: %w", sp.Name(), err)
		}
	}

	tracker := quality.NewTracker(func(o *quality.TrackerOptions) {
		o.QueueSize = cfg.Quality.QueueSize
		o.Window = cfg.Quality.Window
		o.Logger = logger
	})
	defer tracker.Close()

	breaker := quality.NewBreaker(func(o *quality.BreakerOptions) {
		o.Threshold = cfg.Quality.BreakerThreshold
		o.Cooldown = cfg.Quality.BreakerCooldown
	})

	coord := coordinator.New(store, registry, func(o *coordinator.Options) {
		o.Classifier = coordinator.NewClassifier(func(co *coordinator.ClassifierOptions) {
			co.Threshold = cfg.Routing.ConfidenceThreshold
		})
		o.Tracker = tracker
		o.Breaker = breaker
		o.Preferences = memory.NewInMemoryPreferences()
		o.Logger = logger
		o.HistoryWindow = cfg.Routing.HistoryWindow
		o.SpecialistTimeout = cfg.Routing.SpecialistTimeout
		o.Retries = cfg.Routing.Retries
	})

	pruner := session.NewPruner(store, cfg.Session.Retention, func(o *session.PrunerOptions) {
		o.Schedule = cfg.Session.PruneSchedule
		o.Logger = logger
	})
	if err := pruner.Start(); err != nil {
		return fmt.Errorf("starting session pruner: %w", err)
	}
	defer pruner.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/turn", turnHandler(coord, logger))
	mux.HandleFunc("GET /v1/quality", snapshotHandler(tracker))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func turnHandler(coord *coordinator.Coordinator, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req turnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.SessionID == "" || req.Message == "" {
			http.Error(w, "session_id and message are required", http.StatusBadRequest)
			return
		}

		res, err := coord.HandleTurn(r.Context(), req.SessionID, req.Message)
		if err != nil {
			logger.Error("turn failed", "session_id", req.SessionID, "error", err.Error())
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, res)
	}
}

func snapshotHandler(tracker *quality.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tracker.Snapshot())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newLogger(cfg config.LoggingConfig) *logging.SupportLogger {
	level := logging.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Format,
		Output:    os.Stdout,
		Component: "deskmesh",
	})
}

func newSessionStore(cfg config.SessionConfig, logger logging.Logger) (core.SessionStore, func(), error) {
	if cfg.Backend == "memory" {
		return session.NewInMemoryStore(), func() {}, nil
	}
	store, err := session.NewSQLiteStore(cfg.Path, func(o *session.SQLiteOptions) {
		o.Logger = logger
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

func newModel(cfg config.ModelConfig) model.Model {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.APIKey = cfg.APIKey
			o.MaxTokens = int64(cfg.MaxTokens)
		})
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		})
	default:
		return model.NewMockModel("Happy to help!")
	}
}
