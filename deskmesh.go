// Package deskmesh provides a high-level façade over the coordinator and its
// services (session store, specialist registry, quality tracker, preference
// memory) enabling rapid construction of a support orchestration backend.
// Most applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding default in-memory services)
//  2. Handling turns with HandleTurn
//  3. Reading quality aggregates with Snapshot
//
// All defaults are safe for local development and testing; production
// deployments supply the SQLite session store, a real model adapter and a
// structured logger.
package deskmesh

import (
	"context"
	"fmt"

	"github.com/deskmesh/deskmesh/coordinator"
	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
	"github.com/deskmesh/deskmesh/memory"
	"github.com/deskmesh/deskmesh/model"
	"github.com/deskmesh/deskmesh/quality"
	"github.com/deskmesh/deskmesh/session"
	"github.com/deskmesh/deskmesh/specialist"
	"github.com/deskmesh/deskmesh/tool"
)

// Options configures the Mesh instance.
type Options struct {
	// SessionStore defaults to an in-memory store.
	SessionStore core.SessionStore
	// Model backs the General specialist. Defaults to a mock model.
	Model model.Model
	// SearchProvider backs the Product specialist's search fallback.
	// Defaults to the static provider.
	SearchProvider tool.SearchProvider
	// Preferences defaults to an in-memory preference store.
	Preferences memory.PreferenceStore
	// Sink receives escalation signals. Defaults to an in-process queue.
	Sink coordinator.EscalationSink
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Coordinator tuning applied on top of the coordinator defaults.
	CoordinatorOptions []func(o *coordinator.Options)
}

// Mesh is the high-level façade aggregating the coordinator and its services.
type Mesh struct {
	coordinator *coordinator.Coordinator
	registry    *specialist.Registry
	tracker     *quality.Tracker
	store       core.SessionStore
}

// New creates a Mesh with the fixed specialist set (general, product,
// calculation) wired to their tools. Any unset service is initialized with an
// in-memory implementation.
func New(optFns ...func(o *Options)) (*Mesh, error) {
	opts := Options{
		SessionStore:   session.NewInMemoryStore(),
		Model:          model.NewMockModel("Happy to help!"),
		SearchProvider: tool.NewStaticProvider(),
		Preferences:    memory.NewInMemoryPreferences(),
		Sink:           coordinator.NewQueueSink(),
		Logger:         logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := specialist.NewRegistry()
	toRegister := []specialist.Specialist{
		specialist.NewGeneral(opts.Model),
		specialist.NewProduct(tool.NewCatalogAdapter(), tool.NewSearchAdapter(opts.SearchProvider)),
		specialist.NewCalculation(tool.NewSandboxAdapter()),
	}
	for _, sp := range toRegister {
		if err := registry.Register(sp); err != nil {
			return nil, fmt.Errorf("registering specialist %s: %w", sp.Name(), err)
		}
	}

	tracker := quality.NewTracker()
	coordOpts := append([]func(o *coordinator.Options){
		func(o *coordinator.Options) {
			o.Tracker = tracker
			o.Sink = opts.Sink
			o.Preferences = opts.Preferences
			o.Logger = opts.Logger
		},
	}, opts.CoordinatorOptions...)

	return &Mesh{
		coordinator: coordinator.New(opts.SessionStore, registry, coordOpts...),
		registry:    registry,
		tracker:     tracker,
		store:       opts.SessionStore,
	}, nil
}

// HandleTurn runs one turn for the session and returns the turn result.
func (m *Mesh) HandleTurn(ctx context.Context, sessionID, text string) (*coordinator.TurnResult, error) {
	return m.coordinator.HandleTurn(ctx, sessionID, text)
}

// Snapshot returns the quality aggregates over the rolling window.
func (m *Mesh) Snapshot() quality.Summary { return m.tracker.Snapshot() }

// Specialists returns the registered specialist names.
func (m *Mesh) Specialists() []string { return m.registry.Names() }

// Close flushes the quality tracker.
func (m *Mesh) Close() { m.tracker.Close() }
