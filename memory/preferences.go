// Package memory holds the customer preference store. Preferences are small
// key/value facts harvested from conversation ("I prefer email", "my budget
// is $1500") and injected into specialist context on later turns. The store
// interface is deliberately tiny so a database or cache backend can replace
// the in-memory implementation at wiring time.
package memory

import (
	"context"
	"sync"
)

// PreferenceStore persists per-session customer preferences.
type PreferenceStore interface {
	// Get returns a copy of the preference map for the session. A session
	// with no stored preferences yields an empty map, not an error.
	Get(ctx context.Context, sessionID string) (map[string]string, error)
	// Put merges the delta into the session's preferences, overwriting
	// existing keys.
	Put(ctx context.Context, sessionID string, delta map[string]string) error
}

// InMemoryPreferences is a process-local PreferenceStore guarded by an
// RWMutex. Suitable for tests and single-instance deployments.
type InMemoryPreferences struct {
	mu    sync.RWMutex
	prefs map[string]map[string]string
}

// NewInMemoryPreferences creates an empty preference store.
func NewInMemoryPreferences() *InMemoryPreferences {
	return &InMemoryPreferences{prefs: make(map[string]map[string]string)}
}

// Get returns a copy of the session's preferences.
func (m *InMemoryPreferences) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.prefs[sessionID]))
	for k, v := range m.prefs[sessionID] {
		out[k] = v
	}
	return out, nil
}

// Put merges the delta into the session's preferences.
func (m *InMemoryPreferences) Put(ctx context.Context, sessionID string, delta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prefs[sessionID]; !ok {
		m.prefs[sessionID] = make(map[string]string)
	}
	for k, v := range delta {
		m.prefs[sessionID][k] = v
	}
	return nil
}
