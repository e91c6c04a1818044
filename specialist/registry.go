package specialist

import (
	"fmt"
	"sort"
	"sync"
)

// ErrNotRegistered is wrapped by Lookup failures; check with errors.Is.
var ErrNotRegistered = fmt.Errorf("specialist not registered")

// Registry holds the closed set of named specialists. Routing goes through an
// explicit Lookup rather than open-ended dynamic dispatch: adding a
// specialist requires an explicit Register call at wiring time. Safe for
// concurrent use; registration is expected to finish before serving.
type Registry struct {
	mu          sync.RWMutex
	specialists map[string]Specialist
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{specialists: make(map[string]Specialist)}
}

// Register adds a specialist under its name. Duplicate names are rejected so
// wiring mistakes fail loudly at startup.
func (r *Registry) Register(s Specialist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specialists[s.Name()]; exists {
		return fmt.Errorf("specialist %q already registered", s.Name())
	}
	r.specialists[s.Name()] = s
	return nil
}

// Lookup resolves a specialist by name.
func (r *Registry) Lookup(name string) (Specialist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specialists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return s, nil
}

// Names returns the registered specialist names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specialists))
	for name := range r.specialists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
