package quality

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

type breakerEntry struct {
	state    breakerState
	failures int
	openedAt time.Time
}

// Breaker is a per-specialist circuit breaker. A run of consecutive failures
// opens the circuit; after the cooldown a single probe is let through, and its
// outcome decides whether the circuit closes again or re-opens for another
// cooldown.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*breakerEntry
}

// BreakerOptions configures NewBreaker.
type BreakerOptions struct {
	// Threshold is the consecutive-failure count that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration
}

// NewBreaker creates a breaker with all circuits closed.
func NewBreaker(optFns ...func(o *BreakerOptions)) *Breaker {
	opts := BreakerOptions{
		Threshold: 3,
		Cooldown:  30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Breaker{
		threshold: opts.Threshold,
		cooldown:  opts.Cooldown,
		now:       time.Now,
		entries:   make(map[string]*breakerEntry),
	}
}

func (b *Breaker) entry(specialist string) *breakerEntry {
	e, ok := b.entries[specialist]
	if !ok {
		e = &breakerEntry{}
		b.entries[specialist] = e
	}
	return e
}

// Allow reports whether a call to the specialist may proceed. When the
// cooldown of an open circuit has elapsed, exactly one caller is admitted as
// the half-open probe; others keep being refused until the probe resolves.
func (b *Breaker) Allow(specialist string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(specialist)
	switch e.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(e.openedAt) >= b.cooldown {
			e.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		return false
	}
	return true
}

// Record reports the outcome of a specialist call. A success closes the
// circuit and clears the failure run; a failure extends the run and opens the
// circuit at the threshold, or re-opens it if this was the half-open probe.
func (b *Breaker) Record(specialist string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(specialist)
	if success {
		e.state = stateClosed
		e.failures = 0
		breakerGauge.WithLabelValues(specialist).Set(0)
		return
	}
	e.failures++
	if e.state == stateHalfOpen || e.failures >= b.threshold {
		e.state = stateOpen
		e.openedAt = b.now()
		breakerGauge.WithLabelValues(specialist).Set(1)
	}
}

// Open reports whether the specialist's circuit is currently open.
func (b *Breaker) Open(specialist string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[specialist]
	return ok && e.state != stateClosed
}
