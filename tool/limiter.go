package tool

import (
	"sync"
	"time"
)

// TokenBucket is a simple token-bucket rate limiter shared process-wide by
// the search adapter. Refill is computed lazily on each Allow call so no
// background goroutine is needed. Safe for concurrent use.
type TokenBucket struct {
	rate   float64 // tokens added per second
	burst  float64 // bucket capacity
	tokens float64
	last   time.Time
	mu     sync.Mutex

	now func() time.Time // injectable clock for tests
}

// NewTokenBucket creates a full bucket refilling at rate tokens per second
// with the given burst capacity.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	return &TokenBucket{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// Allow consumes one token if available and reports whether the caller may
// proceed.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	b.tokens += elapsed * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
