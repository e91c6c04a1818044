package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(func(o *BreakerOptions) { o.Threshold = 3 })

	for i := 0; i < 2; i++ {
		assert.True(t, b.Allow("product"))
		b.Record("product", false)
	}
	assert.True(t, b.Allow("product"))
	b.Record("product", false)

	assert.False(t, b.Allow("product"))
	assert.True(t, b.Open("product"))
}

func TestBreaker_SuccessResetsRun(t *testing.T) {
	b := NewBreaker(func(o *BreakerOptions) { o.Threshold = 3 })

	b.Record("product", false)
	b.Record("product", false)
	b.Record("product", true)
	b.Record("product", false)
	b.Record("product", false)

	assert.True(t, b.Allow("product"))
}

func TestBreaker_IsolatesSpecialists(t *testing.T) {
	b := NewBreaker(func(o *BreakerOptions) { o.Threshold = 1 })

	b.Record("product", false)
	assert.False(t, b.Allow("product"))
	assert.True(t, b.Allow("general"))
	assert.True(t, b.Allow("calculation"))
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(func(o *BreakerOptions) {
		o.Threshold = 1
		o.Cooldown = 30 * time.Second
	})
	b.now = func() time.Time { return now }

	b.Record("product", false)
	assert.False(t, b.Allow("product"))

	// Cooldown elapsed: exactly one probe goes through.
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow("product"))
	assert.False(t, b.Allow("product"))

	// Successful probe closes the circuit.
	b.Record("product", true)
	assert.True(t, b.Allow("product"))
	assert.False(t, b.Open("product"))
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(func(o *BreakerOptions) {
		o.Threshold = 1
		o.Cooldown = 30 * time.Second
	})
	b.now = func() time.Time { return now }

	b.Record("product", false)
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow("product"))
	b.Record("product", false)

	// Re-opened: refused until another full cooldown passes.
	now = now.Add(29 * time.Second)
	assert.False(t, b.Allow("product"))
	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow("product"))
}
