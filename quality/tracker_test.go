package quality

import (
	"testing"
	"time"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(specialist string, latency time.Duration, tokens int, success, escalated bool) core.QualityRecord {
	return core.QualityRecord{
		SessionID:  "sess-1",
		Latency:    latency,
		Tokens:     tokens,
		Specialist: specialist,
		Success:    success,
		Escalated:  escalated,
		Timestamp:  time.Now().UTC(),
	}
}

func TestTracker_Aggregates(t *testing.T) {
	tr := NewTracker()

	tr.Record(record("general", 100*time.Millisecond, 20, true, false))
	tr.Record(record("product", 300*time.Millisecond, 50, true, false))
	tr.Record(record("product", 200*time.Millisecond, 30, false, true))
	tr.Close()

	s := tr.Snapshot()
	assert.Equal(t, 3, s.TurnCount)
	assert.Equal(t, 200*time.Millisecond, s.AvgLatency)
	assert.Equal(t, 100*time.Millisecond, s.MinLatency)
	assert.Equal(t, 300*time.Millisecond, s.MaxLatency)
	assert.InDelta(t, 2.0/3.0, s.SuccessRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, s.EscalationRate, 1e-9)
	assert.Equal(t, 100, s.TotalTokens)
	assert.Equal(t, map[string]int{"general": 1, "product": 2}, s.PerSpecialist)
}

func TestTracker_EmptySnapshot(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	s := tr.Snapshot()
	assert.Zero(t, s.TurnCount)
	assert.Zero(t, s.SuccessRate)
	assert.Empty(t, s.PerSpecialist)
}

func TestTracker_DropOldestUnderPressure(t *testing.T) {
	// A queue of one and no running worker forces the overflow path; the
	// newest record must win.
	tr := &Tracker{
		queue:  make(chan core.QualityRecord, 1),
		window: time.Hour,
		logger: logging.NewNoOpLogger(),
		closed: make(chan struct{}),
	}

	tr.Record(record("general", time.Millisecond, 1, true, false))
	tr.Record(record("product", time.Millisecond, 2, true, false))

	require.Len(t, tr.queue, 1)
	got := <-tr.queue
	assert.Equal(t, "product", got.Specialist)
}

func TestTracker_WindowExpiry(t *testing.T) {
	tr := NewTracker(func(o *TrackerOptions) { o.Window = time.Minute })

	old := record("general", time.Millisecond, 1, true, false)
	old.Timestamp = time.Now().UTC().Add(-2 * time.Minute)
	tr.Record(old)
	tr.Record(record("product", time.Millisecond, 2, true, false))
	tr.Close()

	s := tr.Snapshot()
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, map[string]int{"product": 1}, s.PerSpecialist)
}

func TestTracker_RecordAfterCloseIsIgnored(t *testing.T) {
	tr := NewTracker()
	tr.Close()
	tr.Record(record("general", time.Millisecond, 1, true, false))

	assert.Zero(t, tr.Snapshot().TurnCount)
}
