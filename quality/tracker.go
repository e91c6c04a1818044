package quality

import (
	"sync"
	"time"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
)

// Summary is a point-in-time aggregate over the tracker's rolling window.
type Summary struct {
	TurnCount      int            `json:"turn_count"`
	AvgLatency     time.Duration  `json:"avg_latency"`
	MinLatency     time.Duration  `json:"min_latency"`
	MaxLatency     time.Duration  `json:"max_latency"`
	SuccessRate    float64        `json:"success_rate"`
	EscalationRate float64        `json:"escalation_rate"`
	TotalTokens    int            `json:"total_tokens"`
	PerSpecialist  map[string]int `json:"per_specialist"`
}

// Tracker ingests per-turn quality records through a bounded queue so the
// turn path never blocks on telemetry. When the queue is full the oldest
// pending record is dropped to admit the newest. Aggregates are computed over
// a rolling time window.
type Tracker struct {
	queue  chan core.QualityRecord
	window time.Duration
	logger logging.Logger

	mu      sync.Mutex
	records []core.QualityRecord

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// TrackerOptions configures NewTracker.
type TrackerOptions struct {
	// QueueSize bounds the pending record queue.
	QueueSize int
	// Window is the rolling aggregation window.
	Window time.Duration
	// Logger receives drop notices. Defaults to no-op.
	Logger logging.Logger
}

// NewTracker starts a tracker with a single background worker.
func NewTracker(optFns ...func(o *TrackerOptions)) *Tracker {
	opts := TrackerOptions{
		QueueSize: 256,
		Window:    time.Hour,
		Logger:    logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	t := &Tracker{
		queue:  make(chan core.QualityRecord, opts.QueueSize),
		window: opts.Window,
		logger: opts.Logger,
		closed: make(chan struct{}),
	}
	t.wg.Add(1)
	go t.worker()
	return t
}

// Record enqueues a turn outcome without blocking. If the queue is full the
// oldest pending record is discarded so the newest is always admitted.
func (t *Tracker) Record(rec core.QualityRecord) {
	select {
	case <-t.closed:
		return
	default:
	}
	for {
		select {
		case <-t.closed:
			return
		case t.queue <- rec:
			return
		default:
		}
		select {
		case <-t.queue:
			droppedRecords.Inc()
			t.logger.Warn("quality queue full, dropped oldest record")
		default:
		}
	}
}

func (t *Tracker) worker() {
	defer t.wg.Done()
	for {
		select {
		case rec := <-t.queue:
			t.ingest(rec)
		case <-t.closed:
			for {
				select {
				case rec := <-t.queue:
					t.ingest(rec)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracker) ingest(rec core.QualityRecord) {
	outcome := "success"
	if !rec.Success {
		outcome = "failure"
	}
	if rec.Escalated {
		outcome = "escalated"
		escalationCount.Inc()
	}
	turnCount.WithLabelValues(rec.Specialist, outcome).Inc()
	turnLatency.WithLabelValues(rec.Specialist).Observe(rec.Latency.Seconds())
	tokensUsed.WithLabelValues(rec.Specialist).Add(float64(rec.Tokens))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	t.prune(time.Now().UTC())
}

// prune drops records older than the window. Caller holds t.mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for ; i < len(t.records); i++ {
		if !t.records[i].Timestamp.Before(cutoff) {
			break
		}
	}
	if i > 0 {
		t.records = append([]core.QualityRecord(nil), t.records[i:]...)
	}
}

// Snapshot returns the aggregates over the current rolling window.
func (t *Tracker) Snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(time.Now().UTC())

	s := Summary{PerSpecialist: make(map[string]int)}
	if len(t.records) == 0 {
		return s
	}

	var total time.Duration
	successes, escalations := 0, 0
	s.MinLatency = t.records[0].Latency
	for _, rec := range t.records {
		total += rec.Latency
		if rec.Latency < s.MinLatency {
			s.MinLatency = rec.Latency
		}
		if rec.Latency > s.MaxLatency {
			s.MaxLatency = rec.Latency
		}
		if rec.Success {
			successes++
		}
		if rec.Escalated {
			escalations++
		}
		s.TotalTokens += rec.Tokens
		s.PerSpecialist[rec.Specialist]++
	}
	s.TurnCount = len(t.records)
	s.AvgLatency = total / time.Duration(len(t.records))
	s.SuccessRate = float64(successes) / float64(len(t.records))
	s.EscalationRate = float64(escalations) / float64(len(t.records))
	return s
}

// Close stops intake, drains pending records into the aggregates and waits
// for the worker to exit. Safe to call more than once.
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.closed) })
	t.wg.Wait()
}
