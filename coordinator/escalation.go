package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/deskmesh/deskmesh/core"
)

// Escalation is the signal handed to the human support queue when a turn
// cannot be dispatched or resolved automatically.
type Escalation struct {
	Ticket    string         `json:"ticket"`
	SessionID string         `json:"session_id"`
	Query     string         `json:"query"`
	Rationale core.Rationale `json:"rationale"`
	Context   []core.Message `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
}

// EscalationSink receives escalation signals. Implementations deliver them to
// a human support collaborator (queue, ticket system, webhook).
type EscalationSink interface {
	Escalate(ctx context.Context, esc Escalation) error
}

// NewTicketID generates a short human-readable ticket identifier.
func NewTicketID() string {
	return "TICKET-" + strings.ToUpper(strings.ReplaceAll(core.NewID(), "-", "")[:6])
}

// QueueSink is an in-process EscalationSink collecting escalations in memory.
// Useful for tests and as a default until a real ticket system is wired.
type QueueSink struct {
	mu    sync.Mutex
	items []Escalation
}

// NewQueueSink creates an empty in-process escalation queue.
func NewQueueSink() *QueueSink { return &QueueSink{} }

// Escalate appends the escalation to the queue.
func (q *QueueSink) Escalate(ctx context.Context, esc Escalation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, esc)
	return nil
}

// Pending returns a copy of the queued escalations in arrival order.
func (q *QueueSink) Pending() []Escalation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Escalation, len(q.items))
	copy(out, q.items)
	return out
}
