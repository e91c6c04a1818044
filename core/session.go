package core

import (
	"context"
	"fmt"
	"time"
)

// SessionStatus tracks the lifecycle of a session.
type SessionStatus string

const (
	// SessionActive is the status of a session accepting new turns.
	SessionActive SessionStatus = "ACTIVE"
	// SessionEscalated marks a session handed to the human support queue.
	SessionEscalated SessionStatus = "ESCALATED"
	// SessionExpired marks a session past the retention window, eligible for
	// pruning.
	SessionExpired SessionStatus = "EXPIRED"
)

// Session is the durable conversational record keyed by an opaque identifier.
// Message order is insertion order and is the sole source of truth for the
// context injected into specialists. Sessions are owned by a SessionStore and
// mutated only through its Load/Append operations; instances returned by a
// store are snapshots safe for the caller to read without synchronization.
type Session struct {
	ID         string        `json:"id"`
	Messages   []Message     `json:"messages"`
	Status     SessionStatus `json:"status"`
	Created    time.Time     `json:"created"`
	LastActive time.Time     `json:"last_active"`
	TokensUsed int           `json:"tokens_used"`
}

// NewSession creates an empty ACTIVE session with the given id.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Messages: []Message{}, Status: SessionActive, Created: now, LastActive: now}
}

// Clone returns a deep copy safe for independent use.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return &clone
}

// History returns up to n trailing messages, preserving order. n <= 0 returns
// the full history.
func (s *Session) History(n int) []Message {
	msgs := s.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Validate performs the structural checks a store runs on load. A failure
// means the persisted record is corrupt and the session must be quarantined.
func (s *Session) Validate() error {
	if s.ID == "" {
		return &CorruptSessionError{Reason: "empty session id"}
	}
	switch s.Status {
	case SessionActive, SessionEscalated, SessionExpired:
	default:
		return &CorruptSessionError{SessionID: s.ID, Reason: fmt.Sprintf("unknown status %q", s.Status)}
	}
	for i, m := range s.Messages {
		switch m.Role {
		case RoleUser, RoleSpecialist, RoleSystem:
		default:
			return &CorruptSessionError{SessionID: s.ID, Reason: fmt.Sprintf("message %d has unknown role %q", i, m.Role)}
		}
	}
	return nil
}

// CorruptSessionError reports a persisted session that failed structural
// validation on load. The affected session is quarantined; other sessions are
// unaffected.
type CorruptSessionError struct {
	SessionID string
	Reason    string
}

func (e *CorruptSessionError) Error() string {
	return fmt.Sprintf("session %s corrupt: %s", e.SessionID, e.Reason)
}

// SessionStore persists sessions and serializes access per session id.
//
// Contract:
//   - Load creates an empty ACTIVE session on first use; concurrent loads of
//     the same new id must not produce divergent sessions.
//   - Append is serialized per session id: concurrent appends for the same id
//     are applied one at a time, appends for distinct ids proceed in parallel.
//   - The routing decision accompanying an append is audit state, not part of
//     the message history.
type SessionStore interface {
	// Load returns a snapshot of the session, creating it if absent.
	Load(ctx context.Context, sessionID string) (*Session, error)
	// Append atomically adds a message, updates last-activity and adds
	// tokensUsed to the session's cumulative budget. decision may be nil.
	Append(ctx context.Context, sessionID string, msg Message, decision *RoutingDecision, tokensUsed int) error
	// SetStatus updates the session lifecycle status.
	SetStatus(ctx context.Context, sessionID string, status SessionStatus) error
	// PruneExpired marks and removes sessions whose last activity predates
	// the cutoff. Advisory; never on the turn critical path.
	PruneExpired(ctx context.Context, cutoff time.Time) (int, error)
}
