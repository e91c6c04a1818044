package session

import (
	"context"
	"sync"
	"time"

	"github.com/deskmesh/deskmesh/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Returned sessions are clones so callers cannot
// mutate internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*core.Session
	decisions map[string][]core.RoutingDecision
	locks     *keyedMutex
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[string]*core.Session),
		decisions: make(map[string][]core.RoutingDecision),
		locks:     newKeyedMutex(),
	}
}

// Load returns a snapshot of the session, creating an empty ACTIVE session on
// first use. Concurrent loads of the same new id converge on one session.
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if sess, ok := s.sessions[sessionID]; ok {
		defer s.mu.RUnlock()
		return sess.Clone(), nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	sess := core.NewSession(sessionID)
	s.sessions[sessionID] = sess
	return sess.Clone(), nil
}

// Append adds a message to the session, serialized per session id.
func (s *InMemoryStore) Append(ctx context.Context, sessionID string, msg core.Message, decision *core.RoutingDecision, tokensUsed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = core.NewSession(sessionID)
		s.sessions[sessionID] = sess
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastActive = time.Now().UTC()
	sess.TokensUsed += tokensUsed
	if decision != nil {
		s.decisions[sessionID] = append(s.decisions[sessionID], *decision)
	}
	return nil
}

// SetStatus updates the session lifecycle status.
func (s *InMemoryStore) SetStatus(ctx context.Context, sessionID string, status core.SessionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = core.NewSession(sessionID)
		s.sessions[sessionID] = sess
	}
	sess.Status = status
	return nil
}

// PruneExpired removes sessions whose last activity predates the cutoff.
func (s *InMemoryStore) PruneExpired(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.decisions, id)
			pruned++
		}
	}
	return pruned, nil
}

// Decisions returns the audit trail of routing decisions for a session.
func (s *InMemoryStore) Decisions(sessionID string) []core.RoutingDecision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoutingDecision, len(s.decisions[sessionID]))
	copy(out, s.decisions[sessionID])
	return out
}
