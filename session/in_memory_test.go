package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/deskmesh/deskmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_LoadCreates(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	sess, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, core.SessionActive, sess.Status)
	assert.Empty(t, sess.Messages)
}

func TestInMemoryStore_AppendPreservesOrder(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess-1", core.NewUserMessage("first"), nil, 3))
	require.NoError(t, s.Append(ctx, "sess-1", core.NewSpecialistMessage("general", "second"), nil, 5))

	sess, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "first", sess.Messages[0].Content)
	assert.Equal(t, "second", sess.Messages[1].Content)
	assert.Equal(t, 8, sess.TokensUsed)
}

func TestInMemoryStore_SnapshotIsolation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess-1", core.NewUserMessage("hello"), nil, 0))
	snap, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	snap.Messages[0].Content = "mutated"

	fresh, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh.Messages[0].Content)
}

func TestInMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := core.NewUserMessage(fmt.Sprintf("msg-%d", i))
			assert.NoError(t, s.Append(ctx, "sess-1", msg, nil, 1))
		}(i)
	}
	wg.Wait()

	sess, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, n)
	assert.Equal(t, n, sess.TokensUsed)
}

func TestInMemoryStore_ConcurrentCreateConverges(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Load(ctx, "sess-new")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, s.Append(ctx, "sess-new", core.NewUserMessage("hi"), nil, 0))
	sess, err := s.Load(ctx, "sess-new")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 1)
}

func TestInMemoryStore_SetStatus(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetStatus(ctx, "sess-1", core.SessionEscalated))
	sess, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.SessionEscalated, sess.Status)
}

func TestInMemoryStore_PruneExpired(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "old", core.NewUserMessage("stale"), nil, 0))
	require.NoError(t, s.Append(ctx, "fresh", core.NewUserMessage("recent"), nil, 0))

	s.mu.Lock()
	s.sessions["old"].LastActive = time.Now().UTC().Add(-91 * 24 * time.Hour)
	s.mu.Unlock()

	pruned, err := s.PruneExpired(ctx, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	sess, err := s.Load(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestInMemoryStore_DecisionAudit(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	d := &core.RoutingDecision{Query: "hi", Specialist: "general", Confidence: 0.9, Rationale: core.RationaleGreeting}
	require.NoError(t, s.Append(ctx, "sess-1", core.NewUserMessage("hi"), d, 0))
	require.NoError(t, s.Append(ctx, "sess-1", core.NewSpecialistMessage("general", "hello"), nil, 0))

	decisions := s.Decisions("sess-1")
	require.Len(t, decisions, 1)
	assert.Equal(t, core.RationaleGreeting, decisions[0].Rationale)

	sess, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 2)
}
