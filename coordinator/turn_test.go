package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurn_HappyPath(t *testing.T) {
	tr := newTurn()
	assert.Equal(t, StateReceived, tr.state)

	tr.to(StateClassified)
	tr.to(StateDispatched)
	tr.to(StateExecuting)
	tr.to(StateCompleted)
	assert.True(t, tr.state.Terminal())
}

func TestTurn_EscalationFromClassified(t *testing.T) {
	tr := newTurn()
	tr.to(StateClassified)
	tr.to(StateEscalated)
	assert.True(t, tr.state.Terminal())
}

func TestTurn_InvalidTransitionPanics(t *testing.T) {
	tr := newTurn()
	assert.Panics(t, func() { tr.to(StateCompleted) })

	tr.to(StateClassified)
	tr.to(StateEscalated)
	assert.Panics(t, func() { tr.to(StateCompleted) })
}

func TestTurnState_Terminal(t *testing.T) {
	assert.False(t, StateReceived.Terminal())
	assert.False(t, StateExecuting.Terminal())
	assert.True(t, StateFailed.Terminal())
}
