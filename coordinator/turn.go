package coordinator

import "fmt"

// TurnState is the lifecycle state of a single turn. RECEIVED is the only
// initial state; COMPLETED, ESCALATED and FAILED are terminal.
type TurnState string

const (
	// StateReceived is the initial state of every turn.
	StateReceived TurnState = "RECEIVED"
	// StateClassified means a routing decision exists for the turn.
	StateClassified TurnState = "CLASSIFIED"
	// StateDispatched means a specialist has been selected and admitted.
	StateDispatched TurnState = "DISPATCHED"
	// StateExecuting means the specialist is running.
	StateExecuting TurnState = "EXECUTING"
	// StateCompleted is the terminal state of a successful turn.
	StateCompleted TurnState = "COMPLETED"
	// StateEscalated is the terminal state of a turn handed to the human
	// queue.
	StateEscalated TurnState = "ESCALATED"
	// StateFailed is the terminal state of a turn that exhausted its retry or
	// tripped a security pattern.
	StateFailed TurnState = "FAILED"
)

// Terminal reports whether the state ends the turn.
func (s TurnState) Terminal() bool {
	switch s {
	case StateCompleted, StateEscalated, StateFailed:
		return true
	}
	return false
}

var transitions = map[TurnState][]TurnState{
	StateReceived:   {StateClassified},
	StateClassified: {StateDispatched, StateEscalated, StateFailed},
	StateDispatched: {StateExecuting},
	StateExecuting:  {StateCompleted, StateFailed},
}

// turn tracks the state machine for one in-flight turn. An invalid transition
// is a programming error and panics rather than corrupting the turn record.
type turn struct {
	state TurnState
}

func newTurn() *turn { return &turn{state: StateReceived} }

func (t *turn) to(next TurnState) {
	for _, allowed := range transitions[t.state] {
		if next == allowed {
			t.state = next
			return
		}
	}
	panic(fmt.Sprintf("invalid turn transition %s -> %s", t.state, next))
}
