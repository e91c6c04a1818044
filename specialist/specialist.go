// Package specialist implements the fixed set of query handlers the
// coordinator dispatches to, plus the registry resolving them by name.
// Specialists are stateless between invocations: all durable state lives in
// the session, so any specialist instance can serve any session.
package specialist

import (
	"context"

	"github.com/deskmesh/deskmesh/core"
)

// Capability tags what a specialist needs to produce a response. The set is
// closed; new specialists pick one of the two variants.
type Capability string

const (
	// CapabilityPureConversation marks specialists that only need the
	// language model.
	CapabilityPureConversation Capability = "pure-conversation"
	// CapabilityToolAugmented marks specialists that invoke tool adapters.
	CapabilityToolAugmented Capability = "tool-augmented"
)

// Fixed specialist names. The coordinator's dispatch table and the registry
// agree on these.
const (
	GeneralName     = "general"
	ProductName     = "product"
	CalculationName = "calculation"
)

// Result is a completed specialist response.
type Result struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// Specialist is the uniform execute contract. Execute receives the current
// query plus a bounded window of prior session messages and must honor ctx:
// the coordinator enforces the per-specialist deadline through it. Failures
// surface as errors (tool failures keep their *tool.ToolError type so the
// coordinator can categorize them); implementations must not retain state
// across invocations.
type Specialist interface {
	// Name returns the registry key for this specialist.
	Name() string

	// Capability reports whether the specialist needs tool adapters.
	Capability() Capability

	// Execute produces a response for the query given the context window.
	Execute(ctx context.Context, query string, history []core.Message) (*Result, error)
}
