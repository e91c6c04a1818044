// Package coordinator drives the per-turn lifecycle: classify the inbound
// query, consult the circuit breaker, dispatch to a specialist with a bounded
// context window, retry once on failure, and terminate the turn as COMPLETED,
// ESCALATED or FAILED. Every terminal turn persists its outcome through the
// SessionStore and emits exactly one quality record.
package coordinator
