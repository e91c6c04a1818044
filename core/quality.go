package core

import "time"

// QualityRecord captures the outcome of one completed turn. Exactly one record
// exists per turn that reaches a terminal state, which lets operators
// reconcile turn counts against metric counts. Records are append-only: they
// feed the quality tracker's rolling aggregates and are never mutated.
type QualityRecord struct {
	SessionID  string        `json:"session_id"`
	Turn       int           `json:"turn"`
	Latency    time.Duration `json:"latency"`
	Tokens     int           `json:"tokens"`
	Specialist string        `json:"specialist"`
	Success    bool          `json:"success"`
	Escalated  bool          `json:"escalated"`
	Timestamp  time.Time     `json:"timestamp"`
}
