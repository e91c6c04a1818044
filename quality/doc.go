// Package quality tracks per-turn outcomes and guards specialist health. The
// Tracker ingests QualityRecords through a bounded queue with drop-oldest
// backpressure and exposes rolling-window aggregates plus Prometheus metrics.
// The Breaker opens a per-specialist circuit after a run of consecutive
// failures and probes it half-open after a cooldown.
package quality
