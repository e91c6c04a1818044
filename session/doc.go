// Package session provides the SessionStore implementations: a volatile
// in-memory store for tests and demos, and a durable SQLite-backed store that
// survives process restart. Both serialize appends per session id through a
// keyed mutex, which is what lets the coordinator and specialists stay
// stateless and replaceable across instances. A cron-driven Pruner handles
// advisory retention off the critical path.
package session
