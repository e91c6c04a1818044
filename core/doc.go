// Package core contains the shared domain model for the deskmesh support
// orchestration system: sessions and their ordered message history, routing
// decisions produced by the coordinator's classifier, per-turn quality
// records, and the SessionStore contract implemented by the session package.
//
// Types here are deliberately free of orchestration logic; the coordinator,
// specialist and quality packages depend on core, never the other way around.
package core
