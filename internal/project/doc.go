// Package project defines the project document aggregate, its pipeline state
// machine vocabulary, the pure mutation operations applied by the
// orchestrator, and SQLite persistence of document snapshots.
package project
