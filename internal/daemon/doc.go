// Package daemon coordinates the long-running Reface process.
//
// It wires configuration, project storage, the generation services, the
// pipeline orchestrator, and the HTTP API into a single lifecycle with
// flock-based locking to prevent multiple instances. Orchestration logic
// stays here: individual pipeline stages live in their own packages while
// the daemon focuses on startup, shutdown, and high level coordination.
package daemon
