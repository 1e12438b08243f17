// Package daemon coordinates the long-running shortsmith process.
//
// It wires configuration, job storage, the render queue, and the HTTP API
// into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon reports database and stage health, and exposes the
// job service over /api routes guarded by an optional bearer token.
//
// Keep orchestration logic here: pipeline stages live in internal/stage,
// scheduling in internal/workflow, and adapters under internal/services.
package daemon
