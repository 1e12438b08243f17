// Package api defines the job service facade and the wire-format types shared
// by the HTTP server and the CLI client.
//
// # Key Types
//
// JobService: Enqueue, GetStatus, ReconcileEdit, List, Describe, Retry,
// ReplaceVideos, and Plan over the job store, render queue, and reconciler.
//
// Job / JobStatus: transport views of a stored job. JobStatus is the polling
// payload; Job adds scenes and render config.
//
// PlanPreview: a compiled timeline with absolute caption cues, produced
// without touching the store or any external service.
//
// Client: HTTP client for the daemon API used by the CLI.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors cross the wire as {"error", "kind"} and are rebuilt on the client
// with the matching services sentinel so errors.Is keeps working.
package api
