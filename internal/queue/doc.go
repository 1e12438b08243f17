// Package queue persists render jobs in SQLite.
//
// The Store is the single source of truth for job status, progress, scenes,
// and render options. Writers go through Mutate, which serializes updates per
// job id and applies them with a version compare-and-swap so concurrent
// writers never interleave a read-modify-write. Rows whose stored scenes or
// config no longer decode are reported as data corruption and are never
// repaired in place.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
