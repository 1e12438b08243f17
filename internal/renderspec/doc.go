// Package renderspec defines the explicit render configuration attached to
// every job: frame rate, canvas size, caption layout, padding, fade, music
// level, and narration voice.
//
// Every recognized option is a typed struct field with a default in Default.
// Submitted configs are decoded on top of those defaults with unknown keys
// rejected, then validated once with go-playground/validator before the job is
// persisted.
package renderspec
