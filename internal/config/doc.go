// Package config loads, normalizes, and validates shortsmith configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHORTSMITH_FOOTAGE_API_KEY. The Config type centralizes every knob the
// daemon and CLI need, including the default render options applied to jobs
// that do not override them.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
