// Package notifications publishes job lifecycle events to ntfy.
//
// When no topic is configured NewService returns a noop implementation, so
// callers can publish unconditionally.
package notifications
