// Package services defines shared utilities consumed by the render workflow
// stages and the external integrations they call.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into a retry decision (transient vs permanent) and a persisted error kind.
//   - CallWithTimeout, which bounds a single collaborator call and maps an
//     expired deadline onto ErrTimeout.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
