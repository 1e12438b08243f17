// Package logs reads the daemon log file for the CLI.
//
// Tail returns the last N lines with bounded memory and an offset that a
// follow loop passes back in to pick up newly appended lines. JobID narrows
// output to records carrying that job's identifier in either the console or
// JSON log format.
package logs
