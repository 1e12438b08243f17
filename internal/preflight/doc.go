// Package preflight provides readiness checks for the directories, binaries,
// and services shortsmith depends on.
//
// The CLI "shortsmith preflight" command prints every result. The daemon logs
// the system dependency snapshot at startup so a missing ffmpeg build feature
// shows up before the first render fails.
package preflight
