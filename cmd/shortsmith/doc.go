// Command shortsmith is the command-line client for the shortsmith render
// daemon. It submits scripts, polls and edits jobs over the daemon HTTP API,
// previews timelines offline, and can run the daemon in the foreground.
package main
