// Package scene holds the narrated-segment model shared by every stage of the
// render pipeline: scene text, narration audio, word-level caption timestamps,
// and the stock clips selected for it.
//
// A scene's duration is authoritative from its narration audio. Frame timings
// are never stored here; the timeline package recomputes them on demand.
package scene
