// Package timeline converts scene durations into a frame-accurate plan.
//
// Frame boundaries are computed from cumulative seconds and rounded once per
// boundary, so rounding error never accumulates across scenes: the end of the
// last narrated scene always lands on round(fps × total seconds). Padding
// extends only the final scene, and the fade-out window always ends on the
// last frame of the plan.
package timeline
