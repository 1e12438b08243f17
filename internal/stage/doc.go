// Package stage defines the render pipeline stages and the contract the
// workflow manager drives them through.
//
// Each stage reads and updates the job carried by a Run. Stages persist their
// partial results through Run.Save so a retried job skips work that already
// succeeded: narration only synthesizes scenes without audio, footage only
// searches for scenes without clips.
package stage
