// Package reconcile applies scene edits to a stored job.
//
// Diff compares the stored and edited scene lists index by index. Scenes whose
// trimmed text is unchanged keep their narration and footage untouched;
// changed scenes lose their narration but keep their footage; appended scenes
// start without narration. Service.ReconcileEdit synthesizes the stale scenes,
// persists the result, and hands the job back to the render queue.
package reconcile
