// Package workflow drives render jobs through the narration, footage,
// compose, and render stages.
//
// The Manager owns an in-memory FIFO of queued job ids and a fixed pool of
// worker goroutines, so at most workflow.workers jobs are processing at any
// moment. Each job id is in flight at most once: requeueing an id that is
// already queued coalesces, and requeueing an id a worker holds is deferred
// until that worker releases it. Transient stage failures are retried with exponential
// backoff and re-enter the queue at the tail; everything else fails the job.
//
// On Start, jobs left processing by a previous run are reset to queued and
// every queued job is loaded in creation order.
package workflow
