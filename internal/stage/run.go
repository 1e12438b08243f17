package stage

import (
	"context"
	"log/slog"

	"shortsmith/internal/assembly"
	"shortsmith/internal/logging"
	"shortsmith/internal/queue"
)

// Run is the state shared by the stages of one job attempt.
type Run struct {
	Job         *queue.Job
	Composition *assembly.Composition
	OutputPath  string
	Logger      *slog.Logger

	save   func(context.Context, *queue.Job) error
	report func(context.Context, float64)
}

// NewRun wires a job to its persistence and progress callbacks. Either
// callback may be nil.
func NewRun(job *queue.Job, logger *slog.Logger, save func(context.Context, *queue.Job) error, report func(context.Context, float64)) *Run {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Run{Job: job, Logger: logger, save: save, report: report}
}

// Save persists the scenes produced so far.
func (r *Run) Save(ctx context.Context) error {
	if r.save == nil {
		return nil
	}
	return r.save(ctx, r.Job)
}

// Report publishes progress through the current stage (0..100).
func (r *Run) Report(ctx context.Context, percent float64) {
	if r.report == nil {
		return
	}
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	r.report(ctx, percent)
}

// SetReporter replaces the progress callback, typically once per stage.
func (r *Run) SetReporter(report func(context.Context, float64)) {
	r.report = report
}
