package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortsmith/internal/logging"
	"shortsmith/internal/queue"
	"shortsmith/internal/services"
	"shortsmith/internal/stage"
)

var errSkipJob = errors.New("job no longer queued")

// processJob runs one attempt of a job. It returns whether the job should
// be queued again and after how long.
func (m *Manager) processJob(ctx context.Context, worker int, id string) (time.Duration, bool) {
	ctx = workerContext(ctx, worker, id, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	job, err := m.store.Mutate(ctx, id, func(j *queue.Job) error {
		if j.Status != queue.StatusQueued {
			return errSkipJob
		}
		j.Status = queue.StatusProcessing
		j.Attempts++
		j.Progress = 0
		j.Stage = ""
		j.ErrorMessage = ""
		j.ErrorKind = services.KindNone
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, errSkipJob), errors.Is(err, services.ErrNotFound):
		logger.Debug("skipping job", logging.Error(err))
		return 0, false
	case errors.Is(err, services.ErrDataCorruption):
		m.failCorrupt(ctx, logger, id, err)
		return 0, false
	case ctx.Err() != nil:
		return 0, false
	default:
		logger.Error("claim job failed", logging.Error(err), logging.String(logging.FieldEventType, "job_claim_failed"))
		m.setLastError(id, err)
		return m.cfg.RetryBackoff(1), true
	}

	started := time.Now()
	logger.Info("job processing started",
		logging.Int("attempt", job.Attempts),
		logging.Int("scenes", len(job.Scenes)),
		logging.String(logging.FieldEventType, "job_started"),
	)

	run := stage.NewRun(job, logger, m.saveScenes(id), nil)
	for _, st := range m.stages() {
		if err := m.executeStage(ctx, logger, run, st); err != nil {
			if ctx.Err() != nil {
				logger.Info("job interrupted by shutdown", logging.Stage(st.name))
				return 0, false
			}
			return m.handleFailure(ctx, logger, run.Job, st.name, err)
		}
	}
	m.completeJob(ctx, logger, run, time.Since(started))
	return 0, false
}

func (m *Manager) stages() []pipelineStage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline
}

func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, run *stage.Run, st pipelineStage) error {
	ctx = services.WithStage(ctx, st.name)
	stageLogger := logger.With(logging.Stage(st.name))
	run.Logger = stageLogger

	if _, err := m.store.Mutate(ctx, run.Job.ID, func(j *queue.Job) error {
		j.Stage = st.name
		if j.Progress < st.from {
			j.Progress = st.from
		}
		return nil
	}); err != nil {
		return fmt.Errorf("record stage start: %w", err)
	}

	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()

	run.SetReporter(m.reporter(run.Job.ID, st, stageLogger))

	if err := st.handler.Prepare(ctx, run); err != nil {
		return err
	}
	if err := st.handler.Execute(ctx, run); err != nil {
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

// reporter maps stage-local percent into overall progress. Progress only
// moves forward and is persisted when the integer value rises.
func (m *Manager) reporter(id string, st pipelineStage, logger *slog.Logger) func(context.Context, float64) {
	var mu sync.Mutex
	last := st.from
	return func(ctx context.Context, percent float64) {
		next := st.overall(percent)
		mu.Lock()
		if next <= last {
			mu.Unlock()
			return
		}
		last = next
		mu.Unlock()
		if _, err := m.store.Mutate(ctx, id, func(j *queue.Job) error {
			if next > j.Progress {
				j.Progress = next
			}
			return nil
		}); err != nil && ctx.Err() == nil {
			logger.Warn("progress update failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status shows stale progress"),
			)
		}
	}
}

// saveScenes persists the run's scenes so later attempts reuse them.
func (m *Manager) saveScenes(id string) func(context.Context, *queue.Job) error {
	return func(ctx context.Context, job *queue.Job) error {
		_, err := m.store.Mutate(ctx, id, func(j *queue.Job) error {
			j.Scenes = job.Scenes
			return nil
		})
		return err
	}
}

func (m *Manager) completeJob(ctx context.Context, logger *slog.Logger, run *stage.Run, elapsed time.Duration) {
	job, err := m.store.Mutate(ctx, run.Job.ID, func(j *queue.Job) error {
		j.Status = queue.StatusReady
		j.Progress = 100
		j.Stage = ""
		j.OutputPath = run.OutputPath
		j.ErrorMessage = ""
		j.ErrorKind = services.KindNone
		return nil
	})
	if err != nil {
		logger.Error("record job completion failed", logging.Error(err), logging.String(logging.FieldEventType, "job_complete_failed"))
		m.setLastError(run.Job.ID, err)
		return
	}
	logger.Info("job ready",
		logging.String("output_path", job.OutputPath),
		logging.Duration("job_duration", elapsed),
		logging.String(logging.FieldEventType, "job_ready"),
	)
	m.notify(ctx, logger, eventReady(job, elapsed))
}
