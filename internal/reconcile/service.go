package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shortsmith/internal/logging"
	"shortsmith/internal/queue"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/stage"
	"shortsmith/internal/workflow"
)

// Requeuer hands a queued job back to the render queue.
type Requeuer interface {
	Requeue(ctx context.Context, id string) error
}

// Service applies edits and clip replacements to stored jobs.
type Service struct {
	store    *queue.Store
	narrator stage.Narrator
	queue    Requeuer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewService wires the reconciler. timeout bounds each synthesize call.
func NewService(store *queue.Store, narrator stage.Narrator, requeuer Requeuer, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:    store,
		narrator: narrator,
		queue:    requeuer,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "reconcile"),
	}
}

// ReconcileEdit replaces a job's scenes with an edited list. Only scenes
// whose text changed, and appended scenes, are synthesized again. An edit
// that changes nothing returns without touching the job.
func (s *Service) ReconcileEdit(ctx context.Context, id string, edited []scene.Scene) (string, error) {
	if err := scene.Validate(edited); err != nil {
		return "", services.Wrap(services.ErrValidation, "edit", "scenes", err.Error(), nil)
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status == queue.StatusProcessing {
		return "", workflow.ErrJobInFlight
	}

	result := Diff(job.Scenes, edited)
	logger := logging.WithContext(services.WithJobID(ctx, id), s.logger)
	if !result.Changed() {
		logger.Info("edit has no text changes", logging.String(logging.FieldEventType, "edit_noop"))
		return id, nil
	}

	for _, idx := range result.Stale {
		if err := s.narrate(ctx, job, &result.Scenes[idx]); err != nil {
			return "", fmt.Errorf("scene %d: %w", idx, err)
		}
	}

	if _, err := s.store.Mutate(ctx, id, func(j *queue.Job) error {
		if j.Version != job.Version {
			return services.Wrap(services.ErrConflict, "edit", "persist", "job changed while the edit was synthesized; resubmit the edit", nil)
		}
		if j.Status == queue.StatusProcessing {
			return workflow.ErrJobInFlight
		}
		j.Scenes = result.Scenes
		resetForRender(j)
		return nil
	}); err != nil {
		return "", err
	}

	logger.Info("edit reconciled",
		logging.Int("scenes", len(result.Scenes)),
		logging.Int("stale", len(result.Stale)),
		logging.Int("removed", result.Removed),
		logging.String(logging.FieldEventType, "edit_reconciled"),
	)
	if err := s.requeue(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// ReplaceVideos drops one scene's clips so the footage stage picks new ones.
func (s *Service) ReplaceVideos(ctx context.Context, id string, sceneIndex int) error {
	if _, err := s.store.Mutate(ctx, id, func(j *queue.Job) error {
		if j.Status == queue.StatusProcessing {
			return workflow.ErrJobInFlight
		}
		if sceneIndex < 0 || sceneIndex >= len(j.Scenes) {
			return services.Wrap(services.ErrValidation, "edit", "replace videos", fmt.Sprintf("scene index %d out of range (job has %d scenes)", sceneIndex, len(j.Scenes)), nil)
		}
		j.Scenes[sceneIndex].Videos = nil
		resetForRender(j)
		return nil
	}); err != nil {
		return err
	}
	s.logger.Info("scene footage cleared",
		logging.JobID(id),
		logging.Scene(sceneIndex),
		logging.String(logging.FieldEventType, "footage_replaced"),
	)
	return s.requeue(ctx, id)
}

func (s *Service) narrate(ctx context.Context, job *queue.Job, sc *scene.Scene) error {
	if s.narrator == nil {
		return services.Wrap(services.ErrValidation, "edit", "synthesize", "no narration service configured", nil)
	}
	var narration scene.Narration
	err := services.CallWithTimeout(ctx, s.timeout, "edit", "synthesize", func(callCtx context.Context) error {
		var err error
		narration, err = s.narrator.Synthesize(callCtx, sc.Text, job.Config.Voice, job.Config.Language)
		return err
	})
	if err != nil {
		return err
	}
	if !narration.Valid() {
		return services.Wrap(services.ErrTransient, "edit", "synthesize", "service returned no usable audio", nil)
	}
	if err := scene.ValidateWords(narration.Words); err != nil {
		return services.Wrap(services.ErrValidation, "edit", "synthesize", "bad word timings", err)
	}
	sc.SetNarration(narration.Audio, narration.Words)
	return nil
}

func (s *Service) requeue(ctx context.Context, id string) error {
	if s.queue == nil {
		return nil
	}
	if err := s.queue.Requeue(ctx, id); err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	return nil
}

func resetForRender(j *queue.Job) {
	j.Status = queue.StatusQueued
	j.Progress = 0
	j.Stage = ""
	j.ErrorMessage = ""
	j.ErrorKind = services.KindNone
	j.OutputPath = ""
	j.Attempts = 0
}
