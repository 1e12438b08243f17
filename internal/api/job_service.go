package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shortsmith/internal/assembly"
	"shortsmith/internal/queue"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/services/tts"
)

// Queue accepts new and requeued jobs.
type Queue interface {
	Enqueue(ctx context.Context, scenes []scene.Scene, cfg renderspec.Config) (string, error)
	Requeue(ctx context.Context, id string) error
}

// Editor reconciles edits against stored jobs.
type Editor interface {
	ReconcileEdit(ctx context.Context, id string, edited []scene.Scene) (string, error)
	ReplaceVideos(ctx context.Context, id string, sceneIndex int) error
}

// VoiceSource lists voices offered by the narration service.
type VoiceSource interface {
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// JobService is the facade the HTTP layer and tests drive.
type JobService struct {
	store    *queue.Store
	queue    Queue
	editor   Editor
	voices   VoiceSource
	defaults renderspec.Config
}

// NewJobService wires the facade. defaults seeds every submitted config.
func NewJobService(store *queue.Store, q Queue, editor Editor, voices VoiceSource, defaults renderspec.Config) *JobService {
	return &JobService{store: store, queue: q, editor: editor, voices: voices, defaults: defaults}
}

// Defaults returns the render config applied beneath submitted options.
func (s *JobService) Defaults() renderspec.Config {
	return s.defaults
}

// Enqueue validates a submission and persists it as a queued job.
func (s *JobService) Enqueue(ctx context.Context, req SubmitRequest) (string, error) {
	cfg, err := renderspec.Decode(req.Config, s.defaults)
	if err != nil {
		return "", err
	}
	return s.queue.Enqueue(ctx, req.Scenes, cfg)
}

// GetStatus returns the polling view of a job. A job whose stored payload
// is corrupt reports as failed with the data_corruption kind.
func (s *JobService) GetStatus(ctx context.Context, id string) (JobStatus, error) {
	job, err := s.store.Get(ctx, id)
	if job == nil {
		return JobStatus{}, err
	}
	if err != nil && !errors.Is(err, services.ErrDataCorruption) {
		return JobStatus{}, err
	}
	return StatusOf(job), nil
}

// ReconcileEdit replaces a job's scenes and returns the job id.
func (s *JobService) ReconcileEdit(ctx context.Context, id string, req EditRequest) (string, error) {
	return s.editor.ReconcileEdit(ctx, id, req.Scenes)
}

// List returns job summaries filtered by status names. Unknown names are
// rejected.
func (s *JobService) List(ctx context.Context, statuses ...string) ([]Job, error) {
	filter := make([]queue.Status, 0, len(statuses))
	for _, raw := range statuses {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "list", fmt.Sprintf("unknown status %q", raw), nil)
		}
		filter = append(filter, status)
	}
	rows, err := s.store.List(ctx, filter...)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, FromSummary(row))
	}
	return jobs, nil
}

// Describe returns a job with its scenes and render config.
func (s *JobService) Describe(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job, true)
	return &dto, nil
}

// Retry moves a failed job back to the queue. Finished scene artifacts are
// reused.
func (s *JobService) Retry(ctx context.Context, id string) error {
	job, err := s.store.Get(ctx, id)
	if job == nil {
		return err
	}
	if job.Status != queue.StatusFailed {
		return services.Wrap(services.ErrConflict, "api", "retry", fmt.Sprintf("job %s is %s, only failed jobs can be retried", id, job.Status), nil)
	}
	if err != nil {
		return err
	}
	changed, err := s.store.RetryFailed(ctx, id)
	if err != nil {
		return err
	}
	if changed == 0 {
		return services.Wrap(services.ErrConflict, "api", "retry", fmt.Sprintf("job %s changed state before retry", id), nil)
	}
	return s.queue.Requeue(ctx, id)
}

// ClearFinished deletes ready and failed jobs.
func (s *JobService) ClearFinished(ctx context.Context) (int64, error) {
	return s.store.ClearTerminal(ctx)
}

// ReplaceVideos drops a scene's clips so the next run searches again.
func (s *JobService) ReplaceVideos(ctx context.Context, id string, sceneIndex int) error {
	return s.editor.ReplaceVideos(ctx, id, sceneIndex)
}

// Plan compiles a script into a timeline preview without storing it or
// calling any external service. Scenes without narration use their stated
// duration and produce no captions.
func (s *JobService) Plan(_ context.Context, req SubmitRequest) (PlanPreview, error) {
	cfg, err := renderspec.Decode(req.Config, s.defaults)
	if err != nil {
		return PlanPreview{}, err
	}
	return BuildPlan(req.Scenes, cfg)
}

// BuildPlan validates scenes and compiles the preview.
func BuildPlan(scenes []scene.Scene, cfg renderspec.Config) (PlanPreview, error) {
	if err := scene.Validate(scenes); err != nil {
		return PlanPreview{}, services.Wrap(services.ErrValidation, "plan", "scenes", err.Error(), nil)
	}
	return FromComposition(assembly.Preview(scenes, cfg)), nil
}

// Voices lists narration voices. When the service cannot be reached the
// built-in catalog is returned instead.
func (s *JobService) Voices(ctx context.Context, lang string) VoiceListResponse {
	source := "service"
	var voices []tts.Voice
	if s.voices != nil {
		if listed, err := s.voices.Voices(ctx); err == nil {
			voices = listed
		}
	}
	if voices == nil {
		source = "builtin"
		voices = tts.Catalog()
	}
	out := VoiceListResponse{Voices: make([]Voice, 0, len(voices)), Source: source}
	lang = strings.TrimSpace(lang)
	for _, v := range voices {
		if lang != "" && !strings.EqualFold(v.Language, lang) {
			continue
		}
		out.Voices = append(out.Voices, Voice(v))
	}
	return out
}
