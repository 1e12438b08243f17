package api

import (
	"time"

	"shortsmith/internal/assembly"
	"shortsmith/internal/queue"
	"shortsmith/internal/workflow"
)

// FromJob converts a stored job. Scenes and config are included when full is set.
func FromJob(job *queue.Job, full bool) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:           job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Stage:        job.Stage,
		ErrorMessage: job.ErrorMessage,
		ErrorKind:    string(job.ErrorKind),
		OutputPath:   job.OutputPath,
		Attempts:     job.Attempts,
		SceneCount:   len(job.Scenes),
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if full {
		dto.Scenes = job.Scenes
		cfg := job.Config
		dto.Config = &cfg
	}
	return dto
}

// FromSummary converts a list row.
func FromSummary(s queue.Summary) Job {
	return Job{
		ID:           s.ID,
		Status:       string(s.Status),
		Progress:     s.Progress,
		Stage:        s.Stage,
		ErrorMessage: s.ErrorMessage,
		ErrorKind:    string(s.ErrorKind),
		OutputPath:   s.OutputPath,
		Attempts:     s.Attempts,
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
}

// StatusOf builds the polling view of a job.
func StatusOf(job *queue.Job) JobStatus {
	return JobStatus{
		ID:        job.ID,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Stage:     job.Stage,
		Error:     job.ErrorMessage,
		ErrorKind: string(job.ErrorKind),
	}
}

// FromStatusSummary converts the workflow manager snapshot.
func FromStatusSummary(s workflow.StatusSummary) WorkflowStatus {
	health := make([]StageHealth, 0, len(s.StageHealth))
	for _, h := range s.StageHealth {
		health = append(health, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return WorkflowStatus{
		Running:     s.Running,
		Workers:     s.Workers,
		QueueDepth:  s.QueueDepth,
		InFlight:    nonNil(s.InFlight),
		Retrying:    nonNil(s.Retrying),
		QueueStats:  MergeQueueStats(s.QueueStats),
		StageHealth: health,
		LastError:   s.LastError,
		LastJobID:   s.LastJobID,
	}
}

// FromComposition flattens a composition into a plan preview.
func FromComposition(comp assembly.Composition) PlanPreview {
	plan := comp.Plan
	preview := PlanPreview{
		FPS:            plan.FPS,
		TotalFrames:    plan.TotalFrames,
		DurationSec:    plan.DurationSec(),
		PaddingFrames:  plan.PaddingFrames,
		FadeStartFrame: plan.FadeStartFrame,
		Segments:       make([]PlanSegment, 0, len(plan.Segments)),
		Cues:           []PlanCue{},
	}
	for _, seg := range plan.Segments {
		preview.Segments = append(preview.Segments, PlanSegment{
			SceneIndex:     seg.SceneIndex,
			StartFrame:     seg.StartFrame,
			DurationFrames: seg.DurationFrames,
			StartSec:       plan.Seconds(seg.StartFrame),
			DurationSec:    plan.Seconds(seg.DurationFrames),
		})
	}
	for _, cue := range comp.Cues() {
		preview.Cues = append(preview.Cues, PlanCue{SceneIndex: cue.SceneIndex, StartMs: cue.StartMs, EndMs: cue.EndMs, Text: cue.Text})
	}
	return preview
}

// MergeQueueStats fills every known status so clients see zero counts.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
