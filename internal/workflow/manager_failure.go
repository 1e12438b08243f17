package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/queue"
	"shortsmith/internal/services"
)

const titleRunes = 48

// handleFailure records a failed attempt. Transient failures are queued
// again while attempts remain; everything else fails the job.
func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, stageName string, stageErr error) (time.Duration, bool) {
	kind := services.Classify(stageErr)
	message := services.Message(stageErr)
	if !strings.HasPrefix(message, stageName+":") {
		message = fmt.Sprintf("%s: %s", stageName, message)
	}
	m.setLastError(job.ID, stageErr)

	retry := services.Retryable(stageErr) && job.Attempts < m.cfg.Workflow.MaxAttempts
	var delay time.Duration
	if retry {
		delay = m.cfg.RetryBackoff(job.Attempts)
	}

	updated, err := m.store.Mutate(ctx, job.ID, func(j *queue.Job) error {
		j.ErrorMessage = message
		j.ErrorKind = kind
		if retry {
			j.Status = queue.StatusQueued
			return nil
		}
		j.Status = queue.StatusFailed
		return nil
	})
	if err != nil {
		logger.Error("record stage failure failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_failure_persist_failed"),
		)
		if errors.Is(err, services.ErrDataCorruption) {
			m.failCorrupt(ctx, logger, job.ID, err)
		}
		return 0, false
	}

	if retry {
		logger.Warn("stage failed; retrying",
			logging.Stage(stageName),
			logging.Kind(kind),
			logging.Error(stageErr),
			logging.Int("attempt", updated.Attempts),
			logging.Int("max_attempts", m.cfg.Workflow.MaxAttempts),
			logging.Duration("retry_in", delay),
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.String(logging.FieldImpact, "job requeued after backoff"),
		)
		return delay, true
	}

	logger.Error("stage failed",
		logging.Stage(stageName),
		logging.Kind(kind),
		logging.Error(stageErr),
		logging.Int("attempt", updated.Attempts),
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorHint, hintFor(kind)),
	)
	m.notify(ctx, logger, eventFailed(updated, stageName, message))
	return 0, false
}

// failCorrupt marks a job whose stored payload no longer decodes.
func (m *Manager) failCorrupt(ctx context.Context, logger *slog.Logger, id string, cause error) {
	reason := services.Message(cause)
	if err := m.store.MarkCorrupt(ctx, id, reason); err != nil {
		logger.Error("mark corrupt job failed", logging.Error(err))
		return
	}
	m.setLastError(id, cause)
	logger.Error("job data corrupt",
		logging.Error(cause),
		logging.Kind(services.KindDataCorruption),
		logging.String(logging.FieldEventType, "job_corrupt"),
		logging.String(logging.FieldErrorHint, "resubmit the job; stored data is left untouched for inspection"),
		logging.Alert("data_corruption"),
	)
	m.notify(ctx, logger, notification{
		event: notifications.EventJobFailed,
		payload: notifications.Payload{
			"jobID": id,
			"title": id,
			"stage": "load",
			"error": reason,
		},
	})
}

func hintFor(kind services.Kind) string {
	switch kind {
	case services.KindValidation:
		return "fix the scenes or render config and resubmit"
	case services.KindTransient:
		return "check the narration and footage services, then retry the job"
	case services.KindRender:
		return "inspect the retained work directory and ffmpeg log"
	default:
		return "inspect the daemon log for this job"
	}
}

type notification struct {
	event   notifications.Event
	payload notifications.Payload
}

func (m *Manager) notify(ctx context.Context, logger *slog.Logger, n notification) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, n.event, n.payload); err != nil {
		logger.Warn("notification failed",
			logging.String("event", string(n.event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "user was not notified"),
		)
	}
}

func eventReady(job *queue.Job, elapsed time.Duration) notification {
	return notification{
		event: notifications.EventJobReady,
		payload: notifications.Payload{
			"jobID":      job.ID,
			"title":      jobTitle(job),
			"outputPath": job.OutputPath,
			"duration":   elapsed,
		},
	}
}

func eventFailed(job *queue.Job, stageName, message string) notification {
	return notification{
		event: notifications.EventJobFailed,
		payload: notifications.Payload{
			"jobID": job.ID,
			"title": jobTitle(job),
			"stage": stageName,
			"error": message,
		},
	}
}

// jobTitle labels a job by the opening of its first scene.
func jobTitle(job *queue.Job) string {
	if job == nil || len(job.Scenes) == 0 {
		return ""
	}
	text := strings.Join(strings.Fields(job.Scenes[0].Text), " ")
	runes := []rune(text)
	if len(runes) <= titleRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:titleRunes])) + "…"
}
