package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

// Create persists a new queued job and returns it.
func (s *Store) Create(ctx context.Context, scenes []scene.Scene, cfg renderspec.Config) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Scenes:    scene.CloneAll(scenes),
		Config:    cfg,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	scenesJSON, configJSON, err := encodeJob(job)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx,
		`INSERT INTO jobs (id, status, scenes_json, config_json, progress, stage, error_message, error_kind, output_path, attempts, version, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, '', '', '', '', 0, ?, ?, ?)`,
		job.ID, job.Status, scenesJSON, configJSON, job.Version, formatTime(now), formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Get loads a job by id. Unknown ids return ErrNotFound. A row whose scenes
// or config fail to decode is marked failed with KindDataCorruption, and the
// partially decoded job comes back together with ErrDataCorruption. The
// stored payload is left untouched.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get job", fmt.Sprintf("job %s does not exist", id), nil)
	}
	if err != nil && !errors.Is(err, services.ErrDataCorruption) {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if err != nil {
		if markErr := s.failCorrupt(ctx, job, services.Message(err)); markErr != nil {
			return job, errors.Join(err, markErr)
		}
	}
	return job, err
}

// failCorrupt records a decode failure on the row once and mirrors the new
// state onto the partial job.
func (s *Store) failCorrupt(ctx context.Context, job *Job, reason string) error {
	if job.Status == StatusFailed && job.ErrorKind == services.KindDataCorruption {
		return nil
	}
	if err := s.MarkCorrupt(ctx, job.ID, reason); err != nil {
		return err
	}
	job.Status = StatusFailed
	job.ErrorKind = services.KindDataCorruption
	job.ErrorMessage = reason
	job.Progress = 0
	job.Stage = ""
	job.Version++
	return nil
}

// Update writes every mutable field if the stored version still matches
// job.Version. On success job.Version is advanced. A stale version returns
// ErrConflict.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("update job: nil job")
	}
	scenesJSON, configJSON, err := encodeJob(job)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.exec(ctx,
		`UPDATE jobs
         SET status = ?, scenes_json = ?, config_json = ?, progress = ?, stage = ?,
             error_message = ?, error_kind = ?, output_path = ?, attempts = ?,
             version = version + 1, updated_at = ?
         WHERE id = ? AND version = ?`,
		job.Status, scenesJSON, configJSON, clampProgress(job.Progress), job.Stage,
		job.ErrorMessage, string(job.ErrorKind), job.OutputPath, job.Attempts,
		formatTime(now), job.ID, job.Version,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		if exists, existsErr := s.exists(ctx, job.ID); existsErr == nil && !exists {
			return services.Wrap(services.ErrNotFound, "store", "update job", fmt.Sprintf("job %s does not exist", job.ID), nil)
		}
		return services.Wrap(services.ErrConflict, "store", "update job", fmt.Sprintf("job %s changed since version %d", job.ID, job.Version), nil)
	}
	job.Version++
	job.UpdatedAt = now
	return nil
}

// Mutate serializes a read-modify-write on one job. fn runs on a fresh copy
// while the per-id lock is held; returning an error aborts without writing.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*Job) error) (*Job, error) {
	ctx = ensureContext(ctx)
	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return job, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	if err := s.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// MarkCorrupt fails a job whose stored data no longer decodes. The row is
// updated with raw SQL so nothing is re-encoded from the broken payload.
func (s *Store) MarkCorrupt(ctx context.Context, id, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "stored job data is corrupt"
	}
	if _, err := s.exec(ctx,
		`UPDATE jobs
         SET status = ?, error_kind = ?, error_message = ?, progress = 0, stage = '', version = version + 1, updated_at = ?
         WHERE id = ?`,
		StatusFailed, string(services.KindDataCorruption), reason, formatTime(time.Now()), id,
	); err != nil {
		return fmt.Errorf("mark job corrupt: %w", err)
	}
	return nil
}

// Delete removes a job row.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns job summaries in creation order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Summary, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + summaryColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// QueuedIDs returns the ids of queued jobs, oldest first.
func (s *Store) QueuedIDs(ctx context.Context) ([]string, error) {
	summaries, err := s.List(ctx, StatusQueued)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(summaries))
	for i, summary := range summaries {
		ids[i] = summary.ID
	}
	return ids, nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM jobs WHERE id = ?`, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
