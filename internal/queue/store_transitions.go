package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckProcessing returns jobs left in processing by a previous daemon
// run to queued so they are picked up again.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.exec(
		ctx,
		`UPDATE jobs
         SET status = ?, stage = '', progress = 0, version = version + 1, updated_at = ?
         WHERE status = ?`,
		StatusQueued,
		formatTime(time.Now()),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to queued, clearing the error and the
// attempt counter. Scene artifacts are kept so finished stages are not
// repeated. With no ids every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := formatTime(time.Now())
	query := `UPDATE jobs
        SET status = ?, stage = '', progress = 0, error_message = '', error_kind = '',
            attempts = 0, version = version + 1, updated_at = ?
        WHERE status = ?`
	args := []any{StatusQueued, now, StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}
