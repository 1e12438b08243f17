package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"shortsmith/internal/config"
	"shortsmith/internal/queue"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Scenes builds n text-only scenes named "scene-<i>".
func Scenes(n int) []scene.Scene {
	out := make([]scene.Scene, n)
	for i := range out {
		out[i] = scene.Scene{
			ID:          fmt.Sprintf("s%d", i),
			Text:        fmt.Sprintf("scene-%d narration", i),
			SearchTerms: []string{fmt.Sprintf("topic %d", i)},
		}
	}
	return out
}

// NewJob creates a queued job with n text-only scenes.
func NewJob(t testing.TB, store *queue.Store, n int) *queue.Job {
	t.Helper()

	job, err := store.Create(context.Background(), Scenes(n), renderspec.Default())
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

// CorruptScenes overwrites a job's stored scenes with undecodable JSON,
// bypassing the store.
func CorruptScenes(t testing.TB, cfg *config.Config, id string) {
	t.Helper()

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`UPDATE jobs SET scenes_json = '{broken' WHERE id = ?`, id); err != nil {
		t.Fatalf("corrupt job %s: %v", id, err)
	}
}
