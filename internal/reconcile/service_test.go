package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shortsmith/internal/queue"
	"shortsmith/internal/reconcile"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/testsupport"
	"shortsmith/internal/workflow"
)

type countingNarrator struct {
	mu    sync.Mutex
	texts []string
}

func (n *countingNarrator) Synthesize(_ context.Context, text, _, _ string) (scene.Narration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return scene.Narration{
		Audio: scene.Audio{URL: "/audio/new.wav", DurationSec: 3.5},
		Words: []scene.CaptionWord{{Text: "new", StartMs: 0, EndMs: 500}},
	}, nil
}

func (n *countingNarrator) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts)
}

type recordingQueue struct {
	ids []string
}

func (q *recordingQueue) Requeue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

type fixture struct {
	store    *queue.Store
	narrator *countingNarrator
	queue    *recordingQueue
	service  *reconcile.Service
	job      *queue.Job
}

func newFixture(t *testing.T, status queue.Status) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, narratedScenes(3), renderspec.Default())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	job, err = store.Mutate(ctx, job.ID, func(j *queue.Job) error {
		j.Status = status
		j.Progress = 100
		j.OutputPath = "/out/old.mp4"
		j.Attempts = 1
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	narrator := &countingNarrator{}
	requeuer := &recordingQueue{}
	return &fixture{
		store:    store,
		narrator: narrator,
		queue:    requeuer,
		service:  reconcile.NewService(store, narrator, requeuer, 0, nil),
		job:      job,
	}
}

func TestReconcileEditWithoutChangesMakesNoCalls(t *testing.T) {
	f := newFixture(t, queue.StatusReady)
	ctx := context.Background()

	id, err := f.service.ReconcileEdit(ctx, f.job.ID, scene.CloneAll(f.job.Scenes))
	if err != nil {
		t.Fatalf("ReconcileEdit: %v", err)
	}
	if id != f.job.ID {
		t.Fatalf("id = %s, want %s", id, f.job.ID)
	}
	if f.narrator.calls() != 0 {
		t.Fatalf("narrator called %d times, want 0", f.narrator.calls())
	}
	if len(f.queue.ids) != 0 {
		t.Fatalf("requeued %v, want nothing", f.queue.ids)
	}
	after, err := f.store.Get(ctx, f.job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Version != f.job.Version || after.Status != queue.StatusReady {
		t.Fatalf("job touched by no-op edit: version %d->%d status %s", f.job.Version, after.Version, after.Status)
	}
}

func TestReconcileEditSynthesizesOnlyChangedScene(t *testing.T) {
	f := newFixture(t, queue.StatusReady)
	ctx := context.Background()

	edited := scene.CloneAll(f.job.Scenes)
	edited[0].Text = "rewritten opening"
	if _, err := f.service.ReconcileEdit(ctx, f.job.ID, edited); err != nil {
		t.Fatalf("ReconcileEdit: %v", err)
	}

	if f.narrator.calls() != 1 || f.narrator.texts[0] != "rewritten opening" {
		t.Fatalf("narrator texts = %v, want one call for the edited scene", f.narrator.texts)
	}
	if len(f.queue.ids) != 1 || f.queue.ids[0] != f.job.ID {
		t.Fatalf("requeued = %v", f.queue.ids)
	}

	after, err := f.store.Get(ctx, f.job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Status != queue.StatusQueued || after.Progress != 0 || after.OutputPath != "" || after.Attempts != 0 {
		t.Fatalf("job not reset for render: %+v", after)
	}
	if after.Scenes[0].Audio.URL != "/audio/new.wav" || after.Scenes[0].Audio.DurationSec != 3.5 {
		t.Fatalf("scene 0 audio = %+v", after.Scenes[0].Audio)
	}
	if len(after.Scenes[0].Videos) != 1 {
		t.Fatal("scene 0 lost its clips")
	}
	for i := 1; i < 3; i++ {
		if after.Scenes[i].Audio != f.job.Scenes[i].Audio {
			t.Fatalf("scene %d audio changed: %+v", i, after.Scenes[i].Audio)
		}
	}
}

func TestReconcileEditRejectsProcessingJob(t *testing.T) {
	f := newFixture(t, queue.StatusProcessing)

	edited := scene.CloneAll(f.job.Scenes)
	edited[1].Text = "changed"
	_, err := f.service.ReconcileEdit(context.Background(), f.job.ID, edited)
	if !errors.Is(err, workflow.ErrJobInFlight) {
		t.Fatalf("err = %v, want ErrJobInFlight", err)
	}
	if f.narrator.calls() != 0 {
		t.Fatal("narrator called for a rejected edit")
	}
}

func TestReconcileEditValidatesInput(t *testing.T) {
	f := newFixture(t, queue.StatusReady)
	ctx := context.Background()

	if _, err := f.service.ReconcileEdit(ctx, f.job.ID, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty edit: err = %v, want ErrValidation", err)
	}
	if _, err := f.service.ReconcileEdit(ctx, "missing", narratedScenes(1)); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown job: err = %v, want ErrNotFound", err)
	}
}

func TestReplaceVideosClearsOneScene(t *testing.T) {
	f := newFixture(t, queue.StatusFailed)
	ctx := context.Background()

	if err := f.service.ReplaceVideos(ctx, f.job.ID, 7); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("out of range: err = %v, want ErrValidation", err)
	}
	if err := f.service.ReplaceVideos(ctx, f.job.ID, 1); err != nil {
		t.Fatalf("ReplaceVideos: %v", err)
	}

	after, err := f.store.Get(ctx, f.job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(after.Scenes[1].Videos) != 0 {
		t.Fatalf("scene 1 videos = %+v, want none", after.Scenes[1].Videos)
	}
	if len(after.Scenes[0].Videos) != 1 || len(after.Scenes[2].Videos) != 1 {
		t.Fatal("other scenes lost clips")
	}
	if after.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want queued", after.Status)
	}
	if len(f.queue.ids) != 1 {
		t.Fatalf("requeued = %v", f.queue.ids)
	}
}
