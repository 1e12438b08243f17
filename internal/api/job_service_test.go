package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"shortsmith/internal/api"
	"shortsmith/internal/queue"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/services/tts"
	"shortsmith/internal/testsupport"
)

type storeQueue struct {
	store    *queue.Store
	requeued []string
}

func (q *storeQueue) Enqueue(ctx context.Context, scenes []scene.Scene, cfg renderspec.Config) (string, error) {
	job, err := q.store.Create(ctx, scenes, cfg)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *storeQueue) Requeue(_ context.Context, id string) error {
	q.requeued = append(q.requeued, id)
	return nil
}

type nopEditor struct{}

func (nopEditor) ReconcileEdit(_ context.Context, id string, _ []scene.Scene) (string, error) {
	return id, nil
}

func (nopEditor) ReplaceVideos(context.Context, string, int) error { return nil }

type failingVoices struct{}

func (failingVoices) Voices(context.Context) ([]tts.Voice, error) {
	return nil, services.ErrTransient
}

func newService(t *testing.T) (*api.JobService, *queue.Store, *storeQueue) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	q := &storeQueue{store: store}
	return api.NewJobService(store, q, nopEditor{}, failingVoices{}, renderspec.Default()), store, q
}

func TestEnqueueLayersConfigOverDefaults(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	id, err := svc.Enqueue(ctx, api.SubmitRequest{
		Scenes: testsupport.Scenes(2),
		Config: json.RawMessage(`{"voice":"Pilar","language":"es","musicVolumeTier":"low"}`),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Config.Voice != "Pilar" || job.Config.FPS != renderspec.Default().FPS {
		t.Fatalf("config not layered: %+v", job.Config)
	}

	status, err := svc.GetStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != string(queue.StatusQueued) || status.Progress != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestEnqueueRejectsUnknownConfigKeys(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Enqueue(context.Background(), api.SubmitRequest{
		Scenes: testsupport.Scenes(1),
		Config: json.RawMessage(`{"framesPerSecond":24}`),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.GetStatus(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	first := testsupport.NewJob(t, store, 1)
	testsupport.NewJob(t, store, 1)
	if _, err := store.Mutate(ctx, first.ID, func(j *queue.Job) error {
		j.Status = queue.StatusFailed
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	jobs, err := svc.List(ctx, "failed")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != first.ID {
		t.Fatalf("expected only %s, got %+v", first.ID, jobs)
	}
	if _, err := svc.List(ctx, "archived"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestDescribeIncludesScenes(t *testing.T) {
	svc, store, _ := newService(t)
	job := testsupport.NewJob(t, store, 3)

	dto, err := svc.Describe(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(dto.Scenes) != 3 || dto.Config == nil || dto.SceneCount != 3 {
		t.Fatalf("unexpected job dto %+v", dto)
	}
}

func TestRetryOnlyFailedJobs(t *testing.T) {
	svc, store, q := newService(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, store, 1)

	if err := svc.Retry(ctx, job.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict for queued job, got %v", err)
	}

	if _, err := store.Mutate(ctx, job.ID, func(j *queue.Job) error {
		j.Status = queue.StatusFailed
		j.ErrorMessage = "render: boom"
		j.ErrorKind = services.KindRender
		j.Attempts = 3
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if err := svc.Retry(ctx, job.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	updated, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if updated.Status != queue.StatusQueued || updated.ErrorMessage != "" || updated.Attempts != 0 {
		t.Fatalf("job not reset: %+v", updated)
	}
	if len(q.requeued) != 1 || q.requeued[0] != job.ID {
		t.Fatalf("expected requeue of %s, got %v", job.ID, q.requeued)
	}
}

func TestPlanCompilesWithoutStoring(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	req := api.SubmitRequest{
		Scenes: []scene.Scene{
			{Text: "one", DurationSec: 4.0},
			{Text: "two", DurationSec: 3.5},
			{Text: "three", DurationSec: 2.0},
		},
		Config: json.RawMessage(`{"paddingBackMs":1000}`),
	}

	plan, err := svc.Plan(ctx, req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.TotalFrames != 315 {
		t.Fatalf("expected 315 frames, got %d", plan.TotalFrames)
	}
	starts := []int{0, 120, 225}
	for i, seg := range plan.Segments {
		if seg.StartFrame != starts[i] {
			t.Fatalf("segment %d starts at %d, want %d", i, seg.StartFrame, starts[i])
		}
	}
	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("plan must not persist jobs, found %d", len(jobs))
	}
}

func TestVoicesFallsBackToCatalog(t *testing.T) {
	svc, _, _ := newService(t)
	resp := svc.Voices(context.Background(), "es")
	if resp.Source != "builtin" {
		t.Fatalf("expected builtin source, got %q", resp.Source)
	}
	if len(resp.Voices) != 2 {
		t.Fatalf("expected two spanish voices, got %+v", resp.Voices)
	}
	for _, v := range resp.Voices {
		if v.Language != "es" {
			t.Fatalf("unexpected voice %+v", v)
		}
	}
}

func TestClearFinishedRemovesOnlyTerminalJobs(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	active := testsupport.NewJob(t, store, 1)
	done := testsupport.NewJob(t, store, 1)
	if _, err := store.Mutate(ctx, done.ID, func(j *queue.Job) error {
		j.Status = queue.StatusReady
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	removed, err := svc.ClearFinished(ctx)
	if err != nil {
		t.Fatalf("ClearFinished: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	jobs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != active.ID {
		t.Fatalf("unexpected remaining jobs %+v", jobs)
	}
}

func TestCorruptJobReportsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewJobService(store, &storeQueue{store: store}, nopEditor{}, failingVoices{}, renderspec.Default())
	ctx := context.Background()

	job := testsupport.NewJob(t, store, 2)
	if _, err := store.Mutate(ctx, job.ID, func(j *queue.Job) error {
		j.Status = queue.StatusReady
		j.Progress = 100
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	testsupport.CorruptScenes(t, cfg, job.ID)

	status, err := svc.GetStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != string(queue.StatusFailed) || status.ErrorKind != string(services.KindDataCorruption) {
		t.Fatalf("expected failed data_corruption status, got %+v", status)
	}
	if status.Error == "" || status.Progress != 0 {
		t.Fatalf("expected reason and reset progress, got %+v", status)
	}

	again, err := svc.GetStatus(ctx, job.ID)
	if err != nil || again.Status != string(queue.StatusFailed) {
		t.Fatalf("second GetStatus = %+v, %v", again, err)
	}
	if ready, err := svc.List(ctx, "ready"); err != nil || len(ready) != 0 {
		t.Fatalf("corrupt job should leave the ready list, got %+v, %v", ready, err)
	}
}

func TestDescribeMarksCorruptJobFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewJobService(store, &storeQueue{store: store}, nopEditor{}, failingVoices{}, renderspec.Default())
	ctx := context.Background()

	job := testsupport.NewJob(t, store, 1)
	testsupport.CorruptScenes(t, cfg, job.ID)

	if _, err := svc.Describe(ctx, job.ID); !errors.Is(err, services.ErrDataCorruption) {
		t.Fatalf("expected data corruption from Describe, got %v", err)
	}
	failed, err := svc.List(ctx, "failed")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != job.ID || failed[0].ErrorKind != string(services.KindDataCorruption) {
		t.Fatalf("expected corrupt job listed as failed, got %+v", failed)
	}
	if err := svc.Retry(ctx, job.ID); !errors.Is(err, services.ErrDataCorruption) {
		t.Fatalf("retry of corrupt job should surface corruption, got %v", err)
	}
}
