package stage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shortsmith/internal/assembly"
	"shortsmith/internal/queue"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/stage"
)

type fakeNarrator struct {
	calls []string
	err   error
}

func (f *fakeNarrator) Synthesize(_ context.Context, text, _, _ string) (scene.Narration, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return scene.Narration{}, f.err
	}
	return scene.Narration{
		Audio: scene.Audio{URL: "file:///" + text + ".wav", DurationSec: 1.5},
		Words: []scene.CaptionWord{{Text: text, StartMs: 0, EndMs: 1200}},
	}, nil
}

type fakeSearcher struct {
	results map[string][]scene.Clip
	terms   []string
}

func (f *fakeSearcher) Search(_ context.Context, term string, count int) ([]scene.Clip, error) {
	f.terms = append(f.terms, term)
	clips := f.results[term]
	if len(clips) > count {
		clips = clips[:count]
	}
	return clips, nil
}

func newJob(scenes ...scene.Scene) *queue.Job {
	return &queue.Job{ID: "job-1", Scenes: scenes, Config: renderspec.Default()}
}

func TestNarrationOnlySynthesizesStaleScenes(t *testing.T) {
	narrator := &fakeNarrator{}
	job := newJob(
		scene.Scene{Text: "done", Audio: scene.Audio{URL: "file:///done.wav", DurationSec: 2}},
		scene.Scene{Text: "todo"},
	)
	saves := 0
	var progress []float64
	run := stage.NewRun(job, nil,
		func(context.Context, *queue.Job) error { saves++; return nil },
		func(_ context.Context, p float64) { progress = append(progress, p) },
	)
	handler := stage.NewNarration(narrator, 0)
	if err := handler.Prepare(context.Background(), run); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(narrator.calls) != 1 || narrator.calls[0] != "todo" {
		t.Fatalf("unexpected synth calls %v", narrator.calls)
	}
	if job.Scenes[1].Audio.DurationSec != 1.5 || len(job.Scenes[1].CaptionWords) != 1 {
		t.Fatalf("narration not applied: %+v", job.Scenes[1])
	}
	if saves != 1 || len(progress) != 1 || progress[0] != 100 {
		t.Fatalf("saves=%d progress=%v", saves, progress)
	}
}

func TestNarrationPropagatesClassifiedErrors(t *testing.T) {
	narrator := &fakeNarrator{err: services.Wrap(services.ErrTransient, "narration", "synthesize", "503", nil)}
	run := stage.NewRun(newJob(scene.Scene{Text: "x"}), nil, nil, nil)
	err := stage.NewNarration(narrator, 0).Execute(context.Background(), run)
	if !services.Retryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestFootageFallsBackThroughTerms(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]scene.Clip{
		"ocean waves": {{URL: "a.mp4", DurationSec: 8}, {URL: "b.mp4", DurationSec: 9}},
	}}
	job := newJob(
		scene.Scene{Text: "first", SearchTerms: []string{"kraken", "ocean waves"}},
		scene.Scene{Text: "already", Videos: []scene.Clip{{URL: "keep.mp4"}}},
	)
	run := stage.NewRun(job, nil, nil, nil)
	handler := stage.NewFootage(searcher, 1, 0)
	if err := handler.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fmt.Sprint(searcher.terms) != "[kraken ocean waves]" {
		t.Fatalf("unexpected search order %v", searcher.terms)
	}
	if len(job.Scenes[0].Videos) != 1 || job.Scenes[0].Videos[0].URL != "a.mp4" {
		t.Fatalf("unexpected clips %+v", job.Scenes[0].Videos)
	}
	if job.Scenes[1].Videos[0].URL != "keep.mp4" {
		t.Fatal("existing clips must be kept")
	}
}

func TestFootageNoResultsIsValidationError(t *testing.T) {
	run := stage.NewRun(newJob(scene.Scene{Text: "nothing matches here at all"}), nil, nil, nil)
	err := stage.NewFootage(&fakeSearcher{}, 1, 0).Execute(context.Background(), run)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchTermsFallback(t *testing.T) {
	terms := stage.SearchTerms(scene.Scene{Text: "  The deep blue ocean hides secrets "})
	if len(terms) != 1 || terms[0] != "The deep blue ocean" {
		t.Fatalf("unexpected fallback terms %v", terms)
	}
}

type fakeRenderer struct{ output string }

func (f fakeRenderer) Render(_ context.Context, comp assembly.Composition, _ renderspec.Config, onProgress stage.ProgressFunc) (string, error) {
	onProgress("encode", 50)
	if len(comp.Scenes) == 0 {
		return "", errors.New("empty composition")
	}
	return f.output, nil
}

func TestComposeThenRender(t *testing.T) {
	job := newJob(scene.Scene{
		Text:   "hello",
		Audio:  scene.Audio{URL: "file:///a.wav", DurationSec: 2},
		Videos: []scene.Clip{{URL: "a.mp4", DurationSec: 5}},
	})
	var progress []float64
	run := stage.NewRun(job, nil, nil, func(_ context.Context, p float64) { progress = append(progress, p) })
	ctx := context.Background()

	render := stage.NewRender(fakeRenderer{output: "/out/hello.mp4"}, 0)
	if err := render.Prepare(ctx, run); !errors.Is(err, services.ErrRender) {
		t.Fatalf("render without composition should fail, got %v", err)
	}
	if err := stage.NewCompose().Execute(ctx, run); err != nil {
		t.Fatalf("compose: %v", err)
	}
	if run.Composition == nil || run.Composition.Plan.TotalFrames == 0 {
		t.Fatal("expected composition")
	}
	if err := render.Prepare(ctx, run); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := render.Execute(ctx, run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.OutputPath != "/out/hello.mp4" {
		t.Fatalf("unexpected output %q", run.OutputPath)
	}
	if len(progress) < 2 || progress[len(progress)-1] != 100 {
		t.Fatalf("unexpected progress %v", progress)
	}
}

func TestHealthChecks(t *testing.T) {
	if h := stage.NewNarration(nil, 0).HealthCheck(context.Background()); h.Ready {
		t.Fatal("narration without narrator should be unhealthy")
	}
	if h := stage.NewNarration(&fakeNarrator{}, 0).HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy narration, got %+v", h)
	}
}
