package daemonrun_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shortsmith/internal/api"
	"shortsmith/internal/daemonrun"
	"shortsmith/internal/scene"
	"shortsmith/internal/testsupport"
)

func TestBuildWiresPipeline(t *testing.T) {
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer svc.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithServiceURLs(svc.URL, svc.URL))
	ctx := context.Background()

	d, err := daemonrun.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer d.Close()

	status := d.Status(ctx)
	names := make([]string, 0, len(status.Workflow.StageHealth))
	for _, h := range status.Workflow.StageHealth {
		names = append(names, h.Name)
	}
	want := []string{"narration", "footage", "compose", "render"}
	if len(names) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected stages %v, got %v", want, names)
		}
	}

	plan, err := d.Jobs().Plan(ctx, api.SubmitRequest{Scenes: []scene.Scene{{Text: "hello", DurationSec: 2}}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.TotalFrames <= 60 {
		t.Fatalf("expected padded timeline, got %d frames", plan.TotalFrames)
	}
}
