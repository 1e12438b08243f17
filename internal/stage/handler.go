package stage

import (
	"context"

	"shortsmith/internal/assembly"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *Run) error
	Execute(context.Context, *Run) error
	HealthCheck(context.Context) Health
}

// Narrator synthesizes narration audio with word timings.
type Narrator interface {
	Synthesize(ctx context.Context, text, voice, language string) (scene.Narration, error)
}

// FootageSearcher finds stock clips for a search term.
type FootageSearcher interface {
	Search(ctx context.Context, term string, count int) ([]scene.Clip, error)
}

// ProgressFunc receives encoder progress as (stage label, percent 0..100).
type ProgressFunc func(stage string, percent float64)

// Renderer encodes a composition and returns the output file path.
type Renderer interface {
	Render(ctx context.Context, comp assembly.Composition, cfg renderspec.Config, onProgress ProgressFunc) (string, error)
}

// HealthChecker is implemented by collaborators that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Health summarizes whether a stage's backend can take work.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy records why a stage cannot run.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// probe asks target for its health. A nil target is unconfigured; a target
// without a Health method is assumed ready.
func probe(ctx context.Context, name string, target any) Health {
	if target == nil {
		return Unhealthy(name, "not configured")
	}
	checker, ok := target.(HealthChecker)
	if !ok {
		return Healthy(name)
	}
	if err := checker.Health(ctx); err != nil {
		return Unhealthy(name, services.Message(err))
	}
	return Healthy(name)
}
