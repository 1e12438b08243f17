package workflow

import (
	"shortsmith/internal/config"
	"shortsmith/internal/stage"
)

// StageSet declares the handlers for each stage of a render job. A nil
// handler skips that stage.
type StageSet struct {
	Narration stage.Handler
	Footage   stage.Handler
	Compose   stage.Handler
	Render    stage.Handler
}

type pipelineStage struct {
	name    string
	handler stage.Handler
	// Overall progress band covered by this stage.
	from, to int
}

// NewStageSet builds the standard stage handlers from their collaborators.
func NewStageSet(cfg *config.Config, narrator Narrator, searcher FootageSearcher, renderer Renderer) StageSet {
	timeout := cfg.StageTimeout()
	return StageSet{
		Narration: stage.NewNarration(narrator, timeout),
		Footage:   stage.NewFootage(searcher, cfg.Footage.ClipsPerScene, timeout),
		Compose:   stage.NewCompose(),
		Render:    stage.NewRender(renderer, cfg.RenderTimeout()),
	}
}

// ConfigureStages registers the stage handlers. It must be called before Start.
func (m *Manager) ConfigureStages(set StageSet) {
	candidates := []pipelineStage{
		{name: "narration", handler: set.Narration, from: 0, to: 40},
		{name: "footage", handler: set.Footage, from: 40, to: 55},
		{name: "compose", handler: set.Compose, from: 55, to: 60},
		{name: "render", handler: set.Render, from: 60, to: 100},
	}
	pipeline := make([]pipelineStage, 0, len(candidates))
	for _, c := range candidates {
		if c.handler == nil {
			continue
		}
		pipeline = append(pipeline, c)
	}
	m.mu.Lock()
	m.pipeline = pipeline
	m.mu.Unlock()
}

// overall maps a stage-local percent into the job's overall progress.
func (s pipelineStage) overall(percent float64) int {
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	return s.from + int(float64(s.to-s.from)*percent/100)
}
