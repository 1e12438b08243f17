package stage

import (
	"context"

	"shortsmith/internal/assembly"
	"shortsmith/internal/logging"
)

// Compose turns narrated, illustrated scenes into a composition.
type Compose struct{}

// NewCompose builds the compose stage.
func NewCompose() *Compose {
	return &Compose{}
}

func (c *Compose) Prepare(context.Context, *Run) error {
	return nil
}

func (c *Compose) Execute(ctx context.Context, run *Run) error {
	comp, err := assembly.Assemble(run.Job.Scenes, run.Job.Config)
	if err != nil {
		return err
	}
	run.Composition = &comp
	run.Logger.Info("composition planned",
		logging.Int("scenes", len(comp.Scenes)),
		logging.Int("total_frames", comp.Plan.TotalFrames),
		logging.Int("fade_start_frame", comp.Plan.FadeStartFrame),
		logging.Int("caption_cues", len(comp.Cues())),
	)
	run.Report(ctx, 100)
	return nil
}

func (c *Compose) HealthCheck(context.Context) Health {
	return Healthy("compose")
}
