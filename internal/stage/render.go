package stage

import (
	"context"
	"time"

	"shortsmith/internal/logging"
	"shortsmith/internal/services"
)

// Render hands the composition to the encoder.
type Render struct {
	renderer Renderer
	timeout  time.Duration
}

// NewRender builds the render stage. The encoder run is bounded by timeout.
func NewRender(renderer Renderer, timeout time.Duration) *Render {
	return &Render{renderer: renderer, timeout: timeout}
}

func (r *Render) Prepare(_ context.Context, run *Run) error {
	if r.renderer == nil {
		return services.Wrap(services.ErrValidation, "render", "prepare", "no renderer configured", nil)
	}
	if run.Composition == nil {
		return services.Wrap(services.ErrRender, "render", "prepare", "composition missing; compose stage did not run", nil)
	}
	return nil
}

func (r *Render) Execute(ctx context.Context, run *Run) error {
	var output string
	err := services.CallWithTimeout(ctx, r.timeout, "render", "encode", func(callCtx context.Context) error {
		var err error
		output, err = r.renderer.Render(callCtx, *run.Composition, run.Job.Config, func(_ string, percent float64) {
			run.Report(callCtx, percent)
		})
		return err
	})
	if err != nil {
		return err
	}
	run.OutputPath = output
	run.Logger.Info("render finished", logging.String("output_path", output))
	run.Report(ctx, 100)
	return nil
}

func (r *Render) HealthCheck(ctx context.Context) Health {
	return probe(ctx, "render", r.renderer)
}
