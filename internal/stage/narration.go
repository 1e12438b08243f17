package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shortsmith/internal/logging"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

// Narration synthesizes audio for scenes that have none.
type Narration struct {
	narrator Narrator
	timeout  time.Duration
}

// NewNarration builds the narration stage. Each synthesize call is bounded by timeout.
func NewNarration(narrator Narrator, timeout time.Duration) *Narration {
	return &Narration{narrator: narrator, timeout: timeout}
}

func (n *Narration) Prepare(_ context.Context, run *Run) error {
	if n.narrator == nil {
		return services.Wrap(services.ErrValidation, "narration", "prepare", "no narration service configured", nil)
	}
	if len(run.Job.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, "narration", "prepare", "job has no scenes", nil)
	}
	return nil
}

func (n *Narration) Execute(ctx context.Context, run *Run) error {
	job := run.Job
	stale := StaleNarration(job.Scenes)
	if len(stale) == 0 {
		run.Logger.Debug("all scenes already narrated")
		run.Report(ctx, 100)
		return nil
	}

	for done, idx := range stale {
		sc := &job.Scenes[idx]
		var narration scene.Narration
		err := services.CallWithTimeout(ctx, n.timeout, "narration", "synthesize", func(callCtx context.Context) error {
			var err error
			narration, err = n.narrator.Synthesize(callCtx, sc.Text, job.Config.Voice, job.Config.Language)
			return err
		})
		if err != nil {
			return fmt.Errorf("scene %d: %w", idx, err)
		}
		if !narration.Valid() {
			return services.Wrap(services.ErrTransient, "narration", "synthesize", fmt.Sprintf("scene %d: service returned no usable audio", idx), nil)
		}
		if err := scene.ValidateWords(narration.Words); err != nil {
			return services.Wrap(services.ErrValidation, "narration", "synthesize", fmt.Sprintf("scene %d: bad word timings", idx), err)
		}
		sc.SetNarration(narration.Audio, narration.Words)
		if err := run.Save(ctx); err != nil {
			return fmt.Errorf("persist narration for scene %d: %w", idx, err)
		}
		run.Logger.Info("scene narrated",
			logging.Scene(idx),
			logging.Float64("duration_sec", narration.Audio.DurationSec),
			logging.Int("words", len(narration.Words)),
		)
		run.Report(ctx, float64(done+1)*100/float64(len(stale)))
	}
	return nil
}

func (n *Narration) HealthCheck(ctx context.Context) Health {
	return probe(ctx, "narration", n.narrator)
}

// StaleNarration lists the indexes of scenes that need synthesis.
func StaleNarration(scenes []scene.Scene) []int {
	var out []int
	for i, sc := range scenes {
		if sc.NeedsNarration() && strings.TrimSpace(sc.Text) != "" {
			out = append(out, i)
		}
	}
	return out
}
