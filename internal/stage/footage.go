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

const fallbackTermWords = 4

// Footage picks stock clips for scenes that have none.
type Footage struct {
	searcher      FootageSearcher
	clipsPerScene int
	timeout       time.Duration
}

// NewFootage builds the footage stage.
func NewFootage(searcher FootageSearcher, clipsPerScene int, timeout time.Duration) *Footage {
	if clipsPerScene < 1 {
		clipsPerScene = 1
	}
	return &Footage{searcher: searcher, clipsPerScene: clipsPerScene, timeout: timeout}
}

func (f *Footage) Prepare(_ context.Context, run *Run) error {
	if f.searcher != nil {
		return nil
	}
	for i, sc := range run.Job.Scenes {
		if sc.NeedsFootage() {
			return services.Wrap(services.ErrValidation, "footage", "prepare", fmt.Sprintf("scene %d has no clips and no footage service is configured", i), nil)
		}
	}
	return nil
}

func (f *Footage) Execute(ctx context.Context, run *Run) error {
	job := run.Job
	var missing []int
	for i, sc := range job.Scenes {
		if sc.NeedsFootage() {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		run.Report(ctx, 100)
		return nil
	}

	for done, idx := range missing {
		sc := &job.Scenes[idx]
		clips, term, err := f.searchScene(ctx, *sc)
		if err != nil {
			return fmt.Errorf("scene %d: %w", idx, err)
		}
		if len(clips) == 0 {
			return services.Wrap(services.ErrValidation, "footage", "search", fmt.Sprintf("scene %d: no clips found for %q", idx, strings.Join(SearchTerms(*sc), ", ")), nil)
		}
		sc.Videos = clips
		if err := run.Save(ctx); err != nil {
			return fmt.Errorf("persist footage for scene %d: %w", idx, err)
		}
		run.Logger.Info("scene footage selected",
			logging.Scene(idx),
			logging.String("term", term),
			logging.Int("clips", len(clips)),
		)
		run.Report(ctx, float64(done+1)*100/float64(len(missing)))
	}
	return nil
}

func (f *Footage) searchScene(ctx context.Context, sc scene.Scene) ([]scene.Clip, string, error) {
	for _, term := range SearchTerms(sc) {
		var clips []scene.Clip
		err := services.CallWithTimeout(ctx, f.timeout, "footage", "search", func(callCtx context.Context) error {
			var err error
			clips, err = f.searcher.Search(callCtx, term, f.clipsPerScene)
			return err
		})
		if err != nil {
			return nil, term, err
		}
		if len(clips) > 0 {
			return clips, term, nil
		}
	}
	return nil, "", nil
}

func (f *Footage) HealthCheck(ctx context.Context) Health {
	return probe(ctx, "footage", f.searcher)
}

// SearchTerms returns the scene's explicit terms, falling back to the
// leading words of its text.
func SearchTerms(sc scene.Scene) []string {
	var terms []string
	for _, term := range sc.SearchTerms {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) > 0 {
		return terms
	}
	words := strings.Fields(sc.Text)
	if len(words) > fallbackTermWords {
		words = words[:fallbackTermWords]
	}
	if len(words) == 0 {
		return nil
	}
	return []string{strings.Join(words, " ")}
}
