package assembly

import (
	"fmt"
	"math"
	"strings"

	"shortsmith/internal/captions"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/timeline"
)

// ComposedScene is one scene ready for rendering.
type ComposedScene struct {
	Index    int              `json:"index"`
	SceneID  string           `json:"sceneId,omitempty"`
	Text     string           `json:"text"`
	Audio    scene.Audio      `json:"audio"`
	Videos   []scene.Clip     `json:"videos"`
	Captions []captions.Page  `json:"captions"`
	Segment  timeline.Segment `json:"segment"`
}

// Composition is the full render description.
type Composition struct {
	Scenes          []ComposedScene            `json:"scenes"`
	MusicURL        string                     `json:"musicUrl,omitempty"`
	MusicGain       float64                    `json:"musicGain"`
	CaptionPosition renderspec.CaptionPosition `json:"captionPosition"`
	OverlayID       string                     `json:"overlayId,omitempty"`
	Width           int                        `json:"width"`
	Height          int                        `json:"height"`
	Plan            timeline.Plan              `json:"plan"`
}

// Cue is a caption page placed on the absolute output timeline.
type Cue struct {
	SceneIndex int
	StartMs    int64
	EndMs      int64
	Text       string
}

// Assemble validates that every scene carries narration and footage, then
// paginates captions and compiles the timeline.
func Assemble(scenes []scene.Scene, cfg renderspec.Config) (Composition, error) {
	if len(scenes) == 0 {
		return Composition{}, services.Wrap(services.ErrValidation, "compose", "assemble", "no scenes to compose", nil)
	}
	for i, s := range scenes {
		if s.NeedsNarration() {
			return Composition{}, services.Wrap(services.ErrValidation, "compose", "assemble", fmt.Sprintf("scene %d has no narration audio", i), nil)
		}
		if s.NeedsFootage() {
			return Composition{}, services.Wrap(services.ErrValidation, "compose", "assemble", fmt.Sprintf("scene %d has no footage", i), nil)
		}
	}

	return Preview(scenes, cfg), nil
}

// Preview composes scenes without checking for narration or footage. Scenes
// without audio fall back to their stored duration. Used for offline plans.
func Preview(scenes []scene.Scene, cfg renderspec.Config) Composition {
	plan := timeline.CompileScenes(scenes, cfg)
	opts := captions.Options{
		LineMaxLength: cfg.CaptionMaxLineLength,
		LineCount:     cfg.CaptionLineCount,
		MaxGapMs:      int64(cfg.CaptionMaxGapMs),
	}

	composed := make([]ComposedScene, len(scenes))
	for i, s := range scenes {
		composed[i] = ComposedScene{
			Index:    i,
			SceneID:  s.ID,
			Text:     strings.TrimSpace(s.Text),
			Audio:    s.Audio,
			Videos:   append([]scene.Clip(nil), s.Videos...),
			Captions: captions.Group(s.CaptionWords, opts),
			Segment:  plan.Segments[i],
		}
	}

	return Composition{
		Scenes:          composed,
		MusicURL:        strings.TrimSpace(cfg.MusicURL),
		MusicGain:       cfg.MusicGain(),
		CaptionPosition: cfg.CaptionPosition,
		OverlayID:       strings.TrimSpace(cfg.OverlayID),
		Width:           cfg.Width,
		Height:          cfg.Height,
		Plan:            plan,
	}
}

// Cues shifts every scene's caption pages by the scene's start frame. Cues
// never extend past the end of their scene's segment.
func (c Composition) Cues() []Cue {
	var cues []Cue
	for _, cs := range c.Scenes {
		offset := c.frameMs(cs.Segment.StartFrame)
		limit := c.frameMs(cs.Segment.EndFrame())
		for _, page := range cs.Captions {
			start := offset + page.StartMs
			end := offset + page.EndMs
			if end > limit {
				end = limit
			}
			if start >= end {
				continue
			}
			cues = append(cues, Cue{SceneIndex: cs.Index, StartMs: start, EndMs: end, Text: page.Text()})
		}
	}
	return cues
}

func (c Composition) frameMs(frame int) int64 {
	if c.Plan.FPS <= 0 {
		return 0
	}
	return int64(math.Round(float64(frame) * 1000 / float64(c.Plan.FPS)))
}
