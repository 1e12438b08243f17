package timeline

import (
	"math"

	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
)

// Params are the timing inputs taken from a render config.
type Params struct {
	FPS           int
	PaddingBackMs int
	FadeOutSec    float64
}

// ParamsFromConfig extracts timing parameters from a render config.
func ParamsFromConfig(cfg renderspec.Config) Params {
	return Params{FPS: cfg.FPS, PaddingBackMs: cfg.PaddingBackMs, FadeOutSec: cfg.FadeOutSec}
}

// Segment is the frame span occupied by one scene.
type Segment struct {
	SceneIndex     int   `json:"sceneIndex"`
	StartFrame     int   `json:"startFrame"`
	DurationFrames int   `json:"durationFrames"`
	Volume         Curve `json:"volume"`
	Opacity        Curve `json:"opacity"`
}

// EndFrame is the first frame after the segment.
func (s Segment) EndFrame() int {
	return s.StartFrame + s.DurationFrames
}

// Plan is the compiled timeline. Segments tile [0, TotalFrames) in order.
type Plan struct {
	Segments       []Segment `json:"segments"`
	TotalFrames    int       `json:"totalFrames"`
	PaddingFrames  int       `json:"paddingFrames"`
	FadeStartFrame int       `json:"fadeStartFrame"`
	FPS            int       `json:"fps"`
}

// Seconds converts an absolute frame to seconds.
func (p Plan) Seconds(frame int) float64 {
	if p.FPS <= 0 {
		return 0
	}
	return float64(frame) / float64(p.FPS)
}

// DurationSec is the total playback length.
func (p Plan) DurationSec() float64 {
	return p.Seconds(p.TotalFrames)
}

// FadeFrames is the length of the fade-out window.
func (p Plan) FadeFrames() int {
	return p.TotalFrames - p.FadeStartFrame
}

// Factor returns the fade multiplier for an absolute frame: 1 before the fade
// window, then linear down to 0 on the last frame.
func (p Plan) Factor(frame int) float64 {
	return fadeFactor(frame, p.FadeStartFrame, p.TotalFrames)
}

// SegmentAt returns the segment containing the absolute frame.
func (p Plan) SegmentAt(frame int) (Segment, bool) {
	for _, seg := range p.Segments {
		if frame >= seg.StartFrame && frame < seg.EndFrame() {
			return seg, true
		}
	}
	return Segment{}, false
}

// Compile lays the durations (seconds) out on the frame grid. Durations that
// are zero, negative, NaN, or infinite are treated as a single frame.
func Compile(durations []float64, params Params) Plan {
	fps := params.FPS
	if fps < 1 {
		fps = 1
	}
	plan := Plan{FPS: fps, Segments: make([]Segment, 0, len(durations))}
	if len(durations) == 0 {
		return plan
	}

	frameSec := 1 / float64(fps)
	starts := make([]int, len(durations))
	var cumulative float64
	for i, d := range durations {
		start := roundFrames(fps, cumulative)
		if i > 0 && start < starts[i-1]+1 {
			start = starts[i-1] + 1
		}
		starts[i] = start
		cumulative += sanitize(d, frameSec)
	}
	narrationEnd := roundFrames(fps, cumulative)
	last := len(durations) - 1
	if narrationEnd < starts[last]+1 {
		narrationEnd = starts[last] + 1
	}

	padding := 0
	if params.PaddingBackMs > 0 {
		padding = roundFrames(fps, float64(params.PaddingBackMs)/1000)
	}
	total := narrationEnd + padding

	fade := 0
	if params.FadeOutSec > 0 && !math.IsInf(params.FadeOutSec, 0) {
		fade = roundFrames(fps, params.FadeOutSec)
	}
	if fade > total {
		fade = total
	}
	fadeStart := total - fade

	for i, start := range starts {
		end := narrationEnd + padding
		if i < last {
			end = starts[i+1]
		}
		curve := envelope(start, end, fadeStart, total)
		plan.Segments = append(plan.Segments, Segment{
			SceneIndex:     i,
			StartFrame:     start,
			DurationFrames: end - start,
			Volume:         curve,
			Opacity:        append(Curve(nil), curve...),
		})
	}
	plan.TotalFrames = total
	plan.PaddingFrames = padding
	plan.FadeStartFrame = fadeStart
	return plan
}

// CompileScenes compiles the plan for scenes under a render config.
func CompileScenes(scenes []scene.Scene, cfg renderspec.Config) Plan {
	durations := make([]float64, len(scenes))
	for i, s := range scenes {
		durations[i] = s.Duration()
	}
	return Compile(durations, ParamsFromConfig(cfg))
}

func sanitize(d, fallback float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return fallback
	}
	return d
}

func roundFrames(fps int, seconds float64) int {
	return int(math.Round(float64(fps) * seconds))
}

func fadeFactor(frame, fadeStart, total int) float64 {
	if frame < fadeStart {
		return 1
	}
	lastFrame := total - 1
	if frame >= lastFrame || lastFrame <= fadeStart {
		return 0
	}
	return float64(lastFrame-frame) / float64(lastFrame-fadeStart)
}

// envelope builds a segment-relative curve for the absolute span [start, end).
func envelope(start, end, fadeStart, total int) Curve {
	lastRel := end - start - 1
	if end <= fadeStart {
		return Curve{{Frame: 0, Value: 1}}.appendPoint(lastRel, 1)
	}
	curve := Curve{{Frame: 0, Value: fadeFactor(start, fadeStart, total)}}
	if fadeStart > start {
		curve = curve.appendPoint(fadeStart-start, 1)
	}
	return curve.appendPoint(lastRel, fadeFactor(end-1, fadeStart, total))
}
