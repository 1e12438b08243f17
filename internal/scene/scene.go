package scene

import (
	"fmt"
	"math"
	"strings"
)

// CaptionWord is one spoken word with its offset inside the scene narration.
type CaptionWord struct {
	Text    string `json:"text"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// Audio references synthesized narration for one scene.
type Audio struct {
	URL         string  `json:"url"`
	DurationSec float64 `json:"durationSec"`
}

// Clip references a stock footage rendition.
type Clip struct {
	URL         string  `json:"url"`
	DurationSec float64 `json:"durationSec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// Scene is one narrated segment of the video.
type Scene struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	SearchTerms  []string      `json:"searchTerms,omitempty"`
	Audio        Audio         `json:"audio"`
	CaptionWords []CaptionWord `json:"captionWords,omitempty"`
	Videos       []Clip        `json:"videos,omitempty"`
	DurationSec  float64       `json:"durationSec"`
}

// Duration returns the scene length in seconds. Narration audio wins over the
// stored DurationSec so a stale copy never drives the timeline.
func (s Scene) Duration() float64 {
	if s.Audio.DurationSec > 0 && !math.IsInf(s.Audio.DurationSec, 0) {
		return s.Audio.DurationSec
	}
	return s.DurationSec
}

// NeedsNarration reports whether the scene lacks synthesized audio.
func (s Scene) NeedsNarration() bool {
	return strings.TrimSpace(s.Audio.URL) == ""
}

// NeedsFootage reports whether the scene has no selected clips.
func (s Scene) NeedsFootage() bool {
	return len(s.Videos) == 0
}

// ClearNarration drops audio and caption timing so the scene is synthesized again.
func (s *Scene) ClearNarration() {
	s.Audio = Audio{}
	s.CaptionWords = nil
	s.DurationSec = 0
}

// SetNarration records synthesized audio and its caption words.
func (s *Scene) SetNarration(audio Audio, words []CaptionWord) {
	s.Audio = audio
	s.CaptionWords = append([]CaptionWord(nil), words...)
	s.DurationSec = audio.DurationSec
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	if s.SearchTerms != nil {
		out.SearchTerms = append([]string(nil), s.SearchTerms...)
	}
	if s.CaptionWords != nil {
		out.CaptionWords = append([]CaptionWord(nil), s.CaptionWords...)
	}
	if s.Videos != nil {
		out.Videos = append([]Clip(nil), s.Videos...)
	}
	return out
}

// CloneAll deep-copies a scene list.
func CloneAll(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s.Clone()
	}
	return out
}

// TotalDuration sums scene durations in seconds.
func TotalDuration(scenes []Scene) float64 {
	var total float64
	for _, s := range scenes {
		total += s.Duration()
	}
	return total
}

// ValidateWords checks the caption word ordering contract: StartMs <= EndMs
// and StartMs non-decreasing.
func ValidateWords(words []CaptionWord) error {
	var prevStart int64
	for i, w := range words {
		if w.StartMs < 0 {
			return fmt.Errorf("word %d (%q) starts before zero", i, w.Text)
		}
		if w.EndMs < w.StartMs {
			return fmt.Errorf("word %d (%q) ends at %dms before its start %dms", i, w.Text, w.EndMs, w.StartMs)
		}
		if i > 0 && w.StartMs < prevStart {
			return fmt.Errorf("word %d (%q) starts at %dms before previous word at %dms", i, w.Text, w.StartMs, prevStart)
		}
		prevStart = w.StartMs
	}
	return nil
}

// Validate checks a submitted scene list.
func Validate(scenes []Scene) error {
	if len(scenes) == 0 {
		return fmt.Errorf("scene list is empty")
	}
	seen := make(map[string]int, len(scenes))
	for i, s := range scenes {
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("scene %d has no text", i)
		}
		if id := strings.TrimSpace(s.ID); id != "" {
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("scene %d reuses id %q from scene %d", i, id, prev)
			}
			seen[id] = i
		}
		if err := ValidateWords(s.CaptionWords); err != nil {
			return fmt.Errorf("scene %d: %w", i, err)
		}
	}
	return nil
}

// Narration is the result of synthesizing one scene's text.
type Narration struct {
	Audio Audio         `json:"audio"`
	Words []CaptionWord `json:"words"`
}

// Valid reports whether the narration carries playable audio.
func (n Narration) Valid() bool {
	return strings.TrimSpace(n.Audio.URL) != "" && n.Audio.DurationSec > 0 && !math.IsInf(n.Audio.DurationSec, 0)
}
