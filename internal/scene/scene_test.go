package scene_test

import (
	"strings"
	"testing"

	"shortsmith/internal/scene"
)

func TestDurationPrefersAudio(t *testing.T) {
	s := scene.Scene{DurationSec: 9, Audio: scene.Audio{URL: "a.wav", DurationSec: 4.5}}
	if got := s.Duration(); got != 4.5 {
		t.Fatalf("Duration = %v, want 4.5", got)
	}
	s.Audio = scene.Audio{}
	if got := s.Duration(); got != 9 {
		t.Fatalf("Duration without audio = %v, want 9", got)
	}
}

func TestClearNarrationKeepsVideos(t *testing.T) {
	s := scene.Scene{
		Text:         "hello",
		Audio:        scene.Audio{URL: "a.wav", DurationSec: 2},
		CaptionWords: []scene.CaptionWord{{Text: "hello", StartMs: 0, EndMs: 400}},
		Videos:       []scene.Clip{{URL: "clip.mp4"}},
		DurationSec:  2,
	}
	s.ClearNarration()
	if !s.NeedsNarration() || len(s.CaptionWords) != 0 || s.DurationSec != 0 {
		t.Fatalf("expected narration cleared, got %#v", s)
	}
	if len(s.Videos) != 1 {
		t.Fatalf("expected videos kept, got %#v", s.Videos)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := scene.Scene{SearchTerms: []string{"sea"}, Videos: []scene.Clip{{URL: "a"}}}
	cp := orig.Clone()
	cp.SearchTerms[0] = "sky"
	cp.Videos[0].URL = "b"
	if orig.SearchTerms[0] != "sea" || orig.Videos[0].URL != "a" {
		t.Fatalf("clone shares backing arrays: %#v", orig)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		scenes []scene.Scene
		want   string
	}{
		{"empty", nil, "empty"},
		{"blank text", []scene.Scene{{Text: "  "}}, "no text"},
		{"duplicate id", []scene.Scene{{ID: "a", Text: "x"}, {ID: "a", Text: "y"}}, "reuses id"},
		{"reversed word", []scene.Scene{{Text: "x", CaptionWords: []scene.CaptionWord{{Text: "x", StartMs: 500, EndMs: 100}}}}, "before its start"},
		{"unordered words", []scene.Scene{{Text: "x y", CaptionWords: []scene.CaptionWord{{Text: "x", StartMs: 500, EndMs: 600}, {Text: "y", StartMs: 100, EndMs: 200}}}}, "before previous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := scene.Validate(tc.scenes)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate error = %v, want containing %q", err, tc.want)
			}
		})
	}

	ok := []scene.Scene{{ID: "a", Text: "Hello world", CaptionWords: []scene.CaptionWord{{Text: "Hello", StartMs: 0, EndMs: 400}, {Text: "world", StartMs: 450, EndMs: 900}}}}
	if err := scene.Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTotalDuration(t *testing.T) {
	scenes := []scene.Scene{
		{Audio: scene.Audio{URL: "1", DurationSec: 4}},
		{Audio: scene.Audio{URL: "2", DurationSec: 3.5}},
		{Audio: scene.Audio{URL: "3", DurationSec: 2}},
	}
	if got := scene.TotalDuration(scenes); got != 9.5 {
		t.Fatalf("TotalDuration = %v, want 9.5", got)
	}
}
