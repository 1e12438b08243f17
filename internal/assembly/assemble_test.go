package assembly_test

import (
	"errors"
	"testing"

	"shortsmith/internal/assembly"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

func readyScene(text string, seconds float64, words ...scene.CaptionWord) scene.Scene {
	return scene.Scene{
		Text:         text,
		Audio:        scene.Audio{URL: "file:///" + text + ".wav", DurationSec: seconds},
		CaptionWords: words,
		Videos:       []scene.Clip{{URL: "https://cdn.example/" + text + ".mp4", DurationSec: 10, Width: 1080, Height: 1920}},
	}
}

func TestAssembleBuildsComposition(t *testing.T) {
	cfg := renderspec.Default()
	cfg.PaddingBackMs = 1000
	cfg.MusicURL = "https://cdn.example/bed.mp3"
	cfg.MusicVolumeTier = renderspec.VolumeLow

	scenes := []scene.Scene{
		readyScene("one", 4.0, scene.CaptionWord{Text: "Hello", StartMs: 0, EndMs: 400}, scene.CaptionWord{Text: "world", StartMs: 450, EndMs: 900}),
		readyScene("two", 3.5),
		readyScene("three", 2.0, scene.CaptionWord{Text: "bye", StartMs: 100, EndMs: 500}),
	}
	comp, err := assembly.Assemble(scenes, cfg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if comp.Plan.TotalFrames != 315 {
		t.Fatalf("TotalFrames = %d, want 315", comp.Plan.TotalFrames)
	}
	if comp.MusicGain != 0.2 || comp.MusicURL == "" {
		t.Fatalf("unexpected music settings %+v", comp)
	}
	if len(comp.Scenes) != 3 || comp.Scenes[1].Segment.StartFrame != 120 {
		t.Fatalf("unexpected scenes %+v", comp.Scenes)
	}
	if len(comp.Scenes[0].Captions) != 1 || len(comp.Scenes[1].Captions) != 0 {
		t.Fatalf("unexpected caption pages %+v", comp.Scenes)
	}

	cues := comp.Cues()
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %+v", cues)
	}
	if cues[1].StartMs != 7600 || cues[1].EndMs != 8000 {
		t.Fatalf("third scene cue not offset by its start: %+v", cues[1])
	}
}

func TestAssembleRequiresMedia(t *testing.T) {
	cfg := renderspec.Default()
	noAudio := readyScene("a", 1)
	noAudio.Audio = scene.Audio{}
	noClips := readyScene("b", 1)
	noClips.Videos = nil

	for name, scenes := range map[string][]scene.Scene{
		"empty":    nil,
		"no audio": {noAudio},
		"no clips": {readyScene("ok", 1), noClips},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := assembly.Assemble(scenes, cfg)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCuesClampToSegment(t *testing.T) {
	cfg := renderspec.Default()
	cfg.PaddingBackMs = 0
	scenes := []scene.Scene{
		readyScene("a", 1, scene.CaptionWord{Text: "late", StartMs: 800, EndMs: 1400}),
		readyScene("b", 1),
	}
	comp, err := assembly.Assemble(scenes, cfg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	cues := comp.Cues()
	if len(cues) != 1 || cues[0].EndMs != 1000 {
		t.Fatalf("expected cue clamped to 1000ms, got %+v", cues)
	}
}
