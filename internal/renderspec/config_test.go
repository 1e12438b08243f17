package renderspec_test

import (
	"errors"
	"strings"
	"testing"

	"shortsmith/internal/renderspec"
	"shortsmith/internal/services"
)

func TestDefaultIsValid(t *testing.T) {
	if err := renderspec.Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDecodeKeepsDefaultsForOmittedFields(t *testing.T) {
	cfg, err := renderspec.Decode([]byte(`{"fps":25,"captionPosition":"top"}`), renderspec.Default())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.FPS != 25 || cfg.CaptionPosition != renderspec.CaptionTop {
		t.Fatalf("expected overrides applied, got %#v", cfg)
	}
	if cfg.Width != 1080 || cfg.CaptionMaxGapMs != 1000 {
		t.Fatalf("expected defaults preserved, got %#v", cfg)
	}
}

func TestDecodeEmptyReturnsBase(t *testing.T) {
	cfg, err := renderspec.Decode(nil, renderspec.Default())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg != renderspec.Default() {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestDecodeRejectsUnknownOption(t *testing.T) {
	_, err := renderspec.Decode([]byte(`{"fps":30,"orientation":"portrait"}`), renderspec.Default())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := renderspec.Default()
	cfg.FPS = 0
	cfg.CaptionPosition = "left"
	cfg.MusicVolumeTier = "loud"
	err := cfg.Validate()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, fragment := range []string{"fps must be greater than or equal to 1", "captionPosition must be one of", "musicVolumeTier must be one of"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestMusicGainTiers(t *testing.T) {
	cases := map[renderspec.VolumeTier]float64{
		renderspec.VolumeMuted:  0,
		renderspec.VolumeLow:    0.2,
		renderspec.VolumeMedium: 0.45,
		renderspec.VolumeHigh:   0.7,
	}
	for tier, want := range cases {
		cfg := renderspec.Default()
		cfg.MusicVolumeTier = tier
		if got := cfg.MusicGain(); got != want {
			t.Fatalf("%s gain = %v, want %v", tier, got, want)
		}
	}
}
