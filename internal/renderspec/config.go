package renderspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"shortsmith/internal/services"
)

// CaptionPosition places the caption block on the canvas.
type CaptionPosition string

const (
	CaptionTop    CaptionPosition = "top"
	CaptionCenter CaptionPosition = "center"
	CaptionBottom CaptionPosition = "bottom"
)

// VolumeTier selects the background music level relative to narration.
type VolumeTier string

const (
	VolumeMuted  VolumeTier = "muted"
	VolumeLow    VolumeTier = "low"
	VolumeMedium VolumeTier = "medium"
	VolumeHigh   VolumeTier = "high"
)

// Config enumerates every recognized render option.
type Config struct {
	FPS                  int             `json:"fps" toml:"fps" validate:"gte=1,lte=120"`
	Width                int             `json:"width" toml:"width" validate:"gte=16,lte=7680"`
	Height               int             `json:"height" toml:"height" validate:"gte=16,lte=7680"`
	PaddingBackMs        int             `json:"paddingBackMs" toml:"padding_back_ms" validate:"gte=0,lte=60000"`
	CaptionPosition      CaptionPosition `json:"captionPosition" toml:"caption_position" validate:"oneof=top center bottom"`
	CaptionMaxLineLength int             `json:"captionMaxLineLength" toml:"caption_max_line_length" validate:"gte=1,lte=200"`
	CaptionLineCount     int             `json:"captionLineCount" toml:"caption_line_count" validate:"gte=1,lte=6"`
	CaptionMaxGapMs      int             `json:"captionMaxGapMs" toml:"caption_max_gap_ms" validate:"gte=0,lte=60000"`
	MusicVolumeTier      VolumeTier      `json:"musicVolumeTier" toml:"music_volume_tier" validate:"oneof=muted low medium high"`
	FadeOutSec           float64         `json:"fadeOutSec" toml:"fade_out_sec" validate:"gte=0,lte=60"`
	OverlayID            string          `json:"overlayId,omitempty" toml:"overlay_id" validate:"omitempty,max=128"`
	Voice                string          `json:"voice,omitempty" toml:"voice" validate:"omitempty,max=64"`
	Language             string          `json:"language,omitempty" toml:"language" validate:"omitempty,min=2,max=16"`
	MusicURL             string          `json:"musicUrl,omitempty" toml:"music_url" validate:"omitempty,max=2048"`
}

// Default returns the repository defaults for every option.
func Default() Config {
	return Config{
		FPS:                  30,
		Width:                1080,
		Height:               1920,
		PaddingBackMs:        1500,
		CaptionPosition:      CaptionBottom,
		CaptionMaxLineLength: 20,
		CaptionLineCount:     1,
		CaptionMaxGapMs:      1000,
		MusicVolumeTier:      VolumeHigh,
		FadeOutSec:           1,
		Voice:                "Charlotte",
		Language:             "en",
	}
}

// MusicGain maps the volume tier onto a linear gain for the music bed.
func (c Config) MusicGain() float64 {
	switch c.MusicVolumeTier {
	case VolumeMuted:
		return 0
	case VolumeLow:
		return 0.2
	case VolumeMedium:
		return 0.45
	default:
		return 0.7
	}
}

// Decode parses a JSON config on top of base. Keys outside Config are
// rejected, then the merged result is validated.
func Decode(data []byte, base Config) (Config, error) {
	cfg := base
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cfg, cfg.Validate()
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, services.Wrap(services.ErrValidation, "config", "decode", "malformed render config", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, services.Wrap(services.ErrValidation, "config", "decode", "trailing data after render config", nil)
	}
	return cfg, cfg.Validate()
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// Validate reports every invalid option in one ErrValidation.
func (c Config) Validate() error {
	problems := make([]string, 0)
	if math.IsNaN(c.FadeOutSec) || math.IsInf(c.FadeOutSec, 0) {
		problems = append(problems, "fadeOutSec must be a finite number")
	} else if err := structValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return services.Wrap(services.ErrValidation, "config", "validate", "render config rejected", err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return services.Wrap(services.ErrValidation, "config", "validate", strings.Join(problems, "; "), nil)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be no longer than %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
