package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"shortsmith/internal/config"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	maxAudioBytes      = 256 << 20
	maxErrorBody       = 4 << 10
	userAgent          = "shortsmith/0.1.0"
)

// Config captures the settings required to reach the narration service.
type Config struct {
	BaseURL         string
	AudioDir        string
	DefaultVoice    string
	DefaultLanguage string
	TimeoutSeconds  int
}

// ConfigFrom extracts the client settings from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:         cfg.TTS.BaseURL,
		AudioDir:        cfg.AudioDir(),
		DefaultVoice:    cfg.TTS.DefaultVoice,
		DefaultLanguage: cfg.TTS.DefaultLanguage,
		TimeoutSeconds:  cfg.TTS.TimeoutSeconds,
	}
}

// Client talks to the narration service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a narration client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tts",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !services.Retryable(err)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Language string `json:"language,omitempty"`
}

type generateResponse struct {
	AudioURL    string  `json:"audio_url"`
	DurationSec float64 `json:"duration_sec"`
	Words       []struct {
		Text    string `json:"text"`
		StartMs int64  `json:"start_ms"`
		EndMs   int64  `json:"end_ms"`
	} `json:"words"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Synthesize narrates text with the requested voice. An empty voice falls
// back to the configured default, then to the first voice for the language.
func (c *Client) Synthesize(ctx context.Context, text, voice, lang string) (scene.Narration, error) {
	prepared := prepareText(text)
	if prepared == "" {
		return scene.Narration{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "text is empty", nil)
	}
	v, err := c.resolveVoice(voice, lang)
	if err != nil {
		return scene.Narration{}, err
	}
	if strings.TrimSpace(lang) == "" {
		lang = v.Language
	}
	body, err := json.Marshal(generateRequest{Text: prepared, Voice: v.Name, Language: lang})
	if err != nil {
		return scene.Narration{}, fmt.Errorf("encode request: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, body, prepared)
	})
	if err != nil {
		return scene.Narration{}, c.mapBreakerError(ctx, err)
	}
	return result.(scene.Narration), nil
}

func (c *Client) resolveVoice(voice, lang string) (Voice, error) {
	name := strings.TrimSpace(voice)
	if name == "" {
		name = c.cfg.DefaultVoice
	}
	if name == "" {
		if lang == "" {
			lang = c.cfg.DefaultLanguage
		}
		v, ok := VoiceForLanguage(lang)
		if !ok {
			return Voice{}, services.Wrap(services.ErrValidation, "tts", "voice", fmt.Sprintf("no voice for language %q", lang), nil)
		}
		return v, nil
	}
	v, ok := LookupVoice(name)
	if !ok {
		return Voice{}, services.Wrap(services.ErrValidation, "tts", "voice", fmt.Sprintf("unknown voice %q", name), nil)
	}
	if strings.TrimSpace(lang) != "" && !sameLanguage(v.Language, lang) {
		return Voice{}, services.Wrap(services.ErrValidation, "tts", "voice", fmt.Sprintf("voice %s speaks %s, not %s", v.Name, v.Language, lang), nil)
	}
	return v, nil
}

func (c *Client) generate(ctx context.Context, body []byte, text string) (scene.Narration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return scene.Narration{}, services.Wrap(services.ErrValidation, "tts", "build request", err.Error(), nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, audio/wav")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scene.Narration{}, transportError(ctx, "generate", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp, "generate"); err != nil {
		return scene.Narration{}, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return decodeJSONNarration(resp.Body, text)
	}
	return c.storeAudio(ctx, resp.Body, text)
}

func decodeJSONNarration(r io.Reader, text string) (scene.Narration, error) {
	var payload generateResponse
	if err := json.NewDecoder(io.LimitReader(r, maxAudioBytes)).Decode(&payload); err != nil {
		return scene.Narration{}, services.Wrap(services.ErrTransient, "tts", "decode response", err.Error(), nil)
	}
	if strings.TrimSpace(payload.AudioURL) == "" || payload.DurationSec <= 0 {
		return scene.Narration{}, services.Wrap(services.ErrTransient, "tts", "decode response", "response has no audio", nil)
	}
	words := make([]scene.CaptionWord, 0, len(payload.Words))
	for _, w := range payload.Words {
		words = append(words, scene.CaptionWord{Text: w.Text, StartMs: w.StartMs, EndMs: w.EndMs})
	}
	if len(words) == 0 {
		words = estimateWords(text, payload.DurationSec)
	}
	return scene.Narration{
		Audio: scene.Audio{URL: payload.AudioURL, DurationSec: payload.DurationSec},
		Words: words,
	}, nil
}

func (c *Client) storeAudio(ctx context.Context, r io.Reader, text string) (scene.Narration, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAudioBytes))
	if err != nil {
		return scene.Narration{}, transportError(ctx, "read audio", err)
	}
	duration, err := wavDuration(data)
	if err != nil {
		return scene.Narration{}, services.Wrap(services.ErrTransient, "tts", "read audio", err.Error(), nil)
	}
	if duration <= 0 {
		return scene.Narration{}, services.Wrap(services.ErrTransient, "tts", "read audio", "audio is empty", nil)
	}
	if strings.TrimSpace(c.cfg.AudioDir) == "" {
		return scene.Narration{}, services.Wrap(services.ErrValidation, "tts", "store audio", "audio directory not configured", nil)
	}
	if err := os.MkdirAll(c.cfg.AudioDir, 0o755); err != nil {
		return scene.Narration{}, fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(c.cfg.AudioDir, uuid.NewString()+".wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return scene.Narration{}, fmt.Errorf("write audio: %w", err)
	}
	return scene.Narration{
		Audio: scene.Audio{URL: path, DurationSec: duration},
		Words: estimateWords(text, duration),
	}, nil
}

// Voices lists the voices the service reports.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("build voices request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, "voices", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp, "voices"); err != nil {
		return nil, err
	}
	var payload struct {
		Voices map[string]Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "tts", "voices", "decode response", err)
	}
	out := make([]Voice, 0, len(payload.Voices))
	for name, v := range payload.Voices {
		v.Name = name
		out = append(out, v)
	}
	sortVoices(out)
	return out, nil
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, "health", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return statusError(resp, "health")
}

func (c *Client) mapBreakerError(ctx context.Context, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "narration service circuit open", err)
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return ctx.Err()
	}
	return err
}

func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrTransient, "tts", op, "request failed", err)
}

func statusError(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		detail = parsed.Error
	}
	msg := fmt.Sprintf("http %d", resp.StatusCode)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "tts", op, msg, nil)
	default:
		return services.Wrap(services.ErrValidation, "tts", op, msg, nil)
	}
}
