package footage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"shortsmith/internal/config"
	"shortsmith/internal/logging"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

const (
	defaultHTTPTimeout = 20 * time.Second
	maxPerPage         = 80
	minPerPage         = 15
	maxErrorBody       = 4 << 10
	cachePrefix        = "shortsmith:footage:"
	userAgent          = "shortsmith/0.1.0"
)

// Config captures the search settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Orientation    string
	MinClipSeconds int
	CacheTTL       time.Duration
	TimeoutSeconds int
}

// ConfigFrom extracts the client settings from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:        cfg.Footage.BaseURL,
		APIKey:         cfg.Footage.APIKey,
		Orientation:    cfg.Footage.Orientation,
		MinClipSeconds: cfg.Footage.MinClipSeconds,
		CacheTTL:       time.Duration(cfg.Footage.CacheTTLSeconds) * time.Second,
		TimeoutSeconds: cfg.Footage.TimeoutSeconds,
	}
}

// Client searches stock footage.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	cache      Cache
	logger     *slog.Logger
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

// WithCache enables result caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger attaches a logger for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "footage")
		}
	}
}

// NewClient constructs a footage search client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Orientation = strings.ToLower(strings.TrimSpace(cfg.Orientation))
	if cfg.Orientation == "" {
		cfg.Orientation = "portrait"
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "footage",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
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

type searchResponse struct {
	Videos []struct {
		ID       int64  `json:"id"`
		Duration int    `json:"duration"`
		URL      string `json:"url"`
		Files    []file `json:"video_files"`
	} `json:"videos"`
}

type file struct {
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Search returns up to count clips for term. No matches is not an error.
func (c *Client) Search(ctx context.Context, term string, count int) ([]scene.Clip, error) {
	term = strings.Join(strings.Fields(term), " ")
	if term == "" {
		return nil, services.Wrap(services.ErrValidation, "footage", "search", "search term is empty", nil)
	}
	if count < 1 {
		count = 1
	}
	key := c.cacheKey(term, count)
	if clips, ok := c.cached(ctx, key); ok {
		return clips, nil
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.search(ctx, term, count)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, services.Wrap(services.ErrTransient, "footage", "search", "footage service circuit open", err)
		}
		return nil, err
	}
	clips := result.([]scene.Clip)
	c.store(ctx, key, clips)
	return clips, nil
}

func (c *Client) search(ctx context.Context, term string, count int) ([]scene.Clip, error) {
	perPage := count * 3
	if perPage < minPerPage {
		perPage = minPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	query := url.Values{}
	query.Set("query", term)
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("orientation", c.cfg.Orientation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/videos/search?"+query.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "footage", "build request", err.Error(), nil)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "footage", "search", "request failed", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return nil, err
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "footage", "search", "decode response", err)
	}

	width, height := targetSize(c.cfg.Orientation)
	clips := make([]scene.Clip, 0, count)
	for _, v := range payload.Videos {
		if len(clips) == count {
			break
		}
		if v.Duration < c.cfg.MinClipSeconds {
			continue
		}
		best, ok := closestRendition(v.Files, width, height)
		if !ok {
			continue
		}
		clips = append(clips, scene.Clip{
			URL:         best.Link,
			DurationSec: float64(v.Duration),
			Width:       best.Width,
			Height:      best.Height,
		})
	}
	return clips, nil
}

func targetSize(orientation string) (int, int) {
	switch orientation {
	case "landscape":
		return 1920, 1080
	case "square":
		return 1080, 1080
	default:
		return 1080, 1920
	}
}

// closestRendition picks the mp4 file nearest the target dimensions. Ties
// go to the larger file so downscaling is preferred over upscaling.
func closestRendition(files []file, width, height int) (file, bool) {
	var best file
	bestScore := -1
	for _, f := range files {
		if f.Link == "" || f.Width <= 0 || f.Height <= 0 {
			continue
		}
		if f.FileType != "" && f.FileType != "video/mp4" {
			continue
		}
		score := abs(f.Width-width) + abs(f.Height-height)
		if bestScore < 0 || score < bestScore || (score == bestScore && f.Width*f.Height > best.Width*best.Height) {
			best, bestScore = f, score
		}
	}
	return best, bestScore >= 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Client) cacheKey(term string, count int) string {
	return fmt.Sprintf("%s%s:%d:%d:%s", cachePrefix, c.cfg.Orientation, c.cfg.MinClipSeconds, count, strings.ToLower(term))
}

func (c *Client) cached(ctx context.Context, key string) ([]scene.Clip, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logging.WarnWithContext(c.logger, "footage cache read failed", "footage_cache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check footage.cache_redis_addr"),
			logging.String(logging.FieldImpact, "search falls through to the footage service"),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var clips []scene.Clip
	if err := json.Unmarshal(data, &clips); err != nil {
		return nil, false
	}
	return clips, true
}

func (c *Client) store(ctx context.Context, key string, clips []scene.Clip) {
	if c.cache == nil || len(clips) == 0 {
		return
	}
	data, err := json.Marshal(clips)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		logging.WarnWithContext(c.logger, "footage cache write failed", "footage_cache_write_failed", logging.Error(err))
	}
}

// Health reports whether the client can issue searches.
func (c *Client) Health(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("footage api key not configured")
	}
	if pinger, ok := c.cache.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("footage cache: %w", err)
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("http %d", resp.StatusCode)
	if detail := strings.TrimSpace(string(raw)); detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "footage", "search", msg, nil)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrValidation, "footage", "search", msg+" (check footage.api_key)", nil)
	default:
		return services.Wrap(services.ErrValidation, "footage", "search", msg, nil)
	}
}
