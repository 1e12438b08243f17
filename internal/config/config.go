package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shortsmith/internal/renderspec"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
}

// API contains the daemon HTTP listener settings.
type API struct {
	Bind           string   `toml:"bind"`
	Token          string   `toml:"token"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// TTS contains settings for the narration service.
type TTS struct {
	BaseURL         string `toml:"base_url"`
	DefaultVoice    string `toml:"default_voice"`
	DefaultLanguage string `toml:"default_language"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Footage contains settings for the stock footage provider.
type Footage struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	ClipsPerScene   int    `toml:"clips_per_scene"`
	MinClipSeconds  int    `toml:"min_clip_seconds"`
	Orientation     string `toml:"orientation"`
	CacheRedisAddr  string `toml:"cache_redis_addr"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Render contains encoder settings and the default job render options.
type Render struct {
	FFmpegBinary  string            `toml:"ffmpeg_binary"`
	FontName      string            `toml:"font_name"`
	FontSize      int               `toml:"font_size"`
	KeepWorkDirs  bool              `toml:"keep_work_dirs"`
	WorkDirMaxAge int               `toml:"work_dir_max_age_hours"`
	Defaults      renderspec.Config `toml:"defaults"`
}

// Workflow contains worker pool and retry settings.
type Workflow struct {
	Workers             int `toml:"workers"`
	MaxAttempts         int `toml:"max_attempts"`
	RetryBaseDelay      int `toml:"retry_base_delay"`
	RetryMaxDelay       int `toml:"retry_max_delay"`
	StageTimeout        int `toml:"stage_timeout"`
	RenderTimeout       int `toml:"render_timeout"`
	HealthCheckInterval int `toml:"health_check_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobReady       bool   `toml:"job_ready"`
	JobFailed      bool   `toml:"job_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shortsmith.
//
// Configuration sections by subsystem:
//   - Paths: data, log, output, and scratch directories
//   - API: daemon HTTP bind address, token, and CORS origins
//   - TTS: narration service endpoint and default voice
//   - Footage: stock footage search endpoint, key, and cache
//   - Render: ffmpeg binary, caption font, and default render options
//   - Workflow: worker count, retry policy, and call timeouts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	TTS           TTS           `toml:"tts"`
	Footage       Footage       `toml:"footage"`
	Render        Render        `toml:"render"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shortsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.OutputDir, c.Paths.WorkDir, c.AudioDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite job store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "shortsmithd.lock")
}

// AudioDir holds narration audio downloaded or written by the TTS adapter.
func (c *Config) AudioDir() string {
	return filepath.Join(c.Paths.DataDir, "audio")
}

// FFmpegBinary returns the ffmpeg executable used for rendering.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// StageTimeout bounds one narration or footage call.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Workflow.StageTimeout) * time.Second
}

// RenderTimeout bounds one encoder run.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Workflow.RenderTimeout) * time.Second
}

// WorkDirMaxAge is how long render scratch directories survive.
func (c *Config) WorkDirMaxAge() time.Duration {
	return time.Duration(c.Render.WorkDirMaxAge) * time.Hour
}

// RetryBackoff returns the delay before the given retry attempt (1-based):
// the base delay doubled per attempt and capped at the maximum.
func (c *Config) RetryBackoff(attempt int) time.Duration {
	base := time.Duration(c.Workflow.RetryBaseDelay) * time.Second
	limit := time.Duration(c.Workflow.RetryMaxDelay) * time.Second
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if limit > 0 && delay >= limit {
			return limit
		}
	}
	if limit > 0 && delay > limit {
		return limit
	}
	return delay
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
