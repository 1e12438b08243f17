package config

import (
	"fmt"
	"os"
	"strings"

	"shortsmith/internal/renderspec"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeTTS()
	c.normalizeFootage()
	c.normalizeRender()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("SHORTSMITH_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.DefaultVoice = strings.TrimSpace(c.TTS.DefaultVoice)
	c.TTS.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.TTS.DefaultLanguage))
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeFootage() {
	c.Footage.BaseURL = strings.TrimRight(strings.TrimSpace(c.Footage.BaseURL), "/")
	if c.Footage.BaseURL == "" {
		c.Footage.BaseURL = defaultFootageBaseURL
	}
	c.Footage.APIKey = strings.TrimSpace(c.Footage.APIKey)
	if c.Footage.APIKey == "" {
		if value, ok := os.LookupEnv("SHORTSMITH_FOOTAGE_API_KEY"); ok {
			c.Footage.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok {
			c.Footage.APIKey = strings.TrimSpace(value)
		}
	}
	c.Footage.Orientation = strings.ToLower(strings.TrimSpace(c.Footage.Orientation))
	if c.Footage.Orientation == "" {
		c.Footage.Orientation = defaultOrientation
	}
	c.Footage.CacheRedisAddr = strings.TrimSpace(c.Footage.CacheRedisAddr)
	if c.Footage.ClipsPerScene <= 0 {
		c.Footage.ClipsPerScene = defaultClipsPerScene
	}
	if c.Footage.TimeoutSeconds <= 0 {
		c.Footage.TimeoutSeconds = defaultFootageTimeout
	}
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.FontName = strings.TrimSpace(c.Render.FontName)
	if c.Render.FontName == "" {
		c.Render.FontName = defaultFontName
	}
	if c.Render.FontSize <= 0 {
		c.Render.FontSize = defaultFontSize
	}
	if c.Render.WorkDirMaxAge <= 0 {
		c.Render.WorkDirMaxAge = defaultWorkDirMaxAge
	}
	d := &c.Render.Defaults
	d.CaptionPosition = renderspec.CaptionPosition(strings.ToLower(strings.TrimSpace(string(d.CaptionPosition))))
	d.MusicVolumeTier = renderspec.VolumeTier(strings.ToLower(strings.TrimSpace(string(d.MusicVolumeTier))))
	if strings.TrimSpace(d.Voice) == "" {
		d.Voice = c.TTS.DefaultVoice
	}
	if strings.TrimSpace(d.Language) == "" {
		d.Language = c.TTS.DefaultLanguage
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
