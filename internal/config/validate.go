package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateFootage(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if !strings.Contains(c.API.Bind, ":") {
		return fmt.Errorf("api.bind must be host:port, got %q", c.API.Bind)
	}
	return nil
}

func (c *Config) validateTTS() error {
	if err := validateURL("tts.base_url", c.TTS.BaseURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFootage() error {
	if err := validateURL("footage.base_url", c.Footage.BaseURL); err != nil {
		return err
	}
	switch c.Footage.Orientation {
	case "portrait", "landscape", "square":
	default:
		return fmt.Errorf("footage.orientation must be portrait, landscape, or square, got %q", c.Footage.Orientation)
	}
	if c.Footage.MinClipSeconds < 0 {
		return errors.New("footage.min_clip_seconds must be >= 0")
	}
	if c.Footage.CacheTTLSeconds < 0 {
		return errors.New("footage.cache_ttl_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := c.Render.Defaults.Validate(); err != nil {
		return fmt.Errorf("render.defaults: %w", err)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	if c.Workflow.MaxAttempts < 1 {
		return errors.New("workflow.max_attempts must be at least 1")
	}
	if c.Workflow.RetryBaseDelay < 0 || c.Workflow.RetryMaxDelay < 0 {
		return errors.New("workflow retry delays must be >= 0")
	}
	if c.Workflow.RetryMaxDelay > 0 && c.Workflow.RetryMaxDelay < c.Workflow.RetryBaseDelay {
		return errors.New("workflow.retry_max_delay must be >= workflow.retry_base_delay")
	}
	if c.Workflow.StageTimeout < 0 || c.Workflow.RenderTimeout < 0 {
		return errors.New("workflow timeouts must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, value)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	return nil
}
