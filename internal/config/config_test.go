package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shortsmith/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SHORTSMITH_FOOTAGE_API_KEY", "footage-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "shortsmith")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "jobs.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if cfg.Footage.APIKey != "footage-key" {
		t.Fatalf("expected footage key from env, got %q", cfg.Footage.APIKey)
	}
	if cfg.Render.Defaults.FPS != 30 || cfg.Render.Defaults.PaddingBackMs != 1500 {
		t.Fatalf("unexpected render defaults %+v", cfg.Render.Defaults)
	}
	if cfg.Workflow.Workers != config.Default().Workflow.Workers {
		t.Fatalf("unexpected workers %d", cfg.Workflow.Workers)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/data"
output_dir = "~/out"

[workflow]
workers = 4
max_attempts = 5

[render.defaults]
fps = 60
caption_position = "TOP"
music_volume_tier = "low"

[logging]
format = "JSON"
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected %q to be loaded, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Workflow.Workers != 4 || cfg.Workflow.MaxAttempts != 5 {
		t.Fatalf("unexpected workflow %+v", cfg.Workflow)
	}
	if cfg.Render.Defaults.FPS != 60 || cfg.Render.Defaults.CaptionPosition != "top" {
		t.Fatalf("unexpected render defaults %+v", cfg.Render.Defaults)
	}
	if cfg.Render.Defaults.Width != 1080 {
		t.Fatalf("unset render fields should keep defaults, got width %d", cfg.Render.Defaults.Width)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := map[string]string{
		"workers":        "[workflow]\nworkers = 0\n",
		"unknown key":    "[workflow]\nworkerz = 2\n",
		"render default": "[render.defaults]\nfps = 0\n",
		"orientation":    "[footage]\norientation = \"diagonal\"\n",
		"log format":     "[logging]\nformat = \"xml\"\n",
		"retry delays":   "[workflow]\nretry_base_delay = 60\nretry_max_delay = 10\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Render.Defaults.FPS != config.Default().Render.Defaults.FPS {
		t.Fatalf("sample render defaults drifted: %+v", cfg.Render.Defaults)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.OutputDir, cfg.Paths.WorkDir, cfg.AudioDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestRetryBackoffDoublesAndCaps(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.RetryBaseDelay = 2
	cfg.Workflow.RetryMaxDelay = 10
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := cfg.RetryBackoff(i + 1); got != w {
			t.Fatalf("RetryBackoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestExpandPathTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/videos")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !strings.HasPrefix(got, home) {
		t.Fatalf("expected %q under %q", got, home)
	}
}
