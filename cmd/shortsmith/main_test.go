package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsmith/internal/api"
	"shortsmith/internal/daemon"
	"shortsmith/internal/logging"
	"shortsmith/internal/queue"
	"shortsmith/internal/testsupport"
	"shortsmith/internal/workflow"
)

type cliTestEnv struct {
	configPath string
	bind       string
	store      *queue.Store
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	jobs := api.NewJobService(store, mgr, nil, nil, cfg.Render.Defaults)
	d, err := daemon.New(cfg, store, logger, mgr, jobs)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)

	return &cliTestEnv{
		configPath: filepath.Join(home, "missing.toml"),
		bind:       server.URL,
		store:      store,
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestParseScriptAcceptsBothForms(t *testing.T) {
	req, err := parseScript([]byte(`[{"text":"one"},{"text":"two"}]`))
	if err != nil {
		t.Fatalf("parse array: %v", err)
	}
	if len(req.Scenes) != 2 || req.Config != nil {
		t.Fatalf("unexpected request %+v", req)
	}

	req, err = parseScript([]byte(`{"scenes":[{"text":"one"}],"config":{"voice":"Hamilton"}}`))
	if err != nil {
		t.Fatalf("parse object: %v", err)
	}
	if len(req.Scenes) != 1 || !strings.Contains(string(req.Config), "Hamilton") {
		t.Fatalf("unexpected request %+v", req)
	}

	if _, err := parseScript([]byte(`{"scenes":[],"voice":"x"}`)); err == nil {
		t.Fatal("expected unknown top-level key to be rejected")
	}
	if _, err := parseScript([]byte("  ")); err == nil {
		t.Fatal("expected empty script to be rejected")
	}
}

func TestPlanCommandRunsOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	script := writeScript(t, `{
  "scenes": [
    {"text": "one", "durationSec": 4.0},
    {"text": "two", "durationSec": 3.5},
    {"text": "three", "durationSec": 2.0}
  ],
  "config": {"paddingBackMs": 1000}
}`)

	out, err := runCLI(t, "", "--config", env.configPath, "--json", "plan", script)
	if err != nil {
		t.Fatalf("plan: %v\n%s", err, out)
	}
	var plan api.PlanPreview
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if plan.TotalFrames != 315 || len(plan.Segments) != 3 || plan.Segments[2].StartFrame != 225 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	out, err = runCLI(t, "", "--config", env.configPath, "plan", script)
	if err != nil {
		t.Fatalf("plan table: %v", err)
	}
	if !strings.Contains(out, "315 frames at 30 fps") {
		t.Fatalf("expected timeline summary, got:\n%s", out)
	}
}

func TestSubmitStatusAndListThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	script := `[{"text":"first scene"},{"text":"second scene"}]`

	out, err := runCLI(t, script, "--config", env.configPath, "--bind", env.bind, "--json", "submit", "-")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	var submitted api.SubmitResponse
	if err := json.Unmarshal([]byte(out), &submitted); err != nil || submitted.ID == "" {
		t.Fatalf("decode submit response %q: %v", out, err)
	}

	out, err = runCLI(t, "", "--config", env.configPath, "--bind", env.bind, "status", submitted.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "queued (0%)") {
		t.Fatalf("expected queued status, got:\n%s", out)
	}

	out, err = runCLI(t, "", "--config", env.configPath, "--bind", env.bind, "list", "--status", "queued")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, submitted.ID) {
		t.Fatalf("expected job in list, got:\n%s", out)
	}

	out, err = runCLI(t, "", "--config", env.configPath, "--bind", env.bind, "show", submitted.ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "first scene") {
		t.Fatalf("expected scene text in show output, got:\n%s", out)
	}
}

func TestStatusReportsMissingJob(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := runCLI(t, "", "--config", env.configPath, "--bind", env.bind, "status", "nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "conf", "shortsmith.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected existing config to be protected")
	}

	out, err = runCLI(t, "", "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Fatalf("truncate collapsed = %q", got)
	}
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestLogsCommandFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "shortsmith", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "INFO stage started job_id=one\nINFO stage started job_id=two\nINFO daemon ready\n"
	if err := os.WriteFile(filepath.Join(logDir, "shortsmith.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := runCLI(t, "", "--config", env.configPath, "logs", "--job", "two")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "INFO stage started job_id=two" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, "", "--config", env.configPath, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "INFO daemon ready" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("SHORTSMITH_FOOTAGE_API_KEY", "super-secret-key")

	out, err := runCLI(t, "", "--config", env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret-key") {
		t.Fatalf("api key leaked: %s", out)
	}
	if !strings.Contains(out, "********") || !strings.Contains(out, "[render.defaults]") {
		t.Fatalf("unexpected output %s", out)
	}
}
