package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shortsmith/internal/api"
	"shortsmith/internal/config"
	"shortsmith/internal/daemon"
	"shortsmith/internal/logging"
	"shortsmith/internal/preflight"
	"shortsmith/internal/queue"
	"shortsmith/internal/reconcile"
	"shortsmith/internal/services"
	"shortsmith/internal/services/ffmpeg"
	"shortsmith/internal/services/footage"
	"shortsmith/internal/services/tts"
	"shortsmith/internal/workflow"
	"shortsmith/internal/workspace"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the shortsmith daemon and blocks until the context ends or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shortsmith-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shortsmith.log link: %v\n", err)
	}
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "shortsmithd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := Build(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the api bind address and job database access"),
			logging.String(logging.FieldImpact, "jobs will not be rendered"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("shortsmith daemon shutting down")
	return nil
}

// Build opens the job store and wires every collaborator into a daemon
// that has not been started yet.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return nil, err
	}
	pruneWorkDirs(ctx, cfg, store, logger)

	var opts []daemon.Option
	footageOpts := []footage.Option{footage.WithLogger(logger)}
	if addr := strings.TrimSpace(cfg.Footage.CacheRedisAddr); addr != "" {
		cache, err := footage.NewRedisCache(ctx, addr)
		if err != nil {
			logger.Warn("footage cache unavailable; searching without cache",
				logging.String("redis_addr", addr),
				logging.Error(err),
				logging.String(logging.FieldEventType, "footage_cache_unavailable"),
				logging.String(logging.FieldImpact, "every scene search hits the footage API"),
			)
		} else {
			footageOpts = append(footageOpts, footage.WithCache(cache))
			opts = append(opts, daemon.WithCloser(cache.Close))
		}
	}

	narrator := tts.NewClient(tts.ConfigFrom(cfg))
	searcher := footage.NewClient(footage.ConfigFrom(cfg), footageOpts...)
	renderer := ffmpeg.NewRenderer(ffmpeg.ConfigFrom(cfg), logger)

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(workflow.NewStageSet(cfg, narrator, searcher, renderer))

	editor := reconcile.NewService(store, narrator, manager, cfg.StageTimeout(), logger)
	jobs := api.NewJobService(store, manager, editor, narrator, cfg.Render.Defaults)

	d, err := daemon.New(cfg, store, logger, manager, jobs, opts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shortsmith.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// pruneWorkDirs removes render scratch directories left by crashed renders,
// kept work dirs past their age limit, and jobs that no longer exist.
func pruneWorkDirs(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) {
	known := func(jobID string) bool {
		_, err := store.Get(ctx, jobID)
		return !errors.Is(err, services.ErrNotFound)
	}
	result := workspace.Clean(ctx, cfg.Paths.WorkDir, cfg.WorkDirMaxAge(), known, logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		logger.Info("render work directories pruned",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "workdir_prune"),
		)
	}
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		if status.Available {
			continue
		}
		logger.Warn("dependency unavailable",
			logging.String(logging.FieldEventType, "dependency_missing"),
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String(logging.FieldErrorHint, status.Detail),
			logging.String(logging.FieldImpact, "render stage will fail until fixed"),
		)
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("ffmpeg_binary", cfg.FFmpegBinary()),
		logging.String("tts_url", cfg.TTS.BaseURL),
		logging.String("footage_url", cfg.Footage.BaseURL),
		logging.Bool("footage_key_present", strings.TrimSpace(cfg.Footage.APIKey) != ""),
		logging.Bool("footage_cache", strings.TrimSpace(cfg.Footage.CacheRedisAddr) != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("workers", cfg.Workflow.Workers),
	)
}
