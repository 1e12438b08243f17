package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"shortsmith/internal/assembly"
	"shortsmith/internal/config"
	"shortsmith/internal/fileutil"
	"shortsmith/internal/logging"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/services"
	"shortsmith/internal/stage"
)

const (
	progressLabel = "encoding"
	maxSlugRunes  = 48
)

// Config captures the renderer settings.
type Config struct {
	Binary       string
	FontName     string
	FontSize     int
	OutputDir    string
	WorkDir      string
	OverlayDir   string
	KeepWorkDirs bool
}

// ConfigFrom extracts the renderer settings from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Binary:       cfg.FFmpegBinary(),
		FontName:     cfg.Render.FontName,
		FontSize:     cfg.Render.FontSize,
		OutputDir:    cfg.Paths.OutputDir,
		WorkDir:      cfg.Paths.WorkDir,
		OverlayDir:   filepath.Join(cfg.Paths.DataDir, "overlays"),
		KeepWorkDirs: cfg.Render.KeepWorkDirs,
	}
}

// Renderer encodes compositions with ffmpeg.
type Renderer struct {
	cfg    Config
	logger *slog.Logger
	runner commandRunner
}

// NewRenderer constructs a renderer.
func NewRenderer(cfg Config, logger *slog.Logger) *Renderer {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.FontName == "" {
		cfg.FontName = "Arial"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		runner: commandExecutor{},
	}
}

// Render encodes comp and returns the path of the finished MP4.
func (r *Renderer) Render(ctx context.Context, comp assembly.Composition, cfg renderspec.Config, onProgress stage.ProgressFunc) (string, error) {
	if len(comp.Scenes) == 0 || comp.Plan.TotalFrames <= 0 {
		return "", services.Wrap(services.ErrRender, "render", "plan", "composition is empty", nil)
	}
	jobID, ok := services.JobIDFromContext(ctx)
	if !ok {
		jobID = uuid.NewString()
	}
	logger := logging.WithContext(ctx, r.logger)

	workDir := filepath.Join(r.cfg.WorkDir, fmt.Sprintf("%s-%d", jobID, time.Now().UnixNano()))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "prepare", "create work dir", err)
	}
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "prepare", "create output dir", err)
	}

	inputs := graphInputs{output: filepath.Join(workDir, "output.mp4")}
	if cues := comp.Cues(); len(cues) > 0 {
		inputs.captions = filepath.Join(workDir, "captions.ass")
		if err := os.WriteFile(inputs.captions, []byte(buildASS(comp, r.cfg.FontName, r.cfg.FontSize)), 0o644); err != nil {
			return "", services.Wrap(services.ErrRender, "render", "captions", "write caption file", err)
		}
	}
	if comp.OverlayID != "" {
		overlay, err := r.resolveOverlay(comp.OverlayID)
		if err != nil {
			return "", err
		}
		inputs.overlay = overlay
	}

	args := buildArgs(comp, inputs)
	logFile, err := os.Create(filepath.Join(workDir, "ffmpeg.log"))
	if err != nil {
		return "", services.Wrap(services.ErrRender, "render", "prepare", "create log file", err)
	}
	defer logFile.Close()
	fmt.Fprintf(logFile, "%s %s\n\n", r.cfg.Binary, strings.Join(args, " "))

	tail := &tailBuffer{}
	parser := &progressParser{totalUs: comp.Plan.DurationSec() * 1e6}
	logger.Info("ffmpeg encode started",
		logging.String("work_dir", workDir),
		logging.Int("total_frames", comp.Plan.TotalFrames),
		logging.Int("fps", comp.Plan.FPS),
	)
	started := time.Now()
	runErr := r.runner.Run(ctx, r.cfg.Binary, args, func(line string) {
		if percent, ok := parser.parse(line); ok && onProgress != nil {
			onProgress(progressLabel, percent)
		}
	}, io.MultiWriter(logFile, tail))
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Error("ffmpeg encode failed",
			logging.Error(runErr),
			logging.String("work_dir", workDir),
			logging.String(logging.FieldEventType, "render_failed"),
			logging.String(logging.FieldErrorHint, "inspect ffmpeg.log in the work directory"),
		)
		return "", services.Wrap(services.ErrRender, "render", "encode", fmt.Sprintf("ffmpeg failed (work dir %s): %s", workDir, tail.String()), runErr)
	}

	if _, err := os.Stat(inputs.output); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "encode", fmt.Sprintf("ffmpeg produced no output (work dir %s)", workDir), err)
	}
	final := filepath.Join(r.cfg.OutputDir, outputName(comp, jobID))
	if err := fileutil.MoveFile(inputs.output, final); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "finalize", "move output into place", err)
	}
	if !r.cfg.KeepWorkDirs {
		_ = logFile.Close()
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("remove work dir failed", logging.Error(err), logging.String("work_dir", workDir))
		}
	}
	if onProgress != nil {
		onProgress(progressLabel, 100)
	}
	logger.Info("ffmpeg encode finished",
		logging.String("output_path", final),
		logging.Duration("encode_duration", time.Since(started)),
	)
	return final, nil
}

func (r *Renderer) resolveOverlay(id string) (string, error) {
	name := slug.Make(id)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "render", "overlay", fmt.Sprintf("invalid overlay id %q", id), nil)
	}
	path := filepath.Join(r.cfg.OverlayDir, name+".png")
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "overlay", fmt.Sprintf("overlay %q not found at %s", id, path), nil)
	}
	return path, nil
}

// Health reports whether the ffmpeg binary is on PATH.
func (r *Renderer) Health(context.Context) error {
	if _, err := exec.LookPath(r.cfg.Binary); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", r.cfg.Binary, err)
	}
	return nil
}

// outputName builds "<slug of first scene text>-<job id prefix>.mp4".
func outputName(comp assembly.Composition, jobID string) string {
	base := ""
	if len(comp.Scenes) > 0 {
		base = slug.Make(comp.Scenes[0].Text)
	}
	if utf8.RuneCountInString(base) > maxSlugRunes {
		base = strings.TrimRight(string([]rune(base)[:maxSlugRunes]), "-")
	}
	if base == "" {
		base = "short"
	}
	id := strings.ReplaceAll(jobID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.mp4", base, id)
}
