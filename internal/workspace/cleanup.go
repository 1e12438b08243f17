// Package workspace prunes the render scratch directories under paths.work_dir.
package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortsmith/internal/logging"
)

// CleanupResult contains the outcome of a cleanup pass.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one render scratch directory.
type DirInfo struct {
	Name    string
	Path    string
	JobID   string
	ModTime time.Time
}

// JobIDFromDir extracts the job identifier from a "<job id>-<unix nanos>"
// directory name. Names without a numeric suffix return "".
func JobIDFromDir(name string) string {
	idx := strings.LastIndexByte(name, '-')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	for _, r := range name[idx+1:] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return name[:idx]
}

// List returns the scratch directories under workDir. A missing workDir is
// empty, not an error.
func List(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(workDir, entry.Name()),
			JobID:   JobIDFromDir(entry.Name()),
			ModTime: info.ModTime(),
		})
	}
	return dirs, nil
}

// Clean removes scratch directories older than maxAge, and any directory whose
// job is no longer known. known may be nil to skip the orphan check.
func Clean(ctx context.Context, workDir string, maxAge time.Duration, known func(jobID string) bool, logger *slog.Logger) CleanupResult {
	var result CleanupResult
	if logger == nil {
		logger = logging.NewNop()
	}
	dirs, err := List(workDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		reason := ""
		switch {
		case maxAge > 0 && dir.ModTime.Before(cutoff):
			reason = "stale"
		case known != nil && dir.JobID != "" && !known(dir.JobID):
			reason = "orphaned"
		default:
			continue
		}

		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logger.Warn("failed to remove render work directory",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		logger.Info("removed render work directory",
			logging.String("path", dir.Path),
			logging.String("reason", reason),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}
	return result
}
