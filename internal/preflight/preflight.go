package preflight

import (
	"context"
	"time"

	"shortsmith/internal/config"
	"shortsmith/internal/services/footage"
	"shortsmith/internal/services/tts"
)

const serviceCheckTimeout = 10 * time.Second

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. The Redis
// check only runs when a footage cache address is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		detail := status.Detail
		if status.Available {
			detail = status.Command
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}

	results = append(results, CheckTTS(ctx, tts.NewClient(tts.ConfigFrom(cfg))))
	results = append(results, CheckFootage(ctx, footage.NewClient(footage.ConfigFrom(cfg))))
	if cfg.Footage.CacheRedisAddr != "" {
		results = append(results, CheckRedis(ctx, cfg.Footage.CacheRedisAddr))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
