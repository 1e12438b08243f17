package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"shortsmith/internal/config"
	"shortsmith/internal/deps"
	"shortsmith/internal/services"
	"shortsmith/internal/services/footage"
)

// HealthChecker is implemented by the narration and footage clients.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the binaries the render stage shells out to.
// Both the daemon startup snapshot and the CLI use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return []deps.Status{deps.CheckFFmpeg(ctx, cfg.FFmpegBinary())}
}

// CheckTTS verifies the narration service answers its health endpoint.
func CheckTTS(ctx context.Context, client HealthChecker) Result {
	return checkService(ctx, "Narration service", client)
}

// CheckFootage verifies the footage client is configured.
func CheckFootage(ctx context.Context, client HealthChecker) Result {
	return checkService(ctx, "Footage service", client)
}

// CheckRedis verifies the footage cache answers a ping.
func CheckRedis(ctx context.Context, addr string) Result {
	const name = "Footage cache"

	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	cache, err := footage.NewRedisCache(checkCtx, addr)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer cache.Close()
	return Result{Name: name, Passed: true, Detail: addr}
}

func checkService(ctx context.Context, name string, client HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (unreachable)"
	}
	return services.Message(err)
}
