package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// RenderFilters are the ffmpeg filters the render graph uses.
var RenderFilters = []string{"ass", "amix", "afade", "apad", "atrim", "concat", "crop", "fade", "overlay", "scale", "trim"}

// RenderEncoders are the ffmpeg encoders the render output uses.
var RenderEncoders = []string{"libx264", "aac"}

// CheckFFmpeg resolves the ffmpeg binary and confirms it was built with the
// filters and encoders the renderer needs. A build without libass, for
// example, is reported unavailable with the missing names in Detail.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	status := checkBinary(Requirement{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required for rendering",
	})
	if !status.Available {
		return status
	}

	var missing []string
	filters, err := listNames(ctx, status.Command, "-filters")
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	missing = append(missing, absent(RenderFilters, filters)...)

	encoders, err := listNames(ctx, status.Command, "-encoders")
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("list encoders: %v", err)
		return status
	}
	missing = append(missing, absent(RenderEncoders, encoders)...)

	if len(missing) > 0 {
		sort.Strings(missing)
		status.Available = false
		status.Detail = "missing " + strings.Join(missing, ", ")
	}
	return status
}

// listNames runs `ffmpeg -hide_banner <flag>` and collects the second column
// of every row below the "------" separator.
func listNames(ctx context.Context, binary, flag string) (map[string]struct{}, error) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(runCtx, binary, "-hide_banner", flag).Output()
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(out))
	listing := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !listing {
			listing = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			names[fields[1]] = struct{}{}
		}
	}
	return names, scanner.Err()
}

func absent(required []string, have map[string]struct{}) []string {
	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
