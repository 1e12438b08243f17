package deps_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsmith/internal/deps"
)

const filterListing = `Filters:
  T.. = Timeline support
  ------
 ... amix              N->A       Audio mixing.
 ... afade             A->A       Fade in/out input audio.
 ... apad              A->A       Pad audio with silence.
 ... atrim             A->A       Pick one continuous section from the input.
 ... concat            N->N       Concatenate audio and video streams.
 ... crop              V->V       Crop the input video.
 ... fade              V->V       Fade in/out input video.
 ... overlay           VV->V      Overlay a video source on top of the input.
 ... scale             V->V       Scale the input video size.
 ... trim              V->V       Pick one continuous section from the input.
`

const encoderListing = `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 A....D aac                  AAC (Advanced Audio Coding)
`

func writeStub(t *testing.T, dir, name, filters string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "filters.txt"), []byte(filters), 0o644); err != nil {
		t.Fatalf("write filters: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "encoders.txt"), []byte(encoderListing), 0o644); err != nil {
		t.Fatalf("write encoders: %v", err)
	}
	script := "#!/bin/sh\n" +
		"case \"$2\" in\n" +
		"  -filters) cat \"" + filepath.Join(dir, "filters.txt") + "\" ;;\n" +
		"  -encoders) cat \"" + filepath.Join(dir, "encoders.txt") + "\" ;;\n" +
		"esac\n"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	results := deps.CheckBinaries([]deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary reported, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail %q", results[2].Detail)
	}
}

func TestCheckFFmpegReportsMissingLibass(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "ffmpeg", filterListing)

	status := deps.CheckFFmpeg(context.Background(), stub)
	if status.Available {
		t.Fatalf("expected ffmpeg without ass filter to be unavailable")
	}
	if status.Detail != "missing ass" {
		t.Fatalf("unexpected detail %q", status.Detail)
	}
}

func TestCheckFFmpegAcceptsCompleteBuild(t *testing.T) {
	dir := t.TempDir()
	listing := strings.Replace(filterListing, " ... amix", " ... ass               V->V       Render ASS subtitles.\n ... amix", 1)
	stub := writeStub(t, dir, "ffmpeg", listing)

	status := deps.CheckFFmpeg(context.Background(), stub)
	if !status.Available {
		t.Fatalf("expected ffmpeg available, got detail %q", status.Detail)
	}
}

func TestCheckFFmpegMissingBinary(t *testing.T) {
	status := deps.CheckFFmpeg(context.Background(), "clearly-not-present-ffmpeg")
	if status.Available || !strings.Contains(status.Detail, "not found") {
		t.Fatalf("unexpected status %#v", status)
	}
}
