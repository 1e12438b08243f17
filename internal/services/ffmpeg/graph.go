package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"shortsmith/internal/assembly"
)

const audioRate = 48000

type graphInputs struct {
	captions string
	overlay  string
	output   string
}

// buildArgs lays out the ffmpeg inputs and filter graph for a composition.
// Every clip is looped, scaled to cover the canvas, and cut to its share of
// the scene's frames; narration is padded with silence to the segment length
// so the tail padding is quiet; music is mixed under the narration at the
// composition gain. Both streams fade out over the plan's fade window.
func buildArgs(comp assembly.Composition, in graphInputs) []string {
	plan := comp.Plan
	fps := plan.FPS
	args := []string{"-y", "-hide_banner", "-nostats", "-loglevel", "error", "-progress", "pipe:1"}

	input := 0
	var filters []string
	var videoParts, narrationParts []string

	for _, cs := range comp.Scenes {
		frames := splitFrames(cs.Segment.DurationFrames, len(cs.Videos))
		for k, clip := range cs.Videos {
			if frames[k] == 0 {
				continue
			}
			args = append(args, "-stream_loop", "-1", "-i", clip.URL)
			label := fmt.Sprintf("v%d_%d", cs.Index, k)
			filters = append(filters, fmt.Sprintf(
				"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,trim=end_frame=%d,setpts=PTS-STARTPTS[%s]",
				input, comp.Width, comp.Height, comp.Width, comp.Height, fps, frames[k], label))
			videoParts = append(videoParts, "["+label+"]")
			input++
		}

		args = append(args, "-i", cs.Audio.URL)
		label := fmt.Sprintf("n%d", cs.Index)
		filters = append(filters, fmt.Sprintf(
			"[%d:a]aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo,apad,atrim=end=%s,asetpts=PTS-STARTPTS[%s]",
			input, audioRate, seconds(plan.Seconds(cs.Segment.DurationFrames)), label))
		narrationParts = append(narrationParts, "["+label+"]")
		input++
	}

	filters = append(filters,
		fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vcat]", strings.Join(videoParts, ""), len(videoParts)),
		fmt.Sprintf("%sconcat=n=%d:v=0:a=1[narration]", strings.Join(narrationParts, ""), len(narrationParts)),
	)

	video := "vcat"
	if in.overlay != "" {
		args = append(args, "-loop", "1", "-i", in.overlay)
		filters = append(filters,
			fmt.Sprintf("[%d:v]scale=%d:%d,format=rgba[ovl]", input, comp.Width, comp.Height),
			fmt.Sprintf("[%s][ovl]overlay=0:0:shortest=1[vovl]", video),
		)
		video = "vovl"
		input++
	}
	if in.captions != "" {
		filters = append(filters, fmt.Sprintf("[%s]ass=%s[vsub]", video, escapeFilterPath(in.captions)))
		video = "vsub"
	}

	audio := "narration"
	if comp.MusicURL != "" && comp.MusicGain > 0 {
		args = append(args, "-stream_loop", "-1", "-i", comp.MusicURL)
		filters = append(filters,
			fmt.Sprintf("[%d:a]aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo,volume=%s,atrim=end=%s,asetpts=PTS-STARTPTS[music]",
				input, audioRate, strconv.FormatFloat(comp.MusicGain, 'f', -1, 64), seconds(plan.DurationSec())),
			"[narration][music]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[mix]",
		)
		audio = "mix"
		input++
	}

	if fade := plan.FadeFrames(); fade > 0 {
		start := seconds(plan.Seconds(plan.FadeStartFrame))
		length := seconds(plan.Seconds(fade))
		filters = append(filters,
			fmt.Sprintf("[%s]fade=t=out:st=%s:d=%s[vout]", video, start, length),
			fmt.Sprintf("[%s]afade=t=out:st=%s:d=%s[aout]", audio, start, length),
		)
	} else {
		filters = append(filters,
			fmt.Sprintf("[%s]null[vout]", video),
			fmt.Sprintf("[%s]anull[aout]", audio),
		)
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[vout]",
		"-map", "[aout]",
		"-r", strconv.Itoa(fps),
		"-frames:v", strconv.Itoa(plan.TotalFrames),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", strconv.Itoa(audioRate),
		"-t", seconds(plan.DurationSec()),
		"-movflags", "+faststart",
		in.output,
	)
	return args
}

// splitFrames divides total frames across n clips; the last clip absorbs the
// remainder.
func splitFrames(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	share := total / n
	for i := range out {
		out[i] = share
	}
	out[n-1] += total - share*n
	return out
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// escapeFilterPath quotes a path for use as a filter option value.
func escapeFilterPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
