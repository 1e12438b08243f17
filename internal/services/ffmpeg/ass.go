package ffmpeg

import (
	"fmt"
	"strings"

	"shortsmith/internal/assembly"
	"shortsmith/internal/renderspec"
)

var assTextReplacer = strings.NewReplacer(
	"\\", "",
	"{", "(",
	"}", ")",
	"\r", "",
	"\n", `\N`,
)

// buildASS renders caption cues as an Advanced SubStation Alpha script sized
// to the output canvas.
func buildASS(comp assembly.Composition, font string, fontSize int) string {
	if fontSize <= 0 {
		fontSize = comp.Height / 24
	}
	margin := comp.Height / 10

	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", comp.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", comp.Height)
	b.WriteString("WrapStyle: 2\n")
	b.WriteString("ScaledBorderAndShadow: yes\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H64000000,1,0,0,0,100,100,0,0,1,4,0,%d,40,40,%d,1\n\n",
		font, fontSize, alignment(comp.CaptionPosition), margin)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range comp.Cues() {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", assTime(cue.StartMs), assTime(cue.EndMs), assTextReplacer.Replace(cue.Text))
	}
	return b.String()
}

// alignment maps a caption position onto the ASS numpad alignment.
func alignment(pos renderspec.CaptionPosition) int {
	switch pos {
	case renderspec.CaptionTop:
		return 8
	case renderspec.CaptionCenter:
		return 5
	default:
		return 2
	}
}

// assTime formats milliseconds as H:MM:SS.cc.
func assTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	cs := (ms + 5) / 10
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}
