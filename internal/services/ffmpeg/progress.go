package ffmpeg

import (
	"strconv"
	"strings"
)

// progressParser turns `-progress` key=value lines into percent complete.
type progressParser struct {
	totalUs float64
	last    float64
}

// parse returns the percent for a line and whether it advanced.
func (p *progressParser) parse(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	var percent float64
	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is microseconds too; older builds only emit that key.
		us, err := strconv.ParseFloat(value, 64)
		if err != nil || us < 0 || p.totalUs <= 0 {
			return 0, false
		}
		percent = us / p.totalUs * 100
		if percent > 99 {
			percent = 99
		}
	case "progress":
		if value != "end" {
			return 0, false
		}
		percent = 100
	default:
		return 0, false
	}
	if percent <= p.last {
		return 0, false
	}
	p.last = percent
	return percent, true
}
