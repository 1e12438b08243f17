package timeline

import "sort"

// Keyframe pins a curve value at a frame offset relative to the segment start.
type Keyframe struct {
	Frame int     `json:"frame"`
	Value float64 `json:"value"`
}

// Curve is a piecewise-linear envelope. Keyframes are ordered by Frame.
type Curve []Keyframe

// At returns the interpolated value at a segment-relative frame. Frames
// before the first or after the last keyframe hold the nearest value; an
// empty curve is constant 1.
func (c Curve) At(frame int) float64 {
	switch {
	case len(c) == 0:
		return 1
	case frame <= c[0].Frame:
		return c[0].Value
	case frame >= c[len(c)-1].Frame:
		return c[len(c)-1].Value
	}
	i := sort.Search(len(c), func(i int) bool { return c[i].Frame >= frame })
	hi := c[i]
	if hi.Frame == frame {
		return hi.Value
	}
	lo := c[i-1]
	t := float64(frame-lo.Frame) / float64(hi.Frame-lo.Frame)
	return lo.Value + (hi.Value-lo.Value)*t
}

// Constant reports whether every keyframe holds the same value.
func (c Curve) Constant() bool {
	for i := 1; i < len(c); i++ {
		if c[i].Value != c[0].Value {
			return false
		}
	}
	return true
}

func (c Curve) appendPoint(frame int, value float64) Curve {
	if n := len(c); n > 0 && c[n-1].Frame == frame {
		c[n-1].Value = value
		return c
	}
	return append(c, Keyframe{Frame: frame, Value: value})
}
