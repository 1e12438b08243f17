package reconcile

import (
	"strings"

	"shortsmith/internal/scene"
)

// Result is the reconciled scene list for an edit.
type Result struct {
	Scenes []scene.Scene
	// Stale lists indexes whose narration must be synthesized again.
	Stale []int
	// Removed counts trailing stored scenes the edit dropped.
	Removed int
}

// Changed reports whether the edit produced anything to re-render.
func (r Result) Changed() bool {
	return len(r.Stale) > 0 || r.Removed > 0
}

// Diff reconciles edited scenes against the stored ones. Neither input is
// modified.
func Diff(stored, edited []scene.Scene) Result {
	out := Result{Scenes: make([]scene.Scene, 0, len(edited))}
	for i, next := range edited {
		if i >= len(stored) {
			added := next.Clone()
			added.ClearNarration()
			out.Scenes = append(out.Scenes, added)
			out.Stale = append(out.Stale, i)
			continue
		}
		prev := stored[i]
		if sameText(prev.Text, next.Text) {
			out.Scenes = append(out.Scenes, prev.Clone())
			continue
		}
		changed := prev.Clone()
		changed.Text = next.Text
		changed.SearchTerms = append([]string(nil), next.SearchTerms...)
		if len(next.SearchTerms) == 0 {
			changed.SearchTerms = nil
		}
		changed.ClearNarration()
		out.Scenes = append(out.Scenes, changed)
		out.Stale = append(out.Stale, i)
	}
	if len(stored) > len(edited) {
		out.Removed = len(stored) - len(edited)
	}
	return out
}

func sameText(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
