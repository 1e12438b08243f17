package tts

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Voice describes one narration voice offered by the service.
type Voice struct {
	Name     string `json:"name"`
	Engine   string `json:"engine"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

var catalog = map[string]Voice{
	"Charlotte": {Name: "Charlotte", Engine: "chatterbox", Language: "en", Gender: "female"},
	"Hamilton":  {Name: "Hamilton", Engine: "chatterbox", Language: "en", Gender: "male"},
	"Noel":      {Name: "Noel", Engine: "xtts", Language: "es", Gender: "male"},
	"Pilar":     {Name: "Pilar", Engine: "xtts", Language: "es", Gender: "female"},
	"Paulo":     {Name: "Paulo", Engine: "xtts", Language: "pt", Gender: "male"},
	"Ines":      {Name: "Ines", Engine: "xtts", Language: "pt", Gender: "female"},
}

var titleCaser = cases.Title(language.Und)

// Catalog lists the built-in voices ordered by language then name.
func Catalog() []Voice {
	out := make([]Voice, 0, len(catalog))
	for _, v := range catalog {
		out = append(out, v)
	}
	sortVoices(out)
	return out
}

// LookupVoice resolves a voice name case-insensitively.
func LookupVoice(name string) (Voice, bool) {
	key := titleCaser.String(strings.ToLower(strings.TrimSpace(name)))
	v, ok := catalog[key]
	return v, ok
}

// VoiceForLanguage returns the first catalog voice speaking lang.
func VoiceForLanguage(lang string) (Voice, bool) {
	for _, v := range Catalog() {
		if sameLanguage(v.Language, lang) {
			return v, true
		}
	}
	return Voice{}, false
}

// sameLanguage compares base languages, so "pt-BR" matches "pt".
func sameLanguage(a, b string) bool {
	ta, errA := language.Parse(strings.TrimSpace(a))
	tb, errB := language.Parse(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

func sortVoices(voices []Voice) {
	sort.Slice(voices, func(i, j int) bool {
		if voices[i].Language != voices[j].Language {
			return voices[i].Language < voices[j].Language
		}
		return voices[i].Name < voices[j].Name
	})
}
