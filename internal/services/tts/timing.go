package tts

import (
	"math"
	"strings"
	"unicode/utf8"

	"shortsmith/internal/scene"
)

var quoteReplacer = strings.NewReplacer(
	`"`, "",
	"“", "",
	"”", "",
	"«", "",
	"»", "",
)

// prepareText strips quotes and folds line breaks into single spaces.
func prepareText(text string) string {
	text = quoteReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// estimateWords spreads durationSec over the words of text in proportion to
// their length in characters.
func estimateWords(text string, durationSec float64) []scene.CaptionWord {
	fields := strings.Fields(text)
	if len(fields) == 0 || durationSec <= 0 {
		return []scene.CaptionWord{}
	}
	total := 0
	for _, f := range fields {
		total += utf8.RuneCountInString(f)
	}
	totalMs := durationSec * 1000
	words := make([]scene.CaptionWord, 0, len(fields))
	consumed := 0
	for _, f := range fields {
		start := int64(math.Round(totalMs * float64(consumed) / float64(total)))
		consumed += utf8.RuneCountInString(f)
		end := int64(math.Round(totalMs * float64(consumed) / float64(total)))
		words = append(words, scene.CaptionWord{Text: f, StartMs: start, EndMs: end})
	}
	return words
}
