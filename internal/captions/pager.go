package captions

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rivo/uniseg"

	"shortsmith/internal/scene"
)

// Options bounds how words are packed into lines and pages.
type Options struct {
	LineMaxLength int
	LineCount     int
	MaxGapMs      int64
}

// Line is an ordered run of words rendered on one caption row.
type Line []scene.CaptionWord

// Page is a timed group of lines shown together.
type Page struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Lines   []Line `json:"lines"`
}

// Text joins the page's lines with newlines and each line's words with spaces.
func (p Page) Text() string {
	rows := make([]string, 0, len(p.Lines))
	for _, line := range p.Lines {
		rows = append(rows, line.Text())
	}
	return strings.Join(rows, "\n")
}

// WordCount returns the number of words across all lines.
func (p Page) WordCount() int {
	n := 0
	for _, line := range p.Lines {
		n += len(line)
	}
	return n
}

// Text joins the printable form of each word with single spaces.
func (l Line) Text() string {
	parts := make([]string, 0, len(l))
	for _, w := range l {
		parts = append(parts, Printable(w.Text))
	}
	return strings.Join(parts, " ")
}

var markupPattern = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)

// Printable strips inline markup (HTML-style tags and ASS override blocks) and
// surrounding whitespace from a caption word.
func Printable(text string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(text, ""))
}

// PrintableLength counts grapheme clusters in the printable form of text.
func PrintableLength(text string) int {
	return uniseg.GraphemeClusterCount(Printable(text))
}

func (o Options) normalized() Options {
	if o.LineMaxLength < 1 {
		o.LineMaxLength = 1
	}
	if o.LineCount < 1 {
		o.LineCount = 1
	}
	if o.MaxGapMs < 0 {
		o.MaxGapMs = 0
	}
	return o
}

// Group packs words into pages. Words are scanned in StartMs order. A word
// joins the current line while the line stays within LineMaxLength printable
// characters; otherwise it opens a new line, and once the page already holds
// LineCount lines it opens a new page. A silence longer than MaxGapMs between
// consecutive words always opens a new page. A word longer than LineMaxLength
// is never split or dropped: it occupies a page of its own.
func Group(words []scene.CaptionWord, opts Options) []Page {
	if len(words) == 0 {
		return []Page{}
	}
	opts = opts.normalized()

	ordered := make([]scene.CaptionWord, len(words))
	copy(ordered, words)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartMs < ordered[j].StartMs
	})

	b := &pageBuilder{opts: opts}
	for _, w := range ordered {
		b.add(w)
	}
	b.closePage()
	return b.pages
}

type pageBuilder struct {
	opts    Options
	pages   []Page
	lines   []Line
	line    Line
	lineLen int
	prevEnd int64
}

func (b *pageBuilder) add(w scene.CaptionWord) {
	if w.EndMs < w.StartMs {
		w.EndMs = w.StartMs
	}
	n := PrintableLength(w.Text)

	if n > b.opts.LineMaxLength {
		b.closePage()
		b.line = Line{w}
		b.lineLen = n
		b.prevEnd = w.EndMs
		b.closePage()
		return
	}

	if len(b.line) > 0 {
		switch {
		case w.StartMs-b.prevEnd > b.opts.MaxGapMs:
			b.closePage()
		case b.lineLen+1+n > b.opts.LineMaxLength:
			b.closeLine()
			if len(b.lines) >= b.opts.LineCount {
				b.closePage()
			}
		}
	}

	if len(b.line) == 0 {
		b.lineLen = n
	} else {
		b.lineLen += 1 + n
	}
	b.line = append(b.line, w)
	b.prevEnd = w.EndMs
}

func (b *pageBuilder) closeLine() {
	if len(b.line) == 0 {
		return
	}
	b.lines = append(b.lines, b.line)
	b.line = nil
	b.lineLen = 0
}

func (b *pageBuilder) closePage() {
	b.closeLine()
	if len(b.lines) == 0 {
		return
	}
	first := b.lines[0][0]
	page := Page{
		StartMs: first.StartMs,
		EndMs:   pageEnd(b.lines),
		Lines:   b.lines,
	}
	if n := len(b.pages); n > 0 && b.pages[n-1].EndMs > page.StartMs {
		// Overlapping input words: keep pages disjoint by ending the
		// previous page where this one begins.
		b.pages[n-1].EndMs = page.StartMs
	}
	b.pages = append(b.pages, page)
	b.lines = nil
}

func pageEnd(lines []Line) int64 {
	var end int64
	for _, line := range lines {
		for _, w := range line {
			if w.EndMs > end {
				end = w.EndMs
			}
		}
	}
	return end
}
