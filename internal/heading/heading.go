// Package heading decides whether a block of text is a heading and at which
// level, from whatever style signals the source format provides.
package heading

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLevel is the deepest Markdown heading.
const MaxLevel = 6

// Signals are the inputs available for one block of text. A Size of zero
// or less means the source carried no explicit font size.
type Signals struct {
	Style string
	Bold  bool
	Size  float64
	Text  string
}

// Result is the decision for one paragraph. Level is only meaningful when
// IsHeading is true and is always within [1, MaxLevel].
type Result struct {
	IsHeading bool
	Level     int
	Text      string
}

// sizeLevels maps a minimum point size to a heading level, largest first.
var sizeLevels = []struct {
	min   float64
	level int
}{
	{18, 1},
	{16, 2},
	{14, 3},
	{13, 4},
	{12, 5},
}

// Classify applies the signals in fixed precedence: explicit style, then
// font size, then the bold short-line heuristic. Anything else is body text.
func Classify(s Signals) Result {
	res := Result{Text: s.Text, Level: 1}

	if level, ok := StyleLevel(s.Style); ok {
		res.IsHeading, res.Level = true, clamp(level)
		return res
	}

	trimmed := strings.TrimSpace(s.Text)
	n := utf8.RuneCountInString(trimmed)

	if s.Size > 0 {
		level := 0
		for _, sl := range sizeLevels {
			if s.Size >= sl.min {
				level = sl.level
				break
			}
		}
		if level == 0 {
			return res
		}
		if n < 100 && !strings.HasSuffix(trimmed, ".") {
			res.IsHeading, res.Level = true, level
			return res
		}
	}

	if s.Bold && n > 0 && n < 80 &&
		!strings.HasSuffix(trimmed, ".") &&
		!strings.HasSuffix(trimmed, "!") &&
		!strings.HasSuffix(trimmed, "?") &&
		!strings.Contains(trimmed, "\n") &&
		strings.IndexFunc(trimmed, unicode.IsLetter) >= 0 {
		res.IsHeading = true
		switch {
		case n < 30:
			res.Level = 2
		case n < 50:
			res.Level = 3
		default:
			res.Level = 4
		}
	}
	return res
}

// StyleLevel reports whether a style name denotes a heading and which level
// it carries. Matching is a case-insensitive substring test; the level comes
// from the digits in the name when present.
func StyleLevel(style string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(style))
	if lower == "" {
		return 0, false
	}

	switch {
	case strings.Contains(lower, "subtitle"):
		return 2, true
	case strings.Contains(lower, "heading"):
		return digitLevel(lower, 1), true
	case strings.Contains(lower, "title"):
		return digitLevel(lower, 1), true
	case strings.Contains(lower, "header"):
		return digitLevel(lower, 3), true
	}
	return 0, false
}

func digitLevel(s string, def int) int {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return def
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return def
	}
	return n
}

// LooksLikeTitle is the short-line test used where no style or size is
// available: under 100 characters, a single line, no terminal punctuation.
func LooksLikeTitle(text string) bool {
	trimmed := strings.TrimSpace(text)
	return utf8.RuneCountInString(trimmed) < 100 &&
		!strings.HasSuffix(trimmed, ".") &&
		!strings.HasSuffix(trimmed, "!") &&
		!strings.HasSuffix(trimmed, "?") &&
		!strings.Contains(trimmed, "\n")
}

// Render writes r as Markdown. Headings get exactly Level '#' characters; a
// heading with no visible text is written as plain text.
func Render(r Result) string {
	trimmed := strings.TrimSpace(r.Text)
	if r.IsHeading && trimmed != "" {
		return strings.Repeat("#", clamp(r.Level)) + " " + trimmed
	}
	return r.Text
}

func clamp(level int) int {
	if level < 1 {
		return 1
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
