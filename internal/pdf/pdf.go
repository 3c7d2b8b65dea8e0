// Package pdf reconstructs Markdown structure from the positioned text runs
// of a PDF page.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/rsc/pdf"

	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/heading"
	"github.com/zh1zunbao/makritup/internal/table"
)

const pageSeparator = "\n\n---\n\n"

// Converter turns PDF bytes into Markdown, one section per page.
type Converter struct {
	Logger *slog.Logger
}

// TextElement is one positioned run of text.
type TextElement struct {
	Text  string
	Font  string
	Size  float64
	X     float64
	Y     float64
	Width float64
}

// TextLine is a row of elements sharing a baseline, ordered left to right.
type TextLine struct {
	Elements []TextElement
	Y        float64
	FontSize float64
	IsBold   bool
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ToMarkdown implements the dispatcher's converter contract. A page whose
// content stream cannot be interpreted is skipped with a warning.
func (c *Converter) ToMarkdown(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errs.ErrEmptyInput
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &errs.DocumentParseError{Part: "pdf", Err: err}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", &errs.DocumentParseError{Part: "pdf", Err: errors.New("document contains no pages")}
	}

	var pages []string
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		elements, err := pageElements(page)
		if err != nil {
			c.logger().Warn("skipping unreadable pdf page", "page", pageNum, "error", err)
			continue
		}

		md := convertLinesToMarkdown(groupElementsIntoLines(elements))
		if md == "" {
			continue
		}
		pages = append(pages, md)
	}

	if len(pages) == 0 {
		return "", nil
	}
	return strings.Join(pages, pageSeparator) + "\n", nil
}

// pageElements extracts the text runs of a page. The pdf package panics on
// malformed content streams; that is reported as an error for this page.
func pageElements(page pdf.Page) (elements []TextElement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpret content stream: %v", r)
		}
	}()

	for _, text := range page.Content().Text {
		s := printable(text.S)
		if s == "" {
			continue
		}
		elements = append(elements, TextElement{
			Text:  s,
			Font:  text.Font,
			Size:  text.FontSize,
			X:     text.X,
			Y:     text.Y,
			Width: text.W,
		})
	}
	return elements, nil
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// groupElementsIntoLines buckets elements by baseline, rounded to half a
// point, and orders lines from the top of the page down.
func groupElementsIntoLines(elements []TextElement) []TextLine {
	lineMap := make(map[float64][]TextElement)
	for _, element := range elements {
		y := math.Round(element.Y*2) / 2
		lineMap[y] = append(lineMap[y], element)
	}

	lines := make([]TextLine, 0, len(lineMap))
	for y, lineElements := range lineMap {
		sort.SliceStable(lineElements, func(i, j int) bool {
			return lineElements[i].X < lineElements[j].X
		})

		size := 0.0
		for _, e := range lineElements {
			size = max(size, e.Size)
		}
		lines = append(lines, TextLine{
			Elements: lineElements,
			Y:        y,
			FontSize: size,
			IsBold:   isBoldFont(lineElements[0].Font),
		})
	}

	// PDF y grows upward.
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Y > lines[j].Y
	})
	return lines
}

// spans splits a line into cells at wide horizontal gaps. Narrower gaps
// between runs become a single space.
func spans(line TextLine) []string {
	var (
		cells []string
		cur   strings.Builder
	)
	for i, e := range line.Elements {
		if i > 0 {
			prev := line.Elements[i-1]
			gap := e.X - (prev.X + prev.Width)
			size := max(prev.Size, 1)
			switch {
			case gap > 2*size:
				cells = append(cells, strings.TrimSpace(cur.String()))
				cur.Reset()
			case gap > 0.15*size && !strings.HasSuffix(prev.Text, " ") && !strings.HasPrefix(e.Text, " "):
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(e.Text)
	}
	return append(cells, strings.TrimSpace(cur.String()))
}

// bodySize is the font size carrying the most characters.
func bodySize(lines []TextLine) float64 {
	weight := make(map[float64]int)
	for _, line := range lines {
		for _, e := range line.Elements {
			weight[e.Size] += len([]rune(e.Text))
		}
	}
	best, bestWeight := 0.0, -1
	for size, w := range weight {
		if w > bestWeight || w == bestWeight && size < best {
			best, bestWeight = size, w
		}
	}
	return best
}

var (
	bulletPrefixes = []string{"•", "▪", "‣", "◦", "●"}
	asciiBullet    = regexp.MustCompile(`^[-*]\s+(\S.*)$`)
	orderedItem    = regexp.MustCompile(`^\d+[.)]\s+\S`)
)

func convertLinesToMarkdown(lines []TextLine) string {
	body := bodySize(lines)

	var (
		blocks []string
		list   []string
		rows   [][]string
	)
	flush := func() {
		if len(list) > 0 {
			blocks = append(blocks, strings.Join(list, "\n"))
			list = nil
		}
		if len(rows) > 0 {
			blocks = append(blocks, strings.TrimSuffix(table.Render(rows), "\n"))
			rows = nil
		}
	}

	for _, line := range lines {
		cells := spans(line)
		if len(cells) > 1 {
			if len(list) > 0 {
				flush()
			}
			rows = append(rows, cells)
			continue
		}

		text := cells[0]
		if text == "" {
			continue
		}

		if item, ok := listItem(text); ok {
			if len(rows) > 0 {
				flush()
			}
			list = append(list, item)
			continue
		}
		flush()

		sig := heading.Signals{Bold: line.IsBold, Text: text}
		if line.FontSize > body {
			sig.Size = line.FontSize
		}
		blocks = append(blocks, heading.Render(heading.Classify(sig)))
	}
	flush()

	return strings.Join(blocks, "\n\n")
}

func listItem(text string) (string, bool) {
	for _, p := range bulletPrefixes {
		if rest, ok := strings.CutPrefix(text, p); ok {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return "", false
			}
			return "- " + rest, true
		}
	}
	// "-" and "*" also start ordinary text such as "-5 °C", so they only
	// mark an item when followed by whitespace.
	if m := asciiBullet.FindStringSubmatch(text); m != nil {
		return "- " + strings.TrimSpace(m[1]), true
	}
	if orderedItem.MatchString(text) {
		return text, true
	}
	return "", false
}

func isBoldFont(fontName string) bool {
	fontName = strings.ToLower(fontName)
	return strings.Contains(fontName, "bold") ||
		strings.Contains(fontName, "black") ||
		strings.Contains(fontName, "heavy")
}
