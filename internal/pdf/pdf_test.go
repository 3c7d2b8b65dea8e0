package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zh1zunbao/makritup/internal/errs"
)

// buildPDF assembles an uncompressed PDF with one page per content stream.
// F1 is Helvetica and F2 Helvetica-Bold, both with 500-unit glyph widths.
func buildPDF(t testing.TB, contents ...string) []byte {
	t.Helper()

	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))
	font := func(base string) string {
		return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding "+
			"/FirstChar 32 /LastChar 126 /Widths [%s] >>", base, widths)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled in below
		font("Helvetica"),
		font("Helvetica-Bold"),
	}
	var kids []string
	for _, content := range contents {
		pageNum := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>", pageNum+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func text(font string, size, x, y int, s string) string {
	return fmt.Sprintf("BT /%s %d Tf %d %d Td (%s) Tj ET\n", font, size, x, y, s)
}

func TestToMarkdown(t *testing.T) {
	c := qt.New(t)

	page1 := text("F2", 24, 72, 700, "Quarterly Report") +
		text("F1", 11, 72, 660, "Revenue rose in every region this quarter.") +
		text("F1", 11, 72, 640, "- first point") +
		text("F1", 11, 72, 625, "- second point")
	page2 := text("F1", 11, 72, 600, "Name") + text("F1", 11, 300, 600, "Total") +
		text("F1", 11, 72, 580, "North") + text("F1", 11, 300, 580, "12")

	got, err := (&Converter{}).ToMarkdown(context.Background(), buildPDF(t, page1, page2))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "# Quarterly Report\n\n"+
		"Revenue rose in every region this quarter.\n\n"+
		"- first point\n- second point\n\n"+
		"---\n\n"+
		"| Name | Total |\n|---|---|\n| North | 12 |\n")
}

func TestBlankPagesAreDropped(t *testing.T) {
	c := qt.New(t)

	got, err := (&Converter{}).ToMarkdown(context.Background(), buildPDF(t, "", text("F1", 11, 72, 700, "only text")))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "only text\n")
}

func TestErrors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	_, err := (&Converter{}).ToMarkdown(ctx, nil)
	c.Assert(err, qt.Equals, errs.ErrEmptyInput)

	_, err = (&Converter{}).ToMarkdown(ctx, []byte("definitely not a pdf, but long enough to read a trailer from the end of it........................................"))
	var perr *errs.DocumentParseError
	c.Assert(errors.As(err, &perr), qt.Equals, true)
	c.Assert(perr.Part, qt.Equals, "pdf")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = (&Converter{}).ToMarkdown(cancelled, buildPDF(t, text("F1", 11, 72, 700, "x")))
	c.Assert(errors.Is(err, context.Canceled), qt.Equals, true)
}

func line(size float64, font string, parts ...TextElement) TextLine {
	return TextLine{Elements: parts, FontSize: size, IsBold: isBoldFont(font)}
}

func TestConvertLinesToMarkdown(t *testing.T) {
	c := qt.New(t)

	el := func(s string, x, size float64) TextElement {
		return TextElement{Text: s, X: x, Size: size, Width: float64(len(s)) * size / 2}
	}

	lines := []TextLine{
		line(14, "Arial-Bold", el("Overview", 0, 14)),
		line(10, "Arial", el("Plain words", 0, 10), el("follow", 60, 10)),
		line(10, "Arial-Bold", el("Short bold line", 0, 10)),
		line(10, "Arial", el("1. ordered", 0, 10)),
		line(10, "Arial", el("• bullet", 0, 10)),
		line(10, "Arial", el("left", 0, 10), el("right", 200, 10)),
	}
	got := convertLinesToMarkdown(lines)
	c.Assert(got, qt.Equals, "### Overview\n\n"+
		"Plain words follow\n\n"+
		"## Short bold line\n\n"+
		"1. ordered\n- bullet\n\n"+
		"| left | right |\n|---|---|")
}

func TestListItem(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"- first point", "- first point", true},
		{"*  starred", "- starred", true},
		{"• dot", "- dot", true},
		{"•tight", "- tight", true},
		{"3) third", "3) third", true},
		{"-5 °C overnight", "", false},
		{"*emphasis* in a sentence", "", false},
		{"-", "", false},
		{"2024 was a year", "", false},
	}
	for _, test := range tests {
		got, ok := listItem(test.in)
		c.Assert(ok, qt.Equals, test.ok, qt.Commentf("%q", test.in))
		c.Assert(got, qt.Equals, test.want, qt.Commentf("%q", test.in))
	}

	got := convertLinesToMarkdown([]TextLine{
		line(10, "Arial", TextElement{Text: "-5 °C overnight", Size: 10, Width: 75}),
	})
	c.Assert(got, qt.Equals, "-5 °C overnight")
}

func TestIsBoldFont(t *testing.T) {
	c := qt.New(t)

	c.Assert(isBoldFont("ABCDEF+Roboto-Bold"), qt.Equals, true)
	c.Assert(isBoldFont("Arial-Black"), qt.Equals, true)
	c.Assert(isBoldFont("Times-Roman"), qt.Equals, false)
}
