// Package docx converts word-processing documents to Markdown, inferring
// headings from paragraph styles, run font sizes and bold short lines.
package docx

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"

	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/heading"
	"github.com/zh1zunbao/makritup/internal/images"
	"github.com/zh1zunbao/makritup/internal/ooxml"
	"github.com/zh1zunbao/makritup/internal/table"
)

// Converter turns .docx bytes into Markdown.
type Converter struct {
	Images *images.Resolver
	Logger *slog.Logger
}

// extraction carries the per-document state borrowed by paragraph handlers.
type extraction struct {
	ctx    context.Context
	media  *ooxml.MediaTable
	rels   ooxml.Relationships
	images *images.Resolver
	logger *slog.Logger
}

// ToMarkdown converts one document. Archive failures are returned as
// *errs.ContainerError and malformed document XML as *errs.DocumentParseError.
func (c *Converter) ToMarkdown(ctx context.Context, data []byte) (string, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cont, err := ooxml.Open(data)
	if err != nil {
		return "", err
	}

	media, err := cont.Media(ooxml.WordMedia)
	if err != nil {
		return "", err
	}

	body, err := cont.ReadEntry(ooxml.WordDocument)
	if err != nil {
		return "", err
	}

	var doc documentXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", &errs.DocumentParseError{Part: ooxml.WordDocument, Err: err}
	}

	rels, err := cont.Relationships(ooxml.WordDocument)
	if err != nil {
		logger.Warn("ignoring document relationships", "error", err)
	}

	resolver := c.Images
	if resolver == nil {
		resolver = &images.Resolver{Logger: logger}
	}

	ex := &extraction{
		ctx:    ctx,
		media:  media,
		rels:   rels,
		images: resolver,
		logger: logger,
	}

	logger.Debug("docx parsed", "blocks", len(doc.Body.Blocks), "media", media.Len())

	var parts []string
	for _, block := range doc.Body.Blocks {
		var md string
		switch {
		case block.Paragraph != nil:
			md, err = ex.paragraph(block.Paragraph)
			if err != nil {
				return "", err
			}
		case block.Table != nil:
			md = strings.TrimRight(table.Render(tableRows(block.Table)), "\n")
		}
		if strings.TrimSpace(md) != "" {
			parts = append(parts, md)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// paragraph renders one paragraph: its text, classified as heading or body,
// followed by any images its runs reference.
func (ex *extraction) paragraph(p *paragraphXML) (string, error) {
	var (
		text strings.Builder
		imgs []string
		bold bool
		size float64
	)

	for _, run := range p.Runs {
		if run.Bold {
			bold = true
		}
		if run.Size > 0 {
			size = run.Size
		}
		for _, rc := range run.Content {
			if !rc.Image {
				text.WriteString(rc.Text)
				continue
			}
			md, err := ex.image(rc.Embed)
			if err != nil {
				return "", err
			}
			if md != "" {
				imgs = append(imgs, md)
			}
		}
	}

	result := heading.Classify(heading.Signals{
		Style: p.Style,
		Bold:  bold,
		Size:  size,
		Text:  text.String(),
	})
	result.Text = strings.TrimSpace(result.Text)

	out := make([]string, 0, 1+len(imgs))
	if line := heading.Render(result); line != "" {
		out = append(out, line)
	}
	out = append(out, imgs...)
	return strings.Join(out, "\n\n"), nil
}

// image resolves a drawing. The relationship id is authoritative when it
// names a media entry; otherwise the first image in the table is used.
func (ex *extraction) image(embed string) (string, error) {
	var payload []byte
	if target, ok := ex.rels[embed]; ok {
		payload, _ = ex.media.Get(target)
	}
	if payload == nil {
		name, data, ok := ex.media.FirstImage("")
		if !ok {
			ex.logger.Warn("drawing without media", "embed", embed)
			return "", nil
		}
		ex.logger.Debug("drawing matched by extension", "embed", embed, "media", name)
		payload = data
	}
	if len(payload) == 0 {
		return "", nil
	}
	return ex.images.Markdown(ex.ctx, payload)
}

func tableRows(t *tableXML) [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]string, 0, len(r.Cells))
		for _, cell := range r.Cells {
			cells = append(cells, cellText(cell))
		}
		rows = append(rows, cells)
	}
	return rows
}

// cellText joins the cell's paragraphs with single spaces.
func cellText(cell cellXML) string {
	var parts []string
	for _, p := range cell.Paragraphs {
		var b strings.Builder
		for _, run := range p.Runs {
			for _, rc := range run.Content {
				b.WriteString(rc.Text)
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
