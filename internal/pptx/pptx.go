// Package pptx converts presentations to Markdown, one section per slide.
package pptx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/images"
	"github.com/zh1zunbao/makritup/internal/ooxml"
)

const presentationPart = "ppt/presentation.xml"

// Converter turns .pptx bytes into Markdown.
type Converter struct {
	Images *images.Resolver
	Logger *slog.Logger
}

// ToMarkdown converts every slide in slide-number order. A slide whose XML
// cannot be parsed is replaced by a marker comment; the call fails only
// when no slide could be converted.
func (c *Converter) ToMarkdown(ctx context.Context, data []byte) (string, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := c.Images
	if resolver == nil {
		resolver = &images.Resolver{Logger: logger}
	}

	cont, err := ooxml.Open(data)
	if err != nil {
		return "", err
	}

	media, err := cont.Media(ooxml.SlideMedia)
	if err != nil {
		return "", err
	}

	slides := cont.Slides()
	if len(slides) == 0 {
		if cont.Has(presentationPart) {
			return "", nil
		}
		return "", &errs.ContainerError{Op: "missing", Entry: presentationPart, Err: errors.New("no slides in archive")}
	}

	logger.Debug("pptx opened", "slides", len(slides), "media", media.Len())

	var (
		out      strings.Builder
		failures []error
	)
	for i, entry := range slides {
		n := i + 1
		md, err := c.slide(ctx, cont, media, resolver, logger, n, entry)
		var spe *errs.SlideParseError
		switch {
		case errors.As(err, &spe):
			logger.Warn("skipping slide", "slide", n, "entry", entry, "error", spe.Err)
			failures = append(failures, err)
			md = fmt.Sprintf("<!-- slide %d skipped: %s -->", n, oneLine(spe.Err.Error()))
		case err != nil:
			return "", err
		}

		fmt.Fprintf(&out, "## Slide %d\n\n", n)
		if md != "" {
			out.WriteString(md)
			out.WriteString("\n\n")
		}
		out.WriteString("---\n\n")
	}

	if len(failures) == len(slides) {
		return "", errors.Join(failures...)
	}
	return out.String(), nil
}

// slide converts one slide entry. Parse failures come back as
// *errs.SlideParseError; image save failures are returned unwrapped.
func (c *Converter) slide(ctx context.Context, cont *ooxml.Container, media *ooxml.MediaTable,
	resolver *images.Resolver, logger *slog.Logger, n int, entry string) (string, error) {
	data, err := cont.ReadEntry(entry)
	if err != nil {
		return "", &errs.SlideParseError{Slide: n, Entry: entry, Err: err}
	}

	blocks, err := scanSlide(data)
	if err != nil {
		return "", &errs.SlideParseError{Slide: n, Entry: entry, Err: err}
	}

	rels, err := cont.Relationships(entry)
	if err != nil {
		logger.Warn("ignoring slide relationships", "slide", n, "error", err)
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.kind != blockImage {
			parts = append(parts, b.text)
			continue
		}
		md, err := imageMarkdown(ctx, resolver, media, rels, b.embed)
		if err != nil {
			return "", err
		}
		parts = append(parts, md)
	}
	return strings.Join(parts, "\n\n"), nil
}

// imageMarkdown resolves a blip. The slide relationship is tried first,
// then the first media entry whose name contains the id or has an image
// extension. When nothing matches a placeholder line is returned.
func imageMarkdown(ctx context.Context, resolver *images.Resolver, media *ooxml.MediaTable,
	rels ooxml.Relationships, embed string) (string, error) {
	var payload []byte
	if target, ok := rels[embed]; ok {
		payload, _ = media.Get(target)
	}
	if len(payload) == 0 {
		_, payload, _ = media.FirstImage(embed)
	}
	if len(payload) == 0 {
		return fmt.Sprintf("![Image not found](%s)", embed), nil
	}
	return resolver.Markdown(ctx, payload)
}

// oneLine flattens s for use inside an HTML comment, which must not
// contain "--".
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}
