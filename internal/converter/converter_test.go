package converter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zh1zunbao/makritup/internal/config"
	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/ooxml/ziptest"
)

const wordDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Hello</w:t></w:r></w:p>
<w:p><w:r><w:t>Some body text.</w:t></w:r></w:p>
</w:body></w:document>`

const slideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
  xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>Deck title</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newPipeline(cfg config.Config, opts ...Option) *Pipeline {
	return New(cfg, append([]Option{WithLogger(quiet())}, opts...)...)
}

func TestDetectMIME(t *testing.T) {
	c := qt.New(t)

	genericZip := ziptest.Build(t, ziptest.File("notes.txt", "hello"))

	tests := []struct {
		name string
		data []byte
		path string
		want string
	}{
		{"pdf by content", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), "", "application/pdf"},
		{"png by content", ziptest.PNG, "photo.jpg", "image/png"},
		{"zip falls back to pptx extension", genericZip, "deck.PPTX", mimePPTX},
		{"zip falls back to docx extension", genericZip, "a/b/report.docx", mimeDOCX},
		{"zip with unknown extension stays zip", genericZip, "archive.bin", "application/zip"},
		{"zip without path stays zip", genericZip, "", "application/zip"},
		{"plain text falls back to csv", []byte("just words"), "table.csv", "text/csv"},
		{"html drops charset", []byte("<!DOCTYPE html><html><body>x</body></html>"), "", "text/html"},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			c.Assert(DetectMIME(test.data, test.path), qt.Equals, test.want)
		})
	}
}

func TestConvertRoutes(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	p := newPipeline(config.Default())

	c.Run("docx", func(c *qt.C) {
		data := ziptest.Build(c, ziptest.File("word/document.xml", wordDocument))
		got, err := p.Convert(ctx, RawDocument{Data: data, Path: "report.docx"})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, "# Hello\n\nSome body text.\n")
	})

	c.Run("pptx from zip-sniffed bytes", func(c *qt.C) {
		data := ziptest.Build(c,
			ziptest.File("docProps/app.xml", "<Properties/>"),
			ziptest.File("ppt/slides/slide1.xml", slideXML),
		)
		got, err := p.Convert(ctx, RawDocument{Data: data, Path: "deck.pptx"})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Contains, "## Slide 1\n\n### Deck title")
	})

	c.Run("csv", func(c *qt.C) {
		got, err := p.Convert(ctx, RawDocument{Data: []byte("a,b\n1,2\n"), Path: "t.csv"})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, "| a | b |\n|---|---|\n| 1 | 2 |\n")
	})

	c.Run("html", func(c *qt.C) {
		got, err := p.Convert(ctx, RawDocument{Data: []byte("<html><body><h1>Hi</h1><p>there</p></body></html>")})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Contains, "# Hi")
	})

	c.Run("standalone image", func(c *qt.C) {
		got, err := p.Convert(ctx, RawDocument{Data: ziptest.PNG})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Matches, `!\[pic-\d+\]\(data:image/png;base64,[A-Za-z0-9+/=]+\)\n`)
	})
}

func TestConvertErrors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	p := newPipeline(config.Default())

	c.Run("unsupported", func(c *qt.C) {
		_, err := p.Convert(ctx, RawDocument{Data: []byte("just some words")})
		var uerr *errs.UnsupportedFormatError
		c.Assert(errors.As(err, &uerr), qt.Equals, true)
		c.Assert(uerr.MIME, qt.Equals, "text/plain")
	})

	c.Run("malformed docx", func(c *qt.C) {
		data := ziptest.Build(c, ziptest.File("word/styles.xml", "<w:styles/>"))
		_, err := p.Convert(ctx, RawDocument{Data: data, Path: "broken.docx"})
		var cerr *errs.ContainerError
		c.Assert(errors.As(err, &cerr), qt.Equals, true)
		c.Assert(err, qt.ErrorMatches, "convert docx: .*")
	})

	c.Run("empty", func(c *qt.C) {
		_, err := p.Convert(ctx, RawDocument{Path: "x.docx"})
		c.Assert(err, qt.Equals, errs.ErrEmptyInput)
	})

	c.Run("too large", func(c *qt.C) {
		cfg := config.Default()
		cfg.MaxFileSize = 4
		_, err := newPipeline(cfg).Convert(ctx, RawDocument{Data: []byte("0123456789")})
		c.Assert(errors.Is(err, errs.ErrTooLarge), qt.Equals, true)
	})

	c.Run("audio without recognizer", func(c *qt.C) {
		wav := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00")
		_, err := p.Convert(ctx, RawDocument{Data: wav, Path: "memo.wav"})
		var uerr *errs.UnsupportedFormatError
		c.Assert(errors.As(err, &uerr), qt.Equals, true)
	})
}

type stubNamer string

func (s stubNamer) GenerateName(context.Context, []byte, string) (string, error) {
	return string(s), nil
}

func TestImagesFollowConfig(t *testing.T) {
	c := qt.New(t)

	cfg := config.Default()
	cfg.ImageDir = c.TempDir()
	p := newPipeline(cfg, WithNamer(stubNamer("chart")))

	got, err := p.Convert(context.Background(), RawDocument{Data: ziptest.PNG, Path: "chart.png"})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "![chart](chart.png)\n")

	saved, err := os.ReadFile(filepath.Join(cfg.ImageDir, "chart.png"))
	c.Assert(err, qt.IsNil)
	c.Assert(saved, qt.DeepEquals, ziptest.PNG)
}

func TestGo(t *testing.T) {
	c := qt.New(t)

	p := newPipeline(config.Default())
	ch := p.Go(context.Background(), RawDocument{Data: []byte("h\nv\n"), Path: "one.csv"})

	res, ok := <-ch
	c.Assert(ok, qt.Equals, true)
	c.Assert(res.Err, qt.IsNil)
	c.Assert(res.FileType, qt.Equals, CSV)
	c.Assert(res.Markdown, qt.Equals, "| h |\n|---|\n| v |\n")

	_, ok = <-ch
	c.Assert(ok, qt.Equals, false)
}
