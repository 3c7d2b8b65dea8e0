// Package converter detects a document's format and routes it to the
// matching Markdown converter.
package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/zh1zunbao/makritup/internal/audio"
	"github.com/zh1zunbao/makritup/internal/docx"
	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/images"
	"github.com/zh1zunbao/makritup/internal/pdf"
	"github.com/zh1zunbao/makritup/internal/pptx"
	"github.com/zh1zunbao/makritup/internal/tabular"
)

// Converter turns one document's bytes into Markdown.
type Converter interface {
	ToMarkdown(ctx context.Context, data []byte) (string, error)
}

// FileType represents supported file types
type FileType string

const (
	PDF   FileType = "pdf"
	DOCX  FileType = "docx"
	XLSX  FileType = "xlsx"
	PPTX  FileType = "pptx"
	CSV   FileType = "csv"
	HTML  FileType = "html"
	Audio FileType = "audio"
	Image FileType = "image"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var routes = map[string]FileType{
	mimeDOCX:          DOCX,
	mimePPTX:          PPTX,
	mimeXLSX:          XLSX,
	"text/csv":        CSV,
	"text/html":       HTML,
	"audio/wav":       Audio,
	"audio/x-wav":     Audio,
	"audio/wave":      Audio,
	"image/png":       Image,
	"image/jpeg":      Image,
	"image/gif":       Image,
	"image/webp":      Image,
	"application/pdf": PDF,
}

var extensionMIME = map[string]string{
	".docx": mimeDOCX,
	".pptx": mimePPTX,
	".xlsx": mimeXLSX,
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".wav":  "audio/wav",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// ambiguous sniff results say more about the container than the document.
var ambiguous = map[string]bool{
	"application/zip":          true,
	"text/plain":               true,
	"application/octet-stream": true,
}

// DetectMIME sniffs data and falls back to the extension of path when the
// content alone is ambiguous. Parameters such as charset are dropped.
func DetectMIME(data []byte, path string) string {
	sniffed, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	sniffed = strings.TrimSpace(sniffed)
	if !ambiguous[sniffed] || path == "" {
		return sniffed
	}
	if byExt, ok := extensionMIME[strings.ToLower(filepath.Ext(path))]; ok {
		return byExt
	}
	return sniffed
}

// imageConverter emits a standalone image as a single reference.
type imageConverter struct {
	resolver *images.Resolver
}

func (c imageConverter) ToMarkdown(ctx context.Context, data []byte) (string, error) {
	md, err := c.resolver.Markdown(ctx, data)
	if err != nil {
		return "", err
	}
	return md + "\n", nil
}

// GetConverter returns the converter registered for a resolved MIME type.
func (p *Pipeline) GetConverter(mime string) (Converter, FileType, error) {
	fileType, ok := routes[mime]
	if !ok {
		return nil, "", &errs.UnsupportedFormatError{MIME: mime}
	}
	switch fileType {
	case DOCX:
		return &docx.Converter{Images: p.images, Logger: p.logger}, fileType, nil
	case PPTX:
		return &pptx.Converter{Images: p.images, Logger: p.logger}, fileType, nil
	case XLSX:
		return tabular.XLSXConverter{}, fileType, nil
	case CSV:
		return tabular.CSVConverter{}, fileType, nil
	case HTML:
		return p.html, fileType, nil
	case Audio:
		return &audio.Converter{Recognizer: p.recognizer, Logger: p.logger}, fileType, nil
	case Image:
		return imageConverter{resolver: p.images}, fileType, nil
	case PDF:
		return &pdf.Converter{Logger: p.logger}, fileType, nil
	}
	return nil, "", fmt.Errorf("no converter for %s", fileType)
}
