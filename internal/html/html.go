// Package html converts HTML documents to Markdown.
package html

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"

	"github.com/zh1zunbao/makritup/internal/errs"
)

// ErrEmptyResult is returned when a document holds no convertible content.
var ErrEmptyResult = errors.New("html conversion produced empty result")

// Converter sanitizes markup before handing it to the Markdown renderer.
type Converter struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

// New returns a converter using the user-generated-content policy, which
// drops scripts, styles and event handlers but keeps structure and tables.
func New() *Converter {
	return &Converter{
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// ToMarkdown implements the dispatcher's converter contract. The source
// encoding is taken from a BOM or a <meta charset> declaration.
func (c *Converter) ToMarkdown(_ context.Context, data []byte) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return "", &errs.DocumentParseError{Part: "html", Err: err}
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", &errs.DocumentParseError{Part: "html", Err: err}
	}

	clean := c.policy.SanitizeBytes(decoded)

	md, err := c.md.ConvertString(string(clean))
	if err != nil {
		return "", &errs.DocumentParseError{Part: "html", Err: fmt.Errorf("render: %w", err)}
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", ErrEmptyResult
	}
	return md + "\n", nil
}
