// Package tabular renders row-oriented sources, CSV text and spreadsheet
// workbooks, as Markdown tables.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/table"
)

// ReadCSV reads every record from r. A UTF-8 or UTF-16 byte order mark
// selects the decoding; otherwise input is taken as UTF-8. Records may have
// differing field counts and every field is trimmed.
func ReadCSV(r io.Reader) ([][]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, &errs.DocumentParseError{Part: "csv", Err: err}
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
}

// CSVToMarkdown renders CSV text as a table whose first record is the header.
func CSVToMarkdown(data []byte) (string, error) {
	rows, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return table.Render(rows), nil
}

// CSVConverter adapts CSVToMarkdown to the dispatcher.
type CSVConverter struct{}

// ToMarkdown implements the dispatcher's converter contract.
func (CSVConverter) ToMarkdown(_ context.Context, data []byte) (string, error) {
	return CSVToMarkdown(data)
}
