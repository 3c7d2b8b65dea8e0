package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/zh1zunbao/makritup/internal/errs"
)

// Workbook is a multi-sheet row source.
type Workbook interface {
	// SheetNames lists the sheets in workbook order.
	SheetNames() []string
	// EachRow calls fn with the stringified cells of every row of sheet.
	EachRow(sheet string, fn func(cells []string) error) error
}

// XLSXWorkbook reads spreadsheets through tealeg/xlsx.
type XLSXWorkbook struct {
	file   *xlsx.File
	sheets map[string]*xlsx.Sheet
}

// OpenXLSX parses spreadsheet bytes.
func OpenXLSX(data []byte) (*XLSXWorkbook, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, &errs.ContainerError{Op: "open", Err: fmt.Errorf("spreadsheet: %w", err)}
	}
	wb := &XLSXWorkbook{file: f, sheets: make(map[string]*xlsx.Sheet, len(f.Sheets))}
	for _, sh := range f.Sheets {
		wb.sheets[sh.Name] = sh
	}
	return wb, nil
}

// SheetNames implements Workbook.
func (wb *XLSXWorkbook) SheetNames() []string {
	names := make([]string, 0, len(wb.file.Sheets))
	for _, sh := range wb.file.Sheets {
		names = append(names, sh.Name)
	}
	return names
}

// EachRow implements Workbook. Cells use their display format when it can
// be applied and the raw value otherwise.
func (wb *XLSXWorkbook) EachRow(sheet string, fn func(cells []string) error) error {
	sh, ok := wb.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	return sh.ForEachRow(func(r *xlsx.Row) error {
		var cells []string
		err := r.ForEachCell(func(c *xlsx.Cell) error {
			v, err := c.FormattedValue()
			if err != nil {
				v = c.Value
			}
			cells = append(cells, v)
			return nil
		})
		if err != nil {
			return err
		}
		return fn(cells)
	})
}

// SheetCSV serializes one sheet as CSV.
func SheetCSV(wb Workbook, sheet string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	err := wb.EachRow(sheet, func(cells []string) error {
		return w.Write(cells)
	})
	if err != nil {
		return nil, &errs.DocumentParseError{Part: "sheet " + sheet, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WorkbookToMarkdown renders each sheet as a "## <name>" section holding
// its table. Sheets go through CSV so they share the CSV rendering rules.
func WorkbookToMarkdown(wb Workbook) (string, error) {
	var sections []string
	for _, name := range wb.SheetNames() {
		data, err := SheetCSV(wb, name)
		if err != nil {
			return "", err
		}
		md, err := CSVToMarkdown(data)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", name, err)
		}
		section := "## " + name + "\n"
		if md != "" {
			section += "\n" + md
		}
		sections = append(sections, section)
	}
	return strings.Join(sections, "\n"), nil
}

// XLSXConverter converts spreadsheet bytes.
type XLSXConverter struct{}

// ToMarkdown implements the dispatcher's converter contract.
func (XLSXConverter) ToMarkdown(_ context.Context, data []byte) (string, error) {
	wb, err := OpenXLSX(data)
	if err != nil {
		return "", err
	}
	return WorkbookToMarkdown(wb)
}
