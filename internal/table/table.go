// Package table renders rows of cell strings as a Markdown pipe table.
package table

import "strings"

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// Render formats rows as a Markdown table. The first row is the header and
// the separator row has one column per header cell. Later rows are written
// with whatever cell count they carry; they are neither padded nor truncated.
// An empty grid renders to the empty string.
func Render(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow(&b, rows[0])

	b.WriteByte('|')
	for range rows[0] {
		b.WriteString("---|")
	}
	b.WriteByte('\n')

	for _, row := range rows[1:] {
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, row []string) {
	b.WriteByte('|')
	for _, cell := range row {
		b.WriteByte(' ')
		b.WriteString(cellReplacer.Replace(cell))
		b.WriteString(" |")
	}
	b.WriteByte('\n')
}
