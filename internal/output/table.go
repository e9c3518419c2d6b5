package output

import (
	"fmt"
	"strings"

	"sqlmimic/internal/engine"
	"sqlmimic/internal/schema"
)

// tableFormatter renders results the way the mysql client does: an ASCII
// grid for row sets, a one-line summary for everything else.
type tableFormatter struct{}

func (tableFormatter) FormatResult(res *engine.Result) (string, error) {
	if res == nil {
		return "", nil
	}
	if !res.HasRows {
		return fmt.Sprintf("Query OK, %d rows affected\n", res.AffectedRows), nil
	}
	if len(res.Columns) == 0 {
		return "Empty set\n", nil
	}

	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells[r] = make([]string, len(res.Columns))
		for i, col := range res.Columns {
			cell := schema.FormatValue(row[col])
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeSeparator(&b, widths)
	writeRow(&b, res.Columns, widths)
	writeSeparator(&b, widths)
	for _, row := range cells {
		writeRow(&b, row, widths)
	}
	if len(cells) > 0 {
		writeSeparator(&b, widths)
	}
	fmt.Fprintf(&b, "%d rows in set\n", len(cells))
	return b.String(), nil
}

func writeSeparator(b *strings.Builder, widths []int) {
	for _, w := range widths {
		b.WriteByte('+')
		b.WriteString(strings.Repeat("-", w+2))
	}
	b.WriteString("+\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		fmt.Fprintf(b, "| %-*s ", widths[i], cell)
	}
	b.WriteString("|\n")
}
