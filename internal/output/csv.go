package output

import (
	"encoding/csv"
	"fmt"
	"strings"

	"sqlmimic/internal/engine"
	"sqlmimic/internal/schema"
)

type csvFormatter struct{}

func (csvFormatter) FormatResult(res *engine.Result) (string, error) {
	if res == nil {
		return "", nil
	}
	if !res.HasRows {
		return fmt.Sprintf("affected_rows,insert_id\n%d,%d\n", res.AffectedRows, res.InsertID), nil
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(res.Columns); err != nil {
		return "", err
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			record[i] = schema.FormatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}
