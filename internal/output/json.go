package output

import (
	"encoding/json"

	"sqlmimic/internal/engine"
)

type jsonFormatter struct{}

type rowsPayload struct {
	Format  string                   `json:"format"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

type execPayload struct {
	Format       string `json:"format"`
	AffectedRows int64  `json:"affectedRows"`
	InsertID     int64  `json:"insertId"`
}

func (jsonFormatter) FormatResult(res *engine.Result) (string, error) {
	if res == nil {
		return "", nil
	}
	if !res.HasRows {
		return marshalJSON(execPayload{
			Format:       string(FormatJSON),
			AffectedRows: res.AffectedRows,
			InsertID:     res.InsertID,
		})
	}
	payload := rowsPayload{
		Format:  string(FormatJSON),
		Columns: res.Columns,
		Rows:    make([]map[string]interface{}, len(res.Rows)),
	}
	for i, row := range res.Rows {
		payload.Rows[i] = row
	}
	return marshalJSON(payload)
}

func marshalJSON(payload interface{}) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
