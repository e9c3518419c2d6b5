package output

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlmimic/internal/engine"
	"sqlmimic/internal/schema"
)

func rowsResult() *engine.Result {
	return &engine.Result{
		HasRows: true,
		Columns: []string{"id", "name"},
		Rows: []schema.Row{
			{"id": int64(1), "name": "a"},
			{"id": int64(2), "name": nil},
		},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "table", "json", "csv", " JSON "} {
		f, err := NewFormatter(name)
		require.NoError(t, err, name)
		require.NotNil(t, f)
	}
	_, err := NewFormatter("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestTableFormat(t *testing.T) {
	f, err := NewFormatter("table")
	require.NoError(t, err)

	out, err := f.FormatResult(rowsResult())
	require.NoError(t, err)
	assert.Contains(t, out, "| id | name |")
	assert.Contains(t, out, "| 1  | a    |")
	assert.Contains(t, out, "| 2  | NULL |")
	assert.Contains(t, out, "2 rows in set")
}

func TestTableFormatExecSummary(t *testing.T) {
	f, err := NewFormatter("table")
	require.NoError(t, err)

	out, err := f.FormatResult(&engine.Result{AffectedRows: 3})
	require.NoError(t, err)
	assert.Equal(t, "Query OK, 3 rows affected\n", out)
}

func TestJSONFormat(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)

	out, err := f.FormatResult(rowsResult())
	require.NoError(t, err)

	var payload struct {
		Format  string                   `json:"format"`
		Columns []string                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "json", payload.Format)
	assert.Equal(t, []string{"id", "name"}, payload.Columns)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "a", payload.Rows[0]["name"])
}

func TestJSONFormatExecSummary(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)

	out, err := f.FormatResult(&engine.Result{AffectedRows: 2, InsertID: 7})
	require.NoError(t, err)

	var payload struct {
		AffectedRows int64 `json:"affectedRows"`
		InsertID     int64 `json:"insertId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, int64(2), payload.AffectedRows)
	assert.Equal(t, int64(7), payload.InsertID)
}

func TestCSVFormat(t *testing.T) {
	f, err := NewFormatter("csv")
	require.NoError(t, err)

	out, err := f.FormatResult(rowsResult())
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,a\n2,NULL\n", out)
}
