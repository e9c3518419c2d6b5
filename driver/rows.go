package driver

import (
	"database/sql/driver"
	"fmt"
	"io"

	"sqlmimic"
)

// Rows implements driver.Rows over an in-memory result.
type Rows struct {
	result *sqlmimic.Result
	pos    int
}

// Columns returns the output column names in declared order.
func (r *Rows) Columns() []string {
	if r.result == nil {
		return nil
	}
	return r.result.Columns
}

// Close is a no-op; the result is already fully materialized.
func (r *Rows) Close() error {
	return nil
}

// Next populates dest with the values of the next row, or returns io.EOF.
func (r *Rows) Next(dest []driver.Value) error {
	if r.result == nil || r.pos >= len(r.result.Rows) {
		return io.EOF
	}
	row := r.result.Rows[r.pos]
	r.pos++
	for i, col := range r.result.Columns {
		if i >= len(dest) {
			break
		}
		v, err := toDriverValue(row[col])
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

func toDriverValue(v interface{}) (driver.Value, error) {
	switch val := v.(type) {
	case nil, bool, int64, float64, string:
		return val, nil
	default:
		return nil, fmt.Errorf("sqlmimic: unsupported value type %T", v)
	}
}

var _ driver.Rows = &Rows{}
