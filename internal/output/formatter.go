// Package output provides a set of formatters for statement results.
// It is extendable and for now provides three formats: table, JSON, and CSV.
package output

import (
	"fmt"
	"strings"

	"sqlmimic/internal/engine"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Formatter renders one statement result as text.
type Formatter interface {
	FormatResult(*engine.Result) (string, error)
}

// NewFormatter creates a Formatter instance based on the given name.
// If no format is specified, defaults to the table format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatTable:
		return tableFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatCSV:
		return csvFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'table', 'json', or 'csv'", name)
	}
}
