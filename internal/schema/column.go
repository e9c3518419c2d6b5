package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"sqlmimic/internal/query"
	"sqlmimic/internal/sqlerr"
)

// ColumnKind tags the type variant of a column. Behavior differences are
// dispatched on the tag rather than through an interface hierarchy.
type ColumnKind string

const (
	KindInt      ColumnKind = "int"
	KindVarchar  ColumnKind = "varchar"
	KindFloat    ColumnKind = "float"
	KindBoolean  ColumnKind = "boolean"
	KindDatetime ColumnKind = "datetime"
)

// Column is a table column definition with its cast rules.
type Column struct {
	name     string
	kind     ColumnKind
	nullable bool
	dflt     query.Expression

	// integer variant
	bytes         int // storage width: 1, 2, 3, 4, or 8
	unsigned      bool
	autoIncrement bool

	// varchar variant
	maxLen int
}

// NewColumn builds a column from a parsed definition. Unknown type names fall
// back to varchar semantics, matching MySQL's treatment of text-like types.
func NewColumn(def query.ColumnDef) *Column {
	c := &Column{
		name:     def.Name,
		nullable: def.Nullable,
		dflt:     def.Default,
	}
	switch ColumnKind(def.Type) {
	case KindInt:
		c.kind = KindInt
		c.bytes = def.Length
		if c.bytes == 0 {
			c.bytes = 4
		}
		c.unsigned = def.Unsigned
		c.autoIncrement = def.AutoIncrement
	case KindFloat:
		c.kind = KindFloat
	case KindBoolean:
		c.kind = KindBoolean
	case KindDatetime:
		c.kind = KindDatetime
	default:
		c.kind = KindVarchar
		c.maxLen = def.Length
		if c.maxLen == 0 {
			c.maxLen = 255
		}
	}
	return c
}

func (c *Column) Name() string     { return c.name }
func (c *Column) Kind() ColumnKind { return c.kind }
func (c *Column) IsNullable() bool { return c.nullable }

// DefaultValueExpression returns the declared DEFAULT expression, or nil.
func (c *Column) DefaultValueExpression() query.Expression { return c.dflt }

// HasAutoIncrement reports whether this is an auto-increment integer column.
func (c *Column) HasAutoIncrement() bool {
	return c.kind == KindInt && c.autoIncrement
}

// intRange returns the inclusive range for the integer variant. Unsigned
// BIGINT is capped at the int64 maximum the runtime value type can carry.
func (c *Column) intRange() (min, max int64) {
	if c.unsigned {
		if c.bytes >= 8 {
			return 0, math.MaxInt64
		}
		return 0, (int64(1) << (8 * c.bytes)) - 1
	}
	if c.bytes >= 8 {
		return math.MinInt64, math.MaxInt64
	}
	half := int64(1) << (8*c.bytes - 1)
	return -half, half - 1
}

// Cast coerces v into this column's value domain, or returns a coded error.
// NULL handling: nil passes iff the column is nullable.
func (c *Column) Cast(v Value) (Value, error) {
	if v == nil {
		if c.nullable {
			return nil, nil
		}
		return nil, sqlerr.Cast(sqlerr.CodeBadNull, sqlerr.NumBadNull,
			"Column '%s' cannot be null", c.name)
	}
	switch c.kind {
	case KindInt:
		return c.castInt(v)
	case KindFloat:
		return c.castFloat(v)
	case KindBoolean:
		return c.castBoolean(v)
	case KindDatetime:
		return c.castDatetime(v)
	default:
		return c.castVarchar(v)
	}
}

func (c *Column) castInt(v Value) (Value, error) {
	var n int64
	switch val := v.(type) {
	case int64:
		n = val
	case bool:
		if val {
			n = 1
		}
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, c.incorrectInt(v)
		}
		n = int64(math.Round(val))
	case string:
		s := strings.TrimSpace(val)
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, c.incorrectInt(v)
			}
			parsed = int64(math.Round(f))
		}
		n = parsed
	default:
		return nil, c.incorrectInt(v)
	}
	min, max := c.intRange()
	if n < min || n > max {
		return nil, sqlerr.Cast(sqlerr.CodeOutOfRange, sqlerr.NumOutOfRange,
			"Out of range value for column '%s'", c.name)
	}
	return n, nil
}

func (c *Column) incorrectInt(v Value) error {
	return sqlerr.Cast(sqlerr.CodeIncorrectInteger, sqlerr.NumIncorrectValue,
		"Incorrect integer value: '%s' for column '%s'", FormatValue(v), c.name)
}

func (c *Column) castFloat(v Value) (Value, error) {
	switch val := v.(type) {
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case bool:
		if val {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, sqlerr.Cast(sqlerr.CodeIncorrectInteger, sqlerr.NumIncorrectValue,
				"Incorrect double value: '%s' for column '%s'", val, c.name)
		}
		return f, nil
	default:
		return nil, sqlerr.Cast(sqlerr.CodeIncorrectInteger, sqlerr.NumIncorrectValue,
			"Incorrect double value: '%s' for column '%s'", FormatValue(v), c.name)
	}
}

func (c *Column) castBoolean(v Value) (Value, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, c.incorrectInt(v)
		}
		return f != 0, nil
	default:
		return nil, c.incorrectInt(v)
	}
}

func (c *Column) castVarchar(v Value) (Value, error) {
	s := FormatValue(v)
	if len(s) > c.maxLen {
		return nil, sqlerr.Cast(sqlerr.CodeOutOfRange, sqlerr.NumDataTooLong,
			"Data too long for column '%s'", c.name)
	}
	return s, nil
}

// datetimeLayouts are the accepted textual datetime forms, tried in order.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01-02 15:04",
}

const datetimeOutput = "2006-01-02 15:04:05"

func (c *Column) castDatetime(v Value) (Value, error) {
	switch val := v.(type) {
	case string:
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(val)); err == nil {
				return t.Format(datetimeOutput), nil
			}
		}
	case int64:
		// Compact numeric forms: YYYYMMDD and YYYYMMDDHHMMSS.
		s := strconv.FormatInt(val, 10)
		if t, err := time.Parse("20060102", s); err == nil {
			return t.Format(datetimeOutput), nil
		}
		if t, err := time.Parse("20060102150405", s); err == nil {
			return t.Format(datetimeOutput), nil
		}
	case time.Time:
		return val.Format(datetimeOutput), nil
	}
	return nil, sqlerr.Cast(sqlerr.CodeIncorrectDatetime, sqlerr.NumTruncatedWrong,
		"Incorrect datetime value: '%s' for column '%s'", FormatValue(v), c.name)
}
