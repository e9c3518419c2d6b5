package engine

import (
	"strings"
	"time"

	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

// serverVersion is what version() reports. The suffix identifies the emulator
// to clients that sniff it.
const serverVersion = "8.0.36-sqlmimic"

func (ev *Evaluator) evalFunc(e *query.FuncCall, row schema.Row, group []schema.Row) (schema.Value, error) {
	name := strings.ToLower(e.Name)
	if query.IsAggregateName(name) {
		if group == nil {
			return nil, sqlerr.Evaluator(sqlerr.NumInvalidGroupFunc, "Invalid use of group function")
		}
		return ev.evalAggregate(name, e, group)
	}

	args := make([]schema.Value, len(e.Args))
	for i, argExpr := range e.Args {
		v, err := ev.Evaluate(argExpr, row, group)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch name {
	case "database", "schema":
		if cur := ev.eng.server.CurrentDatabase(); cur != "" {
			return cur, nil
		}
		return nil, nil
	case "version":
		return serverVersion, nil
	case "lower", "lcase":
		if len(args) != 1 || args[0] == nil {
			return nil, nil
		}
		return strings.ToLower(schema.FormatValue(args[0])), nil
	case "upper", "ucase":
		if len(args) != 1 || args[0] == nil {
			return nil, nil
		}
		return strings.ToUpper(schema.FormatValue(args[0])), nil
	case "length":
		if len(args) != 1 || args[0] == nil {
			return nil, nil
		}
		return int64(len(schema.FormatValue(args[0]))), nil
	case "concat":
		var b strings.Builder
		for _, a := range args {
			if a == nil {
				return nil, nil
			}
			b.WriteString(schema.FormatValue(a))
		}
		return b.String(), nil
	case "now", "current_timestamp":
		return time.Now().Format("2006-01-02 15:04:05"), nil
	default:
		return nil, sqlerr.Evaluator(sqlerr.NumUnknownFunc, "FUNCTION %s does not exist", e.Name)
	}
}

// evalAggregate folds one aggregate call over group, re-evaluating its
// argument per row.
func (ev *Evaluator) evalAggregate(name string, e *query.FuncCall, group []schema.Row) (schema.Value, error) {
	// count(*) and count(constant) count rows regardless of value.
	if name == "count" && countsRows(e) {
		if e.Distinct {
			return ev.countDistinctRows(e, group)
		}
		return int64(len(group)), nil
	}
	if len(e.Args) != 1 {
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "Aggregate %s expects one argument", name)
	}

	var values []schema.Value
	seen := make(map[string]bool)
	for _, groupRow := range group {
		v, err := ev.Evaluate(e.Args[0], groupRow, nil)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if e.Distinct {
			key := schema.FormatValue(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		values = append(values, v)
	}

	switch name {
	case "count":
		return int64(len(values)), nil
	case "sum", "avg":
		if len(values) == 0 {
			return nil, nil
		}
		total := float64(0)
		for _, v := range values {
			n, _ := schema.ToNumber(v)
			total += n
		}
		if name == "avg" {
			return total / float64(len(values)), nil
		}
		return total, nil
	case "min", "max":
		if len(values) == 0 {
			return nil, nil
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp := compareValues(v, best)
			if (name == "min" && cmp < 0) || (name == "max" && cmp > 0) {
				best = v
			}
		}
		return best, nil
	default:
		return nil, sqlerr.Evaluator(sqlerr.NumUnknownFunc, "FUNCTION %s does not exist", name)
	}
}

// countsRows reports whether e is count(*) or count(<constant>), which count
// group size rather than non-null evaluations.
func countsRows(e *query.FuncCall) bool {
	if len(e.Args) == 0 {
		return true
	}
	if len(e.Args) != 1 {
		return false
	}
	switch arg := e.Args[0].(type) {
	case *query.Star:
		return true
	case *query.Literal:
		return arg.Value != nil
	default:
		return false
	}
}

func (ev *Evaluator) countDistinctRows(e *query.FuncCall, group []schema.Row) (schema.Value, error) {
	seen := make(map[string]bool)
	for _, groupRow := range group {
		var parts []string
		for _, key := range ev.scope {
			parts = append(parts, schema.FormatValue(groupRow[key]))
		}
		seen[strings.Join(parts, "::")] = true
	}
	return int64(len(seen)), nil
}
