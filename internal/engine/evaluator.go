// Package engine executes typed queries against a schema.Server: a recursive
// expression evaluator, the six-stage SELECT pipeline, and the INSERT
// processor.
package engine

import (
	"strings"

	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

// Evaluator interprets expressions over a row and an optional row group.
// It is stateless with respect to rows; it holds the server (for sub-queries
// and database()), the scope list of visible qualified keys, and an optional
// outer row used for correlated sub-query lookups.
type Evaluator struct {
	eng        *Engine
	scope      []string
	outer      schema.Row
	outerScope []string
}

func newEvaluator(eng *Engine, scope []string, outer schema.Row, outerScope []string) *Evaluator {
	return &Evaluator{eng: eng, scope: scope, outer: outer, outerScope: outerScope}
}

// Evaluate computes expr against row. Aggregate functions fold over group,
// which must be non-nil wherever an aggregate may legally appear.
func (ev *Evaluator) Evaluate(expr query.Expression, row schema.Row, group []schema.Row) (schema.Value, error) {
	switch e := expr.(type) {
	case *query.Literal:
		return e.Value, nil
	case *query.Default:
		return schema.DefaultMarker, nil
	case *query.ColumnRef:
		return ev.resolveColumn(e, row)
	case *query.Star:
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "Unexpected '*' outside of select list")
	case *query.Array:
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "Unexpected expression list outside of IN")
	case *query.BinaryExpr:
		return ev.evalBinary(e, row, group)
	case *query.NotExpr:
		v, err := ev.Evaluate(e.Expr, row, group)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		return !schema.IsTruthy(v), nil
	case *query.FuncCall:
		return ev.evalFunc(e, row, group)
	case *query.CaseExpr:
		return ev.evalCase(e, row, group)
	case *query.Subquery:
		return ev.evalSubquery(e, row)
	default:
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "Unsupported expression")
	}
}

// EvaluateStar expands a star expression against row, returning output
// column names (bare, in scope order) with their values. Alias-scope
// entries are never part of a star expansion.
func (ev *Evaluator) EvaluateStar(star *query.Star, row schema.Row) ([]string, []schema.Value, error) {
	var names []string
	var values []schema.Value
	for _, key := range ev.scope {
		qualifier, col := schema.SplitKey(key)
		if qualifier == "" {
			continue
		}
		if star.Table != "" && !strings.EqualFold(star.Table, qualifier) {
			continue
		}
		names = append(names, col)
		values = append(values, row[key])
	}
	if star.Table != "" && len(names) == 0 {
		return nil, nil, sqlerr.Evaluator(sqlerr.NumBadField, "Unknown column '%s.*'", star.Table)
	}
	return names, values, nil
}

// StarNames returns the output names a star expansion produces, without
// touching row data.
func (ev *Evaluator) StarNames(star *query.Star) []string {
	var names []string
	for _, key := range ev.scope {
		qualifier, col := schema.SplitKey(key)
		if qualifier == "" {
			continue
		}
		if star.Table != "" && !strings.EqualFold(star.Table, qualifier) {
			continue
		}
		names = append(names, col)
	}
	return names
}

// resolveColumn looks up ref against row following the scope rules:
// the qualified key first, the alias scope next, and a unique bare-name
// match across sources last. Local failure falls through to the outer
// context before raising an unknown-column error.
func (ev *Evaluator) resolveColumn(ref *query.ColumnRef, row schema.Row) (schema.Value, error) {
	if v, ok, err := lookupColumn(ref, row, ev.scope); err != nil || ok {
		return v, err
	}
	if ev.outer != nil {
		if v, ok, err := lookupColumn(ref, ev.outer, ev.outerScope); err != nil || ok {
			return v, err
		}
	}
	name := ref.Column
	if ref.Table != "" {
		name = ref.Table + "." + ref.Column
	}
	return nil, sqlerr.Evaluator(sqlerr.NumBadField, "Unknown column '%s'", name)
}

func lookupColumn(ref *query.ColumnRef, row schema.Row, scope []string) (schema.Value, bool, error) {
	key := schema.QualifiedKey(ref.Table, ref.Column)
	if scopeHas(scope, key) {
		return row[key], true, nil
	}
	if ref.Table != "" {
		return nil, false, nil
	}
	var match string
	found := 0
	for _, entry := range scope {
		qualifier, col := schema.SplitKey(entry)
		if qualifier == "" || !strings.EqualFold(col, ref.Column) {
			continue
		}
		found++
		match = entry
	}
	switch found {
	case 0:
		return nil, false, nil
	case 1:
		return row[match], true, nil
	default:
		return nil, false, sqlerr.Evaluator(sqlerr.NumNonUniq,
			"Column '%s' in field list is ambiguous", ref.Column)
	}
}

func scopeHas(scope []string, key string) bool {
	for _, entry := range scope {
		if strings.EqualFold(entry, key) {
			return true
		}
	}
	return false
}

func (ev *Evaluator) evalBinary(e *query.BinaryExpr, row schema.Row, group []schema.Row) (schema.Value, error) {
	switch e.Op {
	case query.OpAnd, query.OpOr:
		return ev.evalLogic(e, row, group)
	case query.OpIn:
		return ev.evalIn(e, row, group)
	case query.OpIs, query.OpIsNot:
		return ev.evalIs(e, row, group)
	}
	left, err := ev.Evaluate(e.Left, row, group)
	if err != nil {
		return nil, err
	}
	right, err := ev.Evaluate(e.Right, row, group)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case query.OpEQ, query.OpNE, query.OpLT, query.OpLE, query.OpGT, query.OpGE:
		if left == nil || right == nil {
			return nil, nil
		}
		cmp := compareValues(left, right)
		switch e.Op {
		case query.OpEQ:
			return cmp == 0, nil
		case query.OpNE:
			return cmp != 0, nil
		case query.OpLT:
			return cmp < 0, nil
		case query.OpLE:
			return cmp <= 0, nil
		case query.OpGT:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case query.OpAdd, query.OpSub, query.OpMul, query.OpDiv:
		return evalArithmetic(e.Op, left, right)
	case query.OpLike:
		if left == nil || right == nil {
			return nil, nil
		}
		return matchLike(schema.FormatValue(left), schema.FormatValue(right)), nil
	default:
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "Unknown operator '%s'", e.Op)
	}
}

// evalLogic applies MySQL three-valued AND/OR.
func (ev *Evaluator) evalLogic(e *query.BinaryExpr, row schema.Row, group []schema.Row) (schema.Value, error) {
	left, err := ev.Evaluate(e.Left, row, group)
	if err != nil {
		return nil, err
	}
	right, err := ev.Evaluate(e.Right, row, group)
	if err != nil {
		return nil, err
	}
	lNull := left == nil
	rNull := right == nil
	lTrue := !lNull && schema.IsTruthy(left)
	rTrue := !rNull && schema.IsTruthy(right)
	if e.Op == query.OpAnd {
		if (!lNull && !lTrue) || (!rNull && !rTrue) {
			return false, nil
		}
		if lNull || rNull {
			return nil, nil
		}
		return true, nil
	}
	if lTrue || rTrue {
		return true, nil
	}
	if lNull || rNull {
		return nil, nil
	}
	return false, nil
}

// evalIn implements `left IN (v1, v2, ...)` with null propagation: a NULL
// needle, or a miss against a list containing NULL, yields NULL.
func (ev *Evaluator) evalIn(e *query.BinaryExpr, row schema.Row, group []schema.Row) (schema.Value, error) {
	arr, ok := e.Right.(*query.Array)
	if !ok {
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "IN expects an expression list")
	}
	left, err := ev.Evaluate(e.Left, row, group)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return nil, nil
	}
	sawNull := false
	for _, member := range arr.Values {
		v, err := ev.Evaluate(member, row, group)
		if err != nil {
			return nil, err
		}
		if v == nil {
			sawNull = true
			continue
		}
		if compareValues(left, v) == 0 {
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return false, nil
}

// evalIs implements IS / IS NOT against NULL and boolean literals. The
// result is always a definite boolean.
func (ev *Evaluator) evalIs(e *query.BinaryExpr, row schema.Row, group []schema.Row) (schema.Value, error) {
	left, err := ev.Evaluate(e.Left, row, group)
	if err != nil {
		return nil, err
	}
	right, err := ev.Evaluate(e.Right, row, group)
	if err != nil {
		return nil, err
	}
	var match bool
	switch rv := right.(type) {
	case nil:
		match = left == nil
	case bool:
		match = left != nil && schema.IsTruthy(left) == rv
	default:
		return nil, sqlerr.Evaluator(sqlerr.NumParse, "IS expects NULL or a boolean")
	}
	if e.Op == query.OpIsNot {
		return !match, nil
	}
	return match, nil
}

func evalArithmetic(op string, left, right schema.Value) (schema.Value, error) {
	if left == nil || right == nil {
		return nil, nil
	}
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt && op != query.OpDiv {
		switch op {
		case query.OpAdd:
			return li + ri, nil
		case query.OpSub:
			return li - ri, nil
		default:
			return li * ri, nil
		}
	}
	lf, _ := schema.ToNumber(left)
	rf, _ := schema.ToNumber(right)
	switch op {
	case query.OpAdd:
		return lf + rf, nil
	case query.OpSub:
		return lf - rf, nil
	case query.OpMul:
		return lf * rf, nil
	default:
		if rf == 0 {
			return nil, sqlerr.Evaluator(sqlerr.NumDivisionByZero, "Division by 0")
		}
		return lf / rf, nil
	}
}

func (ev *Evaluator) evalCase(e *query.CaseExpr, row schema.Row, group []schema.Row) (schema.Value, error) {
	for _, when := range e.Whens {
		cond, err := ev.Evaluate(when.Cond, row, group)
		if err != nil {
			return nil, err
		}
		if cond != nil && schema.IsTruthy(cond) {
			return ev.Evaluate(when.Result, row, group)
		}
	}
	if e.Else != nil {
		return ev.Evaluate(e.Else, row, group)
	}
	return nil, nil
}

// evalSubquery runs a scalar sub-select with the current row as outer
// context and returns the first column of its first row.
func (ev *Evaluator) evalSubquery(e *query.Subquery, row schema.Row) (schema.Value, error) {
	res, err := ev.eng.runSelect(e.Query, row, ev.scope)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) > 1 {
		return nil, sqlerr.Evaluator(sqlerr.NumSubqueryRows, "Subquery returns more than 1 row")
	}
	if len(res.Rows) == 0 || len(res.Columns) == 0 {
		return nil, nil
	}
	return res.Rows[0][res.Columns[0]], nil
}

// matchLike implements MySQL LIKE: % matches any run, _ matches one
// character, backslash escapes the next pattern character.
func matchLike(s, pattern string) bool {
	return likeMatch(s, pattern, 0, 0)
}

func likeMatch(s, p string, si, pi int) bool {
	for pi < len(p) {
		switch p[pi] {
		case '%':
			// Collapse consecutive wildcards, then try every suffix.
			for pi < len(p) && p[pi] == '%' {
				pi++
			}
			if pi == len(p) {
				return true
			}
			for i := si; i <= len(s); i++ {
				if likeMatch(s, p, i, pi) {
					return true
				}
			}
			return false
		case '_':
			if si >= len(s) {
				return false
			}
			si++
			pi++
		case '\\':
			pi++
			if pi >= len(p) {
				return false
			}
			fallthrough
		default:
			if si >= len(s) || !equalFoldByte(s[si], p[pi]) {
				return false
			}
			si++
			pi++
		}
	}
	return si == len(s)
}

func equalFoldByte(a, b byte) bool {
	if a == b {
		return true
	}
	if 'A' <= a && a <= 'Z' {
		a += 'a' - 'A'
	}
	if 'A' <= b && b <= 'Z' {
		b += 'a' - 'A'
	}
	return a == b
}
