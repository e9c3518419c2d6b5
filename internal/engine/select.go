package engine

import (
	"sort"
	"strings"

	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

// selectRun drives one SELECT through its six stages. Rows flowing between
// stages are keyed "label::col"; each stage reads rows (or grouped) and
// writes a fresh sequence back.
type selectRun struct {
	eng   *Engine
	q     *query.SelectQuery
	ev    *Evaluator
	scope []string

	rows        []schema.Row
	grouped     [][]schema.Row
	groupedMode bool
}

// runSelect executes q. outer/outerScope carry the enclosing row for
// correlated sub-queries; both are nil at the top level.
func (e *Engine) runSelect(q *query.SelectQuery, outer schema.Row, outerScope []string) (*Result, error) {
	run := &selectRun{eng: e, q: q}
	run.ev = newEvaluator(e, nil, outer, outerScope)

	if err := run.applyFrom(); err != nil {
		return nil, err
	}
	if err := run.applyWhere(); err != nil {
		return nil, err
	}
	if err := run.applyGroupBy(); err != nil {
		return nil, err
	}
	if err := run.applyOrderBy(); err != nil {
		return nil, err
	}
	out, names, err := run.applySelectAndHaving()
	if err != nil {
		return nil, err
	}
	out = run.applyLimit(out)
	return &Result{Columns: names, Rows: out, HasRows: true, AffectedRows: int64(len(out))}, nil
}

func (run *selectRun) growScope(keys ...string) {
	run.scope = append(run.scope, keys...)
	run.ev.scope = run.scope
}

// applyFrom builds the joined row sequence. Each source's rows are re-keyed
// under its label (alias when aliased, table name otherwise), the scope list
// grows by the source's columns, and sources after the first combine by
// their declared join kind.
func (run *selectRun) applyFrom() error {
	for i, from := range run.q.From {
		label := from.Label()
		for _, key := range run.scope {
			qualifier, _ := schema.SplitKey(key)
			if strings.EqualFold(qualifier, label) {
				return sqlerr.Processor(sqlerr.NumNonUniqTable, "Not unique table/alias: '%s'", label)
			}
		}

		sourceRows, sourceCols, err := run.sourceRows(from, label)
		if err != nil {
			return err
		}

		keys := make([]string, len(sourceCols))
		for j, col := range sourceCols {
			keys[j] = schema.QualifiedKey(label, col)
		}
		run.growScope(keys...)

		if i == 0 {
			run.rows = sourceRows
			continue
		}

		switch from.Join {
		case query.JoinNone, query.JoinCross, query.JoinInner:
			joined, err := run.innerJoin(sourceRows, from.On)
			if err != nil {
				return err
			}
			run.rows = joined
		case query.JoinLeft:
			joined, err := run.leftJoin(sourceRows, keys, from.On)
			if err != nil {
				return err
			}
			run.rows = joined
		default:
			return sqlerr.Processor(sqlerr.NumParse, "Unknown join kind '%s'", from.Join)
		}
	}
	return nil
}

// sourceRows materializes one FROM source as rows keyed "label::col" plus
// the bare column names in declaration order.
func (run *selectRun) sourceRows(from *query.From, label string) ([]schema.Row, []string, error) {
	if from.Subquery != nil {
		if from.Alias == "" {
			return nil, nil, sqlerr.SubQuery("Every derived table must have its own alias")
		}
		res, err := run.eng.runSelect(from.Subquery, nil, nil)
		if err != nil {
			return nil, nil, err
		}
		rows := make([]schema.Row, len(res.Rows))
		for i, src := range res.Rows {
			row := make(schema.Row, len(src))
			for _, col := range res.Columns {
				row[schema.QualifiedKey(label, col)] = src[col]
			}
			rows[i] = row
		}
		return rows, res.Columns, nil
	}

	db, err := run.eng.server.GetDatabase(from.Database)
	if err != nil {
		return nil, nil, err
	}
	table, err := db.GetTable(from.Table)
	if err != nil {
		return nil, nil, err
	}
	cols := make([]string, len(table.Columns()))
	for i, c := range table.Columns() {
		cols[i] = c.Name()
	}
	rows := make([]schema.Row, len(table.Rows()))
	for i, src := range table.Rows() {
		row := make(schema.Row, len(cols))
		for _, col := range cols {
			row[schema.QualifiedKey(label, col)] = src[col]
		}
		rows[i] = row
	}
	return rows, cols, nil
}

func mergeRows(left, right schema.Row) schema.Row {
	out := make(schema.Row, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}
	return out
}

// innerJoin combines the accumulated rows with the new source as a Cartesian
// product, filtered by on when present. Comma and CROSS JOIN sources arrive
// here with a nil on.
func (run *selectRun) innerJoin(right []schema.Row, on query.Expression) ([]schema.Row, error) {
	out := make([]schema.Row, 0, len(run.rows))
	for _, l := range run.rows {
		for _, r := range right {
			merged := mergeRows(l, r)
			if on != nil {
				v, err := run.ev.Evaluate(on, merged, nil)
				if err != nil {
					return nil, sqlerr.InClause(err, "on clause")
				}
				if v == nil || !schema.IsTruthy(v) {
					continue
				}
			}
			out = append(out, merged)
		}
	}
	return out, nil
}

// leftJoin emits every left row; when no right row matches, the right-side
// keys are filled with a null placeholder.
func (run *selectRun) leftJoin(right []schema.Row, rightKeys []string, on query.Expression) ([]schema.Row, error) {
	out := make([]schema.Row, 0, len(run.rows))
	for _, l := range run.rows {
		matched := false
		for _, r := range right {
			merged := mergeRows(l, r)
			if on != nil {
				v, err := run.ev.Evaluate(on, merged, nil)
				if err != nil {
					return nil, sqlerr.InClause(err, "on clause")
				}
				if v == nil || !schema.IsTruthy(v) {
					continue
				}
			}
			out = append(out, merged)
			matched = true
		}
		if !matched {
			padded := make(schema.Row, len(l)+len(rightKeys))
			for k, v := range l {
				padded[k] = v
			}
			for _, k := range rightKeys {
				padded[k] = nil
			}
			out = append(out, padded)
		}
	}
	return out, nil
}

func (run *selectRun) applyWhere() error {
	if run.q.Where == nil {
		return nil
	}
	kept := make([]schema.Row, 0, len(run.rows))
	for _, row := range run.rows {
		v, err := run.ev.Evaluate(run.q.Where, row, nil)
		if err != nil {
			return sqlerr.InClause(err, "where clause")
		}
		if v != nil && schema.IsTruthy(v) {
			kept = append(kept, row)
		}
	}
	run.rows = kept
	return nil
}

// applyGroupBy populates grouped when GROUP BY fires or an aggregate in the
// SELECT list forces single-group mode.
func (run *selectRun) applyGroupBy() error {
	if len(run.q.GroupBy) == 0 {
		anyAggregate := false
		for _, col := range run.q.Columns {
			if query.HasAggregate(col.Expr) {
				anyAggregate = true
				break
			}
		}
		if !anyAggregate {
			return nil
		}
		for i, col := range run.q.Columns {
			if query.HasAggregate(col.Expr) {
				continue
			}
			refs := query.NonAggregatedColumns(col.Expr)
			if len(refs) > 0 {
				return sqlerr.Processor(sqlerr.NumMixOfGroupFunc,
					"In aggregated query without GROUP BY, expression #%d of SELECT list contains nonaggregated column '%s'",
					i+1, refs[0].Column)
			}
		}
		run.grouped = [][]schema.Row{run.rows}
		run.groupedMode = true
		return nil
	}

	index := make(map[string]int)
	var grouped [][]schema.Row
	for _, row := range run.rows {
		parts := make([]string, len(run.q.GroupBy))
		for i, ref := range run.q.GroupBy {
			v, err := run.ev.Evaluate(ref, row, nil)
			if err != nil {
				return sqlerr.InClause(err, "group statement")
			}
			parts[i] = schema.FormatValue(v)
		}
		key := strings.Join(parts, "::")
		if at, ok := index[key]; ok {
			grouped[at] = append(grouped[at], row)
		} else {
			index[key] = len(grouped)
			grouped = append(grouped, []schema.Row{row})
		}
	}
	run.grouped = grouped
	run.groupedMode = true
	return nil
}

// applyOrderBy sorts the source rows (or groups, by their first row) by the
// declared comparator chain: type-aware comparison, nulls first under ASC.
func (run *selectRun) applyOrderBy() error {
	if len(run.q.OrderBy) == 0 {
		return nil
	}

	representative := func(i int) schema.Row {
		if run.groupedMode {
			if len(run.grouped[i]) == 0 {
				return schema.Row{}
			}
			return run.grouped[i][0]
		}
		return run.rows[i]
	}
	count := len(run.rows)
	if run.groupedMode {
		count = len(run.grouped)
	}

	keys := make([][]schema.Value, count)
	for i := 0; i < count; i++ {
		row := representative(i)
		vals := make([]schema.Value, len(run.q.OrderBy))
		for j, item := range run.q.OrderBy {
			v, err := run.ev.Evaluate(item.Column, row, nil)
			if err != nil {
				return sqlerr.InClause(err, "order clause")
			}
			vals[j] = v
		}
		keys[i] = vals
	}

	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		for j, item := range run.q.OrderBy {
			cmp := compareValues(ka[j], kb[j])
			if cmp == 0 {
				continue
			}
			if item.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	if run.groupedMode {
		sorted := make([][]schema.Row, count)
		for i, at := range order {
			sorted[i] = run.grouped[at]
		}
		run.grouped = sorted
	} else {
		sorted := make([]schema.Row, count)
		for i, at := range order {
			sorted[i] = run.rows[at]
		}
		run.rows = sorted
	}
	return nil
}

// applySelectAndHaving projects output rows and filters them through HAVING.
// SELECT aliases join the scope as "::alias" entries so HAVING can reference
// them; they never appear in output rows.
func (run *selectRun) applySelectAndHaving() ([]schema.Row, []string, error) {
	// A SELECT with no input rows still yields one row when every requested
	// column can be computed without a source, e.g. SELECT database().
	if !run.groupedMode && len(run.rows) == 0 && selectComputable(run.q.Columns) {
		run.rows = []schema.Row{{}}
	}

	for _, col := range run.q.Columns {
		if col.Alias != "" {
			run.growScope(schema.QualifiedKey("", col.Alias))
		}
	}

	names := run.outputNames()

	inputs := len(run.rows)
	if run.groupedMode {
		inputs = len(run.grouped)
	}

	// With no input rows the loop below evaluates nothing, so the column
	// references of the select list are resolved once here: an unknown or
	// ambiguous name fails on an empty source too.
	if inputs == 0 {
		for _, col := range run.q.Columns {
			for _, ref := range query.NonAggregatedColumns(col.Expr) {
				if _, err := run.ev.Evaluate(ref, schema.Row{}, nil); err != nil {
					return nil, nil, sqlerr.InClause(err, "field list")
				}
			}
		}
	}

	out := make([]schema.Row, 0, inputs)
	for i := 0; i < inputs; i++ {
		var rawRow schema.Row
		var group []schema.Row
		if run.groupedMode {
			group = run.grouped[i]
			if len(group) > 0 {
				rawRow = group[0]
			} else {
				rawRow = schema.Row{}
			}
		} else {
			rawRow = run.rows[i]
		}

		mapped := make(schema.Row, len(names))
		rawWithAliases := make(schema.Row, len(rawRow)+len(run.q.Columns))
		for k, v := range rawRow {
			rawWithAliases[k] = v
		}

		for _, col := range run.q.Columns {
			if star, ok := col.Expr.(*query.Star); ok {
				starNames, starValues, err := run.ev.EvaluateStar(star, rawRow)
				if err != nil {
					return nil, nil, sqlerr.InClause(err, "field list")
				}
				for j, n := range starNames {
					mapped[n] = starValues[j]
				}
				continue
			}
			v, err := run.ev.Evaluate(col.Expr, rawRow, group)
			if err != nil {
				return nil, nil, sqlerr.InClause(err, "field list")
			}
			mapped[col.OutputName()] = v
			if col.Alias != "" {
				rawWithAliases[schema.QualifiedKey("", col.Alias)] = v
			}
		}

		if run.q.Having != nil {
			hv, err := run.ev.Evaluate(run.q.Having, rawWithAliases, group)
			if err != nil {
				return nil, nil, sqlerr.InClause(err, "having clause")
			}
			if hv == nil || !schema.IsTruthy(hv) {
				continue
			}
		}
		out = append(out, mapped)
	}

	if run.q.Distinct {
		out = distinctRows(out, names)
	}
	return out, names, nil
}

// outputNames computes the ordered user-visible column labels, expanding
// stars against the current scope.
func (run *selectRun) outputNames() []string {
	var names []string
	for _, col := range run.q.Columns {
		if star, ok := col.Expr.(*query.Star); ok {
			names = append(names, run.ev.StarNames(star)...)
			continue
		}
		names = append(names, col.OutputName())
	}
	return names
}

// selectComputable reports whether every SELECT column is a function,
// literal, CASE, sub-query, or compound expression — anything but a plain
// column reference or star.
func selectComputable(cols []query.SelectColumn) bool {
	if len(cols) == 0 {
		return false
	}
	for _, col := range cols {
		switch col.Expr.(type) {
		case *query.ColumnRef, *query.Star:
			return false
		}
	}
	return true
}

// distinctRows deduplicates output rows by their values joined in declared
// column order.
func distinctRows(rows []schema.Row, names []string) []schema.Row {
	seen := make(map[string]bool, len(rows))
	out := make([]schema.Row, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = schema.FormatValue(row[n])
		}
		key := strings.Join(parts, "::")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

func (run *selectRun) applyLimit(rows []schema.Row) []schema.Row {
	offset := run.q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if run.q.Limit > 0 && run.q.Limit < len(rows) {
		rows = rows[:run.q.Limit]
	}
	return rows
}
