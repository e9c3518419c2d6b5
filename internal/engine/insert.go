package engine

import (
	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

// runInsert materializes and commits rows one by one: each value list is
// evaluated into a raw row, completed from column defaults and the
// auto-increment counter, cast per column, and handed to the table. The
// first failure aborts with earlier rows already committed.
func (e *Engine) runInsert(stmt *query.InsertQuery) (*Result, error) {
	db, err := e.server.GetDatabase(stmt.Database)
	if err != nil {
		return nil, err
	}
	table, err := db.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	colNames := stmt.Columns
	if len(colNames) == 0 {
		colNames = make([]string, len(table.Columns()))
		for i, c := range table.Columns() {
			colNames[i] = c.Name()
		}
	}
	for _, name := range colNames {
		if table.Column(name) == nil {
			return nil, sqlerr.Processor(sqlerr.NumBadField, "Unknown column '%s' in 'field list'", name)
		}
	}

	scope := make([]string, len(table.Columns()))
	for i, c := range table.Columns() {
		scope[i] = schema.QualifiedKey(table.Name(), c.Name())
	}
	ev := newEvaluator(e, scope, nil, nil)

	run := &insertRun{table: table, ev: ev}
	res := &Result{}
	for i, valueRow := range stmt.Values {
		if len(valueRow) != len(colNames) {
			return nil, sqlerr.Integrity(sqlerr.CodeNone, sqlerr.NumWrongValueCount,
				"Column count doesn't match value count at row %d", i+1)
		}
		final, err := run.buildRow(colNames, valueRow, i+1)
		if err != nil {
			return nil, err
		}
		table.InsertRow(final)
		res.AffectedRows++
	}
	res.InsertID = run.insertID
	return res, nil
}

type insertRun struct {
	table    *schema.Table
	ev       *Evaluator
	insertID int64
}

// buildRow turns one VALUES list into a fully cast storage row.
func (run *insertRun) buildRow(colNames []string, values []query.Expression, rowNum int) (schema.Row, error) {
	label := run.table.Name()

	// Raw pass: evaluate each value expression; DEFAULT resolves against the
	// partially built row.
	rawRow := make(schema.Row, len(values))
	provided := make(map[string]bool, len(values))
	for i, expr := range values {
		col := run.table.Column(colNames[i])
		var v schema.Value
		var err error
		if _, isDefault := expr.(*query.Default); isDefault {
			v, err = run.evaluateDefaultValue(col, rawRow)
		} else {
			v, err = run.ev.Evaluate(expr, rawRow, nil)
			if err != nil {
				err = sqlerr.InClause(err, "field list")
			}
		}
		if err != nil {
			return nil, err
		}
		key := schema.QualifiedKey(label, col.Name())
		rawRow[key] = v
		provided[col.Name()] = true
	}

	// Final pass: walk the full column list, fill gaps from defaults,
	// enforce non-null, track the auto-increment value, and cast.
	final := make(schema.Row, len(run.table.Columns()))
	for _, col := range run.table.Columns() {
		key := schema.QualifiedKey(label, col.Name())
		v := rawRow[key]
		if !provided[col.Name()] || schema.IsDefault(v) {
			dv, err := run.evaluateDefaultValue(col, rawRow)
			if err != nil {
				return nil, err
			}
			v = dv
			if v == nil && !col.IsNullable() {
				return nil, sqlerr.Integrity(sqlerr.CodeBadNull, sqlerr.NumNoDefault,
					"Field '%s' doesn't have a default value", col.Name())
			}
		}

		// An explicit NULL into an auto-increment column draws from the
		// counter, as the server does.
		if col.HasAutoIncrement() && v == nil {
			v = run.table.NextAutoIncrementValue(col.Name())
			run.insertID = v.(int64)
		}

		cast, err := col.Cast(v)
		if err != nil {
			return nil, sqlerr.AtRow(err, rowNum)
		}
		// The counter tracks the stored value, so explicit floats and
		// numeric strings that cast into the column count too.
		if col.HasAutoIncrement() {
			if n, ok := cast.(int64); ok {
				run.insertID = n
				run.table.BumpAutoIncrement(col.Name(), n)
			}
		}
		final[col.Name()] = cast
	}
	return final, nil
}

// evaluateDefaultValue resolves a column's implicit value: the
// auto-increment counter for auto-increment integers, the declared default
// expression next, NULL otherwise.
func (run *insertRun) evaluateDefaultValue(col *schema.Column, rawRow schema.Row) (schema.Value, error) {
	if col.HasAutoIncrement() {
		n := run.table.NextAutoIncrementValue(col.Name())
		run.insertID = n
		return n, nil
	}
	if expr := col.DefaultValueExpression(); expr != nil {
		v, err := run.ev.Evaluate(expr, rawRow, nil)
		if err != nil {
			return nil, sqlerr.InClause(err, "field list")
		}
		return v, nil
	}
	return nil, nil
}
