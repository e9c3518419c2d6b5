package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

func TestSelectDatabaseFunction(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Execute(&query.SelectQuery{
		Columns: []query.SelectColumn{selCol(&query.FuncCall{Name: "database"})},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"database"}, res.Columns)
	assert.Equal(t, "mydb", res.Rows[0]["database"])
}

func TestSelectStarWithWhereOrderLimit(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1), "name": "a"},
		schema.Row{"id": int64(2), "name": "b"},
	)

	// SELECT u.* FROM users u WHERE u.id IN (1, 2) ORDER BY id DESC LIMIT 1
	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "u")},
		Columns: []query.SelectColumn{selCol(&query.Star{Table: "u"})},
		Where: bin(query.OpIn, col("u", "id"),
			&query.Array{Values: []query.Expression{lit(int64(1)), lit(int64(2))}}),
		OrderBy: []query.OrderItem{{Column: col("", "id"), Desc: true}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, int64(2), res.Rows[0]["id"])
	assert.Equal(t, "b", res.Rows[0]["name"])
}

func TestInnerJoinGroupByCount(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1)},
		schema.Row{"id": int64(1)},
		schema.Row{"id": int64(2)},
	)
	seedPosts(t, e,
		schema.Row{"user_id": int64(1), "body": "x"},
		schema.Row{"user_id": int64(2), "body": "y"},
	)

	// SELECT COUNT(*) c FROM users u JOIN posts p ON p.user_id = u.id GROUP BY u.id
	res, err := e.Execute(&query.SelectQuery{
		From: []*query.From{
			fromTable("users", "u"),
			{Table: "posts", Alias: "p", Join: query.JoinInner,
				On: bin(query.OpEQ, col("p", "user_id"), col("u", "id"))},
		},
		Columns: []query.SelectColumn{selAs(&query.FuncCall{Name: "count", Args: []query.Expression{lit(int64(1))}}, "c")},
		GroupBy: []*query.ColumnRef{col("u", "id")},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	// Group order follows the first-seen user id.
	assert.Equal(t, int64(2), res.Rows[0]["c"])
	assert.Equal(t, int64(1), res.Rows[1]["c"])
}

func TestLeftJoinFillsNullPlaceholders(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e, schema.Row{"id": int64(3)})

	res, err := e.Execute(&query.SelectQuery{
		From: []*query.From{
			fromTable("users", "u"),
			{Table: "posts", Alias: "p", Join: query.JoinLeft,
				On: bin(query.OpEQ, col("p", "user_id"), col("u", "id"))},
		},
		Columns: []query.SelectColumn{selCol(&query.Star{})},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"id", "name", "user_id", "body"}, res.Columns)
	assert.Equal(t, int64(3), res.Rows[0]["id"])
	assert.Nil(t, res.Rows[0]["user_id"])
	assert.Nil(t, res.Rows[0]["body"])
}

func TestCartesianProductSize(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1)}, schema.Row{"id": int64(2)}, schema.Row{"id": int64(3)},
	)
	seedPosts(t, e,
		schema.Row{"user_id": int64(1)}, schema.Row{"user_id": int64(2)},
	)

	res, err := e.Execute(&query.SelectQuery{
		From: []*query.From{
			fromTable("users", ""),
			{Table: "posts", Join: query.JoinCross},
		},
		Columns: []query.SelectColumn{selCol(&query.Star{})},
	})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 6)
}

func TestEmptyTableWithColumnRefYieldsNoRows(t *testing.T) {
	e := newTestEngine(t)

	// SELECT id FROM users HAVING id > 0 — no injected row because the
	// select list is a plain column reference.
	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
		Having:  bin(query.OpGT, col("", "id"), lit(int64(0))),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestHavingSeesSelectAlias(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1), "name": "a"},
		schema.Row{"id": int64(5), "name": "b"},
	)

	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selAs(col("", "id"), "v")},
		Having:  bin(query.OpGT, col("", "v"), lit(int64(2))),
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(5), res.Rows[0]["v"])
}

func TestDerivedTableRequiresAlias(t *testing.T) {
	e := newTestEngine(t)

	inner := &query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
	}
	_, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{{Subquery: inner}},
		Columns: []query.SelectColumn{selCol(&query.Star{})},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Every derived table must have its own alias")
	assert.Equal(t, sqlerr.NumDerivedAlias, sqlerr.NumberOf(err))
}

func TestDerivedTableSelect(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1), "name": "a"},
		schema.Row{"id": int64(2), "name": "b"},
	)

	inner := &query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
		Where:   bin(query.OpGT, col("", "id"), lit(int64(1))),
	}
	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{{Subquery: inner, Alias: "t"}},
		Columns: []query.SelectColumn{selCol(col("t", "id"))},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(2), res.Rows[0]["id"])
}

func TestScalarSubquery(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e, schema.Row{"id": int64(1), "name": "a"})
	seedPosts(t, e, schema.Row{"user_id": int64(1), "body": "x"})

	// Correlated: SELECT (SELECT u.name FROM users u WHERE u.id = p.user_id) n FROM posts p
	sub := &query.Subquery{Query: &query.SelectQuery{
		From:    []*query.From{fromTable("users", "u")},
		Columns: []query.SelectColumn{selCol(col("u", "name"))},
		Where:   bin(query.OpEQ, col("u", "id"), col("p", "user_id")),
	}}
	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("posts", "p")},
		Columns: []query.SelectColumn{selAs(sub, "n")},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "a", res.Rows[0]["n"])
}

func TestScalarSubqueryMoreThanOneRow(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e, schema.Row{"id": int64(1)}, schema.Row{"id": int64(2)})

	sub := &query.Subquery{Query: &query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
	}}
	_, err := e.Execute(&query.SelectQuery{
		Columns: []query.SelectColumn{selCol(sub)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subquery returns more than 1 row")
	assert.Equal(t, sqlerr.NumSubqueryRows, sqlerr.NumberOf(err))
}

func TestUnknownColumnInWhereClause(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e, schema.Row{"id": int64(1)})

	_, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
		Where:   bin(query.OpEQ, col("", "missing"), lit(int64(1))),
	})
	require.Error(t, err)
	assert.Equal(t, "Unknown column 'missing' in 'where clause'", err.Error())
	assert.Equal(t, sqlerr.NumBadField, sqlerr.NumberOf(err))
}

func TestAmbiguousColumn(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e, schema.Row{"id": int64(1)})

	db, err := e.Server().GetDatabase("")
	require.NoError(t, err)
	others := schema.NewTable("others", []*schema.Column{
		schema.NewColumn(query.ColumnDef{Name: "id", Type: "int", Nullable: true}),
	})
	others.InsertRow(schema.Row{"id": int64(7)})
	require.NoError(t, db.AddTable(others))

	_, err = e.Execute(&query.SelectQuery{
		From: []*query.From{
			fromTable("users", ""),
			{Table: "others", Join: query.JoinCross},
		},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Column 'id' in field list is ambiguous")
	assert.Equal(t, sqlerr.NumNonUniq, sqlerr.NumberOf(err))
}

func TestAggregateWithoutGroupBySynthesizesSingleGroup(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1)},
		schema.Row{"id": int64(2)},
		schema.Row{"id": nil},
	)

	res, err := e.Execute(&query.SelectQuery{
		From: []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{
			selAs(&query.FuncCall{Name: "count", Args: []query.Expression{col("", "id")}}, "c"),
			selAs(&query.FuncCall{Name: "sum", Args: []query.Expression{col("", "id")}}, "s"),
			selAs(&query.FuncCall{Name: "avg", Args: []query.Expression{col("", "id")}}, "a"),
			selAs(&query.FuncCall{Name: "min", Args: []query.Expression{col("", "id")}}, "lo"),
			selAs(&query.FuncCall{Name: "max", Args: []query.Expression{col("", "id")}}, "hi"),
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, int64(2), row["c"]) // NULLs are not counted
	assert.Equal(t, float64(3), row["s"])
	assert.Equal(t, float64(1.5), row["a"])
	assert.Equal(t, int64(1), row["lo"])
	assert.Equal(t, int64(2), row["hi"])
}

func TestAggregateOverEmptyTable(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Execute(&query.SelectQuery{
		From: []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{
			selAs(&query.FuncCall{Name: "count"}, "c"),
			selAs(&query.FuncCall{Name: "sum", Args: []query.Expression{col("", "id")}}, "s"),
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(0), res.Rows[0]["c"])
	assert.Nil(t, res.Rows[0]["s"])
}

func TestNonAggregatedColumnWithoutGroupBy(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e, schema.Row{"id": int64(1), "name": "a"})

	_, err := e.Execute(&query.SelectQuery{
		From: []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{
			selCol(&query.FuncCall{Name: "count"}),
			selCol(col("", "name")),
		},
	})
	require.Error(t, err)
	assert.Equal(t,
		"In aggregated query without GROUP BY, expression #2 of SELECT list contains nonaggregated column 'name'",
		err.Error())
	assert.Equal(t, sqlerr.NumMixOfGroupFunc, sqlerr.NumberOf(err))
}

func TestCountDistinct(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1), "name": "a"},
		schema.Row{"id": int64(1), "name": "b"},
		schema.Row{"id": int64(2), "name": "c"},
	)

	res, err := e.Execute(&query.SelectQuery{
		From: []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{
			selAs(&query.FuncCall{Name: "count", Args: []query.Expression{col("", "id")}, Distinct: true}, "c"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows[0]["c"])
}

func TestDistinctRows(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1), "name": "a"},
		schema.Row{"id": int64(1), "name": "a"},
		schema.Row{"id": int64(2), "name": "b"},
	)

	res, err := e.Execute(&query.SelectQuery{
		From:     []*query.From{fromTable("users", "")},
		Columns:  []query.SelectColumn{selCol(col("", "id")), selCol(col("", "name"))},
		Distinct: true,
	})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestOrderByNullsFirstAsc(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(2)},
		schema.Row{"id": nil},
		schema.Row{"id": int64(1)},
	)

	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
		OrderBy: []query.OrderItem{{Column: col("", "id")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Nil(t, res.Rows[0]["id"])
	assert.Equal(t, int64(1), res.Rows[1]["id"])
	assert.Equal(t, int64(2), res.Rows[2]["id"])
}

func TestLimitOffset(t *testing.T) {
	e := newTestEngine(t)
	for i := 1; i <= 5; i++ {
		seedUsers(t, e, schema.Row{"id": int64(i)})
	}

	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
		Limit:   2,
		Offset:  1,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(2), res.Rows[0]["id"])
	assert.Equal(t, int64(3), res.Rows[1]["id"])

	// Offset past the end yields an empty set.
	res, err = e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selCol(col("", "id"))},
		Offset:  9,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestCaseExpression(t *testing.T) {
	e := newTestEngine(t)
	seedUsers(t, e,
		schema.Row{"id": int64(1)},
		schema.Row{"id": int64(10)},
	)

	expr := &query.CaseExpr{
		Whens: []query.When{
			{Cond: bin(query.OpGT, col("", "id"), lit(int64(5))), Result: lit("big")},
		},
		Else: lit("small"),
	}
	res, err := e.Execute(&query.SelectQuery{
		From:    []*query.From{fromTable("users", "")},
		Columns: []query.SelectColumn{selAs(expr, "size")},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "small", res.Rows[0]["size"])
	assert.Equal(t, "big", res.Rows[1]["size"])
}

func TestNotUniqueTableAlias(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Execute(&query.SelectQuery{
		From: []*query.From{
			fromTable("users", "u"),
			{Table: "posts", Alias: "u", Join: query.JoinCross},
		},
		Columns: []query.SelectColumn{selCol(&query.Star{})},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not unique table/alias: 'u'")
}

func TestDivisionByZeroInFieldList(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Execute(&query.SelectQuery{
		Columns: []query.SelectColumn{selCol(bin(query.OpDiv, lit(int64(1)), lit(int64(0))))},
	})
	require.Error(t, err)
	assert.Equal(t, "Division by 0 in 'field list'", err.Error())
}

func TestTransactionQueriesAreAcknowledged(t *testing.T) {
	e := newTestEngine(t)
	for _, kind := range []query.TxKind{query.TxBegin, query.TxCommit, query.TxRollback} {
		res, err := e.Execute(&query.TransactionQuery{Kind: kind})
		require.NoError(t, err)
		assert.False(t, res.HasRows)
		assert.Zero(t, res.AffectedRows)
	}
}

func TestCreateAndDropTable(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Execute(&query.CreateTableQuery{
		Table: "tags",
		Columns: []query.ColumnDef{
			{Name: "id", Type: "int", AutoIncrement: true},
			{Name: "label", Type: "varchar", Length: 10, Nullable: true},
		},
	})
	require.NoError(t, err)

	_, err = e.Execute(&query.CreateTableQuery{Table: "tags"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Table 'tags' already exists")

	_, err = e.Execute(&query.DropTableQuery{Table: "tags"})
	require.NoError(t, err)
	_, err = e.Execute(&query.DropTableQuery{Table: "tags", IfExists: true})
	require.NoError(t, err)
	_, err = e.Execute(&query.DropTableQuery{Table: "tags"})
	require.Error(t, err)
}
