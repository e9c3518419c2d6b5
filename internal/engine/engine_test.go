package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
)

// newTestEngine builds a server with a "mydb" database holding users(id,
// name) and posts(user_id, body), pre-populated the way most tests need.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	server := schema.NewServer()
	db, err := server.CreateDatabase("mydb")
	require.NoError(t, err)

	users := schema.NewTable("users", []*schema.Column{
		schema.NewColumn(query.ColumnDef{Name: "id", Type: "int", Nullable: true}),
		schema.NewColumn(query.ColumnDef{Name: "name", Type: "varchar", Length: 255, Nullable: true}),
	})
	require.NoError(t, db.AddTable(users))

	posts := schema.NewTable("posts", []*schema.Column{
		schema.NewColumn(query.ColumnDef{Name: "user_id", Type: "int", Nullable: true}),
		schema.NewColumn(query.ColumnDef{Name: "body", Type: "varchar", Length: 255, Nullable: true}),
	})
	require.NoError(t, db.AddTable(posts))

	return New(server)
}

func seedUsers(t *testing.T, e *Engine, rows ...schema.Row) {
	t.Helper()
	seedTable(t, e, "users", rows...)
}

func seedPosts(t *testing.T, e *Engine, rows ...schema.Row) {
	t.Helper()
	seedTable(t, e, "posts", rows...)
}

func seedTable(t *testing.T, e *Engine, name string, rows ...schema.Row) {
	t.Helper()
	db, err := e.Server().GetDatabase("")
	require.NoError(t, err)
	table, err := db.GetTable(name)
	require.NoError(t, err)
	for _, row := range rows {
		table.InsertRow(row)
	}
}

// Short constructors keep query literals in tests readable.
func lit(v interface{}) *query.Literal        { return &query.Literal{Value: v} }
func col(table, name string) *query.ColumnRef { return &query.ColumnRef{Table: table, Column: name} }
func bin(op string, l, r query.Expression) *query.BinaryExpr {
	return &query.BinaryExpr{Op: op, Left: l, Right: r}
}
func selCol(expr query.Expression) query.SelectColumn { return query.SelectColumn{Expr: expr} }
func selAs(expr query.Expression, alias string) query.SelectColumn {
	return query.SelectColumn{Expr: expr, Alias: alias}
}
func fromTable(table, alias string) *query.From { return &query.From{Table: table, Alias: alias} }
