package driver

import (
	"context"
	"database/sql/driver"

	"sqlmimic"
)

// Conn implements driver.Conn, driver.ConnBeginTx, driver.ExecerContext,
// and driver.QueryerContext. The emulator is connection-less, so a Conn is
// just a handle on the shared server.
type Conn struct {
	db *sqlmimic.DB
}

// Prepare returns a prepared statement. The emulator keeps no plans; the
// statement re-parses on every execution.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{conn: c, query: query}, nil
}

// Close is a no-op; the server outlives its connections.
func (c *Conn) Close() error {
	return nil
}

// Begin starts a transaction. Transactions are acknowledged no-ops.
func (c *Conn) Begin() (driver.Tx, error) {
	if _, err := c.db.Exec("START TRANSACTION"); err != nil {
		return nil, err
	}
	return &Tx{db: c.db}, nil
}

// BeginTx starts a transaction with context and options.
func (c *Conn) BeginTx(ctx context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Begin()
}

// ExecContext executes a non-query statement.
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := c.db.Exec(query, fromNamedValues(args)...)
	if err != nil {
		return nil, err
	}
	var out Result
	for _, res := range results {
		out.rowsAffected += res.AffectedRows
		if res.InsertID != 0 {
			out.lastInsertID = res.InsertID
		}
	}
	return out, nil
}

// QueryContext executes a query statement.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.db.Query(query, fromNamedValues(args)...)
	if err != nil {
		return nil, err
	}
	return &Rows{result: res}, nil
}

func fromNamedValues(args []driver.NamedValue) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

var (
	_ driver.Conn           = &Conn{}
	_ driver.ConnBeginTx    = &Conn{}
	_ driver.ExecerContext  = &Conn{}
	_ driver.QueryerContext = &Conn{}
	_ driver.Connector      = connector{}
)
