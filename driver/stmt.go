package driver

import (
	"context"
	"database/sql/driver"
)

// Stmt implements driver.Stmt, driver.StmtExecContext, and
// driver.StmtQueryContext by delegating to the connection with the original
// query text.
type Stmt struct {
	conn   *Conn
	query  string
	closed bool
}

// Close marks the statement closed.
func (s *Stmt) Close() error {
	s.closed = true
	return nil
}

// NumInput returns -1 so database/sql validates args dynamically.
func (s *Stmt) NumInput() int {
	return -1
}

// Exec executes a non-query statement.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), toNamedValues(args))
}

// ExecContext executes a non-query statement with context support.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if s.closed {
		return nil, driver.ErrBadConn
	}
	return s.conn.ExecContext(ctx, s.query, args)
}

// Query executes a query statement.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), toNamedValues(args))
}

// QueryContext executes a query statement with context support.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if s.closed {
		return nil, driver.ErrBadConn
	}
	return s.conn.QueryContext(ctx, s.query, args)
}

func toNamedValues(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, a := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}
	return out
}

var (
	_ driver.Stmt             = &Stmt{}
	_ driver.StmtExecContext  = &Stmt{}
	_ driver.StmtQueryContext = &Stmt{}
)
