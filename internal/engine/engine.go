package engine

import (
	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

// Result is the outcome of one executed statement: a row stream for SELECT
// (ordered column names plus one map per row), or an affected-rows summary
// for everything else.
type Result struct {
	Columns      []string
	Rows         []schema.Row
	AffectedRows int64
	InsertID     int64
	HasRows      bool
}

// Engine executes typed queries against a server catalog. A query runs to
// completion on the caller's goroutine; hosts running queries from multiple
// goroutines must serialize access.
type Engine struct {
	server *schema.Server
}

// New creates an engine over the given server.
func New(server *schema.Server) *Engine {
	return &Engine{server: server}
}

// Server returns the underlying catalog.
func (e *Engine) Server() *schema.Server { return e.server }

// Execute runs one typed query and returns its result or the first error.
func (e *Engine) Execute(q query.Query) (*Result, error) {
	switch stmt := q.(type) {
	case *query.TransactionQuery:
		// Acknowledged markers; the engine holds no transactional state.
		return &Result{}, nil
	case *query.UseQuery:
		if err := e.server.UseDatabase(stmt.Database); err != nil {
			return nil, err
		}
		return &Result{}, nil
	case *query.CreateTableQuery:
		return e.runCreateTable(stmt)
	case *query.DropTableQuery:
		return e.runDropTable(stmt)
	case *query.InsertQuery:
		return e.runInsert(stmt)
	case *query.SelectQuery:
		return e.runSelect(stmt, nil, nil)
	default:
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported statement")
	}
}

func (e *Engine) runCreateTable(stmt *query.CreateTableQuery) (*Result, error) {
	db, err := e.server.GetDatabase(stmt.Database)
	if err != nil {
		return nil, err
	}
	if db.HasTable(stmt.Table) {
		if stmt.IfNotExists {
			return &Result{}, nil
		}
		return nil, sqlerr.Processor(sqlerr.NumTableExists, "Table '%s' already exists", stmt.Table)
	}
	columns := make([]*schema.Column, 0, len(stmt.Columns))
	for _, def := range stmt.Columns {
		columns = append(columns, schema.NewColumn(def))
	}
	if err := db.AddTable(schema.NewTable(stmt.Table, columns)); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Engine) runDropTable(stmt *query.DropTableQuery) (*Result, error) {
	db, err := e.server.GetDatabase(stmt.Database)
	if err != nil {
		return nil, err
	}
	if !db.HasTable(stmt.Table) && stmt.IfExists {
		return &Result{}, nil
	}
	if err := db.DropTable(stmt.Table); err != nil {
		return nil, err
	}
	return &Result{}, nil
}
