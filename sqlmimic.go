// Package sqlmimic is an in-process MySQL emulator: SQL text in, result
// rows or affected-row summaries out, over in-memory tables. It is meant as
// a test double or embedded engine, not a persistent database.
package sqlmimic

import (
	"sqlmimic/internal/engine"
	"sqlmimic/internal/parser"
	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
	"sqlmimic/internal/sqlerr"
)

// Result is the outcome of one statement. For SELECT, Columns and Rows are
// populated; for everything else, AffectedRows and InsertID.
type Result = engine.Result

// DB is one emulated server instance. It is not safe for concurrent use;
// callers running statements from multiple goroutines must serialize.
type DB struct {
	server *schema.Server
	eng    *engine.Engine
	parser *parser.Parser
}

// New creates an empty server with no databases.
func New() *DB {
	server := schema.NewServer()
	return &DB{
		server: server,
		eng:    engine.New(server),
		parser: parser.New(),
	}
}

// CreateDatabase registers a database. The first database created becomes
// the current one.
func (db *DB) CreateDatabase(name string) error {
	_, err := db.server.CreateDatabase(name)
	return sqlerr.ToMySQL(err)
}

// Use switches the current database.
func (db *DB) Use(name string) error {
	return sqlerr.ToMySQL(db.server.UseDatabase(name))
}

// CurrentDatabase returns the name of the current database, or "".
func (db *DB) CurrentDatabase() string {
	return db.server.CurrentDatabase()
}

// Server exposes the underlying catalog for direct seeding.
func (db *DB) Server() *schema.Server { return db.server }

// Exec parses and executes one or more ;-separated statements, returning one
// result per statement. Placeholders (?) are filled from params in order.
// Errors are returned as *mysql.MySQLError with server error numbers.
func (db *DB) Exec(sql string, params ...interface{}) ([]*Result, error) {
	queries, err := db.parser.Parse(sql, params...)
	if err != nil {
		return nil, sqlerr.ToMySQL(err)
	}
	results := make([]*Result, 0, len(queries))
	for _, q := range queries {
		res, err := db.eng.Execute(q)
		if err != nil {
			return nil, sqlerr.ToMySQL(err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Query executes sql like Exec and returns the last statement's result,
// which is the common single-statement case.
func (db *DB) Query(sql string, params ...interface{}) (*Result, error) {
	results, err := db.Exec(sql, params...)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Result{}, nil
	}
	return results[len(results)-1], nil
}

// Execute runs an already typed query, bypassing the text parser.
func (db *DB) Execute(q query.Query) (*Result, error) {
	res, err := db.eng.Execute(q)
	if err != nil {
		return nil, sqlerr.ToMySQL(err)
	}
	return res, nil
}
