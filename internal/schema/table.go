package schema

import (
	"strings"

	"sqlmimic/internal/sqlerr"
)

// Table is an ordered collection of rows with per-column auto-increment
// counters. Rows are stored keyed by bare column name; the pipeline re-keys
// them as it reads.
type Table struct {
	name    string
	columns []*Column
	rows    []Row
	autoInc map[string]int64
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns []*Column) *Table {
	return &Table{
		name:    name,
		columns: columns,
		autoInc: make(map[string]int64),
	}
}

func (t *Table) Name() string { return t.name }

// Columns returns the column definitions in declaration order.
func (t *Table) Columns() []*Column { return t.columns }

// Column finds a column by case-insensitive name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.columns {
		if strings.EqualFold(c.Name(), name) {
			return c
		}
	}
	return nil
}

// Rows returns the stored rows in insertion order. Callers must not mutate
// the returned rows.
func (t *Table) Rows() []Row { return t.rows }

// InsertRow appends a fully cast row.
func (t *Table) InsertRow(row Row) {
	t.rows = append(t.rows, row)
}

// NextAutoIncrementValue returns and advances the counter for col.
func (t *Table) NextAutoIncrementValue(col string) int64 {
	t.autoInc[col]++
	return t.autoInc[col]
}

// BumpAutoIncrement raises the counter for col to at least v, so that an
// explicit insert into an auto-increment column moves the sequence forward.
func (t *Table) BumpAutoIncrement(col string, v int64) {
	if v > t.autoInc[col] {
		t.autoInc[col] = v
	}
}

// Database is a named collection of tables, iterable in creation order.
type Database struct {
	name   string
	tables map[string]*Table
	order  []string
}

// NewDatabase creates an empty database.
func NewDatabase(name string) *Database {
	return &Database{name: name, tables: make(map[string]*Table)}
}

func (d *Database) Name() string { return d.name }

// GetTable resolves a table by case-insensitive name.
func (d *Database) GetTable(name string) (*Table, error) {
	if t, ok := d.tables[strings.ToLower(name)]; ok {
		return t, nil
	}
	return nil, sqlerr.Processor(sqlerr.NumNoSuchTable, "Table '%s.%s' doesn't exist", d.name, name)
}

// HasTable reports whether a table with the given name exists.
func (d *Database) HasTable(name string) bool {
	_, ok := d.tables[strings.ToLower(name)]
	return ok
}

// AddTable registers a table; the name must be free.
func (d *Database) AddTable(t *Table) error {
	key := strings.ToLower(t.Name())
	if _, ok := d.tables[key]; ok {
		return sqlerr.Processor(sqlerr.NumTableExists, "Table '%s' already exists", t.Name())
	}
	d.tables[key] = t
	d.order = append(d.order, key)
	return nil
}

// DropTable removes a table by name.
func (d *Database) DropTable(name string) error {
	key := strings.ToLower(name)
	if _, ok := d.tables[key]; !ok {
		return sqlerr.Processor(sqlerr.NumNoSuchTable, "Unknown table '%s.%s'", d.name, name)
	}
	delete(d.tables, key)
	for i, n := range d.order {
		if n == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Tables returns the tables in creation order.
func (d *Database) Tables() []*Table {
	out := make([]*Table, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.tables[key])
	}
	return out
}

// Server is the top-level catalog: named databases plus the current-database
// fallback used when a query omits the qualifier.
type Server struct {
	databases map[string]*Database
	order     []string
	current   string
}

// NewServer creates an empty server with no current database.
func NewServer() *Server {
	return &Server{databases: make(map[string]*Database)}
}

// CreateDatabase registers a database; creating an existing name is an error.
func (s *Server) CreateDatabase(name string) (*Database, error) {
	key := strings.ToLower(name)
	if _, ok := s.databases[key]; ok {
		return nil, sqlerr.Processor(sqlerr.NumBadDB, "Can't create database '%s'; database exists", name)
	}
	db := NewDatabase(name)
	s.databases[key] = db
	s.order = append(s.order, key)
	if s.current == "" {
		s.current = key
	}
	return db, nil
}

// GetDatabase resolves name, falling back to the current database when name
// is empty.
func (s *Server) GetDatabase(name string) (*Database, error) {
	key := strings.ToLower(name)
	if key == "" {
		key = s.current
	}
	if key == "" {
		return nil, sqlerr.Processor(sqlerr.NumBadDB, "No database selected")
	}
	if db, ok := s.databases[key]; ok {
		return db, nil
	}
	return nil, sqlerr.Processor(sqlerr.NumBadDB, "Unknown database '%s'", name)
}

// CurrentDatabase returns the name of the current database, or "".
func (s *Server) CurrentDatabase() string {
	if s.current == "" {
		return ""
	}
	if db, ok := s.databases[s.current]; ok {
		return db.Name()
	}
	return ""
}

// UseDatabase switches the current database.
func (s *Server) UseDatabase(name string) error {
	key := strings.ToLower(name)
	if _, ok := s.databases[key]; !ok {
		return sqlerr.Processor(sqlerr.NumBadDB, "Unknown database '%s'", name)
	}
	s.current = key
	return nil
}

// Databases returns the databases in creation order.
func (s *Server) Databases() []*Database {
	out := make([]*Database, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.databases[key])
	}
	return out
}
