// Package seed loads a server catalog from the sqlmimic TOML seed format:
// databases, their tables with typed columns, and literal rows.
//
//	default_database = "mydb"
//
//	[[databases]]
//	name = "mydb"
//
//	[[databases.tables]]
//	name = "users"
//	rows = [{ id = 1, name = "a" }, { id = 2, name = "b" }]
//
//	[[databases.tables.columns]]
//	name = "id"
//	type = "int"
//	auto_increment = true
//	not_null = true
//
//	[[databases.tables.columns]]
//	name = "name"
//	type = "varchar"
//	length = 255
package seed

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"sqlmimic/internal/query"
	"sqlmimic/internal/schema"
)

// seedFile is the top-level TOML document.
type seedFile struct {
	DefaultDatabase string         `toml:"default_database"`
	Databases       []seedDatabase `toml:"databases"`
}

type seedDatabase struct {
	Name   string      `toml:"name"`
	Tables []seedTable `toml:"tables"`
}

type seedTable struct {
	Name    string                   `toml:"name"`
	Columns []seedColumn             `toml:"columns"`
	Rows    []map[string]interface{} `toml:"rows"`
}

// seedColumn maps [[databases.tables.columns]]. Columns are nullable unless
// not_null is set, matching the SQL default.
type seedColumn struct {
	Name          string      `toml:"name"`
	Type          string      `toml:"type"`
	Length        int         `toml:"length"`
	Unsigned      bool        `toml:"unsigned"`
	NotNull       bool        `toml:"not_null"`
	AutoIncrement bool        `toml:"auto_increment"`
	Default       interface{} `toml:"default"`
}

// LoadFile reads the seed file at path into server.
func LoadFile(path string, server *schema.Server) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("seed: open file %q: %w", path, err)
	}
	defer f.Close()
	return Load(f, server)
}

// Load reads TOML seed content from r and populates server.
func Load(r io.Reader, server *schema.Server) error {
	var sf seedFile
	if _, err := toml.NewDecoder(r).Decode(&sf); err != nil {
		return fmt.Errorf("seed: decode error: %w", err)
	}
	return newConverter(&sf).apply(server)
}

type converter struct {
	sf *seedFile
}

func newConverter(sf *seedFile) *converter {
	return &converter{sf: sf}
}

func (c *converter) apply(server *schema.Server) error {
	for _, sdb := range c.sf.Databases {
		if sdb.Name == "" {
			return fmt.Errorf("seed: database with no name")
		}
		db, err := server.CreateDatabase(sdb.Name)
		if err != nil {
			return err
		}
		for _, st := range sdb.Tables {
			table, err := c.convertTable(&st)
			if err != nil {
				return fmt.Errorf("seed: table %q: %w", st.Name, err)
			}
			if err := db.AddTable(table); err != nil {
				return err
			}
		}
	}
	if c.sf.DefaultDatabase != "" {
		if err := server.UseDatabase(c.sf.DefaultDatabase); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) convertTable(st *seedTable) (*schema.Table, error) {
	if st.Name == "" {
		return nil, fmt.Errorf("table with no name")
	}
	columns := make([]*schema.Column, 0, len(st.Columns))
	for _, sc := range st.Columns {
		col, err := convertColumn(&sc)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	table := schema.NewTable(st.Name, columns)

	for i, sr := range st.Rows {
		row := make(schema.Row, len(columns))
		for _, col := range columns {
			raw, ok := sr[col.Name()]
			if !ok {
				if col.HasAutoIncrement() {
					row[col.Name()] = table.NextAutoIncrementValue(col.Name())
					continue
				}
				raw = nil
			}
			v, err := col.Cast(normalizeTOML(raw))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			row[col.Name()] = v
			if n, isInt := v.(int64); isInt && col.HasAutoIncrement() {
				table.BumpAutoIncrement(col.Name(), n)
			}
		}
		for key := range sr {
			if table.Column(key) == nil {
				return nil, fmt.Errorf("row %d: unknown column %q", i+1, key)
			}
		}
		table.InsertRow(row)
	}
	return table, nil
}

func convertColumn(sc *seedColumn) (*schema.Column, error) {
	if sc.Name == "" {
		return nil, fmt.Errorf("column with no name")
	}
	if sc.Type == "" {
		return nil, fmt.Errorf("column %q has no type", sc.Name)
	}
	def := query.ColumnDef{
		Name:          sc.Name,
		Type:          sc.Type,
		Length:        sc.Length,
		Unsigned:      sc.Unsigned,
		Nullable:      !sc.NotNull,
		AutoIncrement: sc.AutoIncrement,
	}
	if sc.Default != nil {
		def.Default = &query.Literal{Value: normalizeTOML(sc.Default)}
	}
	return schema.NewColumn(def), nil
}

// normalizeTOML maps the decoder's value types onto the engine's domain.
func normalizeTOML(v interface{}) schema.Value {
	switch val := v.(type) {
	case int:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
