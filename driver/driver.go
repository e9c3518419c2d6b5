// Package driver registers sqlmimic as a Go database/sql driver under the
// name "sqlmimic", so test code can point database/sql at the emulator
// without touching a real server.
//
// Servers are registered by name and addressed through the DSN:
//
//	import (
//		"database/sql"
//
//		"sqlmimic"
//		smdriver "sqlmimic/driver"
//	)
//
//	mimic := sqlmimic.New()
//	smdriver.Register("test", mimic)
//	db, err := sql.Open("sqlmimic", "test")
//
// OpenDB skips the registry for a server that only one test needs.
package driver

import (
	"context"
	"database/sql"
	gosqldriver "database/sql/driver"
	"fmt"
	"sync"

	"sqlmimic"
)

// DriverName is the name used to register with database/sql.
const DriverName = "sqlmimic"

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*sqlmimic.DB)
)

func init() {
	sql.Register(DriverName, &Driver{})
}

// Register makes db addressable as a DSN for sql.Open. Re-registering a name
// replaces the previous server.
func Register(name string, db *sqlmimic.DB) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = db
}

// Unregister removes a named server.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// OpenDB returns a database/sql handle bound directly to db, bypassing the
// DSN registry.
func OpenDB(db *sqlmimic.DB) *sql.DB {
	return sql.OpenDB(connector{db: db})
}

// Driver implements database/sql/driver.Driver.
type Driver struct{}

// Open resolves the DSN against the registry and returns a connection to the
// named server.
func (d *Driver) Open(name string) (gosqldriver.Conn, error) {
	registryMu.RLock()
	db, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sqlmimic: no server registered under %q", name)
	}
	return &Conn{db: db}, nil
}

type connector struct {
	db *sqlmimic.DB
}

func (c connector) Connect(context.Context) (gosqldriver.Conn, error) {
	return &Conn{db: c.db}, nil
}

func (c connector) Driver() gosqldriver.Driver {
	return &Driver{}
}

var _ gosqldriver.Driver = &Driver{}
