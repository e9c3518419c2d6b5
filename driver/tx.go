package driver

import (
	"database/sql/driver"

	"sqlmimic"
)

// Tx implements driver.Tx. The engine holds no transactional state; COMMIT
// and ROLLBACK are acknowledged markers.
type Tx struct {
	db *sqlmimic.DB
}

func (t *Tx) Commit() error {
	_, err := t.db.Exec("COMMIT")
	return err
}

func (t *Tx) Rollback() error {
	_, err := t.db.Exec("ROLLBACK")
	return err
}

var _ driver.Tx = &Tx{}
