package driver

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlmimic"
)

func newServer(t *testing.T) *sqlmimic.DB {
	t.Helper()
	db := sqlmimic.New()
	require.NoError(t, db.CreateDatabase("mydb"))
	_, err := db.Exec("CREATE TABLE users (id INT AUTO_INCREMENT, name VARCHAR(255))")
	require.NoError(t, err)
	return db
}

func TestOpenDBRoundTrip(t *testing.T) {
	db := OpenDB(newServer(t))
	defer db.Close()

	res, err := db.Exec("INSERT INTO users (name) VALUES (?), (?)", "a", "b")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	lastID, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(2), lastID)

	rows, err := db.Query("SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)

	var got []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		got = append(got, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRegisteredDSN(t *testing.T) {
	Register("dsn-test", newServer(t))
	defer Unregister("dsn-test")

	db, err := sql.Open(DriverName, "dsn-test")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	var n int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, int64(0), n)
}

func TestUnknownDSN(t *testing.T) {
	db, err := sql.Open(DriverName, "never-registered")
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, db.Ping())
}

func TestErrorsCarryMySQLNumbers(t *testing.T) {
	db := OpenDB(newServer(t))
	defer db.Close()

	_, err := db.Query("SELECT missing FROM users")
	require.Error(t, err)
	var my *mysql.MySQLError
	require.True(t, errors.As(err, &my))
	assert.Equal(t, uint16(1054), my.Number)
}

func TestPreparedStatements(t *testing.T) {
	db := OpenDB(newServer(t))
	defer db.Close()

	stmt, err := db.Prepare("INSERT INTO users (name) VALUES (?)")
	require.NoError(t, err)
	_, err = stmt.Exec("x")
	require.NoError(t, err)
	require.NoError(t, stmt.Close())

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM users WHERE id = ?", 1).Scan(&name))
	assert.Equal(t, "x", name)
}

func TestTransactionsAreAcknowledged(t *testing.T) {
	db := OpenDB(newServer(t))
	defer db.Close()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec("INSERT INTO users (name) VALUES ('a')")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// Rollback is an acknowledged no-op: the row stays.
	tx, err = db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec("INSERT INTO users (name) VALUES ('b')")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var n int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, int64(2), n)
}
