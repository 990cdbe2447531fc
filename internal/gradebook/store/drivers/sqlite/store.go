// Package sqlite is the embedded SQLite driver, backed by modernc.org/sqlite
// and golang-migrate.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/store/drivers/sqlstore"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DSN builds a connection string for a database file with the pragmas the
// store relies on: foreign keys for cascades, a busy timeout, WAL, immediate
// write transactions and a fixed timestamp format.
func DSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite",
		path,
	)
}

// NewStore opens dsn. A bare path is expanded with DSN.
func NewStore(dsn string) (*sqlstore.Store, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = DSN(dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if strings.Contains(dsn, ":memory:") {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	return sqlstore.New(db, Dialect()), nil
}

// Dialect describes SQLite to the shared repos.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:              "sqlite",
		IsUniqueViolation: isUniqueViolation,
		Migrate:           migrateUp,
	}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
