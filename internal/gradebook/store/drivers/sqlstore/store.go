// Package sqlstore implements store.Store over database/sql. The sqlite and
// postgres drivers share these repos and differ only by Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures what differs between SQL engines.
type Dialect struct {
	Name string

	// Rebind rewrites the ? placeholders used by the repos. Nil keeps them.
	Rebind func(query string) string

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(err error) bool

	// Migrate applies the embedded schema migrations.
	Migrate func(ctx context.Context, db *sql.DB) error
}

// RebindDollar turns ? placeholders into $1, $2, ...
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// conn binds a DBTX to its dialect.
type conn struct {
	db      DBTX
	dialect *Dialect
}

func (c conn) bind(query string) string {
	if c.dialect.Rebind == nil {
		return query
	}
	return c.dialect.Rebind(query)
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.bind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.bind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.bind(query), args...)
}

// mapWriteErr converts driver constraint errors into store errors.
func (c conn) mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if c.dialect.IsUniqueViolation != nil && c.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", store.ErrAlreadyExists, err)
	}
	return err
}

// Store is the root store over a connection pool.
type Store struct {
	db      *sql.DB
	dialect *Dialect
}

// New wraps an open pool. The Store owns db and closes it on Close.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: &dialect}
}

// DB exposes the underlying pool, for drivers and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() string { return s.dialect.Name }

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ApplyMigrations brings the schema up to date.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	if s.dialect.Migrate == nil {
		return nil
	}
	if err := s.dialect.Migrate(ctx, s.db); err != nil {
		return fmt.Errorf("%s migrations: %w", s.dialect.Name, err)
	}
	return nil
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, c: conn{db: tx, dialect: s.dialect}}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) conn() conn { return conn{db: s.db, dialect: s.dialect} }

func (s *Store) Accounts() store.Accounts           { return &accountsRepo{c: s.conn()} }
func (s *Store) Students() store.Students           { return &studentsRepo{c: s.conn()} }
func (s *Store) Grades() store.Grades               { return &gradesRepo{c: s.conn()} }
func (s *Store) Audit() store.Audit                 { return &auditRepo{c: s.conn()} }
func (s *Store) RevokedTokens() store.RevokedTokens { return &revokedTokensRepo{c: s.conn()} }

type txStore struct {
	tx *sql.Tx
	c  conn
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the pool stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Accounts() store.Accounts           { return &accountsRepo{c: t.c} }
func (t *txStore) Students() store.Students           { return &studentsRepo{c: t.c} }
func (t *txStore) Grades() store.Grades               { return &gradesRepo{c: t.c} }
func (t *txStore) Audit() store.Audit                 { return &auditRepo{c: t.c} }
func (t *txStore) RevokedTokens() store.RevokedTokens { return &revokedTokensRepo{c: t.c} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// requireAffected turns a zero-row update or delete into ErrNotFound.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// dbTime normalises timestamps before they are written. Whole seconds in
// UTC keep sqlite's text timestamps ordered the same way as the instants.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		v := nt.Time.UTC()
		return &v
	}
	return nil
}

func mapNullInt64Ptr(ni sql.NullInt64) *int64 {
	if ni.Valid {
		v := ni.Int64
		return &v
	}
	return nil
}

func mapOptionalInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
