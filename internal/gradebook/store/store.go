package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this and expose sub-repositories, so a transaction scoped Store
// looks exactly like the root one.
type Store interface {
	Accounts() Accounts
	Students() Students
	Grades() Grades
	Audit() Audit
	RevokedTokens() RevokedTokens

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. It commits when fn returns
	// nil and rolls back otherwise. Nested transactions are not supported.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Accounts is the account directory.
type Accounts interface {
	GetByID(ctx context.Context, id int64) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// List returns every account ordered by id.
	List(ctx context.Context) ([]domain.Account, error)

	// Create inserts the account and returns its new id. A duplicate email
	// yields ErrAlreadyExists.
	Create(ctx context.Context, a domain.Account) (int64, error)

	// Delete removes the account, cascading to its student record and grades.
	Delete(ctx context.Context, id int64) error

	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// UpdateMFASecret stores a sealed TOTP secret and turns MFA off until
	// it is confirmed with EnableMFA.
	UpdateMFASecret(ctx context.Context, id int64, sealed []byte) error
	EnableMFA(ctx context.Context, id int64, at time.Time) error
	DisableMFA(ctx context.Context, id int64) error

	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

type Students interface {
	Create(ctx context.Context, s domain.Student) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Student, error)
	GetByAccountID(ctx context.Context, accountID int64) (domain.Student, error)

	// ListSummaries returns estudiante students with their grade average,
	// ordered by name. Students without grades average 0.
	ListSummaries(ctx context.Context) ([]domain.StudentSummary, error)
}

// Grades is the grade ledger.
type Grades interface {
	Create(ctx context.Context, g domain.Grade) (int64, error)

	// Get returns the grade with student and author names filled in.
	Get(ctx context.Context, id int64) (domain.Grade, error)

	// Update replaces subject, score and period.
	Update(ctx context.Context, id int64, in domain.GradeInput) error
	Delete(ctx context.Context, id int64) error

	// List and ListByStudent return newest first.
	List(ctx context.Context) ([]domain.Grade, error)
	ListByStudent(ctx context.Context, studentID int64) ([]domain.Grade, error)
}

type Audit interface {
	Append(ctx context.Context, e domain.AuditEntry) error

	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// RevokedTokens backs the session token denylist.
type RevokedTokens interface {
	// Add records jti as revoked until expiresAt. Adding twice is not an error.
	Add(ctx context.Context, jti string, expiresAt time.Time) error

	// Exists reports whether jti is revoked and still unexpired at now.
	Exists(ctx context.Context, jti string, now time.Time) (bool, error)

	// DeleteExpired purges rows expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
