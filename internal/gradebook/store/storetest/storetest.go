// Package storetest is a conformance suite run against every store driver.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty, migrated store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes every conformance test. Each subtest gets a fresh store.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"accounts", testAccounts},
		{"accounts duplicate email", testDuplicateEmail},
		{"mfa columns", testMFA},
		{"students and summaries", testStudentSummaries},
		{"grades", testGrades},
		{"cascade on account delete", testCascade},
		{"audit survives account delete", testAudit},
		{"revoked tokens", testRevokedTokens},
		{"transactions", testTransactions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// baseTime is a whole second so round trips compare equal.
var baseTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// CreateAccount inserts an account with a placeholder hash.
func CreateAccount(t *testing.T, s store.Store, email string, role domain.Role, name string) int64 {
	t.Helper()
	id, err := s.Accounts().Create(t.Context(), domain.Account{
		Email:        email,
		PasswordHash: "salt$digest",
		Role:         role,
		Name:         name,
		CreatedAt:    baseTime,
	})
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

// CreateStudent inserts an estudiante account and its student row.
func CreateStudent(t *testing.T, s store.Store, email, name string) (accountID, studentID int64) {
	t.Helper()
	accountID = CreateAccount(t, s, email, domain.RoleStudent, name)
	studentID, err := s.Students().Create(t.Context(), domain.Student{
		AccountID: accountID,
		Code:      domain.StudentCode(accountID),
		Name:      name,
	})
	require.NoError(t, err)
	return accountID, studentID
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := t.Context()

	id := CreateAccount(t, s, "ana@example.com", domain.RoleTeacher, "Ana")

	byID, err := s.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", byID.Email)
	require.Equal(t, domain.RoleTeacher, byID.Role)
	require.Equal(t, "Ana", byID.Name)
	require.Equal(t, "salt$digest", byID.PasswordHash)
	require.True(t, baseTime.Equal(byID.CreatedAt))
	require.False(t, byID.MFAEnabled())
	require.Nil(t, byID.MFASecret)

	byEmail, err := s.Accounts().GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, id, byEmail.ID)

	_, err = s.Accounts().GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Accounts().UpdatePasswordHash(ctx, id, "$argon2id$new"))
	byID, err = s.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "$argon2id$new", byID.PasswordHash)

	CreateAccount(t, s, "root@example.com", domain.RoleAdmin, "Root")
	all, err := s.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, id, all[0].ID)

	n, err := s.Accounts().CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.Accounts().Delete(ctx, id))
	require.ErrorIs(t, s.Accounts().Delete(ctx, id), store.ErrNotFound)
	_, err = s.Accounts().GetByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	CreateAccount(t, s, "dup@example.com", domain.RoleStudent, "One")

	_, err := s.Accounts().Create(t.Context(), domain.Account{
		Email:        "dup@example.com",
		PasswordHash: "x$y",
		Role:         domain.RoleStudent,
		Name:         "Two",
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testMFA(t *testing.T, s store.Store) {
	ctx := t.Context()
	id := CreateAccount(t, s, "mfa@example.com", domain.RoleAdmin, "Mfa")

	require.ErrorIs(t, s.Accounts().EnableMFA(ctx, id, baseTime), store.ErrNotFound, "no secret yet")

	require.NoError(t, s.Accounts().UpdateMFASecret(ctx, id, []byte{1, 2, 3}))
	a, err := s.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, a.MFASecret)
	require.False(t, a.MFAEnabled())

	require.NoError(t, s.Accounts().EnableMFA(ctx, id, baseTime))
	a, err = s.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, a.MFAEnabled())
	require.True(t, baseTime.Equal(*a.MFAEnabledAt))

	require.NoError(t, s.Accounts().DisableMFA(ctx, id))
	a, err = s.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	require.False(t, a.MFAEnabled())
	require.Nil(t, a.MFASecret)
}

func testStudentSummaries(t *testing.T, s store.Store) {
	ctx := t.Context()
	teacher := CreateAccount(t, s, "prof@example.com", domain.RoleTeacher, "Profe")
	accZoe, zoe := CreateStudent(t, s, "zoe@example.com", "Zoe")
	_, ana := CreateStudent(t, s, "ana@example.com", "Ana")

	st, err := s.Students().GetByAccountID(ctx, accZoe)
	require.NoError(t, err)
	require.Equal(t, zoe, st.ID)
	require.Equal(t, domain.StudentCode(accZoe), st.Code)

	_, err = s.Students().GetByAccountID(ctx, teacher)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Students().GetByID(ctx, 9999)
	require.ErrorIs(t, err, store.ErrNotFound)

	for _, score := range []float64{4.0, 3.5, 4.2} {
		_, err := s.Grades().Create(ctx, domain.Grade{
			StudentID: zoe, Subject: "Math", Score: score, Period: "2024-1",
			CreatedBy: &teacher, CreatedAt: baseTime,
		})
		require.NoError(t, err)
	}

	sums, err := s.Students().ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	require.Equal(t, ana, sums[0].ID, "ordered by name")
	require.Equal(t, "Ana", sums[0].Name)
	require.Equal(t, 0.0, sums[0].Average)
	require.Equal(t, domain.StatusLowPerformance, sums[0].Status())

	require.Equal(t, "Zoe", sums[1].Name)
	require.Equal(t, "zoe@example.com", sums[1].Email)
	require.InDelta(t, 3.9, sums[1].Average, 1e-9)
	require.Equal(t, domain.StatusActive, sums[1].Status())
}

func testGrades(t *testing.T, s store.Store) {
	ctx := t.Context()
	teacher := CreateAccount(t, s, "prof@example.com", domain.RoleTeacher, "Profe")
	_, st1 := CreateStudent(t, s, "s1@example.com", "Uno")
	_, st2 := CreateStudent(t, s, "s2@example.com", "Dos")

	older, err := s.Grades().Create(ctx, domain.Grade{
		StudentID: st1, Subject: "Math", Score: 4.5, Period: "2024-1",
		CreatedBy: &teacher, CreatedAt: baseTime,
	})
	require.NoError(t, err)
	newer, err := s.Grades().Create(ctx, domain.Grade{
		StudentID: st2, Subject: "Art", Score: 2, Period: "2024-1",
		CreatedBy: &teacher, CreatedAt: baseTime.Add(time.Minute),
	})
	require.NoError(t, err)

	g, err := s.Grades().Get(ctx, older)
	require.NoError(t, err)
	require.Equal(t, st1, g.StudentID)
	require.Equal(t, "Math", g.Subject)
	require.Equal(t, 4.5, g.Score)
	require.Equal(t, "Uno", g.StudentName)
	require.Equal(t, "Profe", g.CreatedByName)
	require.NotNil(t, g.CreatedBy)
	require.Equal(t, teacher, *g.CreatedBy)
	require.True(t, baseTime.Equal(g.CreatedAt))

	all, err := s.Grades().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, newer, all[0].ID, "newest first")

	mine, err := s.Grades().ListByStudent(ctx, st1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, older, mine[0].ID)

	require.NoError(t, s.Grades().Update(ctx, older, domain.GradeInput{Subject: "Física", Score: 5, Period: "2024-2"}))
	g, err = s.Grades().Get(ctx, older)
	require.NoError(t, err)
	require.Equal(t, "Física", g.Subject)
	require.Equal(t, 5.0, g.Score)
	require.Equal(t, "2024-2", g.Period)
	require.Equal(t, st1, g.StudentID, "student is not changed by update")

	require.ErrorIs(t, s.Grades().Update(ctx, 9999, domain.GradeInput{Subject: "x", Period: "y"}), store.ErrNotFound)

	require.NoError(t, s.Grades().Delete(ctx, older))
	require.ErrorIs(t, s.Grades().Delete(ctx, older), store.ErrNotFound)
	_, err = s.Grades().Get(ctx, older)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Grades().Create(ctx, domain.Grade{StudentID: 9999, Subject: "x", Period: "y", CreatedAt: baseTime})
	require.Error(t, err, "unknown student violates the foreign key")
}

func testCascade(t *testing.T, s store.Store) {
	ctx := t.Context()
	teacher := CreateAccount(t, s, "prof@example.com", domain.RoleTeacher, "Profe")
	acc, st := CreateStudent(t, s, "s@example.com", "Est")

	gid, err := s.Grades().Create(ctx, domain.Grade{
		StudentID: st, Subject: "Math", Score: 3, Period: "p", CreatedBy: &teacher, CreatedAt: baseTime,
	})
	require.NoError(t, err)

	// Removing the author keeps the grade without an author.
	require.NoError(t, s.Accounts().Delete(ctx, teacher))
	g, err := s.Grades().Get(ctx, gid)
	require.NoError(t, err)
	require.Nil(t, g.CreatedBy)
	require.Empty(t, g.CreatedByName)

	// Removing the student removes the student row and its grades.
	require.NoError(t, s.Accounts().Delete(ctx, acc))
	_, err = s.Students().GetByID(ctx, st)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Grades().Get(ctx, gid)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testAudit(t *testing.T, s store.Store) {
	ctx := t.Context()
	id := CreateAccount(t, s, "a@example.com", domain.RoleAdmin, "Alice")

	require.NoError(t, s.Audit().Append(ctx, domain.AuditEntry{
		AccountID: id, Action: "Inicio de sesión", IP: "10.0.0.1", At: baseTime,
	}))
	require.NoError(t, s.Audit().Append(ctx, domain.AuditEntry{
		AccountID: id, Action: "Registro de nota", At: baseTime.Add(time.Second),
	}))
	require.NoError(t, s.Audit().Append(ctx, domain.AuditEntry{
		Action: "Intento fallido", IP: "10.0.0.2", At: baseTime.Add(2 * time.Second),
	}))

	entries, err := s.Audit().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "Intento fallido", entries[0].Action, "newest first")
	require.Zero(t, entries[0].AccountID)
	require.Equal(t, "Alice", entries[1].ActorName)
	require.Empty(t, entries[1].IP)
	require.Equal(t, "10.0.0.1", entries[2].IP)
	require.True(t, baseTime.Equal(entries[2].At))

	limited, err := s.Audit().List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.NoError(t, s.Accounts().Delete(ctx, id))
	entries, err = s.Audit().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, id, entries[1].AccountID)
	require.Empty(t, entries[1].ActorName)
}

func testRevokedTokens(t *testing.T, s store.Store) {
	ctx := t.Context()
	repo := s.RevokedTokens()

	require.NoError(t, repo.Add(ctx, "jti-live", baseTime.Add(time.Hour)))
	require.NoError(t, repo.Add(ctx, "jti-live", baseTime.Add(time.Hour)), "adding twice is fine")
	require.NoError(t, repo.Add(ctx, "jti-old", baseTime.Add(-time.Minute)))

	ok, err := repo.Exists(ctx, "jti-live", baseTime)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Exists(ctx, "jti-old", baseTime)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.Exists(ctx, "unknown", baseTime)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := repo.DeleteExpired(ctx, baseTime)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	ok, err = repo.Exists(ctx, "jti-live", baseTime.Add(59*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Accounts().Create(ctx, domain.Account{
			Email: "tx@example.com", PasswordHash: "x$y", Role: domain.RoleStudent, Name: "Tx",
		})
		require.NoError(t, err)
		return store.ErrAlreadyExists
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Accounts().GetByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound, "rolled back")

	err = s.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.Accounts().Create(ctx, domain.Account{
			Email: "tx@example.com", PasswordHash: "x$y", Role: domain.RoleStudent, Name: "Tx",
		})
		if err != nil {
			return err
		}
		_, err = tx.Students().Create(ctx, domain.Student{AccountID: id, Code: domain.StudentCode(id), Name: "Tx"})
		return err
	})
	require.NoError(t, err)

	a, err := s.Accounts().GetByEmail(ctx, "tx@example.com")
	require.NoError(t, err)
	_, err = s.Students().GetByAccountID(ctx, a.ID)
	require.NoError(t, err)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	_, err = tx.Tx(ctx)
	require.Error(t, err, "nested transactions are not supported")
	require.NoError(t, tx.Rollback())
}
