package service

import (
	"context"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
)

// GradeService manages the grade ledger. Input is validated before any
// store call, and mutations are audited once they have committed.
type GradeService struct {
	Store store.Store
	Audit Auditor
}

func (s *GradeService) auditor() Auditor {
	if s.Audit == nil {
		return NopAuditor{}
	}
	return s.Audit
}

// List returns every grade, newest first.
func (s *GradeService) List(ctx context.Context) ([]domain.Grade, error) {
	grades, err := s.Store.Grades().List(ctx)
	if err != nil {
		return nil, fromStore(err, "grades")
	}
	return grades, nil
}

// ListMine returns the grades of the caller's student record.
func (s *GradeService) ListMine(ctx context.Context, p domain.Principal) ([]domain.Grade, error) {
	st, err := s.Store.Students().GetByAccountID(ctx, p.UserID)
	if err != nil {
		return nil, fromStore(err, "student")
	}

	grades, err := s.Store.Grades().ListByStudent(ctx, st.ID)
	if err != nil {
		return nil, fromStore(err, "grades")
	}
	return grades, nil
}

// Create records a grade authored by actor.
func (s *GradeService) Create(ctx context.Context, actor domain.Principal, in domain.GradeInput, ip string) (domain.Grade, error) {
	if err := in.Validate(); err != nil {
		return domain.Grade{}, err
	}

	var created domain.Grade
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Students().GetByID(ctx, in.StudentID); err != nil {
			return fromStore(err, "student")
		}

		author := actor.UserID
		id, err := tx.Grades().Create(ctx, domain.Grade{
			StudentID: in.StudentID,
			Subject:   in.Subject,
			Score:     in.Score,
			Period:    in.Period,
			CreatedBy: &author,
		})
		if err != nil {
			return err
		}

		created, err = tx.Grades().Get(ctx, id)
		return err
	})
	if err != nil {
		return domain.Grade{}, fromStore(err, "grade")
	}

	s.auditor().Record(ctx, actor.UserID, ActionGradeCreate, ip)
	return created, nil
}

// Update replaces subject, score and period of grade id.
func (s *GradeService) Update(ctx context.Context, actor domain.Principal, id int64, in domain.GradeInput, ip string) (domain.Grade, error) {
	if err := in.Validate(); err != nil {
		return domain.Grade{}, err
	}

	var updated domain.Grade
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Grades().Update(ctx, id, in); err != nil {
			return err
		}
		var err error
		updated, err = tx.Grades().Get(ctx, id)
		return err
	})
	if err != nil {
		return domain.Grade{}, fromStore(err, "grade")
	}

	s.auditor().Record(ctx, actor.UserID, ActionGradeUpdate, ip)
	return updated, nil
}

// Delete removes grade id.
func (s *GradeService) Delete(ctx context.Context, actor domain.Principal, id int64, ip string) error {
	if err := s.Store.Grades().Delete(ctx, id); err != nil {
		return fromStore(err, "grade")
	}
	s.auditor().Record(ctx, actor.UserID, ActionGradeDelete, ip)
	return nil
}
