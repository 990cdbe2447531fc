package service

import (
	"context"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
)

type StudentService struct {
	Store store.Store
}

// List returns every student with their grade average, ordered by name.
func (s *StudentService) List(ctx context.Context) ([]domain.StudentSummary, error) {
	sums, err := s.Store.Students().ListSummaries(ctx)
	if err != nil {
		return nil, fromStore(err, "students")
	}
	return sums, nil
}
