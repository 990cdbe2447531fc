package service

import (
	"context"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// AccountService is the admin view of the account directory.
type AccountService struct {
	Store store.Store
	Audit Auditor
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accs, err := s.Store.Accounts().List(ctx)
	if err != nil {
		return nil, fromStore(err, "accounts")
	}
	return accs, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (domain.Account, error) {
	acc, err := s.Store.Accounts().GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, fromStore(err, "account")
	}
	return acc, nil
}

// Delete removes an account with its student record and grades. The
// caller's own account is refused before anything is looked up.
func (s *AccountService) Delete(ctx context.Context, actor domain.Principal, id int64, ip string) error {
	if id == actor.UserID {
		return ErrSelfDelete
	}

	if err := s.Store.Accounts().Delete(ctx, id); err != nil {
		return fromStore(err, "account")
	}

	if s.Audit != nil {
		s.Audit.Record(ctx, actor.UserID, ActionAccountDelete, ip)
	}
	slogx.FromContext(ctx).Info("account deleted", "user_id", actor.UserID, "deleted_id", id)
	return nil
}
