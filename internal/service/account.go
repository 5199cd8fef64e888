package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/logging"
)

type AccountService struct {
	accounts accountRepository
}

func NewAccountService(accounts accountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

// GetOrCreateUser loads the user's account, creating it on first touch.
// A changed display name is synced on load.
func (s *AccountService) GetOrCreateUser(ctx context.Context, userID uuid.UUID, name string) (*domain.Account, error) {
	id := userID.String()
	if name == "" {
		name = id
	}

	acct, err := s.accounts.GetByID(ctx, id)
	if err == nil {
		if acct.Name != name {
			if err := s.accounts.Rename(ctx, id, name); err != nil {
				return nil, fmt.Errorf("GetOrCreateUser: sync name: %w", err)
			}
			acct.Name = name
		}
		return acct, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("GetOrCreateUser: %w", err)
	}

	acct = &domain.Account{
		ID:        id,
		Name:      name,
		Kind:      domain.AccountKindUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, fmt.Errorf("GetOrCreateUser: %w", err)
	}

	logging.FromContext(ctx).Info("account created", "account_id", acct.ID, "kind", acct.Kind)
	return acct, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Get: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return acct, nil
}

// Delete removes the account and, via cascade, its balances and access
// rows.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("Delete: %w", domain.ErrAccountNotFound)
		}
		return fmt.Errorf("Delete: %w", err)
	}
	logging.FromContext(ctx).Info("account deleted", "account_id", id)
	return nil
}
