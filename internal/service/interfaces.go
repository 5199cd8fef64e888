package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/coinage-io/coinage/internal/domain"
)

type accountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	Rename(ctx context.Context, id, newName string) error
	RenameBank(ctx context.Context, id, newName string) error
	Delete(ctx context.Context, id string) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	SetNeedsInvite(ctx context.Context, id string, needsInvite bool) error
	GetAccess(ctx context.Context, accountID string, userID uuid.UUID) (*domain.BankAccess, error)
	SetAccess(ctx context.Context, access *domain.BankAccess) error
	DeleteAccess(ctx context.Context, accountID string, userID uuid.UUID) error
	ListAccess(ctx context.Context, accountID string) ([]domain.BankAccess, error)
	ListBanksForUser(ctx context.Context, userID uuid.UUID, levels []domain.AccessLevel) ([]domain.Account, error)
	ListBanks(ctx context.Context, includeHidden bool) ([]domain.Account, error)
}

type balanceRepository interface {
	Get(ctx context.Context, accountID, currency string, scope domain.Scope) (*domain.Balance, error)
	Upsert(ctx context.Context, accountID, currency string, scope domain.Scope, amount int64) error
	TopBalances(ctx context.Context, currency string, scope domain.Scope, kinds []domain.AccountKind, fromRank, toRank int, includeHidden bool) ([]domain.RankedBalance, error)
}

type publisher interface {
	Publish(result domain.TransactionResult)
}
