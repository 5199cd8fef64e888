package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinage-io/coinage/internal/domain"
)

// Ledger owns every balance mutation. All operations resolve the
// currency's canonical scope first, then run the read-modify-write under
// the account's lock, and publish exactly one transaction result.
type Ledger struct {
	balances balanceRepository
	bus      publisher
	locks    *accountLocks
}

func NewLedger(balances balanceRepository, bus publisher) *Ledger {
	return &Ledger{
		balances: balances,
		bus:      bus,
		locks:    newAccountLocks(),
	}
}

// Balance returns the account's balance under the resolved scope. A
// never-touched balance reads as the currency's default without a row
// being written; an unresolvable scope reads as zero.
func (l *Ledger) Balance(ctx context.Context, acct *domain.Account, cur *domain.Currency, scopes []domain.Scope) (decimal.Decimal, error) {
	scope, ok := cur.ResolveScope(scopes)
	if !ok {
		return decimal.Zero, nil
	}
	minor, err := l.currentMinor(ctx, acct, cur, scope)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Balance: %w", err)
	}
	return cur.FromMinorUnits(minor), nil
}

// Balances reports the account's balance in every given currency.
func (l *Ledger) Balances(ctx context.Context, acct *domain.Account, currencies []*domain.Currency, scopes []domain.Scope) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(currencies))
	for _, cur := range currencies {
		b, err := l.Balance(ctx, acct, cur, scopes)
		if err != nil {
			return nil, fmt.Errorf("Balances: %s: %w", cur.ID, err)
		}
		out[cur.ID] = b
	}
	return out, nil
}

func (l *Ledger) Deposit(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope) (*domain.TransactionResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}
	scope, ok := cur.ResolveScope(scopes)
	if !ok {
		return l.publish(acct.ID, "", cur, amount, scopes, domain.OutcomeContextMismatch, domain.OperationDeposit), nil
	}

	unlock := l.locks.lock(acct.ID)
	defer unlock()

	if err := l.depositLocked(ctx, acct, cur, cur.ToMinorUnits(amount), scope); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	return l.publish(acct.ID, "", cur, amount, scopes, domain.OutcomeSuccess, domain.OperationDeposit), nil
}

func (l *Ledger) Withdraw(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope, force bool) (*domain.TransactionResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}
	scope, ok := cur.ResolveScope(scopes)
	if !ok {
		return l.publish(acct.ID, "", cur, amount, scopes, domain.OutcomeContextMismatch, domain.OperationWithdraw), nil
	}

	unlock := l.locks.lock(acct.ID)
	defer unlock()

	outcome, err := l.withdrawLocked(ctx, acct, cur, cur.ToMinorUnits(amount), scope, force)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	return l.publish(acct.ID, "", cur, amount, scopes, outcome, domain.OperationWithdraw), nil
}

// SetBalance overwrites the balance unconditionally, materializing the
// row if needed. Negative amounts are allowed.
func (l *Ledger) SetBalance(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope) (*domain.TransactionResult, error) {
	return l.set(ctx, acct, cur, amount, scopes, domain.OperationSet)
}

// Reset is SetBalance to the currency's default for the account kind.
func (l *Ledger) Reset(ctx context.Context, acct *domain.Account, cur *domain.Currency, scopes []domain.Scope) (*domain.TransactionResult, error) {
	def := cur.FromMinorUnits(cur.DefaultBalance(acct.Kind))
	return l.set(ctx, acct, cur, def, scopes, domain.OperationReset)
}

func (l *Ledger) set(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope, op domain.Operation) (*domain.TransactionResult, error) {
	scope, ok := cur.ResolveScope(scopes)
	if !ok {
		return l.publish(acct.ID, "", cur, amount, scopes, domain.OutcomeContextMismatch, op), nil
	}

	unlock := l.locks.lock(acct.ID)
	defer unlock()

	if err := l.balances.Upsert(ctx, acct.ID, cur.ID, scope, cur.ToMinorUnits(amount)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l.publish(acct.ID, "", cur, amount, scopes, domain.OutcomeSuccess, op), nil
}

// currentMinor reads the stored amount, falling back to the currency's
// default for the account kind when no row exists yet. It never writes.
func (l *Ledger) currentMinor(ctx context.Context, acct *domain.Account, cur *domain.Currency, scope domain.Scope) (int64, error) {
	b, err := l.balances.Get(ctx, acct.ID, cur.ID, scope)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return cur.DefaultBalance(acct.Kind), nil
		}
		return 0, err
	}
	return b.Amount, nil
}

func (l *Ledger) depositLocked(ctx context.Context, acct *domain.Account, cur *domain.Currency, minor int64, scope domain.Scope) error {
	current, err := l.currentMinor(ctx, acct, cur, scope)
	if err != nil {
		return err
	}
	return l.balances.Upsert(ctx, acct.ID, cur.ID, scope, current+minor)
}

func (l *Ledger) withdrawLocked(ctx context.Context, acct *domain.Account, cur *domain.Currency, minor int64, scope domain.Scope, force bool) (domain.Outcome, error) {
	current, err := l.currentMinor(ctx, acct, cur, scope)
	if err != nil {
		return "", err
	}
	remaining := current - minor
	if !force && remaining < cur.MinimumBalance(acct.Kind) {
		return domain.OutcomeInsufficientFunds, nil
	}
	if err := l.balances.Upsert(ctx, acct.ID, cur.ID, scope, remaining); err != nil {
		return "", err
	}
	return domain.OutcomeSuccess, nil
}

func (l *Ledger) publish(accountID, counterparty string, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope, outcome domain.Outcome, op domain.Operation) *domain.TransactionResult {
	result := domain.TransactionResult{
		AccountID:    accountID,
		Counterparty: counterparty,
		Currency:     cur.ID,
		Amount:       amount,
		Scopes:       scopes,
		Outcome:      outcome,
		Operation:    op,
		OccurredAt:   time.Now().UTC(),
	}
	l.bus.Publish(result)
	return &result
}
