package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/logging"
)

// Transfer moves an amount between two accounts as withdraw-then-deposit
// with a compensating re-deposit if the destination deposit fails, so
// the total across both accounts is unchanged by any outcome. Both
// account locks are held for the whole sequence, acquired in sorted
// order. A transfer to oneself is a no-op success.
func (l *Ledger) Transfer(ctx context.Context, from, to *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope) (*domain.TransactionResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}
	if from.ID == to.ID {
		return l.publish(from.ID, to.ID, cur, amount, scopes, domain.OutcomeSuccess, domain.OperationTransfer), nil
	}
	scope, ok := cur.ResolveScope(scopes)
	if !ok {
		return l.publish(from.ID, to.ID, cur, amount, scopes, domain.OutcomeContextMismatch, domain.OperationTransfer), nil
	}

	unlock := l.locks.lock(from.ID, to.ID)
	defer unlock()

	minor := cur.ToMinorUnits(amount)

	outcome, err := l.withdrawLocked(ctx, from, cur, minor, scope, false)
	if err != nil {
		return nil, fmt.Errorf("Transfer: withdraw: %w", err)
	}
	if outcome != domain.OutcomeSuccess {
		return l.publish(from.ID, to.ID, cur, amount, scopes, outcome, domain.OperationTransfer), nil
	}

	depositErr := l.depositLocked(ctx, to, cur, minor, scope)
	if depositErr == nil {
		return l.publish(from.ID, to.ID, cur, amount, scopes, domain.OutcomeSuccess, domain.OperationTransfer), nil
	}

	// The source is already debited; put the money back before failing.
	if rbErr := l.depositLocked(ctx, from, cur, minor, scope); rbErr != nil {
		logging.FromContext(ctx).Error("transfer rollback failed, source remains debited",
			"from", from.ID,
			"to", to.ID,
			"currency", cur.ID,
			"amount", amount.String(),
			"deposit_error", depositErr,
			"rollback_error", rbErr,
		)
		l.publish(from.ID, to.ID, cur, amount, scopes, domain.OutcomeFailed, domain.OperationTransfer)
		return nil, fmt.Errorf("Transfer: rollback: %w", errors.Join(depositErr, rbErr))
	}

	l.publish(from.ID, to.ID, cur, amount, scopes, domain.OutcomeFailed, domain.OperationTransfer)
	return nil, fmt.Errorf("Transfer: deposit: %w", depositErr)
}
