package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/coinage-io/coinage/internal/domain"
)

type BalanceRepository struct {
	db *sql.DB
}

func NewBalanceRepository(db *sql.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

func (r *BalanceRepository) Get(ctx context.Context, accountID, currency string, scope domain.Scope) (*domain.Balance, error) {
	var b domain.Balance
	var rawScope string
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, currency, scope, amount, created_at, updated_at
		FROM balances
		WHERE account_id = $1 AND currency = $2 AND scope = $3`,
		accountID, currency, scope.String(),
	).Scan(&b.AccountID, &b.Currency, &rawScope, &b.Amount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	b.Scope, err = domain.ParseScope(rawScope)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &b, nil
}

// Upsert writes the row immediately; the insert arm doubles as the lazy
// default materialization on first touch.
func (r *BalanceRepository) Upsert(ctx context.Context, accountID, currency string, scope domain.Scope, amount int64) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO balances (account_id, currency, scope, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (account_id, currency, scope)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`,
		accountID, currency, scope.String(), amount, now,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *BalanceRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM balances WHERE account_id = $1`, accountID,
	)
	if err != nil {
		return fmt.Errorf("DeleteForAccount: %w", err)
	}
	return nil
}

// TopBalances returns accounts ordered by descending amount within the
// 1-based inclusive rank window. Hidden accounts are skipped entirely
// when includeHidden is false, so they never occupy a rank slot. Ties
// keep storage order; no secondary sort is applied.
func (r *BalanceRepository) TopBalances(ctx context.Context, currency string, scope domain.Scope, kinds []domain.AccountKind, fromRank, toRank int, includeHidden bool) ([]domain.RankedBalance, error) {
	if fromRank < 1 || toRank < fromRank {
		return nil, fmt.Errorf("TopBalances: from %d to %d: %w", fromRank, toRank, domain.ErrInvalidRankWindow)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("TopBalances: %w: no account kind requested", domain.ErrInvalidRequest)
	}

	query := `SELECT b.account_id, a.name, a.kind, b.currency, b.scope, b.amount
		FROM balances b
		JOIN accounts a ON a.id = b.account_id
		WHERE b.currency = $1 AND b.scope = $2 AND a.kind = ANY($3)`
	kindNames := make([]string, len(kinds))
	for i, k := range kinds {
		kindNames[i] = string(k)
	}
	args := []any{currency, scope.String(), pq.Array(kindNames)}
	if !includeHidden {
		query += ` AND a.hidden = FALSE`
	}
	query += fmt.Sprintf(` ORDER BY b.amount DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, fromRank-1, toRank-fromRank+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("TopBalances: %w", err)
	}
	defer rows.Close()

	var ranked []domain.RankedBalance
	rank := fromRank
	for rows.Next() {
		var rb domain.RankedBalance
		var rawScope string
		if err := rows.Scan(&rb.AccountID, &rb.AccountName, &rb.Kind, &rb.Currency, &rawScope, &rb.Amount); err != nil {
			return nil, fmt.Errorf("TopBalances: scan: %w", err)
		}
		rb.Scope, err = domain.ParseScope(rawScope)
		if err != nil {
			return nil, fmt.Errorf("TopBalances: %w", err)
		}
		rb.Rank = rank
		rank++
		ranked = append(ranked, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TopBalances: rows: %w", err)
	}
	return ranked, nil
}
