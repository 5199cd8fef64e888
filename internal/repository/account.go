package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/coinage-io/coinage/internal/domain"
)

const accountColumns = `id, name, kind, hidden, needs_invite, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, kind, hidden, needs_invite, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.Name, account.Kind, account.Hidden, account.NeedsInvite, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrAccountExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) Rename(ctx context.Context, id, newName string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = $1 WHERE id = $2`, newName, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Rename: %w", domain.ErrNameTaken)
		}
		return fmt.Errorf("Rename: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("Rename: %w", err)
	}
	return nil
}

// RenameBank changes both the identifier and display name of a bank,
// since banks are keyed by name. The foreign keys on balances and
// bank_access cascade on update, so the children follow the new
// identifier within the same statement.
func (r *AccountRepository) RenameBank(ctx context.Context, id, newName string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 OR (name = $1 AND kind = 'bank'))`,
		newName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("RenameBank: check name: %w", err)
	}
	if exists {
		return fmt.Errorf("RenameBank: %w", domain.ErrNameTaken)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET id = $1, name = $1 WHERE id = $2 AND kind = 'bank'`, newName, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("RenameBank: %w", domain.ErrNameTaken)
		}
		return fmt.Errorf("RenameBank: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("RenameBank: %w", err)
	}
	return nil
}

// Delete removes the account; balances and access rows cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (r *AccountRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET hidden = $1 WHERE id = $2`, hidden, id,
	)
	if err != nil {
		return fmt.Errorf("SetHidden: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("SetHidden: %w", err)
	}
	return nil
}

func (r *AccountRepository) SetNeedsInvite(ctx context.Context, id string, needsInvite bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET needs_invite = $1 WHERE id = $2`, needsInvite, id,
	)
	if err != nil {
		return fmt.Errorf("SetNeedsInvite: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("SetNeedsInvite: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetAccess(ctx context.Context, accountID string, userID uuid.UUID) (*domain.BankAccess, error) {
	var a domain.BankAccess
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, user_id, level, created_at FROM bank_access
		WHERE account_id = $1 AND user_id = $2`,
		accountID, userID,
	).Scan(&a.AccountID, &a.UserID, &a.Level, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetAccess: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetAccess: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) SetAccess(ctx context.Context, access *domain.BankAccess) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_access (account_id, user_id, level, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, user_id) DO UPDATE SET level = EXCLUDED.level`,
		access.AccountID, access.UserID, access.Level, access.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("SetAccess: %w", err)
	}
	return nil
}

func (r *AccountRepository) DeleteAccess(ctx context.Context, accountID string, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM bank_access WHERE account_id = $1 AND user_id = $2`,
		accountID, userID,
	)
	if err != nil {
		return fmt.Errorf("DeleteAccess: %w", err)
	}
	return nil
}

func (r *AccountRepository) ListAccess(ctx context.Context, accountID string) ([]domain.BankAccess, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, user_id, level, created_at FROM bank_access
		WHERE account_id = $1 ORDER BY created_at`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAccess: %w", err)
	}
	defer rows.Close()

	var access []domain.BankAccess
	for rows.Next() {
		var a domain.BankAccess
		if err := rows.Scan(&a.AccountID, &a.UserID, &a.Level, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAccess: scan: %w", err)
		}
		access = append(access, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAccess: rows: %w", err)
	}
	return access, nil
}

// ListBanksForUser returns the banks where the user holds at least the
// given access level, ordered by bank name.
func (r *AccountRepository) ListBanksForUser(ctx context.Context, userID uuid.UUID, levels []domain.AccessLevel) ([]domain.Account, error) {
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = string(l)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+prefixedAccountColumns("a")+` FROM accounts a
		JOIN bank_access ba ON ba.account_id = a.id
		WHERE ba.user_id = $1 AND ba.level = ANY($2) AND a.kind = 'bank'
		ORDER BY a.name`,
		userID, pq.Array(names),
	)
	if err != nil {
		return nil, fmt.Errorf("ListBanksForUser: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows, "ListBanksForUser")
}

func (r *AccountRepository) ListBanks(ctx context.Context, includeHidden bool) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE kind = 'bank'`
	if !includeHidden {
		query += ` AND hidden = FALSE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListBanks: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows, "ListBanks")
}

func collectAccounts(rows *sql.Rows, op string) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return accounts, nil
}

func prefixedAccountColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.kind, ` +
		alias + `.hidden, ` + alias + `.needs_invite, ` + alias + `.created_at`
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(&a.ID, &a.Name, &a.Kind, &a.Hidden, &a.NeedsInvite, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
