package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coinage-io/coinage/internal/domain"
)

func SeedUserAccount(t *testing.T, db *sql.DB, name string) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      domain.AccountKindUser,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, name, kind, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Name, a.Kind, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user account %s: %v", name, err)
	}
	return a
}

func SeedBank(t *testing.T, db *sql.DB, name string, hidden, needsInvite bool) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:          name,
		Name:        name,
		Kind:        domain.AccountKindBank,
		Hidden:      hidden,
		NeedsInvite: needsInvite,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, name, kind, hidden, needs_invite, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.Kind, a.Hidden, a.NeedsInvite, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed bank %s: %v", name, err)
	}
	return a
}

func SeedBankAccess(t *testing.T, db *sql.DB, bankID string, user uuid.UUID, level domain.AccessLevel) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO bank_access (account_id, user_id, level) VALUES ($1, $2, $3)`,
		bankID, user, level,
	)
	if err != nil {
		t.Fatalf("seed bank access %s/%s: %v", bankID, user, err)
	}
}

func SeedBalance(t *testing.T, db *sql.DB, accountID, currency string, scope domain.Scope, amount int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO balances (account_id, currency, scope, amount) VALUES ($1, $2, $3, $4)`,
		accountID, currency, scope.String(), amount,
	)
	if err != nil {
		t.Fatalf("seed balance %s/%s: %v", accountID, currency, err)
	}
}

func GetBalance(t *testing.T, db *sql.DB, accountID, currency string, scope domain.Scope) int64 {
	t.Helper()

	var amount int64
	err := db.QueryRow(
		`SELECT amount FROM balances WHERE account_id = $1 AND currency = $2 AND scope = $3`,
		accountID, currency, scope.String(),
	).Scan(&amount)
	if err != nil {
		t.Fatalf("get balance %s/%s: %v", accountID, currency, err)
	}
	return amount
}

func BalanceRowCount(t *testing.T, db *sql.DB, accountID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM balances WHERE account_id = $1`, accountID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count balance rows for %s: %v", accountID, err)
	}
	return count
}
