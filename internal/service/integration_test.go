package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/events"
	"github.com/coinage-io/coinage/internal/repository"
	"github.com/coinage-io/coinage/internal/testutil"
)

// Full-stack run against a real database: accounts, bank membership,
// ledger operations and ranked listings through the actual repositories.
func TestLedgerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	accountRepo := repository.NewAccountRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	bus := events.NewBus()
	var published []domain.TransactionResult
	bus.Subscribe(func(r domain.TransactionResult) { published = append(published, r) })

	accounts := NewAccountService(accountRepo)
	banks := NewBankService(accountRepo)
	ledger := NewLedger(balanceRepo, bus)
	query := NewQueryService(balanceRepo)

	cur := euro(t)

	aliceID, bobID := uuid.New(), uuid.New()
	alice, err := accounts.GetOrCreateUser(ctx, aliceID, "Alice")
	require.NoError(t, err)
	bob, err := accounts.GetOrCreateUser(ctx, bobID, "Bob")
	require.NoError(t, err)

	// Fresh accounts read the default without a stored row.
	balance, err := ledger.Balance(ctx, alice, cur, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 0, testutil.BalanceRowCount(t, db, alice.ID))

	// Transfer materializes both sides and conserves the total.
	result, err := ledger.Transfer(ctx, alice, bob, cur, decimal.NewFromInt(250), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.Equal(t, int64(75000), testutil.GetBalance(t, db, alice.ID, cur.ID, domain.GlobalScope))
	assert.Equal(t, int64(125000), testutil.GetBalance(t, db, bob.ID, cur.ID, domain.GlobalScope))

	// Bank balances flow through the same ledger.
	bank, err := banks.Create(ctx, "town-vault", aliceID, false, false)
	require.NoError(t, err)

	result, err = ledger.Deposit(ctx, bank, cur, decimal.NewFromInt(5000), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	result, err = ledger.Transfer(ctx, bank, bob, cur, decimal.NewFromInt(100), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, int64(490000), testutil.GetBalance(t, db, bank.ID, cur.ID, domain.GlobalScope))

	// Hidden banks stay out of the rankings.
	hidden, err := banks.Create(ctx, "shadow-vault", aliceID, true, true)
	require.NoError(t, err)
	_, err = ledger.SetBalance(ctx, hidden, cur, decimal.NewFromInt(99999), nil)
	require.NoError(t, err)

	ranked, err := query.TopBalances(ctx, cur, nil, nil, 1, 10, false)
	require.NoError(t, err)
	names := make([]string, len(ranked))
	for i, rb := range ranked {
		names[i] = rb.AccountName
	}
	assert.Equal(t, []string{"town-vault", "Bob", "Alice"}, names)

	ranked, err = query.TopBalances(ctx, cur, nil, nil, 1, 10, true)
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "shadow-vault", ranked[0].AccountName)

	// Every mutating operation published exactly one event.
	assert.Len(t, published, 4)

	// Deleting the account clears its rows through the cascade.
	require.NoError(t, accounts.Delete(ctx, bob.ID))
	assert.Equal(t, 0, testutil.BalanceRowCount(t, db, bob.ID))
}
