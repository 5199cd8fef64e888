package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/testutil"
)

func TestBalanceRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	repo := NewBalanceRepository(db)
	ctx := context.Background()

	survival := domain.Scope{Key: "world", Value: "survival"}

	t.Run("get missing row", func(t *testing.T) {
		acct := testutil.SeedUserAccount(t, db, "empty")
		_, err := repo.Get(ctx, acct.ID, "euro", domain.GlobalScope)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("upsert inserts then updates", func(t *testing.T) {
		acct := testutil.SeedUserAccount(t, db, "saver")

		require.NoError(t, repo.Upsert(ctx, acct.ID, "euro", survival, 1500))
		b, err := repo.Get(ctx, acct.ID, "euro", survival)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), b.Amount)
		assert.Equal(t, survival, b.Scope)

		require.NoError(t, repo.Upsert(ctx, acct.ID, "euro", survival, -200))
		b, err = repo.Get(ctx, acct.ID, "euro", survival)
		require.NoError(t, err)
		assert.Equal(t, int64(-200), b.Amount)

		// Scopes are independent rows.
		_, err = repo.Get(ctx, acct.ID, "euro", domain.GlobalScope)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete for account", func(t *testing.T) {
		acct := testutil.SeedUserAccount(t, db, "purged")
		require.NoError(t, repo.Upsert(ctx, acct.ID, "euro", domain.GlobalScope, 100))
		require.NoError(t, repo.Upsert(ctx, acct.ID, "shard", domain.GlobalScope, 50))

		require.NoError(t, repo.DeleteForAccount(ctx, acct.ID))
		assert.Equal(t, 0, testutil.BalanceRowCount(t, db, acct.ID))
	})

	t.Run("top balances", func(t *testing.T) {
		rich := testutil.SeedUserAccount(t, db, "rich")
		mid := testutil.SeedUserAccount(t, db, "mid")
		poor := testutil.SeedUserAccount(t, db, "poor")
		bank := testutil.SeedBank(t, db, "rank-bank", false, false)
		hidden := testutil.SeedBank(t, db, "rank-hidden", true, false)

		testutil.SeedBalance(t, db, rich.ID, "gold", domain.GlobalScope, 9000)
		testutil.SeedBalance(t, db, mid.ID, "gold", domain.GlobalScope, 5000)
		testutil.SeedBalance(t, db, poor.ID, "gold", domain.GlobalScope, 100)
		testutil.SeedBalance(t, db, bank.ID, "gold", domain.GlobalScope, 7000)
		testutil.SeedBalance(t, db, hidden.ID, "gold", domain.GlobalScope, 8000)

		both := []domain.AccountKind{domain.AccountKindUser, domain.AccountKindBank}

		ranked, err := repo.TopBalances(ctx, "gold", domain.GlobalScope, both, 1, 10, false)
		require.NoError(t, err)
		require.Len(t, ranked, 4)
		assert.Equal(t, "rich", ranked[0].AccountName)
		assert.Equal(t, 1, ranked[0].Rank)
		assert.Equal(t, "rank-bank", ranked[1].AccountName)
		assert.Equal(t, "mid", ranked[2].AccountName)
		assert.Equal(t, "poor", ranked[3].AccountName)

		t.Run("hidden banks never consume a rank", func(t *testing.T) {
			withHidden, err := repo.TopBalances(ctx, "gold", domain.GlobalScope, both, 1, 10, true)
			require.NoError(t, err)
			require.Len(t, withHidden, 5)
			assert.Equal(t, "rank-hidden", withHidden[1].AccountName)
			assert.Equal(t, 2, withHidden[1].Rank)
		})

		t.Run("window", func(t *testing.T) {
			window, err := repo.TopBalances(ctx, "gold", domain.GlobalScope, both, 2, 3, false)
			require.NoError(t, err)
			require.Len(t, window, 2)
			assert.Equal(t, "rank-bank", window[0].AccountName)
			assert.Equal(t, 2, window[0].Rank)
			assert.Equal(t, "mid", window[1].AccountName)
			assert.Equal(t, 3, window[1].Rank)
		})

		t.Run("kind filter", func(t *testing.T) {
			users, err := repo.TopBalances(ctx, "gold", domain.GlobalScope, []domain.AccountKind{domain.AccountKindUser}, 1, 10, false)
			require.NoError(t, err)
			require.Len(t, users, 3)
			assert.Equal(t, "rich", users[0].AccountName)
		})

		t.Run("invalid window", func(t *testing.T) {
			_, err := repo.TopBalances(ctx, "gold", domain.GlobalScope, both, 0, 5, false)
			assert.ErrorIs(t, err, domain.ErrInvalidRankWindow)
			_, err = repo.TopBalances(ctx, "gold", domain.GlobalScope, both, 5, 4, false)
			assert.ErrorIs(t, err, domain.ErrInvalidRankWindow)
		})
	})
}
