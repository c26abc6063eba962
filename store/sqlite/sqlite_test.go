package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-core/ledger"
	"github.com/warp/ledger-core/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndFindCurrency_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertCurrency(ctx, ledger.Currency{
		Identifier: "coin", Name: "Coin", Symbol: "c", Precision: 2, DefaultMaxBalance: -1, Enabled: true,
	})
	require.NoError(t, err)

	found, err := store.FindCurrencyByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "coin", found.Identifier)
	assert.Equal(t, 2, found.Precision)
}

func TestInsertCurrency_DuplicateIdentifierRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCurrency(ctx, ledger.Currency{Identifier: "gem", Name: "Gem"})
	require.NoError(t, err)

	_, err = store.InsertCurrency(ctx, ledger.Currency{Identifier: "gem", Name: "Gem Again"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdentifier)
}

func TestGetOrCreateAccount_PersistsAcrossCalls(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	curID, err := store.InsertCurrency(ctx, ledger.Currency{Identifier: "coin", Name: "Coin"})
	require.NoError(t, err)

	first, err := store.GetOrCreateAccount(ctx, "alice", "uuid-alice", curID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	second, err := store.GetOrCreateAccount(ctx, "alice", "uuid-alice", curID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpdateAccountVersioned_OptimisticConflictDetected(t *testing.T) {
	// GIVEN: an account read at version 1
	// WHEN: it is updated once successfully, then updated again using the
	//       same stale version
	// THEN: the second update reports zero affected rows
	store := newTestStore(t)
	ctx := context.Background()

	curID, err := store.InsertCurrency(ctx, ledger.Currency{Identifier: "coin", Name: "Coin"})
	require.NoError(t, err)

	acct, err := store.GetOrCreateAccount(ctx, "bob", "", curID)
	require.NoError(t, err)

	acct.Balance = decimal.RequireFromString("10.00")
	affected, err := store.UpdateAccountVersioned(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	acct.Balance = decimal.RequireFromString("999.00")
	affected, err = store.UpdateAccountVersioned(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 0, affected)
}

func TestInsertAudit_AndQueryByPlayer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	curID, err := store.InsertCurrency(ctx, ledger.Currency{Identifier: "coin", Name: "Coin"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.InsertAudit(ctx, ledger.TransactionRecord{
			PlayerName: "carol", CurrencyID: curID, Type: ledger.TxDeposit,
			Amount: decimal.RequireFromString("1.00"), BalanceBefore: decimal.Zero, BalanceAfter: decimal.RequireFromString("1.00"),
		})
		require.NoError(t, err)
	}

	page, err := store.QueryAuditByPlayer(ctx, "carol", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Records, 2)
}

func TestSnapshotBatchAndRetention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	curID, err := store.InsertCurrency(ctx, ledger.Currency{Identifier: "coin", Name: "Coin"})
	require.NoError(t, err)

	require.NoError(t, store.InsertSnapshotBatch(ctx, []ledger.BackupRow{
		{SnapshotID: "snap-a", PlayerName: "dave", CurrencyID: curID, Balance: decimal.RequireFromString("5.00")},
	}))
	require.NoError(t, store.InsertSnapshotBatch(ctx, []ledger.BackupRow{
		{SnapshotID: "snap-b", PlayerName: "dave", CurrencyID: curID, Balance: decimal.RequireFromString("7.00")},
	}))

	count, err := store.CountDistinctSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	oldest, err := store.OldestSnapshotIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-a"}, oldest)

	require.NoError(t, store.DeleteSnapshot(ctx, "snap-a"))
	count, err = store.CountDistinctSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
