package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-core/ledger"
	"github.com/warp/ledger-core/store/memory"
)

func TestGetOrCreateAccount_CreatesZeroBalanceRowOnMiss(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	acct, err := s.GetOrCreateAccount(ctx, "alice", "uuid-alice", ledger.CurrencyID(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.Version)
	assert.True(t, acct.Balance.IsZero())

	again, err := s.GetOrCreateAccount(ctx, "alice", "uuid-alice", ledger.CurrencyID(1))
	require.NoError(t, err)
	assert.Equal(t, acct.ID, again.ID)
}

func TestUpdateAccountVersioned_RejectsStaleVersion(t *testing.T) {
	// GIVEN: an account at version 1
	// WHEN: two updates race using the same stale version
	// THEN: only the first succeeds; the second reports zero affected rows
	s := memory.New()
	ctx := context.Background()

	acct, err := s.GetOrCreateAccount(ctx, "bob", "", ledger.CurrencyID(1))
	require.NoError(t, err)

	acct.Balance = decimal.RequireFromString("10.00")
	affected, err := s.UpdateAccountVersioned(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	acct.Balance = decimal.RequireFromString("20.00")
	affected, err = s.UpdateAccountVersioned(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 0, affected, "stale version must not be applied")
}

func TestSoftDeleteCurrency_ExcludedFromActiveList(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	id, err := s.InsertCurrency(ctx, ledger.Currency{Identifier: "coin", Name: "Coin"})
	require.NoError(t, err)
	require.NoError(t, s.SoftDeleteCurrency(ctx, id))

	active, err := s.ListActiveCurrencies(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	found, err := s.FindCurrencyByIdentifier(ctx, "coin", true)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Deleted)
}

func TestOldestSnapshotIDs_OrdersByInsertionOrder(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.InsertSnapshotBatch(ctx, []ledger.BackupRow{{SnapshotID: "snap-1", PlayerName: "a", Balance: decimal.Zero}}))
	require.NoError(t, s.InsertSnapshotBatch(ctx, []ledger.BackupRow{{SnapshotID: "snap-2", PlayerName: "a", Balance: decimal.Zero}}))
	require.NoError(t, s.InsertSnapshotBatch(ctx, []ledger.BackupRow{{SnapshotID: "snap-3", PlayerName: "a", Balance: decimal.Zero}}))

	oldest, err := s.OldestSnapshotIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-1", "snap-2"}, oldest)
}

func TestNotReady_RejectsGetOrCreateAccountAfterClose(t *testing.T) {
	s := memory.New()
	s.Close()

	_, err := s.GetOrCreateAccount(context.Background(), "anyone", "", ledger.CurrencyID(1))
	assert.ErrorIs(t, err, ledger.ErrNotReady)
}
