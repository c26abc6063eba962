package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/ledger-core/ledger"
	"github.com/warp/ledger-core/store/memory"
)

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	store := memory.New()
	l, err := ledger.New(ledger.Config{
		DefaultCurrency: ledger.DefaultCurrencyConfig{
			Identifier: "coin", Name: "Coin", Symbol: "¤", Precision: 2, DefaultMaxBalance: -1,
		},
		MaxVersionRetries: 5,
	}, store, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(l.Shutdown)
	return l
}

func TestNew_BootstrapsDefaultPrimaryCurrency(t *testing.T) {
	// GIVEN: an empty store
	// WHEN: the ledger is constructed
	// THEN: a primary currency matching the configured default exists
	l := newTestLedger(t)

	cur, ok := l.Currencies().GetPrimary()
	require.True(t, ok)
	assert.Equal(t, "coin", cur.Identifier)
	assert.True(t, cur.Primary)
}

func TestDepositDirect_AccumulatesBalance(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	res := l.DepositDirect(ctx, "alice", "uuid-alice", "coin", decimal.RequireFromString("10.00"), "test", "system")
	require.True(t, res.Success)
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("10.00")))

	res = l.DepositDirect(ctx, "alice", "uuid-alice", "coin", decimal.RequireFromString("5.50"), "test", "system")
	require.True(t, res.Success)
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("15.50")))
}

func TestWithdrawDirect_InsufficientFunds(t *testing.T) {
	// GIVEN: a zero balance account
	// WHEN: withdrawing more than available
	// THEN: the operation fails with ErrInsufficientFunds and the balance is untouched
	l := newTestLedger(t)
	ctx := context.Background()

	res := l.WithdrawDirect(ctx, "bob", "", "coin", decimal.RequireFromString("1.00"), "test", "system")
	assert.False(t, res.Success)
	assert.Equal(t, ledger.CodeInsufficientFunds, res.Code)

	bal, err := l.Balance(ctx, "bob", "", "coin")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestDeposit_Cached_ReflectsImmediatelyAndPersistsEventually(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.LoadPlayer(ctx, "carol", "uuid-carol"))

	res := l.Deposit(ctx, "carol", "uuid-carol", "coin", decimal.RequireFromString("20.00"), "test", "system")
	require.True(t, res.Success)
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("20.00")))

	bal, err := l.Balance(ctx, "carol", "uuid-carol", "coin")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("20.00")))
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	res := l.Deposit(ctx, "dave", "", "coin", decimal.Zero, "test", "system")
	assert.False(t, res.Success)
	assert.Equal(t, ledger.CodeInvalidAmount, res.Code)
}

func TestSetBalance_OverwritesRegardlessOfSign(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	res := l.DepositDirect(ctx, "erin", "", "coin", decimal.RequireFromString("100"), "seed", "system")
	require.True(t, res.Success)

	res = l.SetBalanceDirect(ctx, "erin", "", "coin", decimal.RequireFromString("42.00"), "admin override", "admin")
	require.True(t, res.Success)
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("42.00")))
}

func TestPreHookCancel_PreventsMutationAndEveryHookStillFires(t *testing.T) {
	// GIVEN: two pre-hooks, the first cancels
	// WHEN: a deposit is attempted
	// THEN: the mutation is rejected and BOTH hooks still observed the event
	l := newTestLedger(t)
	ctx := context.Background()

	var mu sync.Mutex
	fired := map[string]bool{}

	l.SubscribePreMutation(func(evt *ledger.PreHookEvent) {
		mu.Lock()
		fired["first"] = true
		mu.Unlock()
		evt.Cancel = true
	})
	l.SubscribePreMutation(func(evt *ledger.PreHookEvent) {
		mu.Lock()
		fired["second"] = true
		mu.Unlock()
	})

	res := l.DepositDirect(ctx, "frank", "", "coin", decimal.RequireFromString("5.00"), "test", "system")
	assert.False(t, res.Success)
	assert.Equal(t, ledger.CodeCancelled, res.Code)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, fired["first"])
	assert.True(t, fired["second"])
}

func TestConcurrentDirectDeposits_RetryLoopConverges(t *testing.T) {
	// GIVEN: many goroutines depositing concurrently via the direct path
	// WHEN: all complete
	// THEN: every deposit is reflected in the final balance (no lost updates)
	l := newTestLedger(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			res := l.DepositDirect(ctx, "grace", "", "coin", decimal.RequireFromString("1.00"), "concurrent", "system")
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()

	bal, err := l.Balance(ctx, "grace", "", "coin")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("50.00")))
}

func TestUnknownCurrency_ReturnsError(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	res := l.Deposit(ctx, "harold", "", "doesnotexist", decimal.RequireFromString("1.00"), "test", "system")
	assert.False(t, res.Success)
	assert.Equal(t, ledger.CodeUnknownCurrency, res.Code)
}

func TestDisabledCurrency_RejectsMutation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Currencies().Create(ctx, "gem", "Gem", 0, "g", -1, false)
	require.NoError(t, err)
	require.NoError(t, l.Currencies().Disable(ctx, "gem"))

	res := l.Deposit(ctx, "ivy", "", "gem", decimal.RequireFromString("1"), "test", "system")
	assert.False(t, res.Success)
	assert.Equal(t, ledger.CodeCurrencyDisabled, res.Code)
}

func TestMaxBalance_AccountOverrideTakesPrecedenceOverCurrencyDefault(t *testing.T) {
	cur := ledger.Currency{DefaultMaxBalance: 100}
	withOverride := ledger.Account{MaxBalance: 10}
	withoutOverride := ledger.Account{MaxBalance: 0}

	assert.Equal(t, int64(10), ledger.EffectiveMaxBalance(withOverride, cur))
	assert.Equal(t, int64(100), ledger.EffectiveMaxBalance(withoutOverride, cur))
}

func TestSnapshotAndRollback_RestoresPriorBalance(t *testing.T) {
	// GIVEN: a player with balance 30, a snapshot, then a further withdrawal
	// WHEN: the snapshot is rolled back
	// THEN: the balance returns to its value at snapshot time
	l := newTestLedger(t)
	ctx := context.Background()

	res := l.DepositDirect(ctx, "jack", "", "coin", decimal.RequireFromString("30.00"), "seed", "system")
	require.True(t, res.Success)

	snapshotID, err := l.CreateSnapshot(ctx, "pre-withdrawal")
	require.NoError(t, err)
	require.NotEmpty(t, snapshotID)

	res = l.WithdrawDirect(ctx, "jack", "", "coin", decimal.RequireFromString("30.00"), "spend it all", "system")
	require.True(t, res.Success)

	restored, err := l.RollbackPlayer(ctx, snapshotID, "jack")
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	bal, err := l.Balance(ctx, "jack", "", "coin")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("30.00")))
}

func TestRollback_UnknownSnapshot_ReturnsNotFound(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Rollback(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ledger.ErrSnapshotNotFound)
}

func TestAuditHistory_RecordsDirectMutations(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.True(t, l.DepositDirect(ctx, "kate", "", "coin", decimal.RequireFromString("5.00"), "first", "system").Success)
	require.True(t, l.DepositDirect(ctx, "kate", "", "coin", decimal.RequireFromString("7.00"), "second", "system").Success)

	page, err := l.AuditHistory(ctx, "kate", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Records, 2)
}

func TestCurrencyRegistry_SoftDeleteIsPermanentToLookup(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Currencies().Create(ctx, "temp", "Temp", 2, "t", -1, false)
	require.NoError(t, err)
	require.NoError(t, l.Currencies().Delete(ctx, "temp"))

	_, ok := l.Currencies().GetByIdentifier("temp")
	assert.False(t, ok)
}

func TestCurrencyRegistry_CannotDeletePrimary(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	err := l.Currencies().Delete(ctx, "coin")
	assert.ErrorIs(t, err, ledger.ErrPrimaryCurrencyProtected)
}

func TestSetMaxBalance_OverridesEffectiveMax(t *testing.T) {
	// GIVEN: a currency with default_max_balance 10
	// WHEN: a player's account max_balance override is raised to 100
	// THEN: a deposit that would have exceeded the currency default succeeds
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Currencies().Create(ctx, "strict", "Strict", 0, "s", 10, false)
	require.NoError(t, err)

	res := l.DepositDirect(ctx, "leo", "", "strict", decimal.RequireFromString("11"), "test", "system")
	assert.False(t, res.Success)
	assert.Equal(t, ledger.CodeLimitExceeded, res.Code)

	require.NoError(t, l.SetMaxBalance(ctx, "leo", "", "strict", 100))

	res = l.DepositDirect(ctx, "leo", "", "strict", decimal.RequireFromString("11"), "test", "system")
	assert.True(t, res.Success)
}

func TestCreateSnapshot_NoAccounts_ReturnsEmpty(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateSnapshot(ctx, "empty")
	assert.ErrorIs(t, err, ledger.ErrSnapshotEmpty)
}

func TestRollback_AuditAmountIsAbsoluteValue(t *testing.T) {
	// GIVEN: a player with balance 30 at snapshot time, then a deposit to 50
	// WHEN: the snapshot is rolled back (a balance decrease)
	// THEN: the ROLLBACK audit row's amount is the positive magnitude of the change
	l := newTestLedger(t)
	ctx := context.Background()

	require.True(t, l.DepositDirect(ctx, "mia", "", "coin", decimal.RequireFromString("30.00"), "seed", "system").Success)
	snapshotID, err := l.CreateSnapshot(ctx, "pre-deposit")
	require.NoError(t, err)

	require.True(t, l.DepositDirect(ctx, "mia", "", "coin", decimal.RequireFromString("20.00"), "more", "system").Success)

	restored, err := l.RollbackPlayer(ctx, snapshotID, "mia")
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	page, err := l.AuditHistory(ctx, "mia", 0, 1)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.True(t, page.Records[0].Amount.IsPositive())
	assert.True(t, page.Records[0].Amount.Equal(decimal.RequireFromString("20.00")))
}

func TestCurrencyRegistry_LookupIsCaseInsensitive(t *testing.T) {
	l := newTestLedger(t)
	_, ok := l.Currencies().GetByIdentifier("COIN")
	assert.True(t, ok)
}
