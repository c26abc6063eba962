/*
account.go - Account store and write-behind balance cache (spec §4.6).

PURPOSE:
  Two mutation paths share the same validation and hook dispatch:

  Cached path (deposit/withdraw/setBalance): the in-memory balance is
  updated synchronously and returned to the caller immediately; the
  persisted write happens on the async executor. If the async persist
  loses the optimistic-version race, the cache entry is resynced from
  the freshly-read row rather than rolled back to the pre-mutation
  value, since a concurrent writer already committed a newer balance
  the caller should see. If the persist fails outright (not a version
  conflict), the cache entry is rolled back to its pre-mutation value.

  Direct path (depositDirect/withdrawDirect/setBalanceDirect): no
  cache involved. A bounded compare-and-swap retry loop re-reads the
  row, recomputes, and attempts UpdateAccountVersioned until it
  succeeds or MaxVersionRetries is exhausted, in which case ErrConflict
  is returned.

GROUNDING:
  Grounded on the teacher's generic/ledger.go DefaultLedger delegation
  style (validate, mutate, persist, audit) and generic/store.go's
  EntityStore read/write split; the write-behind cache and CAS retry
  loop have no teacher analog and are built fresh per spec §4.6,
  following the same decimal-first, sentinel-error conventions
  established in errors.go and precision.go.
*/
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// cacheKey identifies one account's cache slot.
type cacheKey struct {
	playerName string
	currencyID CurrencyID
}

// cacheEntry is the in-memory mirror of an account row.
type cacheEntry struct {
	account Account
}

// AccountStoreCache is the account store and write-behind cache.
type AccountStoreCache struct {
	store    AccountStore
	registry *CurrencyRegistry
	audit    *AuditWriter
	hooks    *hookRegistry
	async    *AsyncExecutor
	metrics  *Metrics
	logger   *zap.Logger
	cfg      Config

	mu    sync.RWMutex
	cache map[cacheKey]*cacheEntry

	ready bool
}

func newAccountStoreCache(store AccountStore, registry *CurrencyRegistry, audit *AuditWriter, hooks *hookRegistry, async *AsyncExecutor, metrics *Metrics, logger *zap.Logger, cfg Config) *AccountStoreCache {
	return &AccountStoreCache{
		store:    store,
		registry: registry,
		audit:    audit,
		hooks:    hooks,
		async:    async,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		cache:    make(map[cacheKey]*cacheEntry),
		ready:    true,
	}
}

// loadPlayerBalances primes the cache for a player across every
// enabled currency, creating zero-balance rows where none exist.
func (a *AccountStoreCache) loadPlayerBalances(ctx context.Context, playerName, playerUUID string) error {
	for _, cur := range a.registry.ListEnabled() {
		acct, err := a.store.GetOrCreateAccount(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return fmt.Errorf("load player balances: %s: %w", cur.Identifier, err)
		}
		a.mu.Lock()
		a.cache[cacheKey{playerName, cur.ID}] = &cacheEntry{account: acct}
		a.mu.Unlock()
	}
	return nil
}

// unloadPlayer drops every cached entry for playerName, e.g. on
// logout.
func (a *AccountStoreCache) unloadPlayer(playerName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.cache {
		if k.playerName == playerName {
			delete(a.cache, k)
		}
	}
}

// clearCache drops every cached entry.
func (a *AccountStoreCache) clearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[cacheKey]*cacheEntry)
}

func (a *AccountStoreCache) getCached(key cacheKey) (*cacheEntry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.cache[key]
	return e, ok
}

// getOrLoadCached returns the cache entry for key, loading it from the
// store on a cache miss.
func (a *AccountStoreCache) getOrLoadCached(ctx context.Context, playerName, playerUUID string, currencyID CurrencyID) (*cacheEntry, error) {
	key := cacheKey{playerName, currencyID}
	if e, ok := a.getCached(key); ok {
		return e, nil
	}
	acct, err := a.store.GetOrCreateAccount(ctx, playerName, playerUUID, currencyID)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	e, ok := a.cache[key]
	if !ok {
		e = &cacheEntry{account: acct}
		a.cache[key] = e
	}
	a.mu.Unlock()
	return e, nil
}

type mutationKind int

const (
	mutateDeposit mutationKind = iota
	mutateWithdraw
	mutateSet
)

func (k mutationKind) txType() TransactionType {
	switch k {
	case mutateDeposit:
		return TxDeposit
	case mutateWithdraw:
		return TxWithdraw
	default:
		return TxSet
	}
}

func applyMutation(kind mutationKind, balance, amount decimal.Decimal) decimal.Decimal {
	switch kind {
	case mutateDeposit:
		return balance.Add(amount)
	case mutateWithdraw:
		return balance.Sub(amount)
	default:
		return amount
	}
}

// mutateCached implements the cached deposit/withdraw/setBalance path.
func (a *AccountStoreCache) mutateCached(ctx context.Context, playerName, playerUUID string, cur Currency, kind mutationKind, amount decimal.Decimal, reason, operator string) Result {
	if !a.ready {
		return failureResult(decimal.Zero, ErrNotReady)
	}
	if kind != mutateSet && !IsPositive(amount) {
		return failureResult(decimal.Zero, ErrInvalidAmount)
	}

	key := cacheKey{playerName, cur.ID}
	entry, err := a.getOrLoadCached(ctx, playerName, playerUUID, cur.ID)
	if err != nil {
		return failureResult(decimal.Zero, err)
	}

	a.mu.Lock()
	before := entry.account.Balance
	scaled := Scale(amount, cur.Precision, a.cfg.RoundingMode)
	after := Scale(applyMutation(kind, before, scaled), cur.Precision, a.cfg.RoundingMode)

	if kind == mutateWithdraw && after.IsNegative() {
		a.mu.Unlock()
		return failureResult(before, ErrInsufficientFunds)
	}
	maxBalance := EffectiveMaxBalance(entry.account, cur)
	if maxBalance >= 0 && after.GreaterThan(decimal.NewFromInt(maxBalance)) {
		a.mu.Unlock()
		return failureResult(before, ErrLimitExceeded)
	}

	evt := HookEvent{
		PlayerName:         playerName,
		PlayerUUID:         playerUUID,
		CurrencyIdentifier: cur.Identifier,
		Type:               kind.txType(),
		Amount:             scaled,
		BalanceBefore:      before,
		BalanceAfter:       after,
		Reason:             reason,
		Operator:           operator,
	}
	a.mu.Unlock()

	if cancelled := a.hooks.dispatchPre(evt); cancelled {
		return failureResult(before, ErrCancelled)
	}

	a.mu.Lock()
	snapshot := entry.account
	snapshot.Balance = after
	snapshot.Version++
	entry.account = snapshot
	a.mu.Unlock()

	if cur.ConsoleLog {
		a.logger.Info("account mutation (cached)",
			zap.String("player", playerName), zap.String("currency", cur.Identifier),
			zap.String("type", string(kind.txType())), zap.String("before", before.String()),
			zap.String("after", after.String()))
	}

	persisted := snapshot
	prevVersion := persisted.Version - 1
	a.async.runAsync(func() {
		a.persistCachedMutation(context.Background(), key, persisted, prevVersion, before, after, evt)
	})

	a.metrics.MutationsTotal.WithLabelValues("cached", string(kind.txType()), "accepted").Inc()
	return successResult(after)
}

// persistCachedMutation runs on the async executor. On a version
// conflict it resyncs the cache from the current row (spec's resolved
// Open Question: a concurrent writer already committed a newer value,
// so the cache should reflect reality, not revert to the pre-mutation
// snapshot). On any other persist error it rolls the cache back to the
// pre-mutation balance since nothing was actually committed.
func (a *AccountStoreCache) persistCachedMutation(ctx context.Context, key cacheKey, toPersist Account, prevVersion int64, before, after decimal.Decimal, evt HookEvent) {
	attempt := toPersist
	attempt.Version = prevVersion
	affected, err := a.store.UpdateAccountVersioned(ctx, attempt)
	if err != nil {
		a.logger.Error("cached persist failed", zap.String("player", evt.PlayerName), zap.Error(err))
		a.rollbackCacheEntry(key, before)
		return
	}
	if affected == 0 {
		a.metrics.CacheConflictsTotal.Inc()
		fresh, ferr := a.store.FindAccount(ctx, evt.PlayerName, key.currencyID)
		if ferr != nil || fresh == nil {
			a.logger.Error("cached persist conflict: resync read failed", zap.String("player", evt.PlayerName), zap.Error(ferr))
			a.rollbackCacheEntry(key, before)
			return
		}
		a.mu.Lock()
		if e, ok := a.cache[key]; ok {
			e.account = *fresh
		}
		a.mu.Unlock()
		return
	}

	a.audit.write(ctx, TransactionRecord{
		PlayerName: evt.PlayerName, PlayerUUID: evt.PlayerUUID, CurrencyID: key.currencyID,
		Type: evt.Type, Amount: evt.Amount, BalanceBefore: before, BalanceAfter: after,
		Reason: evt.Reason, Operator: evt.Operator, OccurredAt: nowUTC(),
	})
	a.hooks.dispatchPost(evt)
}

func (a *AccountStoreCache) rollbackCacheEntry(key cacheKey, before decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.cache[key]; ok {
		e.account.Balance = before
	}
}

// mutateDirect implements the direct (offline) deposit/withdraw/
// setBalance path: no cache, a bounded CAS retry loop against the
// store.
func (a *AccountStoreCache) mutateDirect(ctx context.Context, playerName, playerUUID string, cur Currency, kind mutationKind, amount decimal.Decimal, reason, operator string) Result {
	if !a.ready {
		return failureResult(decimal.Zero, ErrNotReady)
	}
	if kind != mutateSet && !IsPositive(amount) {
		return failureResult(decimal.Zero, ErrInvalidAmount)
	}

	scaled := Scale(amount, cur.Precision, a.cfg.RoundingMode)

	for attempt := 0; attempt < a.cfg.MaxVersionRetries; attempt++ {
		acct, err := a.store.GetOrCreateAccount(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return failureResult(decimal.Zero, err)
		}

		before := acct.Balance
		after := Scale(applyMutation(kind, before, scaled), cur.Precision, a.cfg.RoundingMode)

		if kind == mutateWithdraw && after.IsNegative() {
			return failureResult(before, ErrInsufficientFunds)
		}
		maxBalance := EffectiveMaxBalance(acct, cur)
		if maxBalance >= 0 && after.GreaterThan(decimal.NewFromInt(maxBalance)) {
			return failureResult(before, ErrLimitExceeded)
		}

		evt := HookEvent{
			PlayerName: playerName, PlayerUUID: playerUUID, CurrencyIdentifier: cur.Identifier,
			Type: kind.txType(), Amount: scaled, BalanceBefore: before, BalanceAfter: after,
			Reason: reason, Operator: operator,
		}
		if cancelled := a.hooks.dispatchPre(evt); cancelled {
			return failureResult(before, ErrCancelled)
		}

		acct.Balance = after
		affected, err := a.store.UpdateAccountVersioned(ctx, acct)
		if err != nil {
			return failureResult(before, err)
		}
		if affected == 0 {
			continue // lost the optimistic race, retry
		}

		a.audit.write(ctx, TransactionRecord{
			PlayerName: playerName, PlayerUUID: playerUUID, CurrencyID: cur.ID,
			Type: kind.txType(), Amount: scaled, BalanceBefore: before, BalanceAfter: after,
			Reason: reason, Operator: operator, OccurredAt: nowUTC(),
		})
		a.hooks.dispatchPost(evt)

		if cacheEntry, ok := a.getCached(cacheKey{playerName, cur.ID}); ok {
			a.mu.Lock()
			cacheEntry.account = acct
			a.mu.Unlock()
		}

		a.metrics.MutationsTotal.WithLabelValues("direct", string(kind.txType()), "accepted").Inc()
		return successResult(after)
	}

	a.metrics.MutationsTotal.WithLabelValues("direct", string(kind.txType()), "conflict").Inc()
	return failureResult(decimal.Zero, ErrConflict)
}

// setMaxBalance overwrites an account's max_balance override through a
// bounded CAS retry loop, mirroring mutateDirect's retry-on-conflict
// shape, and refreshes any cached entry on success (spec §4.8).
func (a *AccountStoreCache) setMaxBalance(ctx context.Context, playerName, playerUUID string, cur Currency, maxBalance int64) error {
	if !a.ready {
		return ErrNotReady
	}

	for attempt := 0; attempt < a.cfg.MaxVersionRetries; attempt++ {
		acct, err := a.store.GetOrCreateAccount(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return err
		}

		acct.MaxBalance = maxBalance
		affected, err := a.store.UpdateAccountVersioned(ctx, acct)
		if err != nil {
			return err
		}
		if affected == 0 {
			continue // lost the optimistic race, retry
		}

		if cacheEntry, ok := a.getCached(cacheKey{playerName, cur.ID}); ok {
			a.mu.Lock()
			cacheEntry.account = acct
			a.mu.Unlock()
		}
		return nil
	}

	return ErrConflict
}

// balance returns the cached balance if present, else reads through to
// the store.
func (a *AccountStoreCache) balance(ctx context.Context, playerName, playerUUID string, currencyID CurrencyID) (decimal.Decimal, error) {
	if e, ok := a.getCached(cacheKey{playerName, currencyID}); ok {
		a.mu.RLock()
		b := e.account.Balance
		a.mu.RUnlock()
		return b, nil
	}
	acct, err := a.store.GetOrCreateAccount(ctx, playerName, playerUUID, currencyID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}
