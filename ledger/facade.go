/*
facade.go - Ledger facade: the single entry point into the core (spec §4.8).

PURPOSE:
  Wires the Currency Registry, Account Store & Cache, Audit Writer,
  Backup Engine, Async Executor, hook registry, and Metrics into one
  long-lived instance. Every public method validates inputs, resolves
  the target currency, and dispatches to the cached or direct account
  path.

GROUNDING:
  Grounded on the teacher's generic/ledger.go DefaultLedger, which plays
  the same role of a single facade delegating to a Store; New's
  signature (Config, Store, *zap.Logger) follows spec §9's
  configuration-struct redesign instead of the teacher's global
  singleton wiring in cmd/server/main.go.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the facade over the entire transactional ledger core.
type Ledger struct {
	cfg      Config
	store    Store
	logger   *zap.Logger
	metrics  *Metrics
	registry *CurrencyRegistry
	audit    *AuditWriter
	async    *AsyncExecutor
	hooks    *hookRegistry
	accounts *AccountStoreCache
	backup   *BackupEngine

	ready bool
}

// New constructs a Ledger, loads the currency registry (bootstrapping
// a default currency if the store is empty), and returns an instance
// ready to accept mutations.
func New(cfg Config, store Store, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		return nil, fmt.Errorf("ledger: store must not be nil")
	}
	cfg = cfg.withDefaults()

	if !store.Ready() {
		return nil, ErrNotReady
	}

	metrics := newMetrics()
	registry := newCurrencyRegistry(store, logger)
	audit := newAuditWriter(store, logger, metrics)
	async := newAsyncExecutor(cfg.AsyncWorkers, logger)
	hooks := newHookRegistry(logger, metrics)
	accounts := newAccountStoreCache(store, registry, audit, hooks, async, metrics, logger, cfg)
	backup := newBackupEngine(store, accounts, registry, audit, logger, metrics, cfg, store.ListAllAccounts)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := registry.load(ctx, cfg.DefaultCurrency); err != nil {
		return nil, err
	}

	l := &Ledger{
		cfg: cfg, store: store, logger: logger, metrics: metrics,
		registry: registry, audit: audit, async: async, hooks: hooks,
		accounts: accounts, backup: backup, ready: true,
	}
	return l, nil
}

// Ready reports whether the ledger can currently accept operations.
func (l *Ledger) Ready() bool { return l.ready && l.store.Ready() }

// Metrics exposes the Prometheus registry for the caller to wire into
// an HTTP exposition endpoint.
func (l *Ledger) Metrics() *Metrics { return l.metrics }

// Currencies exposes the currency registry: lookups and CRUD.
func (l *Ledger) Currencies() *CurrencyRegistry { return l.registry }

// SubscribePreMutation registers a cancellable pre-mutation observer.
func (l *Ledger) SubscribePreMutation(fn PreHookFunc) { l.hooks.SubscribePre(fn) }

// SubscribePostMutation registers a post-mutation observer.
func (l *Ledger) SubscribePostMutation(fn PostHookFunc) { l.hooks.SubscribePost(fn) }

func (l *Ledger) resolveCurrency(identifier string) (Currency, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		if cur, ok := l.registry.GetPrimary(); ok {
			return cur, nil
		}
		return Currency{}, ErrUnknownCurrency
	}
	cur, ok := l.registry.GetByIdentifier(identifier)
	if !ok {
		return Currency{}, ErrUnknownCurrency
	}
	if !cur.Enabled {
		return Currency{}, ErrCurrencyDisabled
	}
	return cur, nil
}

// LoadPlayer primes the balance cache for playerName across every
// enabled currency. Call on player login.
func (l *Ledger) LoadPlayer(ctx context.Context, playerName, playerUUID string) error {
	if !l.Ready() {
		return ErrNotReady
	}
	return l.accounts.loadPlayerBalances(ctx, playerName, playerUUID)
}

// UnloadPlayer drops playerName's cached balances. Call on logout.
func (l *Ledger) UnloadPlayer(playerName string) {
	l.accounts.unloadPlayer(playerName)
}

// Balance returns playerName's current balance in currencyIdentifier
// (or the primary currency if empty), preferring the cache.
func (l *Ledger) Balance(ctx context.Context, playerName, playerUUID, currencyIdentifier string) (decimal.Decimal, error) {
	if !l.Ready() {
		return decimal.Zero, ErrNotReady
	}
	cur, err := l.resolveCurrency(currencyIdentifier)
	if err != nil {
		return decimal.Zero, err
	}
	return l.accounts.balance(ctx, playerName, playerUUID, cur.ID)
}

// Deposit adds amount to playerName's cached balance and persists the
// change asynchronously.
func (l *Ledger) Deposit(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) Result {
	return l.mutate(ctx, playerName, playerUUID, currencyIdentifier, mutateDeposit, amount, reason, operator, true)
}

// Withdraw subtracts amount from playerName's cached balance and
// persists the change asynchronously.
func (l *Ledger) Withdraw(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) Result {
	return l.mutate(ctx, playerName, playerUUID, currencyIdentifier, mutateWithdraw, amount, reason, operator, true)
}

// SetBalance overwrites playerName's cached balance and persists the
// change asynchronously.
func (l *Ledger) SetBalance(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) Result {
	return l.mutate(ctx, playerName, playerUUID, currencyIdentifier, mutateSet, amount, reason, operator, true)
}

// DepositDirect performs a synchronous, cache-free deposit with a
// bounded version-conflict retry loop. Intended for offline players
// and batch/administrative operations.
func (l *Ledger) DepositDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) Result {
	return l.mutate(ctx, playerName, playerUUID, currencyIdentifier, mutateDeposit, amount, reason, operator, false)
}

// WithdrawDirect performs a synchronous, cache-free withdraw with a
// bounded version-conflict retry loop.
func (l *Ledger) WithdrawDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) Result {
	return l.mutate(ctx, playerName, playerUUID, currencyIdentifier, mutateWithdraw, amount, reason, operator, false)
}

// SetBalanceDirect performs a synchronous, cache-free balance
// overwrite with a bounded version-conflict retry loop.
func (l *Ledger) SetBalanceDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) Result {
	return l.mutate(ctx, playerName, playerUUID, currencyIdentifier, mutateSet, amount, reason, operator, false)
}

func (l *Ledger) mutate(ctx context.Context, playerName, playerUUID, currencyIdentifier string, kind mutationKind, amount decimal.Decimal, reason, operator string, cached bool) Result {
	if !l.Ready() {
		return failureResult(decimal.Zero, ErrNotReady)
	}
	cur, err := l.resolveCurrency(currencyIdentifier)
	if err != nil {
		return failureResult(decimal.Zero, err)
	}
	if cached {
		return l.accounts.mutateCached(ctx, playerName, playerUUID, cur, kind, amount, reason, operator)
	}
	return l.accounts.mutateDirect(ctx, playerName, playerUUID, cur, kind, amount, reason, operator)
}

// SetMaxBalance overwrites playerName's max_balance override for
// currencyIdentifier (or the primary currency if empty). -1 reverts to
// inheriting the currency's default_max_balance.
func (l *Ledger) SetMaxBalance(ctx context.Context, playerName, playerUUID, currencyIdentifier string, maxBalance int64) error {
	if !l.Ready() {
		return ErrNotReady
	}
	cur, err := l.resolveCurrency(currencyIdentifier)
	if err != nil {
		return err
	}
	return l.accounts.setMaxBalance(ctx, playerName, playerUUID, cur, maxBalance)
}

// AuditHistory returns a page of a player's transaction history across
// every currency.
func (l *Ledger) AuditHistory(ctx context.Context, playerName string, page, pageSize int) (AuditPage, error) {
	if !l.Ready() {
		return AuditPage{}, ErrNotReady
	}
	return l.audit.queryByPlayer(ctx, playerName, page, pageSize)
}

// AuditHistoryForCurrency returns a page of a player's transaction
// history restricted to one currency.
func (l *Ledger) AuditHistoryForCurrency(ctx context.Context, playerName, currencyIdentifier string, page, pageSize int) (AuditPage, error) {
	if !l.Ready() {
		return AuditPage{}, ErrNotReady
	}
	cur, err := l.resolveCurrency(currencyIdentifier)
	if err != nil {
		return AuditPage{}, err
	}
	return l.audit.queryByPlayerAndCurrency(ctx, playerName, cur.ID, page, pageSize)
}

// CreateSnapshot captures every account balance under a fresh
// snapshot id.
func (l *Ledger) CreateSnapshot(ctx context.Context, memo string) (string, error) {
	if !l.Ready() {
		return "", ErrNotReady
	}
	return l.backup.CreateSnapshot(ctx, memo)
}

// ListSnapshots returns one representative row per snapshot, newest
// first.
func (l *Ledger) ListSnapshots(ctx context.Context) ([]BackupRow, error) {
	if !l.Ready() {
		return nil, ErrNotReady
	}
	return l.backup.ListSnapshots(ctx)
}

// Rollback restores every account captured in snapshotID.
func (l *Ledger) Rollback(ctx context.Context, snapshotID string) (int, error) {
	if !l.Ready() {
		return 0, ErrNotReady
	}
	return l.backup.Rollback(ctx, snapshotID)
}

// RollbackPlayer restores only playerName's rows from snapshotID.
func (l *Ledger) RollbackPlayer(ctx context.Context, snapshotID, playerName string) (int, error) {
	if !l.Ready() {
		return 0, ErrNotReady
	}
	return l.backup.RollbackPlayer(ctx, snapshotID, playerName)
}

// Shutdown stops the async executor, waiting up to
// Config.AsyncShutdownWaitSeconds for in-flight persists to drain.
func (l *Ledger) Shutdown() {
	l.ready = false
	l.async.shutdown(time.Duration(l.cfg.AsyncShutdownWaitSeconds) * time.Second)
}
