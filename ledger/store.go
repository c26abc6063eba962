/*
store.go - Persistence interface over the four durable tables.

PURPOSE:
  Defines the interface between ledger domain logic and the database.
  store/memory returns ErrNotReady from every operation once Closed;
  store/sqlite does not check Ready per call and returns the driver's
  error instead.

GROUNDING:
  Shaped after the teacher's generic/store.go Store/TxStore split, but
  the append-only constraint there is replaced with the spec's
  optimistic-version update contract for accounts, since this domain's
  accounts are mutable balances rather than an immutable transaction
  replay log.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite-backed store
  - store/memory: in-memory store for tests and embedding
*/
package ledger

import (
	"context"
	"time"
)

// Store is the full persistence contract consumed by the ledger core.
// New refuses a store whose Ready() is false with ErrNotReady; after
// that, whether a method returns ErrNotReady is up to the
// implementation (see the package comment).
type Store interface {
	Ready() bool

	CurrencyStore
	AccountStore
	AuditStore
	SnapshotStore
}

// CurrencyStore covers currency CRUD, soft-delete, and primary
// election (spec §4.2, §4.3).
type CurrencyStore interface {
	FindCurrencyByID(ctx context.Context, id CurrencyID) (*Currency, error)
	// FindCurrencyByIdentifier looks up a currency case-insensitively.
	// When includeDeleted is false, soft-deleted rows are excluded.
	FindCurrencyByIdentifier(ctx context.Context, identifier string, includeDeleted bool) (*Currency, error)
	ListActiveCurrencies(ctx context.Context) ([]Currency, error)
	ListEnabledCurrencies(ctx context.Context) ([]Currency, error)
	FindPrimaryCurrency(ctx context.Context) (*Currency, error)
	InsertCurrency(ctx context.Context, cur Currency) (CurrencyID, error)
	UpdateCurrency(ctx context.Context, cur Currency) error
	SoftDeleteCurrency(ctx context.Context, id CurrencyID) error
	// ClearAllPrimary unsets primary on every non-deleted currency; used
	// by setPrimary before setting the new primary flag.
	ClearAllPrimary(ctx context.Context) error
}

// AccountStore covers account lookup and the optimistic-version update
// path (spec §4.2, §6).
type AccountStore interface {
	FindAccount(ctx context.Context, playerName string, currencyID CurrencyID) (*Account, error)
	ListAccountsByPlayer(ctx context.Context, playerName string) ([]Account, error)
	ListAccountsByCurrency(ctx context.Context, currencyID CurrencyID) ([]Account, error)
	ListAllAccounts(ctx context.Context) ([]Account, error)
	InsertAccount(ctx context.Context, acct Account) (AccountID, error)
	// UpdateAccountVersioned performs
	//   UPDATE ... SET balance=?, max_balance=?, version=version+1, updated_at=?
	//   WHERE id=? AND version=?
	// returning the number of affected rows (0 or 1). Callers detect a
	// version conflict when affected == 0.
	UpdateAccountVersioned(ctx context.Context, acct Account) (affected int, err error)
	// GetOrCreateAccount returns the existing row for (playerName,
	// currencyID), or inserts a zero-balance row at version 1. If
	// playerUUID is non-empty and differs from the stored value, the
	// row's uuid is refreshed in place.
	GetOrCreateAccount(ctx context.Context, playerName, playerUUID string, currencyID CurrencyID) (Account, error)
}

// AuditStore is append-only: no update, no delete (spec §4.4).
type AuditStore interface {
	InsertAudit(ctx context.Context, rec TransactionRecord) (int64, error)
	QueryAuditByPlayer(ctx context.Context, playerName string, page, pageSize int) (AuditPage, error)
	QueryAuditByPlayerAndCurrency(ctx context.Context, playerName string, currencyID CurrencyID, page, pageSize int) (AuditPage, error)
	CountAuditByPlayer(ctx context.Context, playerName string) (int64, error)
	CountAuditByPlayerAndCurrency(ctx context.Context, playerName string, currencyID CurrencyID) (int64, error)
}

// SnapshotStore covers batch snapshot insert, query, and retention GC
// (spec §4.7).
type SnapshotStore interface {
	InsertSnapshotBatch(ctx context.Context, rows []BackupRow) error
	ListSnapshotRows(ctx context.Context, snapshotID string) ([]BackupRow, error)
	ListSnapshotRowsForPlayer(ctx context.Context, snapshotID, playerName string) ([]BackupRow, error)
	// ListDistinctSnapshots returns one representative row per
	// snapshot_id, ordered by created_at descending.
	ListDistinctSnapshots(ctx context.Context) ([]BackupRow, error)
	CountDistinctSnapshots(ctx context.Context) (int64, error)
	DeleteSnapshot(ctx context.Context, snapshotID string) error
	// OldestSnapshotIDs returns up to limit snapshot_ids ordered oldest
	// first, for retention GC.
	OldestSnapshotIDs(ctx context.Context, limit int) ([]string, error)
}

// nowUTC is the wall-clock read point of the ledger package (audit,
// snapshot and currency timestamps; the store packages read the clock
// themselves), kept as a var so tests can stub it if ever needed.
var nowUTC = func() time.Time { return time.Now().UTC() }
