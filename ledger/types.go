/*
types.go - Core data model for the transactional ledger core.

PURPOSE:
  Defines the four durable record types (Currency, Account,
  TransactionRecord, BackupRow) and the small value types shared across
  the ledger core. Amounts are always shopspring/decimal values scaled
  to a currency's precision — never float64.

SEE ALSO:
  - precision.go: scale/format/parse helpers for Amount-shaped decimals
  - store.go: persistence interfaces over these record types
  - errors.go: error kinds returned by ledger operations
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyID is the store-assigned integer identity of a Currency.
type CurrencyID int64

// AccountID is the store-assigned integer identity of an Account.
type AccountID int64

// TransactionType classifies a TransactionRecord.
type TransactionType string

const (
	TxDeposit  TransactionType = "DEPOSIT"
	TxWithdraw TransactionType = "WITHDRAW"
	TxSet      TransactionType = "SET"
	TxRollback TransactionType = "ROLLBACK"
)

// Currency is a ledger-wide definition with identifier, precision, a
// balance ceiling, and status flags. Identifier is the external
// business key and is case-insensitive on lookup; a deleted identifier
// is never reused.
type Currency struct {
	ID                CurrencyID
	Identifier         string // lowercase, unique among non-deleted currencies
	Name               string
	Symbol             string
	Precision          int   // clamped to [0, 8]
	DefaultMaxBalance  int64 // -1 means unlimited
	Primary            bool
	Enabled            bool
	Deleted            bool
	ConsoleLog         bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Account is a (player, currency) binding holding a balance, an
// optional max-balance override, and an optimistic version.
type Account struct {
	ID         AccountID
	PlayerName string
	PlayerUUID string
	CurrencyID CurrencyID
	Balance    decimal.Decimal
	MaxBalance int64 // -1 means inherit currency default
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveMaxBalance resolves the account/currency max-balance
// precedence: an account override (> 0) wins over the currency
// default. An account value of 0 or -1 inherits the currency default;
// a currency default of -1 means unlimited.
func EffectiveMaxBalance(acct Account, cur Currency) int64 {
	if acct.MaxBalance > 0 {
		return acct.MaxBalance
	}
	return cur.DefaultMaxBalance
}

// TransactionRecord is one append-only audit row.
type TransactionRecord struct {
	ID             int64
	PlayerName     string
	PlayerUUID     string
	CurrencyID     CurrencyID
	Type           TransactionType
	Amount         decimal.Decimal // absolute magnitude of change
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	Reason         string
	Operator       string
	OccurredAt     time.Time
}

// BackupRow is one row of a batched balance snapshot.
type BackupRow struct {
	ID         int64
	SnapshotID string // opaque batch identifier
	PlayerName string
	PlayerUUID string
	CurrencyID CurrencyID
	Balance    decimal.Decimal
	Memo       string
	CreatedAt  time.Time
}

// AuditPage is one page of a paged audit query.
type AuditPage struct {
	Records []TransactionRecord
	Total   int64
}

// HookEvent is the tuple carried by both the pre- and post-mutation
// hooks (spec §4.6, §6).
type HookEvent struct {
	PlayerName         string
	PlayerUUID         string
	CurrencyIdentifier string
	Type               TransactionType
	Amount             decimal.Decimal
	BalanceBefore      decimal.Decimal
	BalanceAfter       decimal.Decimal
	Reason             string
	Operator           string
}

// PreHookEvent wraps HookEvent with the single cancellation flag a
// pre-hook subscriber may set. The Ledger reads Cancel only after every
// subscriber has been offered the event (spec §9).
type PreHookEvent struct {
	HookEvent
	Cancel bool
}

// PreHookFunc is a cancellable pre-mutation subscriber.
type PreHookFunc func(*PreHookEvent)

// PostHookFunc is a non-cancellable post-mutation subscriber.
type PostHookFunc func(HookEvent)
