/*
errors.go - Centralized error kinds for the ledger core.

PURPOSE:
  All error kinds the core can return, in one place, mirroring the
  sentinel-error style the teacher used in generic/errors.go. Every
  Facade mutation converts these into a Result (see result.go); the
  other Facade methods and internal interfaces return plain errors.

SEE ALSO:
  - result.go: Result/Code, the caller-facing translation of these errors
*/
package ledger

import "errors"

var (
	// ErrNotReady is returned by every operation when the persistence
	// layer is not ready (spec §4.2, §4.6).
	ErrNotReady = errors.New("ledger: not ready")

	// ErrInvalidAmount covers negative-where-positive-required,
	// negative-where-non-negative-required, and unparseable amounts.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrUnknownCurrency is returned when a currency identifier does
	// not resolve to a known, non-deleted currency.
	ErrUnknownCurrency = errors.New("ledger: unknown currency")

	// ErrCurrencyDisabled is returned when a mutation targets a
	// disabled currency.
	ErrCurrencyDisabled = errors.New("ledger: currency disabled")

	// ErrInsufficientFunds is returned by withdraw when the current
	// balance is less than the requested amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrLimitExceeded is returned by deposit when the tentative new
	// balance would exceed the effective max balance.
	ErrLimitExceeded = errors.New("ledger: limit exceeded")

	// ErrCancelled is returned when a pre-hook subscriber cancels an
	// in-flight mutation.
	ErrCancelled = errors.New("ledger: cancelled by pre-hook")

	// ErrConflict is returned by the direct path when version retries
	// are exhausted.
	ErrConflict = errors.New("ledger: version conflict, retries exhausted")

	// ErrDuplicateIdentifier is returned by currency create when the
	// identifier already exists, including among soft-deleted rows.
	ErrDuplicateIdentifier = errors.New("ledger: duplicate currency identifier")

	// ErrPrimaryCurrencyProtected is returned by currency delete when
	// the target is the current primary currency.
	ErrPrimaryCurrencyProtected = errors.New("ledger: primary currency cannot be deleted")

	// ErrSnapshotNotFound is returned by Rollback when snapshot_id has
	// no rows.
	ErrSnapshotNotFound = errors.New("ledger: snapshot not found")

	// ErrSnapshotEmpty is returned when a snapshot create finds no
	// accounts to capture, and by RollbackPlayer when the snapshot holds
	// no rows for that player (an unknown snapshot_id included).
	ErrSnapshotEmpty = errors.New("ledger: snapshot would be empty")

	// ErrCurrencyNotFound is a persistence-level miss, distinct from
	// ErrUnknownCurrency which is the Facade-facing validation error.
	ErrCurrencyNotFound = errors.New("ledger: currency not found")
)

// ErrorCode is the stable string external callers map to, per spec §7
// and the GLOSSARY's "Error code suggestion".
type ErrorCode string

const (
	CodeSuccess           ErrorCode = "SUCCESS"
	CodeNotReady          ErrorCode = "NOT_READY"
	CodeUnknownCurrency   ErrorCode = "UNKNOWN_CURRENCY"
	CodeCurrencyDisabled  ErrorCode = "CURRENCY_DISABLED"
	CodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeLimitExceeded     ErrorCode = "LIMIT_EXCEEDED"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeCancelled         ErrorCode = "CANCELLED"
	CodeGenericFailure    ErrorCode = "GENERIC_FAILURE"
)

// codeFor maps a sentinel error to its external error code. Unmapped
// errors (programmer mistakes, store-level failures) fall back to
// CodeGenericFailure.
func codeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrNotReady):
		return CodeNotReady
	case errors.Is(err, ErrUnknownCurrency), errors.Is(err, ErrCurrencyNotFound):
		return CodeUnknownCurrency
	case errors.Is(err, ErrCurrencyDisabled):
		return CodeCurrencyDisabled
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrLimitExceeded):
		return CodeLimitExceeded
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	default:
		return CodeGenericFailure
	}
}
