/*
dto.go - Request/response data structures for the administrative HTTP API.

GROUNDING:
  Grounded on the teacher's api/dto.go request/response struct shapes
  (plain structs with json tags, an ErrorResponse envelope), adapted
  from employee/policy DTOs to currency/account/transaction DTOs.
*/
package api

import "time"

// ErrorResponse is the JSON envelope for non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CurrencyDTO mirrors ledger.Currency for the wire.
type CurrencyDTO struct {
	Identifier        string `json:"identifier"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Precision         int    `json:"precision"`
	DefaultMaxBalance int64  `json:"default_max_balance"`
	Primary           bool   `json:"primary"`
	Enabled           bool   `json:"enabled"`
}

// CreateCurrencyRequest is the body of POST /api/currencies.
type CreateCurrencyRequest struct {
	Identifier        string `json:"identifier"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Precision         int    `json:"precision"`
	DefaultMaxBalance int64  `json:"default_max_balance"`
	ConsoleLog        bool   `json:"console_log"`
}

// BalanceResponse is returned by GET /api/players/{player}/balance.
type BalanceResponse struct {
	PlayerName string `json:"player_name"`
	Currency   string `json:"currency"`
	Balance    string `json:"balance"`
}

// MutationRequest is the body of deposit/withdraw/set endpoints.
type MutationRequest struct {
	PlayerName string `json:"player_name"`
	PlayerUUID string `json:"player_uuid"`
	Currency   string `json:"currency"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
	Operator   string `json:"operator"`
	Direct     bool   `json:"direct"`
}

// MutationResponse mirrors ledger.Result.
type MutationResponse struct {
	Success bool   `json:"success"`
	Balance string `json:"balance,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// SetMaxBalanceRequest is the body of POST /api/players/{player}/max-balance.
type SetMaxBalanceRequest struct {
	PlayerUUID string `json:"player_uuid"`
	Currency   string `json:"currency"`
	MaxBalance int64  `json:"max_balance"`
}

// TransactionDTO mirrors ledger.TransactionRecord for the wire.
type TransactionDTO struct {
	ID            int64     `json:"id"`
	PlayerName    string    `json:"player_name"`
	Currency      string    `json:"currency"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Reason        string    `json:"reason,omitempty"`
	Operator      string    `json:"operator,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AuditPageResponse is the paginated transaction-history envelope.
type AuditPageResponse struct {
	Records []TransactionDTO `json:"records"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
}

// SnapshotResponse is returned by POST /api/snapshots.
type SnapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// SnapshotSummaryDTO is one row of GET /api/snapshots.
type SnapshotSummaryDTO struct {
	SnapshotID string    `json:"snapshot_id"`
	Memo       string    `json:"memo"`
	CreatedAt  time.Time `json:"created_at"`
}

// RollbackResponse reports how many account rows a rollback restored.
type RollbackResponse struct {
	Restored int `json:"restored"`
}
