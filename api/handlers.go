/*
handlers.go - HTTP handlers for the administrative ledger API.

ENDPOINTS:
  Currencies:
    GET    /api/currencies               List active currencies
    POST   /api/currencies               Create a currency
    POST   /api/currencies/{id}/enable   Enable a currency
    POST   /api/currencies/{id}/disable  Disable a currency
    POST   /api/currencies/{id}/primary  Set a currency primary
    DELETE /api/currencies/{id}          Soft-delete a currency

  Balances and mutations:
    GET    /api/players/{player}/balance      Read balance
    POST   /api/players/{player}/deposit      Deposit (cached or direct)
    POST   /api/players/{player}/withdraw     Withdraw (cached or direct)
    POST   /api/players/{player}/set          Overwrite balance
    POST   /api/players/{player}/max-balance  Overwrite max_balance override
    GET    /api/players/{player}/transactions Paginated audit history

  Backup:
    POST   /api/snapshots                    Create a snapshot
    GET    /api/snapshots                    List snapshots
    POST   /api/snapshots/{id}/rollback      Rollback every account
    POST   /api/snapshots/{id}/rollback/{player} Rollback one player

ERROR HANDLING:
  Errors from non-mutation calls map to HTTP status via
  ledger.codeFor-equivalent classification in statusFor, with an
  ErrorResponse envelope as the body. Deposit/withdraw/set always
  answer with a MutationResponse; on failure its status comes from
  statusForCode.

GROUNDING:
  Grounded on the teacher's api/handlers.go Handler-struct-holds-deps
  pattern and writeJSON/writeError helpers, adapted from employee/policy
  operations to ledger.Ledger facade calls.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/ledger-core/ledger"
)

// Handler holds the Ledger facade used to serve every route.
type Handler struct {
	Ledger *ledger.Ledger
}

// NewHandler constructs a Handler bound to a ready Ledger instance.
func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{Ledger: l}
}

func toCurrencyDTO(c ledger.Currency) CurrencyDTO {
	return CurrencyDTO{
		Identifier: c.Identifier, Name: c.Name, Symbol: c.Symbol, Precision: c.Precision,
		DefaultMaxBalance: c.DefaultMaxBalance, Primary: c.Primary, Enabled: c.Enabled,
	}
}

func toTransactionDTO(rec ledger.TransactionRecord) TransactionDTO {
	return TransactionDTO{
		ID: rec.ID, PlayerName: rec.PlayerName, Type: string(rec.Type),
		Amount: rec.Amount.String(), BalanceBefore: rec.BalanceBefore.String(),
		BalanceAfter: rec.BalanceAfter.String(), Reason: rec.Reason, Operator: rec.Operator,
		OccurredAt: rec.OccurredAt,
	}
}

// ListCurrencies handles GET /api/currencies.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies := h.Ledger.Currencies().ListActive()
	out := make([]CurrencyDTO, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, toCurrencyDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateCurrency handles POST /api/currencies.
func (h *Handler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req CreateCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	cur, err := h.Ledger.Currencies().Create(r.Context(), req.Identifier, req.Name, req.Precision, req.Symbol, req.DefaultMaxBalance, req.ConsoleLog)
	if err != nil {
		writeError(w, statusFor(err), "create currency failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCurrencyDTO(cur))
}

// EnableCurrency handles POST /api/currencies/{id}/enable.
func (h *Handler) EnableCurrency(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "id")
	if err := h.Ledger.Currencies().Enable(r.Context(), identifier); err != nil {
		writeError(w, statusFor(err), "enable currency failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// DisableCurrency handles POST /api/currencies/{id}/disable.
func (h *Handler) DisableCurrency(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "id")
	if err := h.Ledger.Currencies().Disable(r.Context(), identifier); err != nil {
		writeError(w, statusFor(err), "disable currency failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

// SetPrimaryCurrency handles POST /api/currencies/{id}/primary.
func (h *Handler) SetPrimaryCurrency(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "id")
	if err := h.Ledger.Currencies().SetPrimary(r.Context(), identifier); err != nil {
		writeError(w, statusFor(err), "set primary currency failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"primary": true})
}

// DeleteCurrency handles DELETE /api/currencies/{id}.
func (h *Handler) DeleteCurrency(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "id")
	if err := h.Ledger.Currencies().Delete(r.Context(), identifier); err != nil {
		writeError(w, statusFor(err), "delete currency failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles GET /api/players/{player}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	currency := r.URL.Query().Get("currency")
	balance, err := h.Ledger.Balance(r.Context(), player, "", currency)
	if err != nil {
		writeError(w, statusFor(err), "get balance failed", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{PlayerName: player, Currency: currency, Balance: balance.String()})
}

func toResult(res ledger.Result) MutationResponse {
	resp := MutationResponse{Success: res.Success, Code: string(res.Code), Message: res.Message}
	if res.Success {
		resp.Balance = res.Balance.String()
	}
	return resp
}

// runMutation decodes a MutationRequest and dispatches to one of the
// Ledger facade's cached/direct deposit/withdraw/set methods.
func (h *Handler) runMutation(w http.ResponseWriter, r *http.Request, cached, direct func(playerName, playerUUID, currency string, amount string, reason, operator string) ledger.Result) {
	player := chi.URLParam(r, "player")
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.PlayerName = player

	var res ledger.Result
	if req.Direct {
		res = direct(req.PlayerName, req.PlayerUUID, req.Currency, req.Amount, req.Reason, req.Operator)
	} else {
		res = cached(req.PlayerName, req.PlayerUUID, req.Currency, req.Amount, req.Reason, req.Operator)
	}

	status := http.StatusOK
	if !res.Success {
		status = statusForCode(res.Code)
	}
	writeJSON(w, status, toResult(res))
}

// Deposit handles POST /api/players/{player}/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.runMutation(w, r,
		func(p, u, c, a, reason, op string) ledger.Result {
			amt, err := ledger.ParseAmount(a)
			if err != nil {
				return ledger.Result{Code: ledger.CodeInvalidAmount, Message: err.Error()}
			}
			return h.Ledger.Deposit(r.Context(), p, u, c, amt, reason, op)
		},
		func(p, u, c, a, reason, op string) ledger.Result {
			amt, err := ledger.ParseAmount(a)
			if err != nil {
				return ledger.Result{Code: ledger.CodeInvalidAmount, Message: err.Error()}
			}
			return h.Ledger.DepositDirect(r.Context(), p, u, c, amt, reason, op)
		})
}

// Withdraw handles POST /api/players/{player}/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.runMutation(w, r,
		func(p, u, c, a, reason, op string) ledger.Result {
			amt, err := ledger.ParseAmount(a)
			if err != nil {
				return ledger.Result{Code: ledger.CodeInvalidAmount, Message: err.Error()}
			}
			return h.Ledger.Withdraw(r.Context(), p, u, c, amt, reason, op)
		},
		func(p, u, c, a, reason, op string) ledger.Result {
			amt, err := ledger.ParseAmount(a)
			if err != nil {
				return ledger.Result{Code: ledger.CodeInvalidAmount, Message: err.Error()}
			}
			return h.Ledger.WithdrawDirect(r.Context(), p, u, c, amt, reason, op)
		})
}

// SetBalance handles POST /api/players/{player}/set.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	h.runMutation(w, r,
		func(p, u, c, a, reason, op string) ledger.Result {
			amt, err := ledger.ParseAmount(a)
			if err != nil {
				return ledger.Result{Code: ledger.CodeInvalidAmount, Message: err.Error()}
			}
			return h.Ledger.SetBalance(r.Context(), p, u, c, amt, reason, op)
		},
		func(p, u, c, a, reason, op string) ledger.Result {
			amt, err := ledger.ParseAmount(a)
			if err != nil {
				return ledger.Result{Code: ledger.CodeInvalidAmount, Message: err.Error()}
			}
			return h.Ledger.SetBalanceDirect(r.Context(), p, u, c, amt, reason, op)
		})
}

// SetMaxBalance handles POST /api/players/{player}/max-balance.
func (h *Handler) SetMaxBalance(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	var req SetMaxBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.Ledger.SetMaxBalance(r.Context(), player, req.PlayerUUID, req.Currency, req.MaxBalance); err != nil {
		writeError(w, statusFor(err), "set max balance failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"max_balance": req.MaxBalance})
}

// Transactions handles GET /api/players/{player}/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 {
		pageSize = 50
	}

	currency := r.URL.Query().Get("currency")
	var (
		result ledger.AuditPage
		err    error
	)
	if currency != "" {
		result, err = h.Ledger.AuditHistoryForCurrency(r.Context(), player, currency, page, pageSize)
	} else {
		result, err = h.Ledger.AuditHistory(r.Context(), player, page, pageSize)
	}
	if err != nil {
		writeError(w, statusFor(err), "fetch transactions failed", err)
		return
	}

	dtos := make([]TransactionDTO, 0, len(result.Records))
	for _, rec := range result.Records {
		dtos = append(dtos, toTransactionDTO(rec))
	}
	writeJSON(w, http.StatusOK, AuditPageResponse{Records: dtos, Total: result.Total, Page: page})
}

// CreateSnapshot handles POST /api/snapshots.
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Memo string `json:"memo"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	id, err := h.Ledger.CreateSnapshot(r.Context(), body.Memo)
	if err != nil {
		writeError(w, statusFor(err), "create snapshot failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, SnapshotResponse{SnapshotID: id})
}

// ListSnapshots handles GET /api/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Ledger.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "list snapshots failed", err)
		return
	}
	out := make([]SnapshotSummaryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, SnapshotSummaryDTO{SnapshotID: row.SnapshotID, Memo: row.Memo, CreatedAt: row.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// Rollback handles POST /api/snapshots/{id}/rollback.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "id")
	restored, err := h.Ledger.Rollback(r.Context(), snapshotID)
	if err != nil {
		writeError(w, statusFor(err), "rollback failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RollbackResponse{Restored: restored})
}

// RollbackPlayer handles POST /api/snapshots/{id}/rollback/{player}.
func (h *Handler) RollbackPlayer(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "id")
	player := chi.URLParam(r, "player")
	restored, err := h.Ledger.RollbackPlayer(r.Context(), snapshotID, player)
	if err != nil {
		writeError(w, statusFor(err), "rollback player failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RollbackResponse{Restored: restored})
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrUnknownCurrency), errors.Is(err, ledger.ErrCurrencyNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrSnapshotNotFound), errors.Is(err, ledger.ErrSnapshotEmpty):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrCurrencyDisabled), errors.Is(err, ledger.ErrPrimaryCurrencyProtected):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrDuplicateIdentifier):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrCancelled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func statusForCode(code ledger.ErrorCode) int {
	switch code {
	case ledger.CodeNotReady:
		return http.StatusServiceUnavailable
	case ledger.CodeUnknownCurrency:
		return http.StatusNotFound
	case ledger.CodeInvalidAmount:
		return http.StatusBadRequest
	case ledger.CodeCurrencyDisabled:
		return http.StatusConflict
	case ledger.CodeInsufficientFunds, ledger.CodeLimitExceeded:
		return http.StatusUnprocessableEntity
	case ledger.CodeConflict:
		return http.StatusConflict
	case ledger.CodeCancelled:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
