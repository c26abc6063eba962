/*
audit.go - Append-only audit trail writer (spec §4.4).

PURPOSE:
  Appends one TransactionRecord per persisted mutation, using the
  before/after balances observed at persist time, not at
  cache-mutation time (resolved Open Question, see SPEC_FULL.md). A
  failed audit append is logged and counted but never rolls back the
  mutation it describes (spec §4.4, §7).

GROUNDING:
  Grounded on the teacher's generic/store.go AuditLog/AuditFilter
  query-surface shape, adapted from the teacher's employee/PTO audit
  trail to transaction_log rows.
*/
package ledger

import (
	"context"

	"go.uber.org/zap"
)

// AuditWriter appends and queries the transaction_log table.
type AuditWriter struct {
	store   AuditStore
	logger  *zap.Logger
	metrics *Metrics
}

func newAuditWriter(store AuditStore, logger *zap.Logger, metrics *Metrics) *AuditWriter {
	return &AuditWriter{store: store, logger: logger, metrics: metrics}
}

// write appends rec. Failures are logged and counted, never returned
// to the caller of the mutation that produced rec — the mutation has
// already committed by the time write is called.
func (w *AuditWriter) write(ctx context.Context, rec TransactionRecord) {
	if _, err := w.store.InsertAudit(ctx, rec); err != nil {
		w.metrics.AuditFailuresTotal.Inc()
		w.logger.Error("audit append failed",
			zap.String("player", rec.PlayerName),
			zap.String("type", string(rec.Type)),
			zap.Error(err))
	}
}

// queryByPlayer returns a page of audit rows for playerName across all
// currencies, newest first.
func (w *AuditWriter) queryByPlayer(ctx context.Context, playerName string, page, pageSize int) (AuditPage, error) {
	return w.store.QueryAuditByPlayer(ctx, playerName, page, pageSize)
}

// queryByPlayerAndCurrency returns a page of audit rows for playerName
// restricted to currencyID, newest first.
func (w *AuditWriter) queryByPlayerAndCurrency(ctx context.Context, playerName string, currencyID CurrencyID, page, pageSize int) (AuditPage, error) {
	return w.store.QueryAuditByPlayerAndCurrency(ctx, playerName, currencyID, page, pageSize)
}

// countByPlayer returns the total row count backing queryByPlayer's
// pagination.
func (w *AuditWriter) countByPlayer(ctx context.Context, playerName string) (int64, error) {
	return w.store.CountAuditByPlayer(ctx, playerName)
}

// countByPlayerAndCurrency returns the total row count backing
// queryByPlayerAndCurrency's pagination.
func (w *AuditWriter) countByPlayerAndCurrency(ctx context.Context, playerName string, currencyID CurrencyID) (int64, error) {
	return w.store.CountAuditByPlayerAndCurrency(ctx, playerName, currencyID)
}
