/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

TABLES:
  currency:          Currency registry, soft-deletable
  account:           Per-player, per-currency balances with an
                     optimistic version column
  transaction_log:   Append-only audit trail
  backup_snapshot:   Point-in-time account copies grouped by
                     snapshot_id

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, mirroring a single-writer
  assumption appropriate to SQLite; a PostgreSQL-backed store would
  rely on database-level concurrency control instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, a single writer at a time, better crash recovery.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/ledger-core/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite-backed store. Use ":memory:" for
// an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ready reports whether the underlying connection is reachable.
func (s *Store) Ready() bool {
	return s.db.Ping() == nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS currency (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL DEFAULT '',
		precision INTEGER NOT NULL DEFAULT 2,
		default_max_balance INTEGER NOT NULL DEFAULT -1,
		is_primary BOOLEAN NOT NULL DEFAULT 0,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		console_log BOOLEAN NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_currency_identifier_active
		ON currency(identifier) WHERE deleted = 0;

	CREATE TABLE IF NOT EXISTS account (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_name TEXT NOT NULL,
		player_uuid TEXT NOT NULL DEFAULT '',
		currency_id INTEGER NOT NULL REFERENCES currency(id),
		balance TEXT NOT NULL DEFAULT '0',
		max_balance INTEGER NOT NULL DEFAULT -1,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(player_name, currency_id)
	);

	CREATE INDEX IF NOT EXISTS idx_account_currency
		ON account(currency_id);
	CREATE INDEX IF NOT EXISTS idx_account_player
		ON account(player_name);

	CREATE TABLE IF NOT EXISTS transaction_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_name TEXT NOT NULL,
		player_uuid TEXT NOT NULL DEFAULT '',
		currency_id INTEGER NOT NULL REFERENCES currency(id),
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		operator TEXT NOT NULL DEFAULT '',
		occurred_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transaction_log_player
		ON transaction_log(player_name, occurred_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transaction_log_player_currency
		ON transaction_log(player_name, currency_id, occurred_at DESC);

	CREATE TABLE IF NOT EXISTS backup_snapshot (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL,
		player_name TEXT NOT NULL,
		player_uuid TEXT NOT NULL DEFAULT '',
		currency_id INTEGER NOT NULL REFERENCES currency(id),
		balance TEXT NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backup_snapshot_id
		ON backup_snapshot(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_backup_snapshot_player
		ON backup_snapshot(snapshot_id, player_name);
	CREATE INDEX IF NOT EXISTS idx_backup_snapshot_created
		ON backup_snapshot(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// --- currency ---------------------------------------------------------

func scanCurrency(row interface{ Scan(...any) error }) (*ledger.Currency, error) {
	var c ledger.Currency
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Identifier, &c.Name, &c.Symbol, &c.Precision, &c.DefaultMaxBalance,
		&c.Primary, &c.Enabled, &c.Deleted, &c.ConsoleLog, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

const currencySelectCols = `id, identifier, name, symbol, precision, default_max_balance, is_primary, enabled, deleted, console_log, created_at, updated_at`

func (s *Store) FindCurrencyByID(ctx context.Context, id ledger.CurrencyID) (*ledger.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+currencySelectCols+` FROM currency WHERE id = ? AND deleted = 0`, int64(id))
	return scanCurrency(row)
}

func (s *Store) FindCurrencyByIdentifier(ctx context.Context, identifier string, includeDeleted bool) (*ledger.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := `SELECT ` + currencySelectCols + ` FROM currency WHERE LOWER(identifier) = LOWER(?)`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	row := s.db.QueryRowContext(ctx, query, identifier)
	return scanCurrency(row)
}

func (s *Store) ListActiveCurrencies(ctx context.Context) ([]ledger.Currency, error) {
	return s.queryCurrencies(ctx, `SELECT `+currencySelectCols+` FROM currency WHERE deleted = 0 ORDER BY id`)
}

func (s *Store) ListEnabledCurrencies(ctx context.Context) ([]ledger.Currency, error) {
	return s.queryCurrencies(ctx, `SELECT `+currencySelectCols+` FROM currency WHERE deleted = 0 AND enabled = 1 ORDER BY id`)
}

func (s *Store) queryCurrencies(ctx context.Context, query string, args ...any) ([]ledger.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Currency
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, rows.Err()
}

func (s *Store) FindPrimaryCurrency(ctx context.Context) (*ledger.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+currencySelectCols+` FROM currency WHERE deleted = 0 AND is_primary = 1 LIMIT 1`)
	return scanCurrency(row)
}

func (s *Store) InsertCurrency(ctx context.Context, cur ledger.Currency) (ledger.CurrencyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO currency (identifier, name, symbol, precision, default_max_balance, is_primary, enabled, deleted, console_log, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cur.Identifier, cur.Name, cur.Symbol, cur.Precision, cur.DefaultMaxBalance,
		cur.Primary, cur.Enabled, cur.Deleted, cur.ConsoleLog, formatTime(cur.CreatedAt), formatTime(cur.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ledger.ErrDuplicateIdentifier
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return ledger.CurrencyID(id), err
}

func (s *Store) UpdateCurrency(ctx context.Context, cur ledger.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE currency SET identifier=?, name=?, symbol=?, precision=?, default_max_balance=?,
			is_primary=?, enabled=?, console_log=?, updated_at=?
		WHERE id=?`,
		cur.Identifier, cur.Name, cur.Symbol, cur.Precision, cur.DefaultMaxBalance,
		cur.Primary, cur.Enabled, cur.ConsoleLog, formatTime(cur.UpdatedAt), int64(cur.ID))
	return err
}

func (s *Store) SoftDeleteCurrency(ctx context.Context, id ledger.CurrencyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE currency SET deleted=1, enabled=0, updated_at=? WHERE id=?`,
		formatTime(time.Now().UTC()), int64(id))
	return err
}

func (s *Store) ClearAllPrimary(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE currency SET is_primary=0 WHERE deleted=0`)
	return err
}

// --- account ------------------------------------------------------------

const accountSelectCols = `id, player_name, player_uuid, currency_id, balance, max_balance, version, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*ledger.Account, error) {
	var a ledger.Account
	var balance, createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.PlayerName, &a.PlayerUUID, &a.CurrencyID, &balance, &a.MaxBalance,
		&a.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse stored balance: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func (s *Store) FindAccount(ctx context.Context, playerName string, currencyID ledger.CurrencyID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+accountSelectCols+` FROM account WHERE player_name=? AND currency_id=?`,
		playerName, int64(currencyID))
	return scanAccount(row)
}

func (s *Store) ListAccountsByPlayer(ctx context.Context, playerName string) ([]ledger.Account, error) {
	return s.queryAccounts(ctx, `SELECT `+accountSelectCols+` FROM account WHERE player_name=? ORDER BY currency_id`, playerName)
}

func (s *Store) ListAccountsByCurrency(ctx context.Context, currencyID ledger.CurrencyID) ([]ledger.Account, error) {
	return s.queryAccounts(ctx, `SELECT `+accountSelectCols+` FROM account WHERE currency_id=? ORDER BY player_name`, int64(currencyID))
}

func (s *Store) ListAllAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.queryAccounts(ctx, `SELECT `+accountSelectCols+` FROM account ORDER BY id`)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, rows.Err()
}

func (s *Store) InsertAccount(ctx context.Context, acct ledger.Account) (ledger.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := acct.Version
	if version == 0 {
		version = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO account (player_name, player_uuid, currency_id, balance, max_balance, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.PlayerName, acct.PlayerUUID, int64(acct.CurrencyID), acct.Balance.String(), acct.MaxBalance,
		version, formatTime(acct.CreatedAt), formatTime(acct.UpdatedAt))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return ledger.AccountID(id), err
}

// UpdateAccountVersioned performs the optimistic-concurrency update:
// the WHERE clause binds both id and the expected version, so the
// affected-row count distinguishes a committed write from a lost race.
func (s *Store) UpdateAccountVersioned(ctx context.Context, acct ledger.Account) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE account SET balance=?, max_balance=?, version=version+1, updated_at=?
		WHERE id=? AND version=?`,
		acct.Balance.String(), acct.MaxBalance, formatTime(time.Now().UTC()), int64(acct.ID), acct.Version)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *Store) GetOrCreateAccount(ctx context.Context, playerName, playerUUID string, currencyID ledger.CurrencyID) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+accountSelectCols+` FROM account WHERE player_name=? AND currency_id=?`,
		playerName, int64(currencyID))
	existing, err := scanAccount(row)
	if err != nil {
		return ledger.Account{}, err
	}
	if existing != nil {
		if playerUUID != "" && existing.PlayerUUID != playerUUID {
			if _, err := s.db.ExecContext(ctx, `UPDATE account SET player_uuid=? WHERE id=?`, playerUUID, int64(existing.ID)); err != nil {
				return ledger.Account{}, err
			}
			existing.PlayerUUID = playerUUID
		}
		return *existing, nil
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO account (player_name, player_uuid, currency_id, balance, max_balance, version, created_at, updated_at)
		VALUES (?, ?, ?, '0', -1, 1, ?, ?)`,
		playerName, playerUUID, int64(currencyID), formatTime(now), formatTime(now))
	if err != nil {
		return ledger.Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{
		ID: ledger.AccountID(id), PlayerName: playerName, PlayerUUID: playerUUID, CurrencyID: currencyID,
		Balance: decimal.Zero, MaxBalance: -1, Version: 1, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// --- transaction_log (audit) ---------------------------------------------

func (s *Store) InsertAudit(ctx context.Context, rec ledger.TransactionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_log (player_name, player_uuid, currency_id, type, amount, balance_before, balance_after, reason, operator, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PlayerName, rec.PlayerUUID, int64(rec.CurrencyID), string(rec.Type), rec.Amount.String(),
		rec.BalanceBefore.String(), rec.BalanceAfter.String(), rec.Reason, rec.Operator, formatTime(rec.OccurredAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanTransactionRecord(rows *sql.Rows) (ledger.TransactionRecord, error) {
	var rec ledger.TransactionRecord
	var amount, before, after, occurredAt, txType string
	err := rows.Scan(&rec.ID, &rec.PlayerName, &rec.PlayerUUID, &rec.CurrencyID, &txType, &amount, &before, &after,
		&rec.Reason, &rec.Operator, &occurredAt)
	if err != nil {
		return rec, err
	}
	rec.Type = ledger.TransactionType(txType)
	rec.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return rec, err
	}
	rec.BalanceBefore, err = decimal.NewFromString(before)
	if err != nil {
		return rec, err
	}
	rec.BalanceAfter, err = decimal.NewFromString(after)
	if err != nil {
		return rec, err
	}
	rec.OccurredAt = parseTime(occurredAt)
	return rec, nil
}

const auditSelectCols = `id, player_name, player_uuid, currency_id, type, amount, balance_before, balance_after, reason, operator, occurred_at`

func (s *Store) QueryAuditByPlayer(ctx context.Context, playerName string, page, pageSize int) (ledger.AuditPage, error) {
	return s.queryAudit(ctx,
		`SELECT `+auditSelectCols+` FROM transaction_log WHERE player_name=? ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?`,
		`SELECT COUNT(*) FROM transaction_log WHERE player_name=?`,
		[]any{playerName, pageSize, page * pageSize}, []any{playerName})
}

func (s *Store) QueryAuditByPlayerAndCurrency(ctx context.Context, playerName string, currencyID ledger.CurrencyID, page, pageSize int) (ledger.AuditPage, error) {
	return s.queryAudit(ctx,
		`SELECT `+auditSelectCols+` FROM transaction_log WHERE player_name=? AND currency_id=? ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?`,
		`SELECT COUNT(*) FROM transaction_log WHERE player_name=? AND currency_id=?`,
		[]any{playerName, int64(currencyID), pageSize, page * pageSize}, []any{playerName, int64(currencyID)})
}

func (s *Store) queryAudit(ctx context.Context, selectQuery, countQuery string, selectArgs, countArgs []any) (ledger.AuditPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var page ledger.AuditPage
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&page.Total); err != nil {
		return page, err
	}

	rows, err := s.db.QueryContext(ctx, selectQuery, selectArgs...)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanTransactionRecord(rows)
		if err != nil {
			return page, err
		}
		page.Records = append(page.Records, rec)
	}
	return page, rows.Err()
}

func (s *Store) CountAuditByPlayer(ctx context.Context, playerName string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_log WHERE player_name=?`, playerName).Scan(&count)
	return count, err
}

func (s *Store) CountAuditByPlayerAndCurrency(ctx context.Context, playerName string, currencyID ledger.CurrencyID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_log WHERE player_name=? AND currency_id=?`,
		playerName, int64(currencyID)).Scan(&count)
	return count, err
}

// --- backup_snapshot ------------------------------------------------------

func (s *Store) InsertSnapshotBatch(ctx context.Context, rows []ledger.BackupRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backup_snapshot (snapshot_id, player_name, player_uuid, currency_id, balance, memo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.SnapshotID, row.PlayerName, row.PlayerUUID, int64(row.CurrencyID),
			row.Balance.String(), row.Memo, formatTime(row.CreatedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanBackupRow(rows *sql.Rows) (ledger.BackupRow, error) {
	var row ledger.BackupRow
	var balance, createdAt string
	err := rows.Scan(&row.ID, &row.SnapshotID, &row.PlayerName, &row.PlayerUUID, &row.CurrencyID, &balance, &row.Memo, &createdAt)
	if err != nil {
		return row, err
	}
	row.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return row, err
	}
	row.CreatedAt = parseTime(createdAt)
	return row, nil
}

const backupSelectCols = `id, snapshot_id, player_name, player_uuid, currency_id, balance, memo, created_at`

func (s *Store) ListSnapshotRows(ctx context.Context, snapshotID string) ([]ledger.BackupRow, error) {
	return s.queryBackupRows(ctx, `SELECT `+backupSelectCols+` FROM backup_snapshot WHERE snapshot_id=?`, snapshotID)
}

func (s *Store) ListSnapshotRowsForPlayer(ctx context.Context, snapshotID, playerName string) ([]ledger.BackupRow, error) {
	return s.queryBackupRows(ctx, `SELECT `+backupSelectCols+` FROM backup_snapshot WHERE snapshot_id=? AND player_name=?`, snapshotID, playerName)
}

func (s *Store) queryBackupRows(ctx context.Context, query string, args ...any) ([]ledger.BackupRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.BackupRow
	for rows.Next() {
		row, err := scanBackupRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) ListDistinctSnapshots(ctx context.Context) ([]ledger.BackupRow, error) {
	return s.queryBackupRows(ctx, `
		SELECT `+backupSelectCols+` FROM backup_snapshot
		WHERE id IN (SELECT MIN(id) FROM backup_snapshot GROUP BY snapshot_id)
		ORDER BY created_at DESC`)
}

func (s *Store) CountDistinctSnapshots(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT snapshot_id) FROM backup_snapshot`).Scan(&count)
	return count, err
}

func (s *Store) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM backup_snapshot WHERE snapshot_id=?`, snapshotID)
	return err
}

func (s *Store) OldestSnapshotIDs(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id FROM backup_snapshot
		GROUP BY snapshot_id
		ORDER BY MIN(created_at) ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- helpers --------------------------------------------------------------

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
