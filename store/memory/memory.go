// Package memory provides an in-memory ledger.Store for tests and
// embedding, grounded on the teacher's generic/store Memory
// implementation but reshaped around versioned account rows instead of
// an append-only transaction log.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/ledger-core/ledger"
)

type acctKey struct {
	playerName string
	currencyID ledger.CurrencyID
}

// Store is an in-memory implementation of ledger.Store.
type Store struct {
	mu sync.RWMutex

	ready bool

	currencies   map[ledger.CurrencyID]ledger.Currency
	nextCurrency int64

	accounts   map[acctKey]ledger.Account
	nextAccount int64

	audit     []ledger.TransactionRecord
	nextAudit int64

	snapshots []ledger.BackupRow
}

// New returns a ready in-memory store.
func New() *Store {
	return &Store{
		ready:      true,
		currencies: make(map[ledger.CurrencyID]ledger.Currency),
		accounts:   make(map[acctKey]ledger.Account),
	}
}

func (s *Store) Ready() bool { return s.ready }

// Close marks the store not-ready; further calls return ErrNotReady.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
}

func (s *Store) FindCurrencyByID(_ context.Context, id ledger.CurrencyID) (*ledger.Currency, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.currencies[id]
	if !ok || c.Deleted {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) FindCurrencyByIdentifier(_ context.Context, identifier string, includeDeleted bool) (*ledger.Currency, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	identifier = strings.ToLower(identifier)
	for _, c := range s.currencies {
		if strings.ToLower(c.Identifier) != identifier {
			continue
		}
		if c.Deleted && !includeDeleted {
			continue
		}
		cc := c
		return &cc, nil
	}
	return nil, nil
}

func (s *Store) ListActiveCurrencies(_ context.Context) ([]ledger.Currency, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Currency, 0, len(s.currencies))
	for _, c := range s.currencies {
		if !c.Deleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ListEnabledCurrencies(ctx context.Context) ([]ledger.Currency, error) {
	active, err := s.ListActiveCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Currency, 0, len(active))
	for _, c := range active {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) FindPrimaryCurrency(_ context.Context) (*ledger.Currency, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.currencies {
		if c.Primary && !c.Deleted {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertCurrency(_ context.Context, cur ledger.Currency) (ledger.CurrencyID, error) {
	if !s.Ready() {
		return 0, ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCurrency++
	cur.ID = ledger.CurrencyID(s.nextCurrency)
	s.currencies[cur.ID] = cur
	return cur.ID, nil
}

func (s *Store) UpdateCurrency(_ context.Context, cur ledger.Currency) error {
	if !s.Ready() {
		return ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currencies[cur.ID] = cur
	return nil
}

func (s *Store) SoftDeleteCurrency(_ context.Context, id ledger.CurrencyID) error {
	if !s.Ready() {
		return ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.currencies[id]
	if !ok {
		return ledger.ErrCurrencyNotFound
	}
	c.Deleted = true
	c.Enabled = false
	s.currencies[id] = c
	return nil
}

func (s *Store) ClearAllPrimary(_ context.Context) error {
	if !s.Ready() {
		return ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.currencies {
		if c.Primary {
			c.Primary = false
			s.currencies[id] = c
		}
	}
	return nil
}

func (s *Store) FindAccount(_ context.Context, playerName string, currencyID ledger.CurrencyID) (*ledger.Account, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[acctKey{playerName, currencyID}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) ListAccountsByPlayer(_ context.Context, playerName string) ([]ledger.Account, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Account
	for k, a := range s.accounts {
		if k.playerName == playerName {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListAccountsByCurrency(_ context.Context, currencyID ledger.CurrencyID) ([]ledger.Account, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Account
	for k, a := range s.accounts {
		if k.currencyID == currencyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListAllAccounts(_ context.Context) ([]ledger.Account, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertAccount(_ context.Context, acct ledger.Account) (ledger.AccountID, error) {
	if !s.Ready() {
		return 0, ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAccount++
	acct.ID = ledger.AccountID(s.nextAccount)
	if acct.Version == 0 {
		acct.Version = 1
	}
	s.accounts[acctKey{acct.PlayerName, acct.CurrencyID}] = acct
	return acct.ID, nil
}

func (s *Store) UpdateAccountVersioned(_ context.Context, acct ledger.Account) (int, error) {
	if !s.Ready() {
		return 0, ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := acctKey{acct.PlayerName, acct.CurrencyID}
	existing, ok := s.accounts[k]
	if !ok || existing.Version != acct.Version {
		return 0, nil
	}
	acct.Version++
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[k] = acct
	return 1, nil
}

func (s *Store) GetOrCreateAccount(_ context.Context, playerName, playerUUID string, currencyID ledger.CurrencyID) (ledger.Account, error) {
	if !s.Ready() {
		return ledger.Account{}, ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := acctKey{playerName, currencyID}
	if a, ok := s.accounts[k]; ok {
		if playerUUID != "" && a.PlayerUUID != playerUUID {
			a.PlayerUUID = playerUUID
			s.accounts[k] = a
		}
		return a, nil
	}
	now := time.Now().UTC()
	s.nextAccount++
	a := ledger.Account{
		ID: ledger.AccountID(s.nextAccount), PlayerName: playerName, PlayerUUID: playerUUID,
		CurrencyID: currencyID, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	s.accounts[k] = a
	return a, nil
}

func (s *Store) InsertAudit(_ context.Context, rec ledger.TransactionRecord) (int64, error) {
	if !s.Ready() {
		return 0, ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAudit++
	rec.ID = s.nextAudit
	s.audit = append(s.audit, rec)
	return rec.ID, nil
}

func (s *Store) filterAudit(playerName string, currencyID *ledger.CurrencyID) []ledger.TransactionRecord {
	var out []ledger.TransactionRecord
	for i := len(s.audit) - 1; i >= 0; i-- {
		rec := s.audit[i]
		if rec.PlayerName != playerName {
			continue
		}
		if currencyID != nil && rec.CurrencyID != *currencyID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func paginate(records []ledger.TransactionRecord, page, pageSize int) []ledger.TransactionRecord {
	if pageSize <= 0 {
		return nil
	}
	start := page * pageSize
	if start >= len(records) {
		return nil
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

func (s *Store) QueryAuditByPlayer(_ context.Context, playerName string, page, pageSize int) (ledger.AuditPage, error) {
	if !s.Ready() {
		return ledger.AuditPage{}, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.filterAudit(playerName, nil)
	return ledger.AuditPage{Records: paginate(all, page, pageSize), Total: int64(len(all))}, nil
}

func (s *Store) QueryAuditByPlayerAndCurrency(_ context.Context, playerName string, currencyID ledger.CurrencyID, page, pageSize int) (ledger.AuditPage, error) {
	if !s.Ready() {
		return ledger.AuditPage{}, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.filterAudit(playerName, &currencyID)
	return ledger.AuditPage{Records: paginate(all, page, pageSize), Total: int64(len(all))}, nil
}

func (s *Store) CountAuditByPlayer(_ context.Context, playerName string) (int64, error) {
	if !s.Ready() {
		return 0, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterAudit(playerName, nil))), nil
}

func (s *Store) CountAuditByPlayerAndCurrency(_ context.Context, playerName string, currencyID ledger.CurrencyID) (int64, error) {
	if !s.Ready() {
		return 0, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterAudit(playerName, &currencyID))), nil
}

func (s *Store) InsertSnapshotBatch(_ context.Context, rows []ledger.BackupRow) error {
	if !s.Ready() {
		return ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, rows...)
	return nil
}

func (s *Store) ListSnapshotRows(_ context.Context, snapshotID string) ([]ledger.BackupRow, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.BackupRow
	for _, r := range s.snapshots {
		if r.SnapshotID == snapshotID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListSnapshotRowsForPlayer(_ context.Context, snapshotID, playerName string) ([]ledger.BackupRow, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.BackupRow
	for _, r := range s.snapshots {
		if r.SnapshotID == snapshotID && r.PlayerName == playerName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListDistinctSnapshots(_ context.Context) ([]ledger.BackupRow, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []ledger.BackupRow
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		r := s.snapshots[i]
		if seen[r.SnapshotID] {
			continue
		}
		seen[r.SnapshotID] = true
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) CountDistinctSnapshots(ctx context.Context) (int64, error) {
	rows, err := s.ListDistinctSnapshots(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *Store) DeleteSnapshot(_ context.Context, snapshotID string) error {
	if !s.Ready() {
		return ledger.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshots[:0]
	for _, r := range s.snapshots {
		if r.SnapshotID != snapshotID {
			out = append(out, r)
		}
	}
	s.snapshots = out
	return nil
}

func (s *Store) OldestSnapshotIDs(_ context.Context, limit int) ([]string, error) {
	if !s.Ready() {
		return nil, ledger.ErrNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type idAt struct {
		id string
		at int
	}
	firstSeen := make(map[string]int)
	for i, r := range s.snapshots {
		if _, ok := firstSeen[r.SnapshotID]; !ok {
			firstSeen[r.SnapshotID] = i
		}
	}
	ordered := make([]idAt, 0, len(firstSeen))
	for id, at := range firstSeen {
		ordered = append(ordered, idAt{id, at})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].at < ordered[j].at })

	if limit > len(ordered) {
		limit = len(ordered)
	}
	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, ordered[i].id)
	}
	return out, nil
}
