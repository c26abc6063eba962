/*
currency.go - In-memory currency registry (spec §4.3).

PURPOSE:
  Caches non-deleted currency definitions in two indices (by lowercase
  identifier, by id) so the hot mutation path never hits the database
  to resolve a currency. Persistence is mutated first; the indices are
  then swapped/updated atomically under a single mutex.

GROUNDING:
  Shaped after the teacher's generic/resource.go registry-with-mutex
  pattern (package-level registry guarded by sync.RWMutex), adapted to
  an instance field since spec §9 forbids singletons here.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CurrencyRegistry is the in-memory cache of currency definitions.
type CurrencyRegistry struct {
	store  CurrencyStore
	logger *zap.Logger

	mu       sync.RWMutex
	byID     map[CurrencyID]Currency
	byIdent  map[string]Currency // key: lowercase identifier
}

func newCurrencyRegistry(store CurrencyStore, logger *zap.Logger) *CurrencyRegistry {
	return &CurrencyRegistry{
		store:   store,
		logger:  logger,
		byID:    make(map[CurrencyID]Currency),
		byIdent: make(map[string]Currency),
	}
}

// load reads all non-deleted currencies from persistence and, if the
// registry is empty after load, bootstraps a default primary currency
// from cfg.DefaultCurrency (spec §4.3).
func (r *CurrencyRegistry) load(ctx context.Context, cfg DefaultCurrencyConfig) error {
	currencies, err := r.store.ListActiveCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("currency registry: initial load: %w", err)
	}

	r.mu.Lock()
	r.byID = make(map[CurrencyID]Currency, len(currencies))
	r.byIdent = make(map[string]Currency, len(currencies))
	for _, c := range currencies {
		r.byID[c.ID] = c
		r.byIdent[strings.ToLower(c.Identifier)] = c
	}
	empty := len(currencies) == 0
	r.mu.Unlock()

	if !empty {
		return nil
	}

	r.logger.Info("currency registry empty, bootstrapping default primary currency",
		zap.String("identifier", cfg.Identifier))
	_, err = r.create(ctx, cfg.Identifier, cfg.Name, cfg.Precision, cfg.Symbol, cfg.DefaultMaxBalance, cfg.ConsoleLog, true)
	if err != nil {
		return fmt.Errorf("currency registry: bootstrap default currency: %w", err)
	}
	return nil
}

func (r *CurrencyRegistry) refresh(cur Currency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[cur.ID] = cur
	r.byIdent[strings.ToLower(cur.Identifier)] = cur
}

// Create validates uniqueness (including soft-deleted rows) and
// inserts a new currency with primary=false, enabled=true,
// deleted=false, precision clamped to [0, 8] (spec §4.3).
func (r *CurrencyRegistry) Create(ctx context.Context, identifier, name string, precision int, symbol string, defaultMaxBalance int64, consoleLog bool) (Currency, error) {
	return r.create(ctx, identifier, name, precision, symbol, defaultMaxBalance, consoleLog, false)
}

func (r *CurrencyRegistry) create(ctx context.Context, identifier, name string, precision int, symbol string, defaultMaxBalance int64, consoleLog, primary bool) (Currency, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return Currency{}, fmt.Errorf("%w: empty identifier", ErrInvalidAmount)
	}

	existing, err := r.store.FindCurrencyByIdentifier(ctx, identifier, true)
	if err != nil {
		return Currency{}, err
	}
	if existing != nil {
		return Currency{}, ErrDuplicateIdentifier
	}

	now := nowUTC()
	cur := Currency{
		Identifier:        identifier,
		Name:              name,
		Symbol:            symbol,
		Precision:         ClampPrecision(precision),
		DefaultMaxBalance: defaultMaxBalance,
		Primary:           primary,
		Enabled:           true,
		Deleted:           false,
		ConsoleLog:        consoleLog,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	id, err := r.store.InsertCurrency(ctx, cur)
	if err != nil {
		return Currency{}, err
	}
	cur.ID = id
	r.refresh(cur)
	return cur, nil
}

// Delete soft-deletes a currency. Fails if the currency is missing or
// currently primary (spec §4.3).
func (r *CurrencyRegistry) Delete(ctx context.Context, identifier string) error {
	cur, ok := r.GetByIdentifier(identifier)
	if !ok {
		return ErrUnknownCurrency
	}
	if cur.Primary {
		return ErrPrimaryCurrencyProtected
	}
	if err := r.store.SoftDeleteCurrency(ctx, cur.ID); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.byID, cur.ID)
	delete(r.byIdent, strings.ToLower(cur.Identifier))
	r.mu.Unlock()
	return nil
}

// setEnabled is idempotent: if the currency is already in the target
// state, persistence is not touched, but the check-then-act is still
// safe under concurrent calls because UpdateCurrency is a full
// overwrite keyed by id, not a read-modify-write against a stale copy
// beyond what the registry mutex already serializes.
func (r *CurrencyRegistry) setEnabled(ctx context.Context, identifier string, enabled bool) error {
	cur, ok := r.GetByIdentifier(identifier)
	if !ok {
		return ErrUnknownCurrency
	}
	if cur.Enabled == enabled {
		return nil
	}
	cur.Enabled = enabled
	cur.UpdatedAt = nowUTC()
	if err := r.store.UpdateCurrency(ctx, cur); err != nil {
		return err
	}
	r.refresh(cur)
	return nil
}

// Enable flips enabled=true.
func (r *CurrencyRegistry) Enable(ctx context.Context, identifier string) error {
	return r.setEnabled(ctx, identifier, true)
}

// Disable flips enabled=false.
func (r *CurrencyRegistry) Disable(ctx context.Context, identifier string) error {
	return r.setEnabled(ctx, identifier, false)
}

// SetPrimary atomically clears primary on all non-deleted currencies
// and sets it on the target, refreshing indices afterward (spec §4.3).
func (r *CurrencyRegistry) SetPrimary(ctx context.Context, identifier string) error {
	target, ok := r.GetByIdentifier(identifier)
	if !ok {
		return ErrUnknownCurrency
	}

	if err := r.store.ClearAllPrimary(ctx); err != nil {
		return err
	}
	target.Primary = true
	target.UpdatedAt = nowUTC()
	if err := r.store.UpdateCurrency(ctx, target); err != nil {
		return err
	}

	currencies, err := r.store.ListActiveCurrencies(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byID = make(map[CurrencyID]Currency, len(currencies))
	r.byIdent = make(map[string]Currency, len(currencies))
	for _, c := range currencies {
		r.byID[c.ID] = c
		r.byIdent[strings.ToLower(c.Identifier)] = c
	}
	r.mu.Unlock()
	return nil
}

// GetByIdentifier looks up a currency case-insensitively from the
// in-memory index.
func (r *CurrencyRegistry) GetByIdentifier(identifier string) (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byIdent[strings.ToLower(identifier)]
	return c, ok
}

// GetByID looks up a currency by id from the in-memory index.
func (r *CurrencyRegistry) GetByID(id CurrencyID) (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// GetPrimary returns the single non-deleted currency with primary=true.
func (r *CurrencyRegistry) GetPrimary() (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byID {
		if c.Primary {
			return c, true
		}
	}
	return Currency{}, false
}

// ListActive returns every non-deleted currency.
func (r *CurrencyRegistry) ListActive() []Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// ListEnabled returns every non-deleted, enabled currency.
func (r *CurrencyRegistry) ListEnabled() []Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.byID))
	for _, c := range r.byID {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// ListIdentifiersEnabled returns the lowercase identifiers of every
// enabled currency.
func (r *CurrencyRegistry) ListIdentifiersEnabled() []string {
	enabled := r.ListEnabled()
	out := make([]string, 0, len(enabled))
	for _, c := range enabled {
		out = append(out, c.Identifier)
	}
	return out
}
