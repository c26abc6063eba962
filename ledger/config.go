/*
config.go - Ledger configuration surface (spec §6, §9).

Design note: the source expresses every component as a process-wide
singleton. This Config struct, threaded once into New(), is the
replacement: one long-lived *Ledger instance owned by the process
entrypoint, holding every component as a field rather than a global.
*/
package ledger

// DefaultCurrencyConfig seeds the primary currency created when the
// store is empty on startup (spec §4.3, §6).
type DefaultCurrencyConfig struct {
	Identifier        string
	Name              string
	Symbol            string
	Precision         int
	DefaultMaxBalance int64
	ConsoleLog        bool
}

// Config is the full configuration surface recognized by the ledger
// core (spec §6's configuration table).
type Config struct {
	// DatasourceKey is opaque; the host binds it to a concrete
	// connection, the ledger core never interprets it.
	DatasourceKey string

	DefaultCurrency DefaultCurrencyConfig

	// RoundingMode controls Scale/Format; default DOWN.
	RoundingMode RoundingMode

	// AsyncWorkers bounds the Async Executor's worker pool. Zero
	// means "at least hardware parallelism" (spec §4.5).
	AsyncWorkers int

	// AsyncShutdownWaitSeconds bounds how long Shutdown waits for in-flight
	// tasks to drain.
	AsyncShutdownWaitSeconds int

	// MaxSnapshots is the retention cap for distinct snapshot_ids
	// (spec §6, default 50).
	MaxSnapshots int

	// MaxVersionRetries bounds the direct-path optimistic-update retry
	// loop (spec §4.6, typical value 3).
	MaxVersionRetries int
}

// withDefaults fills zero-valued fields with the spec's stated
// defaults so a caller can pass a sparse Config.
func (c Config) withDefaults() Config {
	if c.RoundingMode == "" {
		c.RoundingMode = RoundDown
	}
	if c.MaxSnapshots <= 0 {
		c.MaxSnapshots = 50
	}
	if c.MaxVersionRetries <= 0 {
		c.MaxVersionRetries = 3
	}
	if c.AsyncShutdownWaitSeconds <= 0 {
		c.AsyncShutdownWaitSeconds = 30
	}
	if c.DefaultCurrency.Identifier == "" {
		c.DefaultCurrency = DefaultCurrencyConfig{
			Identifier: "coin",
			Name:       "Coin",
			Symbol:     "¤",
			Precision:  2,
			DefaultMaxBalance: -1,
		}
	}
	return c
}
