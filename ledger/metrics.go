/*
metrics.go - Prometheus counters for the ledger core.

GROUNDING:
  The teacher repo carries no metrics; the rest of the retrieval pack's
  ledger-shaped services (tinoosan-ledger, qazna.org,
  Sketchyjo-STACK-BACKEND-SERVICE) all export prometheus client_golang
  counters from their account/ledger services. This gives every
  concurrent mutation path and the backup retention sweep an
  observable surface without adding an exporter or pull-server — the
  caller wires Metrics.Registry into whatever HTTP exposition it runs.
*/
package ledger

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters the ledger core updates. A fresh value is
// created per Ledger instance and registered into its own
// prometheus.Registry, so multiple Ledger instances in one process
// (tests) never collide on the default global registry.
type Metrics struct {
	Registry *prometheus.Registry

	MutationsTotal       *prometheus.CounterVec // labels: path(cached|direct), type, result
	CacheConflictsTotal  prometheus.Counter
	AuditFailuresTotal   prometheus.Counter
	HookPanicsTotal      *prometheus.CounterVec // labels: stage(pre|post)
	SnapshotsCreated     prometheus.Counter
	SnapshotRowsRestored prometheus.Counter
	RetentionDeletes     prometheus.Counter
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Count of mutation attempts by path, type, and result.",
		}, []string{"path", "type", "result"}),
		CacheConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cache_conflicts_total",
			Help: "Count of cached-path async persists that lost the optimistic version race.",
		}),
		AuditFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_audit_failures_total",
			Help: "Count of audit appends that failed after a committed mutation.",
		}),
		HookPanicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_hook_panics_total",
			Help: "Count of hook subscriber panics recovered by the dispatcher, by stage.",
		}, []string{"stage"}),
		SnapshotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_snapshots_created_total",
			Help: "Count of backup snapshots successfully created.",
		}),
		SnapshotRowsRestored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_snapshot_rows_restored_total",
			Help: "Count of account rows restored by rollback operations.",
		}),
		RetentionDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_retention_deletes_total",
			Help: "Count of snapshot_ids garbage-collected by the retention policy.",
		}),
	}
	reg.MustRegister(m.MutationsTotal, m.CacheConflictsTotal, m.AuditFailuresTotal,
		m.HookPanicsTotal, m.SnapshotsCreated, m.SnapshotRowsRestored, m.RetentionDeletes)
	return m
}
