// Package metrics exposes Prometheus instrumentation for orgman.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run outcomes
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgman_runs_total",
		Help: "Total number of organize runs by final status.",
	}, []string{"status"}) // completed, completed_with_errors, failed, cancelled, undone

	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgman_actions_total",
		Help: "Total number of primitive filesystem actions executed.",
	}, []string{"kind"}) // create_dir, move, rename, apply_tags

	SkippedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orgman_skipped_files_total",
		Help: "Total number of files skipped due to per-item errors.",
	})

	// Parser behavior
	ParseOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgman_parse_outcomes_total",
		Help: "Plan parse outcomes by decode stage that succeeded.",
	}, []string{"stage"}) // full, compact, partial, failed

	UnmatchedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orgman_unmatched_files_total",
		Help: "Plan file references that matched no catalog entry.",
	})

	// Undo outcomes
	UndoActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgman_undo_actions_total",
		Help: "Undo action outcomes.",
	}, []string{"outcome"}) // reversed, conflict, already_reversed

	// Performance
	OrganizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orgman_organize_duration_seconds",
		Help:    "Duration of organize runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// Store state
	HistoryEntriesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orgman_history_entries_total",
		Help: "Number of history entries currently retained.",
	})
	TaggedFilesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orgman_tagged_files_total",
		Help: "Number of files with at least one applied tag.",
	})
)

// UpdateDBMetrics refreshes gauges that reflect the current state of the store.
func UpdateDBMetrics(db *sql.DB) error {
	var entries, tagged int

	if err := db.QueryRow("SELECT COUNT(*) FROM history").Scan(&entries); err != nil {
		return err
	}
	if err := db.QueryRow("SELECT COUNT(DISTINCT path) FROM file_tags").Scan(&tagged); err != nil {
		return err
	}

	HistoryEntriesTotal.Set(float64(entries))
	TaggedFilesTotal.Set(float64(tagged))

	return nil
}

// RecordOrganizeDuration records the time taken for an organize run.
func RecordOrganizeDuration(start time.Time) {
	OrganizeDuration.Observe(time.Since(start).Seconds())
}
