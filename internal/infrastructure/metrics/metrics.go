// Package metrics exposes Prometheus counters for the counting API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CycleWrites counts whole-document cycle upserts.
	CycleWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chefdeck_cycle_writes_total",
		Help: "Number of inventory cycle document upserts.",
	})

	// LockConflicts counts lock requests rejected because another user held the sheet.
	LockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chefdeck_lock_conflicts_total",
		Help: "Number of sheet lock requests rejected with a conflict.",
	})

	// ArchiveClears counts bulk archive deletions.
	ArchiveClears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chefdeck_archive_clears_total",
		Help: "Number of bulk archive clear operations.",
	})
)
