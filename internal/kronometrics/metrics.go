// Package kronometrics exposes the Prometheus metrics the publish
// pipeline, garbage collector, and lock driver update as they run.
// Grounded on cuemby-warren/pkg/metrics/metrics.go's
// package-level-vars-plus-init-registration shape.
package kronometrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LeaseAcquired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_lease_acquired_total",
		Help: "Total number of times the admin lease was acquired.",
	})

	LeaseReleased = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_lease_released_total",
		Help: "Total number of times the admin lease was released.",
	})

	LeaseStolen = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_lease_stolen_total",
		Help: "Total number of times an expired lease was stolen by a new acquirer.",
	})

	StageConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_stage_conflicts_total",
		Help: "Total number of stage() calls that failed with conflict-detected.",
	})

	StageSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_stage_success_total",
		Help: "Total number of stage() calls that succeeded.",
	})

	DedupHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_objectstore_dedup_hits_total",
		Help: "Total number of put() calls that found an existing object and wrote no new bytes.",
	})

	GCObjectsKeptFastPath = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_gc_kept_fast_path_total",
		Help: "Total number of objects kept by GC via the .ref fast path.",
	})

	GCObjectsKeptScanPath = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_gc_kept_scan_path_total",
		Help: "Total number of objects kept by GC via the fallback live-edition scan.",
	})

	GCObjectsOrphaned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kronoa_gc_orphaned_total",
		Help: "Total number of objects reported orphaned across all GC runs (dry-run count).",
	})
)

func init() {
	prometheus.MustRegister(
		LeaseAcquired,
		LeaseReleased,
		LeaseStolen,
		StageConflicts,
		StageSuccessTotal,
		DedupHits,
		GCObjectsKeptFastPath,
		GCObjectsKeptScanPath,
		GCObjectsOrphaned,
	)
}

// Handler returns the HTTP handler cmd/kronoa mounts to serve these
// metrics for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
