// Package metrics exposes Prometheus counters for the import pipeline.
// Registration is eager; if no /metrics endpoint is wired the registration
// is harmless. All helpers are safe to call from hot paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trax_imports_total",
		Help: "Total import calls, labelled by outcome status",
	}, []string{"status"})

	entitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trax_entities_total",
		Help: "Total payload entities processed, labelled by kind and outcome",
	}, []string{"kind", "outcome"})

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trax_preheat_cache_hits_total",
		Help: "Preheat cache hits across import batches",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trax_preheat_cache_misses_total",
		Help: "Preheat cache misses (including expired entries)",
	})

	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trax_preheat_cache_evictions_total",
		Help: "Preheat cache entries evicted by capacity bounds",
	})

	bulkLookupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trax_preheat_bulk_lookups_total",
		Help: "Bulk repository lookups issued by the preheat resolver",
	})
)

func init() {
	prometheus.MustRegister(
		importsTotal,
		entitiesTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		bulkLookupsTotal,
	)
}

// ObserveImport records one completed import call.
func ObserveImport(status string) {
	importsTotal.WithLabelValues(status).Inc()
}

// ObserveEntities records per-kind outcome counts from an import report.
func ObserveEntities(kind string, outcome string, n int) {
	if n <= 0 {
		return
	}
	entitiesTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

// CacheHit records a preheat cache hit.
func CacheHit() { cacheHitsTotal.Inc() }

// CacheMiss records a preheat cache miss.
func CacheMiss() { cacheMissesTotal.Inc() }

// CacheEviction records n capacity evictions.
func CacheEviction(n int) {
	if n > 0 {
		cacheEvictionsTotal.Add(float64(n))
	}
}

// BulkLookup records one bulk repository lookup.
func BulkLookup() { bulkLookupsTotal.Inc() }
