// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package metrics provides Prometheus collectors for the engine and its HTTP
// surface. Collectors register on the default registry via promauto and are
// exposed at /metrics by the geoportal server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sigphi/territorium/internal/errkind"
)

var (
	// Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_kind"},
	)

	StoreSpatialOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_spatial_operations_total",
			Help: "Total number of spatial operations (ST_* functions)",
		},
		[]string{"operation_type"}, // "transform", "repair", "centroid", "geojson"
	)

	GeometryRepairWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geometry_repair_warnings_total",
			Help: "Geometries still invalid after one repair pass",
		},
	)

	// Memoization Metrics
	MemoHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memo_cache_hits_total",
			Help: "Memoization layer hits",
		},
	)

	MemoMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memo_cache_misses_total",
			Help: "Memoization layer misses",
		},
	)

	MemoSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memo_cache_entries",
			Help: "Current number of memoized entries",
		},
	)

	MemoSnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memo_snapshot_version",
			Help: "Store snapshot version embedded in cache keys",
		},
	)

	// Engine Metrics
	EngineCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_call_duration_seconds",
			Help:    "Duration of engine façade calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "aggregate", "compare", "prioritize", "recommend"
	)

	EngineCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_call_errors_total",
			Help: "Engine façade calls that returned an error",
		},
		[]string{"operation", "error_kind"},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)
)

// ObserveStoreQuery records one store query with its duration and outcome.
func ObserveStoreQuery(operation, table string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation, table, "query").Inc()
	}
}

// ObserveEngineCall records one façade call with its duration and outcome.
func ObserveEngineCall(operation string, start time.Time, err error) {
	EngineCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		EngineCallErrors.WithLabelValues(operation, string(errkind.KindOf(err))).Inc()
	}
}
