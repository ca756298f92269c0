package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/internship-affectation/internal/affectation"
)

// Run outcomes used as the status label of affectation_runs_total.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	trialsTotal     prometheus.Counter
	bestCost        prometheus.Gauge
	errorPlacements prometheus.Gauge
	studentFailures *prometheus.CounterVec
	exportsTotal    *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affectation_runs_total",
			Help: "Engine runs by outcome",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "affectation_run_duration_seconds",
			Help:    "Wall time of an engine run including persistence",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		trialsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "affectation_trials_total",
			Help: "Solutions built across all runs",
		}),
		bestCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "affectation_best_cost",
			Help: "Cost of the last persisted solution",
		}),
		errorPlacements: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "affectation_error_placements",
			Help: "Placements at the error organization in the last persisted solution",
		}),
		studentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affectation_student_failures_total",
			Help: "Students that could not be placed, by builder phase",
		}, []string{"phase"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affectation_exports_total",
			Help: "Generated assignment sheets by format",
		}, []string{"format"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency.(prometheus.Histogram), m.cacheWrite.(prometheus.Histogram),
		m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.runsTotal, m.runDuration, m.trialsTotal, m.bestCost, m.errorPlacements,
		m.studentFailures, m.exportsTotal, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRun records a finished run. A nil result counts as a failed run.
func (m *MetricsService) ObserveRun(result *affectation.Result, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	if result == nil || result.Solution == nil {
		m.runsTotal.WithLabelValues(RunStatusFailed).Inc()
		return
	}
	m.runsTotal.WithLabelValues(RunStatusSucceeded).Inc()
	m.trialsTotal.Add(float64(len(result.Costs)))
	m.bestCost.Set(float64(result.BestCost))
	m.errorPlacements.Set(float64(result.Solution.ErrorPlacements()))
	for _, failure := range result.Report.Failures {
		m.studentFailures.WithLabelValues(string(failure.Phase)).Inc()
	}
}

// ObserveExport counts a generated assignment sheet.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format).Inc()
}
