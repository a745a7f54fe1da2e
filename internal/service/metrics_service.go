package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface and the ledger engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	enrollmentOps   *prometheus.CounterVec
	gradeWrites     *prometheus.CounterVec
	ledgerTx        *prometheus.HistogramVec
	exportJobs      *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	enrollmentOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_operations_total",
		Help: "Enrollment select and drop attempts by outcome",
	}, []string{"operation", "outcome"})

	gradeWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_writes_total",
		Help: "Grade save attempts by outcome",
	}, []string{"outcome"})

	ledgerTx := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_transaction_duration_seconds",
		Help:    "Duration of ledger transactions",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"operation"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Grade sheet export jobs by terminal status",
	}, []string{"format", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollmentOps, gradeWrites, ledgerTx, exportJobs,
		cacheLatency, cacheWrite, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		enrollmentOps:   enrollmentOps,
		gradeWrites:     gradeWrites,
		ledgerTx:        ledgerTx,
		exportJobs:      exportJobs,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
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

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordEnrollment counts a select or drop attempt. outcome is "ok" or an error code.
func (m *MetricsService) RecordEnrollment(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.enrollmentOps.WithLabelValues(operation, outcome).Inc()
	m.ledgerTx.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGradeWrite counts a grade save attempt.
func (m *MetricsService) RecordGradeWrite(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.gradeWrites.WithLabelValues(outcome).Inc()
	m.ledgerTx.WithLabelValues("grade_save").Observe(duration.Seconds())
}

// RecordExportJob counts a job reaching a terminal status.
func (m *MetricsService) RecordExportJob(format, status string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(format, status).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
