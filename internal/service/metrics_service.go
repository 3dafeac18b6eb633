package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	sessionsExpanded prometheus.Counter
	sessionsMarked   prometheus.Counter
	expansionJobs    *prometheus.CounterVec
	expansionLatency *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
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

	sessionsExpanded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_expanded_total",
		Help: "Sessions inserted by schedule expansion",
	})

	sessionsMarked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_marked_today_total",
		Help: "Sessions inserted by the daily mark-today run",
	})

	expansionJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expansion_jobs_total",
		Help: "Finished expansion jobs by type and result",
	}, []string{"type", "result"})

	expansionLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expansion_job_duration_seconds",
		Help:    "Duration of expansion jobs",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		sessionsExpanded, sessionsMarked, expansionJobs, expansionLatency, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		sessionsExpanded: sessionsExpanded,
		sessionsMarked:   sessionsMarked,
		expansionJobs:    expansionJobs,
		expansionLatency: expansionLatency,
	}
}

// RegisterQueueDepth exports the number of jobs waiting in a named queue.
func (m *MetricsService) RegisterQueueDepth(queue string, depth func() int) error {
	if m == nil || depth == nil {
		return nil
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "job_queue_depth",
		Help:        "Jobs buffered in a background queue",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, func() float64 {
		return float64(depth())
	})
	return m.registry.Register(gauge)
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

// Registry exposes the underlying registry.
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

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// AddSessionsExpanded counts sessions inserted by expansion.
func (m *MetricsService) AddSessionsExpanded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsExpanded.Add(float64(n))
}

// AddSessionsMarked counts sessions inserted by mark-today.
func (m *MetricsService) AddSessionsMarked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsMarked.Add(float64(n))
}

// ObserveExpansionJob records the outcome of a background expansion job.
func (m *MetricsService) ObserveExpansionJob(jobType string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.expansionJobs.WithLabelValues(jobType, result).Inc()
	m.expansionLatency.WithLabelValues(jobType).Observe(duration.Seconds())
}
