package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the clearance
// workflow and serves the scrape endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	submissions     prometheus.Counter
	reapplications  prometheus.Counter
	certificates    prometheus.Counter
	deliveries      *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheHitRatio   prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
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

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearance_decisions_total",
		Help: "Department decisions applied, by department and outcome",
	}, []string{"department", "outcome"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearance_applications_submitted_total",
		Help: "Applications submitted",
	})

	reapplications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearance_reapplications_total",
		Help: "Rejected applications resubmitted",
	})

	certificates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_generated_total",
		Help: "Certificates generated",
	})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Notification delivery attempts by outcome",
	}, []string{"outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, decisionsTotal, submissions,
		reapplications, certificates, deliveries, cacheHits, cacheMisses, cacheHitRatio, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		decisionsTotal:  decisionsTotal,
		submissions:     submissions,
		reapplications:  reapplications,
		certificates:    certificates,
		deliveries:      deliveries,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheHitRatio:   cacheHitRatio,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordDecision counts a department decision by outcome.
func (m *MetricsService) RecordDecision(department string, approved bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.decisionsTotal.WithLabelValues(department, outcome).Inc()
}

// RecordApplicationSubmitted counts a new submission.
func (m *MetricsService) RecordApplicationSubmitted() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordReapplication counts a resubmission.
func (m *MetricsService) RecordReapplication() {
	if m == nil {
		return
	}
	m.reapplications.Inc()
}

// RecordCertificateGenerated counts a generated certificate.
func (m *MetricsService) RecordCertificateGenerated() {
	if m == nil {
		return
	}
	m.certificates.Inc()
}

// RecordDelivery counts a notification delivery attempt.
func (m *MetricsService) RecordDelivery(ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// RecordCacheHit counts a cache hit and refreshes the ratio gauge.
func (m *MetricsService) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
	atomic.AddUint64(&m.cacheHitCount, 1)
	m.updateCacheRatio()
}

// RecordCacheMiss counts a cache miss and refreshes the ratio gauge.
func (m *MetricsService) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
	m.updateCacheRatio()
}

func (m *MetricsService) updateCacheRatio() {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
