package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Registry Metrics
	redemptionsTotal      *prometheus.CounterVec
	linksIssuedTotal      prometheus.Counter
	serialRetriesTotal    prometheus.Counter
	serialFailuresTotal   prometheus.Counter
	filesIngestedTotal    *prometheus.CounterVec
	storeRetriesTotal     *prometheus.CounterVec
	linksSweptTotal       prometheus.Counter
	sessionsSweptTotal    prometheus.Counter
	jobRunsTotal          *prometheus.CounterVec
	jobDuration           *prometheus.HistogramVec
	rateLimitBlockedTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		redemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "link_redemptions_total",
				Help:        "Link redemption attempts by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		linksIssuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "links_issued_total",
			Help:        "Total number of share links issued",
			ConstLabels: labels,
		}),
		serialRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "serial_allocation_retries_total",
			Help:        "Serial allocations retried after a unique violation",
			ConstLabels: labels,
		}),
		serialFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "serial_allocation_failures_total",
			Help:        "Serial allocations that exhausted their retries",
			ConstLabels: labels,
		}),
		filesIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "files_ingested_total",
				Help:        "Files committed to the registry by attachment kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		storeRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "store_transient_retries_total",
				Help:        "Store operations retried after a transient failure",
				ConstLabels: labels,
			},
			[]string{"operation"},
		),
		linksSweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "links_expired_swept_total",
			Help:        "Links deactivated by the expiry sweeper",
			ConstLabels: labels,
		}),
		sessionsSweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "upload_sessions_swept_total",
			Help:        "Idle upload sessions evicted",
			ConstLabels: labels,
		}),
		jobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "background_job_runs_total",
				Help:        "Background job runs by result",
				ConstLabels: labels,
			},
			[]string{"job", "result"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "background_job_duration_seconds",
				Help:        "Background job run time in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		rateLimitBlockedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rate_limit_blocked_total",
				Help:        "Requests rejected by the rate limiter",
				ConstLabels: labels,
			},
			[]string{"endpoint"},
		),
	}
}

// Registry exposes the registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight HTTP requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight HTTP requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.httpRequestsInFlight.Dec()
}

// RecordRedemption counts a redemption outcome (ok, not_found, expired, exhausted, revoked, error)
func (m *Metrics) RecordRedemption(outcome string) {
	if m == nil {
		return
	}
	m.redemptionsTotal.WithLabelValues(outcome).Inc()
}

// RecordLinkIssued counts an issued link
func (m *Metrics) RecordLinkIssued() {
	if m == nil {
		return
	}
	m.linksIssuedTotal.Inc()
}

// RecordSerialRetry counts a serial allocation retried after a collision
func (m *Metrics) RecordSerialRetry() {
	if m == nil {
		return
	}
	m.serialRetriesTotal.Inc()
}

// RecordSerialFailure counts an allocation that gave up
func (m *Metrics) RecordSerialFailure() {
	if m == nil {
		return
	}
	m.serialFailuresTotal.Inc()
}

// RecordFileIngested counts a committed file
func (m *Metrics) RecordFileIngested(kind string) {
	if m == nil {
		return
	}
	m.filesIngestedTotal.WithLabelValues(kind).Inc()
}

// RecordStoreRetry counts a transient-failure retry
func (m *Metrics) RecordStoreRetry(operation string) {
	if m == nil {
		return
	}
	m.storeRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordLinksSwept adds links deactivated by a sweep
func (m *Metrics) RecordLinksSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linksSweptTotal.Add(float64(n))
}

// RecordSessionsSwept adds sessions evicted by a sweep
func (m *Metrics) RecordSessionsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsSweptTotal.Add(float64(n))
}

// RecordJob records a background job run; it matches workerpool.JobHook
func (m *Metrics) RecordJob(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRunsTotal.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// RecordRateLimitBlocked counts a rejected request
func (m *Metrics) RecordRateLimitBlocked(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitBlockedTotal.WithLabelValues(endpoint).Inc()
}
