// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes used as label values.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeStale     = "stale"
	OutcomeForbidden = "forbidden"
	OutcomeSkipped   = "skipped"
)

// Recorder is what services and the backend client report to.
type Recorder interface {
	RecordLogin(method, outcome string)
	RecordPermissionFetch(outcome string)
	RecordBackendRequest(endpoint string, statusCode int, duration time.Duration)
	RecordReorderRollback()
	SetActiveSessions(n int)
}

// Collector records Prometheus metrics.
type Collector struct {
	logins          *prometheus.CounterVec
	permissionFetch *prometheus.CounterVec
	backendStatus   *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	reorderRollback prometheus.Counter
	activeSessions  prometheus.Gauge
}

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memoriza_login_total",
			Help: "Login attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		permissionFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memoriza_permission_fetch_total",
			Help: "Group permission fetches by outcome.",
		}, []string{"outcome"}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memoriza_backend_requests_total",
			Help: "Backend API responses by endpoint and status code (0 for transport errors).",
		}, []string{"endpoint", "status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memoriza_backend_request_duration_seconds",
			Help:    "Backend API latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		reorderRollback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memoriza_carousel_reorder_rollbacks_total",
			Help: "Carousel reorders rolled back after the backend rejected them.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memoriza_active_sessions",
			Help: "Sessions currently held in memory.",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.permissionFetch,
		c.backendStatus,
		c.backendLatency,
		c.reorderRollback,
		c.activeSessions,
	)

	return c
}

func (c *Collector) RecordLogin(method, outcome string) {
	c.logins.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordPermissionFetch(outcome string) {
	c.permissionFetch.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordBackendRequest(endpoint string, statusCode int, duration time.Duration) {
	c.backendStatus.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (c *Collector) RecordReorderRollback() {
	c.reorderRollback.Inc()
}

func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLogin(string, string) {}
func (Nop) RecordPermissionFetch(string) {}
func (Nop) RecordBackendRequest(string, int, time.Duration) {}
func (Nop) RecordReorderRollback() {}
func (Nop) SetActiveSessions(int) {}
