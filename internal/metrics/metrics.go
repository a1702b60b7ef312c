// Package metrics exposes Prometheus collectors for the settlement server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AI outcome labels.
const (
	OutcomeOK            = "ok"
	OutcomePersonalQuota = "personal_quota"
	OutcomeServerBusy    = "server_busy"
	OutcomeUpstreamError = "upstream_error"
	OutcomeInvalid       = "invalid"
)

// Metrics groups every collector the server records to.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recomputes      prometheus.Counter
	skippedPayments prometheus.Counter
	aiRequests      *prometheus.CounterVec
	aiInFlight      prometheus.Gauge
	liveSubscribers prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbbang_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbbang_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nbbang_balance_recomputes_total",
			Help: "Full balance recomputations.",
		}),
		skippedPayments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nbbang_skipped_payments_total",
			Help: "Malformed payments left out of a recompute.",
		}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbbang_ai_requests_total",
			Help: "AI analyses by kind (create, modify) and outcome.",
		}, []string{"kind", "outcome"}),
		aiInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nbbang_ai_in_flight",
			Help: "AI analyses currently running.",
		}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nbbang_live_subscribers",
			Help: "Open live meeting connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration, m.recomputes, m.skippedPayments,
		m.aiRequests, m.aiInFlight, m.liveSubscribers,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. All methods are nil-safe.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveRecompute records a balance recompute and how many payments it skipped.
func (m *Metrics) ObserveRecompute(skipped int) {
	if m == nil {
		return
	}
	m.recomputes.Inc()
	m.skippedPayments.Add(float64(skipped))
}

// ObserveAI records the outcome of one AI analysis.
func (m *Metrics) ObserveAI(kind, outcome string) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(kind, outcome).Inc()
}

// AIStarted and AIFinished track analyses holding a capacity slot.
func (m *Metrics) AIStarted() {
	if m != nil {
		m.aiInFlight.Inc()
	}
}

func (m *Metrics) AIFinished() {
	if m != nil {
		m.aiInFlight.Dec()
	}
}

// SetLiveSubscribers reports the number of open live connections.
func (m *Metrics) SetLiveSubscribers(n int) {
	if m != nil {
		m.liveSubscribers.Set(float64(n))
	}
}
