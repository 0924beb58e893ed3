package shopify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are optional; a nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	retries   *prometheus.CounterVec
	available prometheus.Gauge
}

// NewMetrics registers the client collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shoptools",
			Subsystem: "shopify",
			Name:      "requests_total",
			Help:      "GraphQL calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shoptools",
			Subsystem: "shopify",
			Name:      "request_duration_seconds",
			Help:      "Latency of a single GraphQL transport call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shoptools",
			Subsystem: "shopify",
			Name:      "retries_total",
			Help:      "Retries scheduled after throttling.",
		}, []string{"op"}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shoptools",
			Subsystem: "shopify",
			Name:      "throttle_available_points",
			Help:      "Query cost budget reported by the last response.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.retries, m.available)
	return m
}

func (m *Metrics) observe(op string, d time.Duration, err *Error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = err.Kind.String()
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) retry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) budget(resp *response) {
	if m == nil || resp == nil || resp.Body == nil || resp.Body.Extensions == nil {
		return
	}
	if c := resp.Body.Extensions.Cost; c != nil && c.ThrottleStatus != nil {
		m.available.Set(c.ThrottleStatus.CurrentlyAvailable)
	}
}
