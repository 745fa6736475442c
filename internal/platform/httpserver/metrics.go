package httpserver

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	ballots    *prometheus.CounterVec
	selections *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "societyhub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ballots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "societyhub",
			Subsystem: "governance",
			Name:      "ballots_total",
			Help:      "Ballot submissions by outcome.",
		}, []string{"outcome"}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "societyhub",
			Subsystem: "governance",
			Name:      "selections_total",
			Help:      "Proposal selection attempts by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.requests, m.latency, m.ballots, m.selections)
	return m
}

func (m *metrics) observeRequest(method string, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *metrics) ballotOutcome(outcome string, count int) {
	if count <= 0 {
		return
	}
	m.ballots.WithLabelValues(outcome).Add(float64(count))
}

func (m *metrics) selectionOutcome(outcome string) {
	m.selections.WithLabelValues(outcome).Inc()
}
