// Package metrics records decision and backend activity for the diagnostics
// bridge.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests and multiple sessions never share
// collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	decisionsCommitted *prometheus.CounterVec
	decisionsConfirmed prometheus.Counter
	decisionsFailed    prometheus.Counter
	commitsRejected    prometheus.Counter
	refillsTotal       prometheus.Counter
	fetchFailures      prometheus.Counter
	queueLength        prometheus.Gauge
	pendingSubmissions prometheus.Gauge

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		decisionsCommitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmatch_decisions_committed_total",
				Help: "Decisions committed locally, by action",
			},
			[]string{"action"},
		),
		decisionsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "devmatch_decisions_confirmed_total",
			Help: "Decisions acknowledged by the backend",
		}),
		decisionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "devmatch_decisions_failed_total",
			Help: "Decisions whose submission failed",
		}),
		commitsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "devmatch_commits_rejected_total",
			Help: "Commit requests ignored because the id was not at the head",
		}),
		refillsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "devmatch_refills_total",
			Help: "Feed refills started after the queue emptied",
		}),
		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "devmatch_fetch_failures_total",
			Help: "Feed fetches that failed",
		}),
		queueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "devmatch_queue_length",
			Help: "Candidates waiting for a decision",
		}),
		pendingSubmissions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "devmatch_pending_submissions",
			Help: "Decision submissions still in flight",
		}),
		backendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmatch_backend_requests_total",
				Help: "Backend calls by route and status",
			},
			[]string{"route", "status"},
		),
		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devmatch_backend_request_duration_seconds",
				Help:    "Backend call latency",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
	}
}

// Handler serves the registry in the text exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) DecisionCommitted(action string) {
	if r == nil {
		return
	}
	r.decisionsCommitted.WithLabelValues(action).Inc()
}

func (r *Recorder) DecisionConfirmed() {
	if r == nil {
		return
	}
	r.decisionsConfirmed.Inc()
}

func (r *Recorder) DecisionFailed() {
	if r == nil {
		return
	}
	r.decisionsFailed.Inc()
}

func (r *Recorder) CommitRejected() {
	if r == nil {
		return
	}
	r.commitsRejected.Inc()
}

func (r *Recorder) RefillStarted() {
	if r == nil {
		return
	}
	r.refillsTotal.Inc()
}

func (r *Recorder) FetchFailed() {
	if r == nil {
		return
	}
	r.fetchFailures.Inc()
}

// QueueState sets the queue and in-flight gauges.
func (r *Recorder) QueueState(length, pending int) {
	if r == nil {
		return
	}
	r.queueLength.Set(float64(length))
	r.pendingSubmissions.Set(float64(pending))
}

// ObserveRequest records one backend call. status is 0 for transport errors.
func (r *Recorder) ObserveRequest(route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.backendRequests.WithLabelValues(route, label).Inc()
	r.backendDuration.WithLabelValues(route).Observe(d.Seconds())
}
