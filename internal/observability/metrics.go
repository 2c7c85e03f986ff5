package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Triage outcome labels recorded on the consumed-events counter.
const (
	OutcomeAssigned  = "assigned"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus instruments for the triage pipeline and the
// HTTP surface. All record methods tolerate a nil receiver so tests can pass
// nil without wiring a registry.
type Metrics struct {
	registry *prometheus.Registry

	eventsConsumed       *prometheus.CounterVec
	analysisAttempts     *prometheus.CounterVec
	triageDuration       prometheus.Histogram
	queuePublishFailures prometheus.Counter
	httpRequests         *prometheus.CounterVec
}

// NewMetrics builds and registers the instrument set on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Name:      "events_consumed_total",
			Help:      "Triage events consumed by terminal outcome",
		}, []string{"outcome"}),
		analysisAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Name:      "analysis_attempts_total",
			Help:      "Analysis provider calls by result",
		}, []string{"result"}),
		triageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "triage",
			Name:      "duration_seconds",
			Help:      "Time from event pickup to terminal ticket state",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		queuePublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage",
			Name:      "queue_publish_failures_total",
			Help:      "Intake events that could not be durably enqueued",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsConsumed,
		m.analysisAttempts,
		m.triageDuration,
		m.queuePublishFailures,
		m.httpRequests,
	)
	return m
}

// Handler exposes the registry for a /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventConsumed records the terminal outcome of one delivered event.
func (m *Metrics) EventConsumed(outcome string) {
	if m == nil {
		return
	}
	m.eventsConsumed.WithLabelValues(outcome).Inc()
}

// AnalysisAttempt records one call to the analysis provider.
func (m *Metrics) AnalysisAttempt(result string) {
	if m == nil {
		return
	}
	m.analysisAttempts.WithLabelValues(result).Inc()
}

// ObserveTriageDuration records end-to-end processing time for one event.
func (m *Metrics) ObserveTriageDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.triageDuration.Observe(d.Seconds())
}

// QueuePublishFailure records a failed durable handoff.
func (m *Metrics) QueuePublishFailure() {
	if m == nil {
		return
	}
	m.queuePublishFailures.Inc()
}

// RecordRequest increments the HTTP request counter.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}
