// Package metrics holds scribe's Prometheus collectors.
//
// All recording methods are safe on a nil *Metrics so components can run
// without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scribe"

// Metrics bundles the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	tokensIssued   *prometheus.CounterVec
	tokensConsumed *prometheus.CounterVec
	tokensPurged   prometheus.Counter
	sessions       *prometheus.CounterVec
	mailSent       *prometheus.CounterVec
	transcriptions *prometheus.CounterVec
	upstreamTime   *prometheus.HistogramVec
	httpRequests   *prometheus.HistogramVec
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "issued_total",
			Help:      "Verification tokens issued, by purpose.",
		}, []string{"purpose"}),
		tokensConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "consumed_total",
			Help:      "Verification token consumption attempts, by purpose and result.",
		}, []string{"purpose", "result"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "purged_total",
			Help:      "Expired verification tokens removed by the janitor.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "events_total",
			Help:      "Session lifecycle events (created, destroyed, purged).",
		}, []string{"event"}),
		mailSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Outgoing mails, by kind and result.",
		}, []string{"kind", "result"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transcribe",
			Name:      "requests_total",
			Help:      "Audio transcriptions, by result.",
		}, []string{"result"}),
		upstreamTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transcribe",
			Name:      "stage_duration_seconds",
			Help:      "Duration of the conversion and recognition stages.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "class"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tokensIssued,
		m.tokensConsumed,
		m.tokensPurged,
		m.sessions,
		m.mailSent,
		m.transcriptions,
		m.upstreamTime,
		m.httpRequests,
	)

	return m
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TokenIssued(purpose string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(purpose).Inc()
}

// TokenConsumed records a consumption attempt. result is "ok", "invalid", "expired" or "error".
func (m *Metrics) TokenConsumed(purpose, result string) {
	if m == nil {
		return
	}
	m.tokensConsumed.WithLabelValues(purpose, result).Inc()
}

func (m *Metrics) TokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensPurged.Add(float64(n))
}

// SessionEvent records "created", "destroyed" or "purged" (n times).
func (m *Metrics) SessionEvent(event string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessions.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) MailSent(kind string, err error) {
	if m == nil {
		return
	}
	m.mailSent.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) Transcription(err error) {
	if m == nil {
		return
	}
	m.transcriptions.WithLabelValues(result(err)).Inc()
}

// ObserveStage records how long a transcription stage ("convert", "recognize") took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamTime.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
