// Package metrics owns the Prometheus collectors exposed on /metrics.
//
// Collectors live on a private registry so tests can build as many
// instances as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsletter"

// Outcome labels shared by the workflow counters.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Metrics groups every collector the service records.
type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	Subscriptions  *prometheus.CounterVec
	Confirmations  *prometheus.CounterVec
	Publishes      *prometheus.CounterVec
	IssuesSent     prometheus.Counter
	IssuesSkipped  prometheus.Counter
	Logins         *prometheus.CounterVec
	PasswordVerify prometheus.Histogram
}

// New registers all collectors, plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Subscribe attempts by outcome.",
		}, []string{"result"}),
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Confirm attempts by outcome.",
		}, []string{"result"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish requests by outcome.",
		}, []string{"result"}),
		IssuesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_emails_sent_total",
			Help:      "Newsletter emails handed to the provider.",
		}),
		IssuesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_emails_skipped_total",
			Help:      "Confirmed subscribers skipped because their stored email no longer parses.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login form submissions by outcome.",
		}, []string{"result"}),
		PasswordVerify: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "password_verify_seconds",
			Help:      "Argon2id verification time, including dummy verifications.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Subscriptions,
		m.Confirmations,
		m.Publishes,
		m.IssuesSent,
		m.IssuesSkipped,
		m.Logins,
		m.PasswordVerify,
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObservePasswordVerify is shaped for password.WithObserver.
func (m *Metrics) ObservePasswordVerify(seconds float64) {
	m.PasswordVerify.Observe(seconds)
}
