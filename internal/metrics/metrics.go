package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus collectors of the service. Each instance has
// its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	AuthLoginsTotal            *prometheus.CounterVec
	AuthRegistrationsTotal     *prometheus.CounterVec
	TokensIssuedTotal          *prometheus.CounterVec
	IPBlocksTotal              prometheus.Counter
}

// New creates and registers all collectors, labelled with serviceName.
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests.",
				ConstLabels: constLabels,
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "route"},
		),
		AuthLoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_logins_total",
				Help:        "Total number of login attempts by outcome.",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		AuthRegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_registrations_total",
				Help:        "Total number of registration attempts.",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_tokens_issued_total",
				Help:        "Total number of token pairs issued or refreshed.",
				ConstLabels: constLabels,
			},
			[]string{"flow", "result"},
		),
		IPBlocksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "auth_ip_blocks_total",
				Help:        "Total number of client IPs blocked after repeated failed logins.",
				ConstLabels: constLabels,
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.AuthLoginsTotal,
		m.AuthRegistrationsTotal,
		m.TokensIssuedTotal,
		m.IPBlocksTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLogin counts one login attempt. result is "success" or a rejection kind.
func (m *Metrics) ObserveLogin(result string) {
	m.AuthLoginsTotal.WithLabelValues(result).Inc()
}

// ObserveRegistration counts one registration attempt
func (m *Metrics) ObserveRegistration(result string) {
	m.AuthRegistrationsTotal.WithLabelValues(result).Inc()
}

// ObserveTokens counts one token pair issuance. flow is "login", "register" or "refresh".
func (m *Metrics) ObserveTokens(flow, result string) {
	m.TokensIssuedTotal.WithLabelValues(flow, result).Inc()
}

// ObserveIPBlock counts an IP crossing the failure threshold
func (m *Metrics) ObserveIPBlock() {
	m.IPBlocksTotal.Inc()
}
