package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures the collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Metrics records graph assembly and launch activity. A nil *Metrics is a
// valid no-op collector.
type Metrics struct {
	registrations *prometheus.CounterVec
	conversions   *prometheus.CounterVec
	constructions *prometheus.CounterVec
	failures      *prometheus.CounterVec
	launches      prometheus.Counter

	registry *prometheus.Registry
}

// New creates a collector registered on its own registry. It returns nil
// when metrics are disabled.
func New(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "graft"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Total number of composer operations applied to scopes",
			},
			[]string{"operation"},
		),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runtime_conversions_total",
				Help:      "Total number of build-time nodes converted to runtime services",
			},
			[]string{"variant"},
		),
		constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constructions_total",
				Help:      "Total number of member invocations",
			},
			[]string{"mode"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "build_failures_total",
				Help:      "Total number of build failures by error code",
			},
			[]string{"code"},
		),
		launches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_total",
				Help:      "Total number of application launches",
			},
		),
	}

	m.registry.MustRegister(
		m.registrations,
		m.conversions,
		m.constructions,
		m.failures,
		m.launches,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Registration counts one composer operation.
func (m *Metrics) Registration(operation string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(operation).Inc()
}

// Conversion counts one runtime conversion.
func (m *Metrics) Conversion(variant string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(variant).Inc()
}

// Construction counts one member invocation.
func (m *Metrics) Construction(mode string) {
	if m == nil {
		return
	}
	m.constructions.WithLabelValues(mode).Inc()
}

// Failure counts one build failure.
func (m *Metrics) Failure(code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(code).Inc()
}

// Launch counts one application launch.
func (m *Metrics) Launch() {
	if m == nil {
		return
	}
	m.launches.Inc()
}
