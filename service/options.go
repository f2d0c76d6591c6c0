package service

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/graft/config"
	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/internal/metrics"
	"github.com/xraph/graft/key"
)

// Option configures an Assembly.
type Option func(*Assembly) error

// WithLogger sets the logger used for build and launch diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembly) error {
		if l != nil {
			a.logger = l
		}
		return nil
	}
}

// WithMetrics sets the collector. A nil collector disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assembly) error {
		a.metrics = m
		return nil
	}
}

// WithRequirementMode selects how unresolved dependencies are reported.
func WithRequirementMode(mode RequirementMode) Option {
	return func(a *Assembly) error {
		a.mode = mode
		return nil
	}
}

// WithKeyRegistry sets the registry used to decode declaring sites.
func WithKeyRegistry(r *key.Registry) Option {
	return func(a *Assembly) error {
		if r != nil {
			a.keys = r
		}
		return nil
	}
}

// WithTracerProvider sets the provider of the launch tracer. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Assembly) error {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
		return nil
	}
}

// WithRootName names the root scope.
func WithRootName(name string) Option {
	return func(a *Assembly) error {
		if name != "" {
			a.rootName = name
		}
		return nil
	}
}

// WithConfig applies a loaded configuration: requirement mode, root scope
// name, logger and metrics.
func WithConfig(cfg config.Config) Option {
	return func(a *Assembly) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		mode, err := ParseRequirementMode(cfg.Requirements)
		if err != nil {
			return err
		}
		a.mode = mode
		if cfg.RootScope != "" {
			a.rootName = cfg.RootScope
		}
		a.logger = logger.NewLogger(cfg.Logging)
		a.metrics = metrics.New(cfg.Metrics)
		return nil
	}
}
