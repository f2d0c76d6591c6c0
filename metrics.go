package graft

import "github.com/xraph/graft/internal/metrics"

// Metrics collects build and launch counters on its own Prometheus registry.
type Metrics = metrics.Metrics

// MetricsConfig configures the collector.
type MetricsConfig = metrics.MetricsConfig

// NewMetrics returns a collector, or nil when cfg disables metrics.
var NewMetrics = metrics.New
