// Package testing provides helpers for tests that build assemblies.
package testing

import (
	"context"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/service"
)

// NewTestAssembly creates an assembly with a silent logger.
// This prevents log bloat in test output.
func NewTestAssembly(opts ...service.Option) (*service.Assembly, error) {
	opts = append([]service.Option{service.WithLogger(logger.NewNoopLogger())}, opts...)
	return service.NewAssembly(opts...)
}

// NewObservedAssembly creates an assembly whose log entries at or above
// level are recorded for assertions.
func NewObservedAssembly(level zapcore.Level, opts ...service.Option) (*service.Assembly, *observer.ObservedLogs, error) {
	log, logs := logger.NewObservedLogger(level)
	opts = append([]service.Option{service.WithLogger(log)}, opts...)
	a, err := service.NewAssembly(opts...)
	return a, logs, err
}

// LaunchAll exports every service of the root scope and launches the
// assembly.
func LaunchAll(ctx context.Context, a *service.Assembly) (*service.Locator, error) {
	if err := a.Root().Exports().ExportAll("testing.LaunchAll"); err != nil {
		return nil, err
	}
	return a.Launch(ctx)
}
