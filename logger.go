package graft

import "github.com/xraph/graft/internal/logger"

// Re-export logger interfaces
type (
	Logger        = logger.Logger
	Field         = logger.Field
	LoggingConfig = logger.LoggingConfig
)

// Re-export logger constructors
var (
	NewLogger            = logger.NewLogger
	NewDevelopmentLogger = logger.NewDevelopmentLogger
	NewProductionLogger  = logger.NewProductionLogger
	NewNoopLogger        = logger.NewNoopLogger
)

// Re-export field constructors
var (
	String   = logger.String
	Int      = logger.Int
	Bool     = logger.Bool
	Duration = logger.Duration
	Error    = logger.Error
	Any      = logger.Any
)
