// Package graft is a dependency injection core. It decides, for a graph of
// components being assembled, which provider satisfies each typed and
// optionally qualified request, and how that value is produced and cached
// once the graph is launched.
//
// An application is built on an Assembly: providers are registered on the
// root scope and its child scopes, each scope declares what it exports to its
// parent, and Launch freezes the graph into a read-only Locator.
//
//	app, _ := graft.New()
//	root := app.Root()
//	m, _ := app.FuncMember(NewUserService)
//	root.Provide(graft.KeyOf[*UserService](), m)
//	root.Exports().ExportAll("main")
//	loc, err := app.Launch(ctx)
//	users := graft.MustResolve[*UserService](loc)
package graft

import (
	"github.com/xraph/graft/config"
	"github.com/xraph/graft/service"
)

// Version is the library version reported by the CLI.
const Version = "0.4.0"

// Re-export the build surface
type (
	Assembly        = service.Assembly
	Graph           = service.Graph
	Option          = service.Option
	Setup           = service.Setup
	Member          = service.Member
	Invoker         = service.Invoker
	Dependency      = service.Dependency
	Bean            = service.Bean
	ExportManager   = service.ExportManager
	Exports         = service.Exports
	Requirement     = service.Requirement
	RequirementMode = service.RequirementMode
	Site            = service.Site
)

// Re-export the runtime surface
type (
	Locator        = service.Locator
	LaunchContext  = service.LaunchContext
	RuntimeService = service.RuntimeService
	Mode           = service.Mode
)

// Config configures an assembly from a file.
type Config = config.Config

// Requirement modes
const (
	RequirementsManual   = service.RequirementsManual
	RequirementsContract = service.RequirementsContract
)

// Instantiation modes
const (
	ModeConstant  = service.ModeConstant
	ModePrototype = service.ModePrototype
)

// Re-export options
var (
	WithLogger          = service.WithLogger
	WithMetrics         = service.WithMetrics
	WithRequirementMode = service.WithRequirementMode
	WithKeyRegistry     = service.WithKeyRegistry
	WithTracerProvider  = service.WithTracerProvider
	WithRootName        = service.WithRootName
	WithConfig          = service.WithConfig
)

// Re-export constructors
var (
	Required   = service.Required
	Optional   = service.Optional
	FuncMember = service.FuncMember
	NewBean    = service.NewBean

	LoadConfig    = config.Load
	ParseConfig   = config.Parse
	DefaultConfig = config.Default
)

// LocatorKey is the private key every scope answers with its own Locator.
var LocatorKey = service.LocatorKey

// New creates an assembly with an empty root scope.
func New(opts ...Option) (*Assembly, error) {
	return service.NewAssembly(opts...)
}
