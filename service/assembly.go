package service

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/internal/metrics"
	"github.com/xraph/graft/key"
)

const tracerName = "github.com/xraph/graft/service"

// Assembly owns the scopes of one application build: the root graph and its
// descendants, the constant slot allocator, the requirement tracker and the
// key registry. Graph construction is single-threaded; Build and Launch are
// safe for concurrent use once it is done.
type Assembly struct {
	rootName string
	root     *Graph
	scopes   []*Graph
	members  []*MemberSetup

	tracker *RequirementTracker
	mode    RequirementMode
	keys    *key.Registry

	logger  logger.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	slots int

	buildMu  sync.Mutex
	built    bool
	buildErr error
}

// NewAssembly creates an assembly with an empty root scope.
func NewAssembly(opts ...Option) (*Assembly, error) {
	a := &Assembly{
		rootName: "root",
		keys:     key.DefaultRegistry(),
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}

	a.logger = a.logger.Named("graft")
	a.tracker = newRequirementTracker(a.mode)
	a.root = newGraph(a, a.rootName, nil)
	a.scopes = append(a.scopes, a.root)
	return a, nil
}

// Root returns the root scope.
func (a *Assembly) Root() *Graph { return a.root }

// Scopes returns every scope in creation order.
func (a *Assembly) Scopes() []*Graph {
	out := make([]*Graph, len(a.scopes))
	copy(out, a.scopes)
	return out
}

// Keys returns the registry used to decode declaring sites.
func (a *Assembly) Keys() *key.Registry { return a.keys }

// Tracker returns the requirement tracker.
func (a *Assembly) Tracker() *RequirementTracker { return a.tracker }

// Requirements returns every key that is still unresolved.
func (a *Assembly) Requirements() []Requirement { return a.tracker.Requirements() }

// Logger returns the assembly logger.
func (a *Assembly) Logger() logger.Logger { return a.logger }

// Metrics returns the collector, which may be nil.
func (a *Assembly) Metrics() *metrics.Metrics { return a.metrics }

// FuncMember builds a Member from fn, decoding parameter keys with the
// assembly's registry.
func (a *Assembly) FuncMember(fn any, params ...Dependency) (*Member, error) {
	return funcMember(a.keys, fn, params)
}

// NewScope creates a child scope. A nil parent attaches it to the root.
func (a *Assembly) NewScope(name string, parent *Graph) (*Graph, error) {
	if parent == nil {
		parent = a.root
	}
	if parent.assembly != a {
		return nil, errors.ErrContractViolation("scope '" + parent.name + "' belongs to another assembly")
	}
	if parent.finished {
		return nil, errors.ErrScopeFrozen(parent.name, "add scope "+name)
	}
	g := newGraph(a, name, parent)
	parent.children = append(parent.children, g)
	a.scopes = append(a.scopes, g)
	a.logger.Debug("scope created", logger.Scope(name), logger.String("parent", parent.name))
	return g, nil
}

func (a *Assembly) allocSlot() int {
	n := a.slots
	a.slots++
	return n
}

// rebind moves every consumer and pending export of old to replacement.
// skip is left untouched.
func (a *Assembly) rebind(old, replacement Setup, skip *MemberSetup) {
	for _, m := range a.members {
		if m == skip {
			continue
		}
		for i, b := range m.bindings {
			if b == old {
				m.bindings[i] = replacement
			}
		}
	}
	for _, g := range a.scopes {
		for _, r := range g.exports.requests {
			if r.target == old {
				r.target = replacement
			}
		}
	}
}

// forget drops the requirements recorded by s and by the members it wraps.
// Members still reachable from a registered service or a pending export keep
// theirs, since they will still be converted at launch.
func (a *Assembly) forget(s Setup) {
	live := a.live()
	for n := s; n != nil; n = delegateOf(n) {
		if m, ok := n.(*MemberSetup); ok && !live[m] {
			a.tracker.forget(m)
		}
	}
}

// live returns every node reachable from the services and the export
// declarations of all scopes.
func (a *Assembly) live() map[Setup]bool {
	seen := make(map[Setup]bool)
	var visit func(Setup)
	visit = func(s Setup) {
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		visit(delegateOf(s))
		if m, ok := s.(*MemberSetup); ok {
			for _, b := range m.bindings {
				visit(b)
			}
		}
	}
	for _, g := range a.scopes {
		for _, s := range g.services {
			visit(s)
		}
		for _, r := range g.exports.requests {
			visit(r.target)
		}
	}
	return seen
}

func delegateOf(s Setup) Setup {
	switch n := s.(type) {
	case *DecoratedSetup:
		return n.delegate
	case *RekeyedSetup:
		return n.delegate
	case *ExportedSetup:
		return n.target
	}
	return nil
}

// Finish completes a scope: its children are finished first, its exports
// are resolved and installed into the parent scope, and it becomes
// read-only. Finishing a finished scope returns its exports again.
func (a *Assembly) Finish(g *Graph) (*Exports, error) {
	if g.finished {
		return g.exported, nil
	}

	var errs []error
	for _, child := range g.children {
		if _, err := a.Finish(child); err != nil {
			errs = append(errs, err)
		}
	}

	exported, err := g.exports.result()
	if err != nil {
		errs = append(errs, err)
	}
	g.exported = exported
	g.finished = true

	if g.parent != nil {
		exported.Range(func(k key.Key, s *ExportedSetup) bool {
			if err := g.parent.checkFree(k); err != nil {
				errs = append(errs, fmt.Errorf("export of scope '%s': %w", g.name, err))
				return true
			}
			g.parent.install(s)
			return true
		})
	}

	a.logger.Debug("scope finished", logger.Scope(g.name), logger.Int("exports", exported.Len()))
	return exported, errors.Join(errs...)
}

// Build finishes every scope, binds dependencies whose providers were
// registered after their consumers and checks the requirements. It runs
// once; later calls return the first result.
func (a *Assembly) Build() error {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	if a.built {
		return a.buildErr
	}
	a.built = true

	var errs []error
	if _, err := a.Finish(a.root); err != nil {
		errs = append(errs, err)
	}

	late := a.bindLate()
	if err := a.tracker.CheckForMissingDependencies(); err != nil {
		errs = append(errs, err)
	}

	a.buildErr = errors.Join(errs...)
	if a.buildErr != nil {
		for _, code := range failureCodes(a.buildErr) {
			a.metrics.Failure(code)
		}
		a.logger.Error("build failed", logger.Error(a.buildErr))
		return a.buildErr
	}

	a.logger.Info("build complete",
		logger.Int("scopes", len(a.scopes)),
		logger.Int("members", len(a.members)),
		logger.Int("late_bindings", late),
		logger.Int("unresolved", len(a.tracker.Requirements())))
	return nil
}

// bindLate retries every unbound parameter against the finished scopes.
func (a *Assembly) bindLate() int {
	bound := 0
	for _, m := range a.members {
		for _, i := range m.Unresolved() {
			found, ok := m.scope.Resolve(m.member.Params[i].Key)
			if !ok {
				continue
			}
			m.bindings[i] = found
			a.tracker.satisfied(m, i)
			bound++
		}
	}
	return bound
}

func failureCodes(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, failureCodes(e)...)
		}
		return out
	}
	if code := errors.Code(err); code != "" {
		return []string{code}
	}
	return []string{"UNKNOWN"}
}

// NewLaunchContext returns a fresh runtime store for a successful build.
func (a *Assembly) NewLaunchContext() (*LaunchContext, error) {
	a.buildMu.Lock()
	built, err := a.built, a.buildErr
	a.buildMu.Unlock()

	if !built {
		return nil, errors.ErrContractViolation("assembly must be built before launching")
	}
	if err != nil {
		return nil, err
	}
	return newLaunchContext(a), nil
}

// Launch builds the assembly if needed and materializes the root scope's
// exports in a new launch context. Every call is an independent launch.
func (a *Assembly) Launch(ctx context.Context) (*Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, span := a.tracer.Start(ctx, "graft.launch",
		trace.WithAttributes(attribute.String("graft.root", a.root.name)))
	defer span.End()

	fail := func(err error) (*Locator, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := a.Build(); err != nil {
		return fail(err)
	}
	if missing := a.tracker.Missing(); len(missing) > 0 {
		return fail(errors.ErrContractViolation(fmt.Sprintf(
			"%d required dependencies are unresolved, first %s", len(missing), missing[0].Key)))
	}

	lc, err := a.NewLaunchContext()
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.String("graft.launch_id", lc.id))

	loc, err := newLocator(lc, a.root.name, a.root.exported.Keys(), a.root.exported.setups())
	if err != nil {
		return fail(err)
	}

	a.metrics.Launch()
	lc.logger.Info("launched",
		logger.Scope(a.root.name),
		logger.Int("services", loc.Len()),
		logger.Int("converted", lc.Converted()))
	span.SetStatus(codes.Ok, "")
	return loc, nil
}
