package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/key"
)

// Mode is the instantiation policy of a runtime service.
type Mode uint8

const (
	// ModeConstant computes the value at most once per launch.
	ModeConstant Mode = iota
	// ModePrototype produces a fresh value on every request.
	ModePrototype
)

func (m Mode) String() string {
	switch m {
	case ModeConstant:
		return "constant"
	case ModePrototype:
		return "prototype"
	default:
		return "unknown"
	}
}

// RuntimeService is the frozen form of a Setup. It is immutable and safe for
// concurrent use.
type RuntimeService struct {
	key     key.Key
	mode    Mode
	variant string
	get     func() (any, error)
}

func newRuntimeService(k key.Key, mode Mode, variant string, get func() (any, error)) *RuntimeService {
	return &RuntimeService{key: k, mode: mode, variant: variant, get: get}
}

// Key returns the key the service answers under.
func (r *RuntimeService) Key() key.Key { return r.key }

// Mode returns the instantiation policy.
func (r *RuntimeService) Mode() Mode { return r.mode }

// IsConstant reports whether the value is cached for the launch.
func (r *RuntimeService) IsConstant() bool { return r.mode == ModeConstant }

// Provide returns the service value.
func (r *RuntimeService) Provide() (any, error) {
	return r.get()
}

func (r *RuntimeService) withKey(k key.Key) *RuntimeService {
	return &RuntimeService{key: k, mode: r.mode, variant: r.variant, get: r.get}
}

// slot stores one constant value for the lifetime of a launch.
type slot struct {
	mu    sync.RWMutex
	done  bool
	value any
}

// LaunchContext holds the per-launch runtime store and the memo table that
// maps build-time nodes to their runtime entries. Independent launches use
// independent contexts.
type LaunchContext struct {
	id       string
	assembly *Assembly
	store    []slot
	memo     sync.Map // Setup -> *RuntimeService
	locators sync.Map // *Graph -> *Locator
	logger   logger.Logger
}

func newLaunchContext(a *Assembly) *LaunchContext {
	id := uuid.NewString()
	return &LaunchContext{
		id:       id,
		assembly: a,
		store:    make([]slot, a.slots),
		logger:   a.logger.With(logger.Launch(id)),
	}
}

// ID returns the unique identifier of the launch.
func (lc *LaunchContext) ID() string { return lc.id }

// Converted returns the number of nodes converted so far.
func (lc *LaunchContext) Converted() int {
	n := 0
	lc.memo.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// entry converts s once per context. Concurrent callers may both build an
// entry; the first stored wins and the others discard theirs.
func (lc *LaunchContext) entry(s Setup, path []Setup) (*RuntimeService, error) {
	if v, ok := lc.memo.Load(s); ok {
		return v.(*RuntimeService), nil
	}

	for i, p := range path {
		if p == s {
			cycle := make([]string, 0, len(path)-i+1)
			for _, n := range path[i:] {
				cycle = append(cycle, n.Key().String())
			}
			cycle = append(cycle, s.Key().String())
			return nil, errors.ErrCircularDependency(cycle)
		}
	}

	next := append(path[:len(path):len(path)], s)
	rs, err := s.build(lc, next)
	if err != nil {
		return nil, err
	}

	actual, loaded := lc.memo.LoadOrStore(s, rs)
	if !loaded {
		lc.assembly.metrics.Conversion(rs.variant)
		lc.logger.Debug("converted service",
			logger.KeyField(rs.key),
			logger.String("mode", rs.mode.String()),
			logger.String("variant", rs.variant))
	}
	return actual.(*RuntimeService), nil
}

// constant wraps produce so that it runs at most once per launch. Failed
// attempts are not cached.
func (lc *LaunchContext) constant(index int, produce func() (any, error)) func() (any, error) {
	if index < 0 || index >= len(lc.store) {
		panic(errors.ErrContractViolation("constant slot outside of the runtime store"))
	}
	sl := &lc.store[index]
	return func() (any, error) {
		sl.mu.RLock()
		if sl.done {
			v := sl.value
			sl.mu.RUnlock()
			return v, nil
		}
		sl.mu.RUnlock()

		sl.mu.Lock()
		defer sl.mu.Unlock()
		if sl.done {
			return sl.value, nil
		}
		v, err := produce()
		if err != nil {
			return nil, err
		}
		sl.value = v
		sl.done = true
		return v, nil
	}
}

// Locator returns a locator over every service visible in scope g, the
// private self key included.
func (lc *LaunchContext) Locator(g *Graph) (*Locator, error) {
	if g.assembly != lc.assembly {
		return nil, errors.ErrContractViolation("scope '" + g.name + "' belongs to another assembly")
	}
	return lc.locator(g)
}

// locator returns the scope-wide locator of g for this launch.
func (lc *LaunchContext) locator(g *Graph) (*Locator, error) {
	if v, ok := lc.locators.Load(g); ok {
		return v.(*Locator), nil
	}
	loc, err := newLocator(lc, g.name, g.keys(true), g.services)
	if err != nil {
		return nil, err
	}
	actual, _ := lc.locators.LoadOrStore(g, loc)
	return actual.(*Locator), nil
}
