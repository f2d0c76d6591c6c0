package service

import (
	"fmt"
	"reflect"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/key"
)

// Setup is a build-time provider node. The set of implementations is closed:
// InstanceSetup, MemberSetup, ConstantSetup, ExportedSetup, RekeyedSetup,
// DecoratedSetup and ExternalSetup.
type Setup interface {
	// Key is the key the node answers under.
	Key() key.Key
	// Constant reports whether the produced value is cached per launch.
	Constant() bool
	// Scope is the graph the node was registered in.
	Scope() *Graph
	// ToRuntimeEntry returns the runtime form of the node for lc. Repeated
	// calls with the same context return the identical entry.
	ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error)

	build(lc *LaunchContext, path []Setup) (*RuntimeService, error)
}

type base struct {
	key   key.Key
	scope *Graph
}

func (b *base) Key() key.Key  { return b.key }
func (b *base) Scope() *Graph { return b.scope }

// InstanceSetup wraps a bean constructed earlier in the build.
type InstanceSetup struct {
	base
	bean Bean
	slot int
}

func (s *InstanceSetup) Constant() bool { return true }

// Bean returns the wrapped bean.
func (s *InstanceSetup) Bean() Bean { return s.bean }

func (s *InstanceSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *InstanceSetup) build(lc *LaunchContext, _ []Setup) (*RuntimeService, error) {
	get := lc.constant(s.slot, func() (any, error) {
		return s.bean.Instance(lc)
	})
	return newRuntimeService(s.key, ModeConstant, "instance", get), nil
}

// MemberSetup wraps an invocable member whose parameters are themselves
// services. Constant members are invoked at most once per launch.
type MemberSetup struct {
	base
	member   *Member
	constant bool
	slot     int
	bindings []Setup
}

func (s *MemberSetup) Constant() bool { return s.constant }

// Member returns the wrapped member.
func (s *MemberSetup) Member() *Member { return s.member }

// Binding returns the node bound to parameter i, or nil while unresolved.
func (s *MemberSetup) Binding(i int) Setup {
	if i < 0 || i >= len(s.bindings) {
		return nil
	}
	return s.bindings[i]
}

// Unresolved returns the indexes of parameters without a bound provider.
func (s *MemberSetup) Unresolved() []int {
	var out []int
	for i, b := range s.bindings {
		if b == nil {
			out = append(out, i)
		}
	}
	return out
}

func (s *MemberSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *MemberSetup) build(lc *LaunchContext, path []Setup) (*RuntimeService, error) {
	params := make([]*RuntimeService, len(s.member.Params))
	for i, dep := range s.member.Params {
		bound := s.bindings[i]
		if bound == nil {
			if dep.Optional {
				continue
			}
			panic(errors.ErrContractViolation(fmt.Sprintf(
				"%s declared by %s: parameter %d (%s) was never resolved",
				s.member.Signature(i), s.member.Declaring, i, dep.Key)).
				WithContext("key", dep.Key.String()))
		}
		rs, err := lc.entry(bound, path)
		if err != nil {
			return nil, err
		}
		params[i] = rs
	}

	mode := ModePrototype
	if s.constant {
		mode = ModeConstant
	}

	invoke := func() (any, error) {
		args := make([]any, len(params))
		for i, p := range params {
			if p == nil {
				continue
			}
			v, err := p.Provide()
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %d: %w", s.member.Name, i, err)
			}
			args[i] = v
		}
		lc.assembly.metrics.Construction(mode.String())
		return s.member.Invoke(args)
	}

	if s.constant {
		return newRuntimeService(s.key, mode, "member", lc.constant(s.slot, invoke)), nil
	}
	return newRuntimeService(s.key, mode, "member", invoke), nil
}

// ConstantSetup holds a directly supplied value.
type ConstantSetup struct {
	base
	value any
}

func (s *ConstantSetup) Constant() bool { return true }

// Value returns the supplied value.
func (s *ConstantSetup) Value() any { return s.value }

func (s *ConstantSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *ConstantSetup) build(_ *LaunchContext, _ []Setup) (*RuntimeService, error) {
	v := s.value
	return newRuntimeService(s.key, ModeConstant, "constant", func() (any, error) {
		return v, nil
	}), nil
}

// ExportedSetup re-exposes another node, possibly under a different key.
// The target is nil until the owning scope's exports are resolved.
type ExportedSetup struct {
	base
	target Setup
	site   string
}

func (s *ExportedSetup) Constant() bool {
	return s.target != nil && s.target.Constant()
}

// Target returns the exported node.
func (s *ExportedSetup) Target() Setup { return s.target }

// Site describes where the export was declared.
func (s *ExportedSetup) Site() string { return s.site }

func (s *ExportedSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *ExportedSetup) build(lc *LaunchContext, path []Setup) (*RuntimeService, error) {
	if s.target == nil {
		panic(errors.ErrContractViolation(fmt.Sprintf("export %s (%s) was never resolved", s.key, s.site)))
	}
	rs, err := lc.entry(s.target, path)
	if err != nil {
		return nil, err
	}
	if rs.key == s.key {
		return rs, nil
	}
	return rs.withKey(s.key), nil
}

// RekeyedSetup answers under a new key for another node.
type RekeyedSetup struct {
	base
	delegate Setup
}

func (s *RekeyedSetup) Constant() bool { return s.delegate.Constant() }

// Delegate returns the node answering for the new key.
func (s *RekeyedSetup) Delegate() Setup { return s.delegate }

func (s *RekeyedSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *RekeyedSetup) build(lc *LaunchContext, path []Setup) (*RuntimeService, error) {
	rs, err := lc.entry(s.delegate, path)
	if err != nil {
		return nil, err
	}
	want := s.key.Type()
	k := s.key
	return newRuntimeService(k, rs.mode, "rekeyed", func() (any, error) {
		v, err := rs.Provide()
		if err != nil {
			return nil, err
		}
		if v != nil && !reflect.TypeOf(v).AssignableTo(want) {
			return nil, errors.ErrTypeMismatch(k.String(), want.String(), reflect.TypeOf(v).String())
		}
		return v, nil
	}), nil
}

// DecoratedSetup applies a transform to every value produced by another node.
// A decorated constant stays constant: the transform runs once per launch.
type DecoratedSetup struct {
	base
	delegate  Setup
	transform func(any) (any, error)
	slot      int
}

func (s *DecoratedSetup) Constant() bool { return s.delegate.Constant() }

// Delegate returns the decorated node.
func (s *DecoratedSetup) Delegate() Setup { return s.delegate }

func (s *DecoratedSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *DecoratedSetup) build(lc *LaunchContext, path []Setup) (*RuntimeService, error) {
	rs, err := lc.entry(s.delegate, path)
	if err != nil {
		return nil, err
	}
	get := func() (any, error) {
		v, err := rs.Provide()
		if err != nil {
			return nil, err
		}
		return s.transform(v)
	}
	if s.Constant() {
		get = lc.constant(s.slot, get)
	}
	return newRuntimeService(s.key, rs.mode, "decorated", get), nil
}

// ExternalSetup adapts an already frozen runtime service so it can take part
// in another graph.
type ExternalSetup struct {
	base
	service *RuntimeService
}

func (s *ExternalSetup) Constant() bool { return s.service.IsConstant() }

// Service returns the wrapped runtime service.
func (s *ExternalSetup) Service() *RuntimeService { return s.service }

func (s *ExternalSetup) ToRuntimeEntry(lc *LaunchContext) (*RuntimeService, error) {
	return lc.entry(s, nil)
}

func (s *ExternalSetup) build(_ *LaunchContext, _ []Setup) (*RuntimeService, error) {
	if s.service.key == s.key {
		return s.service, nil
	}
	return s.service.withKey(s.key), nil
}

var (
	_ Setup = (*InstanceSetup)(nil)
	_ Setup = (*MemberSetup)(nil)
	_ Setup = (*ConstantSetup)(nil)
	_ Setup = (*ExportedSetup)(nil)
	_ Setup = (*RekeyedSetup)(nil)
	_ Setup = (*DecoratedSetup)(nil)
	_ Setup = (*ExternalSetup)(nil)
)
