package service

import (
	"fmt"
	"reflect"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/key"
)

// Graph is the build-time service registry of one scope. Exactly one Setup
// exists per key. A Graph is mutable until its scope is finished and is not
// safe for concurrent use.
type Graph struct {
	name     string
	assembly *Assembly
	parent   *Graph
	children []*Graph

	services map[key.Key]Setup
	order    []key.Key
	private  map[key.Key]bool

	exports  *ExportManager
	exported *Exports
	finished bool
}

func newGraph(a *Assembly, name string, parent *Graph) *Graph {
	g := &Graph{
		name:     name,
		assembly: a,
		parent:   parent,
		services: make(map[key.Key]Setup),
		private:  make(map[key.Key]bool),
	}
	g.exports = newExportManager(g)

	self := &InstanceSetup{
		base: base{key: LocatorKey, scope: g},
		bean: &scopeBean{graph: g},
		slot: a.allocSlot(),
	}
	g.install(self)
	g.private[LocatorKey] = true
	return g
}

// scopeBean answers the private locator key of a scope.
type scopeBean struct {
	graph *Graph
}

func (b *scopeBean) BeanName() string { return "locator:" + b.graph.name }

func (b *scopeBean) Instance(lc *LaunchContext) (any, error) {
	return lc.locator(b.graph)
}

// Name returns the scope name.
func (g *Graph) Name() string { return g.name }

// Parent returns the enclosing scope, or nil for the root.
func (g *Graph) Parent() *Graph { return g.parent }

// Exports returns the export manager of the scope.
func (g *Graph) Exports() *ExportManager { return g.exports }

// Exported returns the resolved exports once the scope is finished.
func (g *Graph) Exported() *Exports { return g.exported }

// Frozen reports whether the scope is finished and read-only.
func (g *Graph) Frozen() bool { return g.finished }

// Keys returns the user-visible keys in insertion order.
func (g *Graph) Keys() []key.Key {
	return g.keys(false)
}

func (g *Graph) keys(includePrivate bool) []key.Key {
	out := make([]key.Key, 0, len(g.order))
	for _, k := range g.order {
		if !includePrivate && g.private[k] {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Len returns the number of user-visible services.
func (g *Graph) Len() int { return len(g.order) - len(g.private) }

// Lookup returns the node registered under k in this scope only.
func (g *Graph) Lookup(k key.Key) (Setup, bool) {
	s, ok := g.services[k]
	return s, ok
}

// Has reports whether this scope registers k.
func (g *Graph) Has(k key.Key) bool {
	_, ok := g.services[k]
	return ok
}

// Resolve looks k up in this scope, then in each ancestor scope.
func (g *Graph) Resolve(k key.Key) (Setup, bool) {
	for s := g; s != nil; s = s.parent {
		if found, ok := s.services[k]; ok {
			return found, true
		}
	}
	return nil, false
}

// IsPrivate reports whether k is reserved by the framework.
func (g *Graph) IsPrivate(k key.Key) bool { return g.private[k] }

// Provide registers a constant member under k.
func (g *Graph) Provide(k key.Key, m *Member) (*MemberSetup, error) {
	return g.addMember("provide", k, m, true, false)
}

// Prototype registers a member invoked on every request.
func (g *Graph) Prototype(k key.Key, m *Member) (*MemberSetup, error) {
	return g.addMember("prototype", k, m, false, false)
}

// Map registers a constant member and removes the local services it
// consumes from further visibility in this scope.
func (g *Graph) Map(k key.Key, m *Member) (*MemberSetup, error) {
	return g.addMember("map", k, m, true, true)
}

// Replace registers a constant member under k, overriding any existing
// provider. Dependencies on k itself bind to the replaced provider, which
// allows wrapping it. Consumers of the replaced provider are moved to the
// new one, the requirements it recorded are dropped and the local services
// consumed by the new member are removed from visibility.
func (g *Graph) Replace(k key.Key, m *Member) (*MemberSetup, error) {
	if err := g.checkMutable("replace"); err != nil {
		return nil, err
	}
	if err := g.checkMember(k, m); err != nil {
		return nil, err
	}

	old := g.services[k]
	s := g.newMember(k, m, true)
	g.bind(s)

	if old != nil {
		g.services[k] = s
		g.assembly.rebind(old, s, s)
		g.assembly.forget(old)
	} else {
		g.install(s)
	}
	g.dropDependencies(s)
	g.registered("replace", k)
	return s, nil
}

// ProvideInstance registers a value that needs no further construction.
func (g *Graph) ProvideInstance(k key.Key, value any) (*ConstantSetup, error) {
	if err := g.checkMutable("provide instance"); err != nil {
		return nil, err
	}
	if err := checkValue(k, value); err != nil {
		return nil, err
	}
	if err := g.checkFree(k); err != nil {
		return nil, err
	}
	s := &ConstantSetup{base: base{key: k, scope: g}, value: value}
	g.install(s)
	g.registered("instance", k)
	return s, nil
}

// ProvideBean registers a component instance produced by bean.
func (g *Graph) ProvideBean(k key.Key, bean Bean) (*InstanceSetup, error) {
	if err := g.checkMutable("provide bean"); err != nil {
		return nil, err
	}
	if k.IsZero() || bean == nil {
		return nil, errors.ErrContractViolation("bean registration needs a key and a bean")
	}
	if err := g.checkFree(k); err != nil {
		return nil, err
	}
	s := &InstanceSetup{base: base{key: k, scope: g}, bean: bean, slot: g.assembly.allocSlot()}
	g.install(s)
	g.registered("bean", k)
	return s, nil
}

// Decorate applies transform to every value produced for k. Consumers
// already bound to k observe the decorated value.
func (g *Graph) Decorate(k key.Key, transform func(any) (any, error)) (*DecoratedSetup, error) {
	if err := g.checkMutable("decorate"); err != nil {
		return nil, err
	}
	if transform == nil {
		return nil, errors.ErrContractViolation("decorator for " + k.String() + " is nil")
	}
	old, ok := g.services[k]
	if !ok || g.private[k] {
		return nil, errors.ErrServiceNotFound(k.String())
	}

	d := &DecoratedSetup{base: base{key: k, scope: g}, delegate: old, transform: transform, slot: -1}
	if old.Constant() {
		d.slot = g.assembly.allocSlot()
	}
	g.services[k] = d
	g.assembly.rebind(old, d, nil)
	g.registered("decorate", k)
	return d, nil
}

// Rekey moves the service registered under from to the key to. The type of
// to must accept the values of from.
func (g *Graph) Rekey(from, to key.Key) (*RekeyedSetup, error) {
	if err := g.checkMutable("rekey"); err != nil {
		return nil, err
	}
	old, ok := g.services[from]
	if !ok || g.private[from] {
		return nil, errors.ErrServiceNotFound(from.String())
	}
	if from == to {
		return nil, errors.ErrKeyAlreadyInUse(to.String()).WithContext("reason", "rekey to the same key")
	}
	if to.IsZero() {
		return nil, errors.ErrContractViolation("cannot rekey " + from.String() + " to the zero key")
	}
	if err := g.checkFree(to); err != nil {
		return nil, err
	}
	if !from.Type().AssignableTo(to.Type()) {
		return nil, errors.ErrTypeMismatch(to.String(), to.Type().String(), from.Type().String())
	}

	r := &RekeyedSetup{base: base{key: to, scope: g}, delegate: old}
	g.unlink(from)
	g.install(r)
	g.registered("rekey", to)
	return r, nil
}

// Remove drops the given keys. Missing and private keys are ignored.
func (g *Graph) Remove(keys ...key.Key) error {
	if err := g.checkMutable("remove"); err != nil {
		return err
	}
	for _, k := range keys {
		g.remove(k)
	}
	return nil
}

// Retain drops every user-visible key not listed.
func (g *Graph) Retain(keys ...key.Key) error {
	keep := make(map[key.Key]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}
	return g.RemoveIf(func(k key.Key, _ Setup) bool {
		return !keep[k]
	})
}

// RemoveIf drops every user-visible service matching pred.
func (g *Graph) RemoveIf(pred func(key.Key, Setup) bool) error {
	if err := g.checkMutable("remove"); err != nil {
		return err
	}
	for _, k := range g.keys(false) {
		if pred(k, g.services[k]) {
			g.remove(k)
		}
	}
	return nil
}

// ImportAll adds every service of a frozen locator to this scope. Nothing
// is imported when any key is already in use.
func (g *Graph) ImportAll(loc *Locator) error {
	if err := g.checkMutable("import"); err != nil {
		return err
	}
	var conflicts []error
	for _, k := range loc.Keys() {
		if k == LocatorKey {
			continue
		}
		if err := g.checkFree(k); err != nil {
			conflicts = append(conflicts, err)
		}
	}
	if len(conflicts) > 0 {
		return errors.Join(conflicts...)
	}

	for _, k := range loc.Keys() {
		if k == LocatorKey {
			continue
		}
		rs, _ := loc.Service(k)
		g.install(&ExternalSetup{base: base{key: k, scope: g}, service: rs})
		g.registered("import", k)
	}
	return nil
}

func (g *Graph) addMember(op string, k key.Key, m *Member, constant, consume bool) (*MemberSetup, error) {
	if err := g.checkMutable(op); err != nil {
		return nil, err
	}
	if err := g.checkMember(k, m); err != nil {
		return nil, err
	}
	if err := g.checkFree(k); err != nil {
		return nil, err
	}

	s := g.newMember(k, m, constant)
	g.bind(s)
	g.install(s)
	if consume {
		g.dropDependencies(s)
	}
	g.registered(op, k)
	return s, nil
}

func (g *Graph) newMember(k key.Key, m *Member, constant bool) *MemberSetup {
	s := &MemberSetup{
		base:     base{key: k, scope: g},
		member:   m,
		constant: constant,
		slot:     -1,
		bindings: make([]Setup, len(m.Params)),
	}
	if constant {
		s.slot = g.assembly.allocSlot()
	}
	g.assembly.members = append(g.assembly.members, s)
	return s
}

// bind resolves each parameter of s, reporting misses to the tracker.
func (g *Graph) bind(s *MemberSetup) {
	for i, dep := range s.member.Params {
		if found, ok := g.Resolve(dep.Key); ok {
			s.bindings[i] = found
			continue
		}
		g.assembly.tracker.record(s, i, dep)
		g.assembly.logger.Debug("dependency not yet available",
			logger.Scope(g.name),
			logger.KeyField(dep.Key),
			logger.String("consumer", s.member.Name),
			logger.Int("parameter", i),
			logger.Bool("optional", dep.Optional))
	}
}

// dropDependencies hides the local services s consumed. They stay bound to s.
func (g *Graph) dropDependencies(s *MemberSetup) {
	for _, b := range s.bindings {
		if b == nil || b == Setup(s) || b.Scope() != g || g.private[b.Key()] {
			continue
		}
		if g.services[b.Key()] == b {
			g.unlink(b.Key())
		}
	}
}

func (g *Graph) checkMutable(op string) error {
	if g.finished {
		return errors.ErrScopeFrozen(g.name, op)
	}
	return nil
}

func (g *Graph) checkFree(k key.Key) error {
	if _, exists := g.services[k]; exists {
		return errors.ErrKeyAlreadyInUse(k.String()).WithContext("scope", g.name)
	}
	return nil
}

func (g *Graph) checkMember(k key.Key, m *Member) error {
	if k.IsZero() {
		return errors.ErrContractViolation("cannot register a member under the zero key")
	}
	if m == nil || m.Invoke == nil {
		return errors.ErrContractViolation("member for " + k.String() + " has no invoker")
	}
	if m.Result != nil && !m.Result.AssignableTo(k.Type()) {
		return errors.ErrTypeMismatch(k.String(), k.Type().String(), m.Result.String())
	}
	return nil
}

func checkValue(k key.Key, value any) error {
	if k.IsZero() {
		return errors.ErrContractViolation("cannot register a value under the zero key")
	}
	t := k.Type()
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return errors.ErrTypeMismatch(k.String(), t.String(), "nil")
	}
	if vt := reflect.TypeOf(value); !vt.AssignableTo(t) {
		return errors.ErrTypeMismatch(k.String(), t.String(), vt.String())
	}
	return nil
}

func (g *Graph) install(s Setup) {
	g.services[s.Key()] = s
	g.order = append(g.order, s.Key())
}

// unlink removes k from the scope without touching recorded requirements.
func (g *Graph) unlink(k key.Key) {
	delete(g.services, k)
	for i, existing := range g.order {
		if existing == k {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}

func (g *Graph) remove(k key.Key) {
	s, ok := g.services[k]
	if !ok || g.private[k] {
		return
	}
	g.unlink(k)
	g.assembly.forget(s)
	g.registered("remove", k)
}

func (g *Graph) registered(op string, k key.Key) {
	g.assembly.metrics.Registration(op)
	g.assembly.logger.Debug(fmt.Sprintf("%s applied", op), logger.Scope(g.name), logger.KeyField(k))
}
