package service

import (
	"fmt"
	"reflect"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/key"
)

// LocatorKey is the framework-private key every scope answers with its own
// runtime Locator.
var LocatorKey = key.Of[*Locator]()

// Locator is a read-only view over frozen runtime services.
type Locator struct {
	name     string
	lc       *LaunchContext
	keys     []key.Key
	services map[key.Key]*RuntimeService
}

func newLocator(lc *LaunchContext, name string, keys []key.Key, setups map[key.Key]Setup) (*Locator, error) {
	loc := &Locator{
		name:     name,
		lc:       lc,
		keys:     make([]key.Key, 0, len(keys)),
		services: make(map[key.Key]*RuntimeService, len(keys)),
	}
	for _, k := range keys {
		rs, err := lc.entry(setups[k], nil)
		if err != nil {
			return nil, fmt.Errorf("locator %s: %w", name, err)
		}
		loc.keys = append(loc.keys, k)
		loc.services[k] = rs
	}
	return loc, nil
}

// Name returns the scope name the locator was built for.
func (l *Locator) Name() string { return l.name }

// Launch returns the launch context the services belong to.
func (l *Locator) Launch() *LaunchContext { return l.lc }

// Keys returns every key in registration order.
func (l *Locator) Keys() []key.Key {
	out := make([]key.Key, len(l.keys))
	copy(out, l.keys)
	return out
}

// Len returns the number of services.
func (l *Locator) Len() int { return len(l.keys) }

// Has reports whether a service is registered under k.
func (l *Locator) Has(k key.Key) bool {
	_, ok := l.services[k]
	return ok
}

// Service returns the runtime service registered under k.
func (l *Locator) Service(k key.Key) (*RuntimeService, bool) {
	rs, ok := l.services[k]
	return rs, ok
}

// Get returns the value of the service registered under k.
func (l *Locator) Get(k key.Key) (any, error) {
	rs, ok := l.services[k]
	if !ok {
		return nil, errors.ErrServiceNotFound(k.String())
	}
	return rs.Provide()
}

// GetType returns the value of the unqualified service of type t.
func (l *Locator) GetType(t reflect.Type) (any, error) {
	k, err := key.OfType(t)
	if err != nil {
		return nil, err
	}
	return l.Get(k)
}

// Resolve returns the service of type T with the given qualifiers.
func Resolve[T any](l *Locator, quals ...key.Qualifier) (T, error) {
	var zero T
	k, err := key.New[T](quals...)
	if err != nil {
		return zero, err
	}
	v, err := l.Get(k)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.ErrTypeMismatch(k.String(), k.Type().String(), reflect.TypeOf(v).String())
	}
	return t, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](l *Locator, quals ...key.Qualifier) T {
	v, err := Resolve[T](l, quals...)
	if err != nil {
		panic(err)
	}
	return v
}

// Lookup returns the service of type T if present. Errors while producing
// the value are returned; absence is not an error.
func Lookup[T any](l *Locator, quals ...key.Qualifier) (key.Optional[T], error) {
	k, err := key.New[T](quals...)
	if err != nil {
		return key.None[T](), err
	}
	if !l.Has(k) {
		return key.None[T](), nil
	}
	v, err := Resolve[T](l, quals...)
	if err != nil {
		return key.None[T](), err
	}
	return key.Some(v), nil
}

// Defer returns a Deferred producing the service of type T on each call.
func Defer[T any](l *Locator, quals ...key.Qualifier) key.Deferred[T] {
	return key.Defer(func() (T, error) {
		return Resolve[T](l, quals...)
	})
}
