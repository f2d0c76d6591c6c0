package graft

import (
	"reflect"

	"github.com/xraph/graft/key"
	"github.com/xraph/graft/service"
)

// Key identifies a service by type and qualifiers.
type Key = key.Key

// Qualifier distinguishes services of the same type.
type Qualifier = key.Qualifier

// Named is the built-in string qualifier.
type Named = key.Named

// OptionalValue holds a value that may be absent.
type OptionalValue[T any] = key.Optional[T]

// DeferredValue produces a value on demand.
type DeferredValue[T any] = key.Deferred[T]

// Name returns the Named qualifier for name.
func Name(name string) Named {
	return key.Name(name)
}

// KeyOf returns the key of T with the given qualifiers. It panics on an
// invalid key; use NewKey to handle the error.
func KeyOf[T any](quals ...Qualifier) Key {
	return key.Of[T](quals...)
}

// NewKey returns the key of T with the given qualifiers.
func NewKey[T any](quals ...Qualifier) (Key, error) {
	return key.New[T](quals...)
}

// KeyOfType returns the key of t with the given qualifiers.
func KeyOfType(t reflect.Type, quals ...Qualifier) (Key, error) {
	return key.OfType(t, quals...)
}

// Resolve returns the service of type T from a locator.
func Resolve[T any](l *Locator, quals ...Qualifier) (T, error) {
	return service.Resolve[T](l, quals...)
}

// MustResolve returns the service of type T or panics.
func MustResolve[T any](l *Locator, quals ...Qualifier) T {
	return service.MustResolve[T](l, quals...)
}

// Lookup returns the service of type T when it is present.
func Lookup[T any](l *Locator, quals ...Qualifier) (OptionalValue[T], error) {
	return service.Lookup[T](l, quals...)
}

// Defer returns a handle resolving the service of type T on each call.
func Defer[T any](l *Locator, quals ...Qualifier) DeferredValue[T] {
	return service.Defer[T](l, quals...)
}
