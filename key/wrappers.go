package key

import "reflect"

// Optional wraps a value that may be absent. Optional types cannot be used
// as key types; request the wrapped type with an optional dependency instead.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// OrElse returns the value, or fallback when absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

func (Optional[T]) optionalWrapper() {}

// Deferred produces a value on demand. Like Optional it is a marker the
// container understands and is rejected as a key type.
type Deferred[T any] struct {
	get func() (T, error)
}

// Defer wraps fn into a Deferred.
func Defer[T any](fn func() (T, error)) Deferred[T] {
	return Deferred[T]{get: fn}
}

// Get invokes the underlying producer.
func (d Deferred[T]) Get() (T, error) {
	if d.get == nil {
		var zero T
		return zero, nil
	}
	return d.get()
}

func (Deferred[T]) deferredProvider() {}

type optionalMarker interface{ optionalWrapper() }

type deferredMarker interface{ deferredProvider() }

var (
	optionalMarkerType = reflect.TypeOf((*optionalMarker)(nil)).Elem()
	deferredMarkerType = reflect.TypeOf((*deferredMarker)(nil)).Elem()
	keyType            = reflect.TypeOf(Key{})
	rawKeyType         = reflect.TypeOf(RawKey{})
)

// forbidden reports why t cannot be used as a key type, or "" when it can.
func forbidden(t reflect.Type) string {
	switch {
	case t == nil:
		return "void is not a valid key type"
	case t == keyType || t == rawKeyType:
		return "key types cannot themselves be keys"
	case t == qualifierType:
		return "the qualifier interface cannot be a key type"
	case t.Kind() != reflect.Interface && t.Implements(optionalMarkerType):
		return "optional wrapper " + t.String() + " cannot be a key type"
	case t.Kind() != reflect.Interface && t.Implements(deferredMarkerType):
		return "deferred provider " + t.String() + " cannot be a key type"
	}
	return ""
}
