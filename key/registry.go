package key

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/xraph/graft/internal/errors"
)

// TagDecoder turns the value of a struct tag into a qualifier.
type TagDecoder func(value string) (Qualifier, error)

// Captured is implemented by type tokens that carry a type argument.
type Captured interface {
	CapturedType() reflect.Type
}

// TypeToken captures T so that a key can be built from a generic call site.
//
//	k, err := reg.FromCaptured(key.TypeToken[[]string]{})
type TypeToken[T any] struct{}

// CapturedType implements Captured.
func (TypeToken[T]) CapturedType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type siteKind uint8

const (
	siteField siteKind = iota + 1
	siteParameter
	siteMethodReturn
	siteCaptured
)

type site struct {
	kind  siteKind
	owner reflect.Type
	index int
	name  string
}

// Registry memoizes keys decoded from declaring sites. It is safe for
// concurrent use; two goroutines decoding the same site at once may both do
// the work, and whichever result is stored first wins. Results are equal by
// value either way.
//
// Entries are never evicted. Reset exists for tests.
type Registry struct {
	sites sync.Map // site -> Key

	mu       sync.RWMutex
	tags     map[string]TagDecoder
	tagOrder []string
}

// NewRegistry returns a registry that understands the `named` struct tag.
func NewRegistry() *Registry {
	r := &Registry{tags: make(map[string]TagDecoder)}
	r.RegisterTagQualifier("named", func(v string) (Qualifier, error) {
		if v == "" {
			return nil, fmt.Errorf("empty name")
		}
		return Named{Name: v}, nil
	})
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterTagQualifier makes FromField decode struct tag `tag` into a qualifier.
func (r *Registry) RegisterTagQualifier(tag string, decode TagDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tags[tag]; !exists {
		r.tagOrder = append(r.tagOrder, tag)
	}
	r.tags[tag] = decode
}

// Reset drops every memoized key. Tag decoders are kept.
func (r *Registry) Reset() {
	r.sites.Range(func(k, _ any) bool {
		r.sites.Delete(k)
		return true
	})
}

// Len returns the number of memoized sites.
func (r *Registry) Len() int {
	n := 0
	r.sites.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *Registry) memo(s site, decode func() (Key, error)) (Key, error) {
	if v, ok := r.sites.Load(s); ok {
		return v.(Key), nil
	}
	k, err := decode()
	if err != nil {
		return Key{}, err
	}
	actual, _ := r.sites.LoadOrStore(s, k)
	return actual.(Key), nil
}

// FromField returns the key for field index of struct type owner. Qualifiers
// are decoded from the field's struct tags.
func (r *Registry) FromField(owner reflect.Type, index int) (Key, error) {
	for owner != nil && owner.Kind() == reflect.Pointer {
		owner = owner.Elem()
	}
	if owner == nil || owner.Kind() != reflect.Struct || index < 0 || index >= owner.NumField() {
		return Key{}, errors.ErrInvalidKey(fmt.Sprintf("field %d of %v", index, owner), "no such struct field")
	}
	return r.memo(site{kind: siteField, owner: owner, index: index}, func() (Key, error) {
		f := owner.Field(index)
		source := "field " + f.Name + " of " + owner.String()

		var quals []any
		r.mu.RLock()
		for _, tag := range r.tagOrder {
			v, ok := f.Tag.Lookup(tag)
			if !ok {
				continue
			}
			q, err := r.tags[tag](v)
			if err != nil {
				r.mu.RUnlock()
				return Key{}, errors.ErrInvalidKey(source, fmt.Sprintf("tag %s: %v", tag, err))
			}
			quals = append(quals, q)
		}
		r.mu.RUnlock()

		return build(f.Type, quals, source)
	})
}

// FromParameter returns the key for parameter index of function type fn.
// Parameters carry no tags, so qualifiers are passed explicitly; only
// unqualified lookups are memoized.
func (r *Registry) FromParameter(fn reflect.Type, index int, quals ...Qualifier) (Key, error) {
	if fn == nil || fn.Kind() != reflect.Func || index < 0 || index >= fn.NumIn() {
		return Key{}, errors.ErrInvalidKey(fmt.Sprintf("parameter %d of %v", index, fn), "no such parameter")
	}
	decode := func() (Key, error) {
		return build(fn.In(index), toAny(quals), fmt.Sprintf("parameter %d of %s", index, fn))
	}
	if len(quals) > 0 {
		return decode()
	}
	return r.memo(site{kind: siteParameter, owner: fn, index: index}, decode)
}

// FromMethodReturnType returns the key for the first result of m. A trailing
// error result is allowed; a method without results is rejected.
func (r *Registry) FromMethodReturnType(m reflect.Method, quals ...Qualifier) (Key, error) {
	source := "method " + m.Name
	if m.Type == nil {
		return Key{}, errors.ErrInvalidKey(source, "method has no type")
	}
	source += " " + m.Type.String()
	decode := func() (Key, error) {
		if m.Type.NumOut() == 0 {
			return build(nil, nil, source)
		}
		return build(m.Type.Out(0), toAny(quals), source)
	}
	if len(quals) > 0 {
		return decode()
	}
	return r.memo(site{kind: siteMethodReturn, owner: m.Type, name: m.Name}, decode)
}

// FromCaptured returns the key for the type carried by token.
func (r *Registry) FromCaptured(token Captured, quals ...Qualifier) (Key, error) {
	if token == nil {
		return Key{}, errors.ErrInvalidKey("captured type", "nil token")
	}
	decode := func() (Key, error) {
		return RawKey{Type: token.CapturedType(), Qualifiers: quals}.Canonicalize()
	}
	if len(quals) > 0 {
		return decode()
	}
	return r.memo(site{kind: siteCaptured, owner: reflect.TypeOf(token)}, decode)
}

// FromField decodes a field key using the default registry.
func FromField(owner reflect.Type, index int) (Key, error) {
	return defaultRegistry.FromField(owner, index)
}

// FromParameter decodes a parameter key using the default registry.
func FromParameter(fn reflect.Type, index int, quals ...Qualifier) (Key, error) {
	return defaultRegistry.FromParameter(fn, index, quals...)
}

// FromMethodReturnType decodes a method result key using the default registry.
func FromMethodReturnType(m reflect.Method, quals ...Qualifier) (Key, error) {
	return defaultRegistry.FromMethodReturnType(m, quals...)
}

// FromCaptured decodes a captured type key using the default registry.
func FromCaptured(token Captured, quals ...Qualifier) (Key, error) {
	return defaultRegistry.FromCaptured(token, quals...)
}
