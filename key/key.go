package key

import (
	"hash/fnv"
	"reflect"
	"strings"

	"github.com/xraph/graft/internal/errors"
)

// Key identifies a service by type and qualifiers. The zero Key is invalid.
type Key struct {
	typ   reflect.Type
	quals string
	hash  uint64
}

// RawKey is an unvalidated (type, qualifiers) pair as handed over by scanners
// or generic capture. It must be canonicalized before it can address a service.
type RawKey struct {
	Type       reflect.Type
	Qualifiers []Qualifier
}

// Canonicalize validates the raw key and returns its canonical form.
func (r RawKey) Canonicalize() (Key, error) {
	src := "raw key"
	if r.Type != nil {
		src = "raw key " + r.Type.String()
	}
	return build(r.Type, toAny(r.Qualifiers), src)
}

// New returns the key for T with the given qualifiers.
func New[T any](quals ...Qualifier) (Key, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return build(t, toAny(quals), "type "+t.String())
}

// Of is like New but panics if the key is invalid. It is meant for
// package-level key declarations.
func Of[T any](quals ...Qualifier) Key {
	k, err := New[T](quals...)
	if err != nil {
		panic(err)
	}
	return k
}

// OfType returns the key for t with the given qualifiers.
func OfType(t reflect.Type, quals ...Qualifier) (Key, error) {
	src := "type <nil>"
	if t != nil {
		src = "type " + t.String()
	}
	return build(t, toAny(quals), src)
}

func toAny(quals []Qualifier) []any {
	if len(quals) == 0 {
		return nil
	}
	out := make([]any, len(quals))
	for i, q := range quals {
		out[i] = q
	}
	return out
}

func build(t reflect.Type, quals []any, source string) (Key, error) {
	if reason := forbidden(t); reason != "" {
		return Key{}, errors.ErrInvalidKey(source, reason)
	}
	sig, reason := normalizeQualifiers(quals)
	if reason != "" {
		return Key{}, errors.ErrInvalidKey(source, reason)
	}
	return Key{typ: t, quals: sig, hash: hashOf(t, sig)}, nil
}

func hashOf(t reflect.Type, sig string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(t.PkgPath()))
	h.Write([]byte{0})
	h.Write([]byte(t.String()))
	h.Write([]byte{0})
	h.Write([]byte(sig))
	return h.Sum64()
}

// Type returns the key's type.
func (k Key) Type() reflect.Type { return k.typ }

// Hash returns the precomputed hash of the key.
func (k Key) Hash() uint64 { return k.hash }

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.typ == nil }

// HasQualifiers reports whether the key carries at least one qualifier.
func (k Key) HasQualifiers() bool { return k.quals != "" }

// Qualifiers returns the qualifiers in canonical order.
func (k Key) Qualifiers() []Qualifier {
	qs := lookupQualifiers(k.quals)
	if len(qs) == 0 {
		return nil
	}
	out := make([]Qualifier, len(qs))
	copy(out, qs)
	return out
}

// HasQualifier reports whether the key carries a qualifier of type t.
func (k Key) HasQualifier(t reflect.Type) bool {
	for _, q := range lookupQualifiers(k.quals) {
		if reflect.TypeOf(q) == t {
			return true
		}
	}
	return false
}

// WithQualifier returns a copy of the key with q added. q must implement
// Qualifier and its type must not already be present.
func (k Key) WithQualifier(q any) (Key, error) {
	quals := toAny(lookupQualifiers(k.quals))
	return build(k.typ, append(quals, q), "qualifier added to "+k.String())
}

// WithoutQualifier returns a copy of the key without the qualifier of type t.
func (k Key) WithoutQualifier(t reflect.Type) Key {
	var kept []any
	for _, q := range lookupQualifiers(k.quals) {
		if reflect.TypeOf(q) != t {
			kept = append(kept, q)
		}
	}
	out, _ := build(k.typ, kept, k.String())
	return out
}

// WithoutQualifiers returns the unqualified key for the same type.
func (k Key) WithoutQualifiers() Key {
	if k.typ == nil {
		return Key{}
	}
	return Key{typ: k.typ, hash: hashOf(k.typ, "")}
}

// WithType returns a key for t carrying the same qualifiers.
func (k Key) WithType(t reflect.Type) (Key, error) {
	src := "type <nil>"
	if t != nil {
		src = "type " + t.String()
	}
	return build(t, toAny(lookupQualifiers(k.quals)), src)
}

func (k Key) String() string {
	if k.typ == nil {
		return "<invalid key>"
	}
	qs := lookupQualifiers(k.quals)
	if len(qs) == 0 {
		return k.typ.String()
	}
	var b strings.Builder
	b.WriteString(k.typ.String())
	for _, q := range qs {
		b.WriteByte(' ')
		b.WriteString(formatQualifier(q))
	}
	return b.String()
}
