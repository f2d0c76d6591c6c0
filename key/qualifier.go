package key

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Qualifier marks a value as distinguishing otherwise same-typed services.
// Qualifier values must be comparable.
type Qualifier interface {
	IsQualifier()
}

// Named is the built-in qualifier distinguishing services by name.
type Named struct {
	Name string
}

// IsQualifier implements Qualifier.
func (Named) IsQualifier() {}

func (n Named) String() string {
	return "@Named(" + strconv.Quote(n.Name) + ")"
}

// Name returns a Named qualifier.
func Name(name string) Named {
	return Named{Name: name}
}

var qualifierType = reflect.TypeOf((*Qualifier)(nil)).Elem()

// qualifierSets interns the sorted qualifier slice of every signature seen.
// Entries are written once per signature; concurrent writers store equal values.
var qualifierSets sync.Map

type qualifierEntry struct {
	q         Qualifier
	typ       reflect.Type
	simple    string
	canonical string
}

func simpleName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func canonicalName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func (e qualifierEntry) encode() string {
	return e.simple + "\x00" + e.canonical + "=" + fmt.Sprintf("%#v", e.q)
}

// normalizeQualifiers validates the qualifiers and returns their canonical
// signature. The empty signature means "unqualified".
func normalizeQualifiers(quals []any) (string, string) {
	if len(quals) == 0 {
		return "", ""
	}

	entries := make([]qualifierEntry, 0, len(quals))
	for _, raw := range quals {
		if raw == nil {
			return "", "nil qualifier"
		}
		q, ok := raw.(Qualifier)
		if !ok {
			return "", fmt.Sprintf("%T is not a qualifier (missing IsQualifier method)", raw)
		}
		t := reflect.TypeOf(q)
		if !t.Comparable() {
			return "", fmt.Sprintf("qualifier %s is not comparable", t)
		}
		switch t.Kind() {
		case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
			return "", fmt.Sprintf("qualifier %s compares by identity; use a value type", t)
		}
		e := qualifierEntry{q: q, typ: t, simple: simpleName(t), canonical: canonicalName(t)}
		for _, prev := range entries {
			if prev.typ == t {
				return "", fmt.Sprintf("qualifier %s specified more than once", t)
			}
			if prev.canonical == e.canonical {
				return "", fmt.Sprintf("qualifier %s collides with another type of the same name", e.canonical)
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].simple != entries[j].simple {
			return entries[i].simple < entries[j].simple
		}
		return entries[i].canonical < entries[j].canonical
	})

	parts := make([]string, len(entries))
	sorted := make([]Qualifier, len(entries))
	for i, e := range entries {
		parts[i] = e.encode()
		sorted[i] = e.q
	}
	sig := strings.Join(parts, "\x1f")
	qualifierSets.LoadOrStore(sig, sorted)
	return sig, ""
}

func lookupQualifiers(sig string) []Qualifier {
	if sig == "" {
		return nil
	}
	v, ok := qualifierSets.Load(sig)
	if !ok {
		return nil
	}
	return v.([]Qualifier)
}

func formatQualifier(q Qualifier) string {
	if s, ok := q.(fmt.Stringer); ok {
		return s.String()
	}
	return "@" + simpleName(reflect.TypeOf(q)) + fmt.Sprintf("%+v", q)
}
