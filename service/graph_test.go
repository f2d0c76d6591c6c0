package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/key"
)

func TestGraph_RejectsDuplicateKeys(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Provide(stringKey, value("first", "a"))
	require.NoError(t, err)

	tests := []struct {
		name string
		op   func() error
	}{
		{"provide", func() error { _, err := g.Provide(stringKey, value("second", "b")); return err }},
		{"prototype", func() error { _, err := g.Prototype(stringKey, value("second", "b")); return err }},
		{"map", func() error { _, err := g.Map(stringKey, value("second", "b")); return err }},
		{"instance", func() error { _, err := g.ProvideInstance(stringKey, "b"); return err }},
		{"bean", func() error {
			_, err := g.ProvideBean(stringKey, NewBean("b", func(*LaunchContext) (any, error) { return "b", nil }))
			return err
		}},
		{"private", func() error { _, err := g.ProvideInstance(LocatorKey, (*Locator)(nil)); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			require.Error(t, err)
			assert.True(t, errors.IsKeyAlreadyInUse(err), "got %v", err)
		})
	}

	s, ok := g.Lookup(stringKey)
	require.True(t, ok)
	assert.Equal(t, "first", s.(*MemberSetup).Member().Name)
}

func TestGraph_KeysInInsertionOrder(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.ProvideInstance(repoKey, &repo{})
	require.NoError(t, err)
	_, err = g.ProvideInstance(intKey, 1)
	require.NoError(t, err)
	_, err = g.Provide(stringKey, value("s", "s"))
	require.NoError(t, err)

	assert.Equal(t, []key.Key{repoKey, intKey, stringKey}, g.Keys())
	assert.Equal(t, 3, g.Len())
	assert.True(t, g.Has(LocatorKey))
	assert.True(t, g.IsPrivate(LocatorKey))
	assert.NotContains(t, g.Keys(), LocatorKey)

	require.NoError(t, g.Remove(intKey))
	_, err = g.ProvideInstance(intKey, 2)
	require.NoError(t, err)
	assert.Equal(t, []key.Key{repoKey, stringKey, intKey}, g.Keys())
}

func TestGraph_TypeChecks(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.ProvideInstance(intKey, "not an int")
	assert.True(t, errors.IsTypeMismatch(err))

	_, err = g.Provide(intKey, value("s", "s"))
	assert.True(t, errors.IsTypeMismatch(err))

	_, err = g.ProvideInstance(greeterKey, nil)
	assert.NoError(t, err)

	_, err = g.ProvideInstance(key.Key{}, 1)
	assert.True(t, errors.IsContractViolation(err))

	_, err = g.Provide(repoKey, &Member{Name: "noInvoke"})
	assert.True(t, errors.IsContractViolation(err))
}

func TestGraph_ResolveWalksAncestors(t *testing.T) {
	a := newTestAssembly(t)
	_, err := a.Root().ProvideInstance(repoKey, &repo{dsn: "root"})
	require.NoError(t, err)

	child, err := a.NewScope("child", nil)
	require.NoError(t, err)
	grandchild, err := a.NewScope("grandchild", child)
	require.NoError(t, err)

	_, ok := grandchild.Lookup(repoKey)
	assert.False(t, ok)

	s, ok := grandchild.Resolve(repoKey)
	require.True(t, ok)
	assert.Same(t, a.Root(), s.Scope())
	assert.Same(t, child, grandchild.Parent())

	own, ok := grandchild.Resolve(LocatorKey)
	require.True(t, ok)
	assert.Same(t, grandchild, own.Scope())
}

func TestGraph_Replace(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	old, err := g.Provide(stringKey, value("base", "base"))
	require.NoError(t, err)
	consumer, err := g.Provide(greeterKey, fn("newGreeter", greeterKey.Type(), func(args []any) (any, error) {
		return &greeter{greeting: args[0].(string)}, nil
	}, Required(stringKey)))
	require.NoError(t, err)

	wrapper, err := g.Replace(stringKey, fn("wrap", stringKey.Type(), func(args []any) (any, error) {
		return args[0].(string) + "+wrapped", nil
	}, Required(stringKey)))
	require.NoError(t, err)

	assert.Same(t, old, wrapper.Binding(0), "self dependency binds to the replaced provider")
	assert.Same(t, wrapper, consumer.Binding(0), "consumers move to the replacement")
	assert.Equal(t, []key.Key{stringKey, greeterKey}, g.Keys())

	mustExport(t, g, greeterKey)
	loc, err := a.Launch(context.Background())
	require.NoError(t, err)

	gr := MustResolve[*greeter](loc)
	assert.Equal(t, "base+wrapped", gr.greeting)
}

func TestGraph_ReplaceWithoutExisting(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Replace(intKey, value("seven", 7))
	require.NoError(t, err)
	assert.Equal(t, []key.Key{intKey}, g.Keys())
}

func TestGraph_ReplaceForgetsRecordedMisses(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Provide(handlerKey, newHandler())
	require.NoError(t, err)
	require.Len(t, a.Requirements(), 2)

	_, err = g.Replace(handlerKey, value("plain", &handler{}))
	require.NoError(t, err)
	assert.Empty(t, a.Requirements())
	require.NoError(t, a.Build())
}

func TestGraph_MapDropsConsumedServices(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.ProvideInstance(greeterKey, &greeter{greeting: "hi"})
	require.NoError(t, err)
	_, err = g.ProvideInstance(repoKey, &repo{dsn: "mem"})
	require.NoError(t, err)

	_, err = g.Map(handlerKey, newHandler())
	require.NoError(t, err)
	assert.Equal(t, []key.Key{handlerKey}, g.Keys())

	require.NoError(t, g.Exports().ExportAll("test"))
	loc, err := a.Launch(context.Background())
	require.NoError(t, err)

	h := MustResolve[*handler](loc)
	assert.Equal(t, "hi", h.greeter.greeting)
	assert.Equal(t, "mem", h.repo.dsn)
	assert.False(t, loc.Has(greeterKey))
}

func TestGraph_Rekey(t *testing.T) {
	fixedKey := key.Of[*fixed]()
	namerKey := key.Of[namer]()

	a := newTestAssembly(t)
	g := a.Root()
	_, err := g.ProvideInstance(fixedKey, &fixed{name: "f"})
	require.NoError(t, err)
	_, err = g.ProvideInstance(intKey, 1)
	require.NoError(t, err)

	_, err = g.Rekey(fixedKey, fixedKey)
	assert.True(t, errors.IsKeyAlreadyInUse(err))

	_, err = g.Rekey(fixedKey, intKey)
	assert.True(t, errors.IsKeyAlreadyInUse(err))

	_, err = g.Rekey(fixedKey, stringKey)
	assert.True(t, errors.IsTypeMismatch(err))

	_, err = g.Rekey(repoKey, namerKey)
	assert.True(t, errors.IsServiceNotFound(err))

	_, err = g.Rekey(LocatorKey, key.Of[any]())
	assert.True(t, errors.IsServiceNotFound(err))

	r, err := g.Rekey(fixedKey, namerKey)
	require.NoError(t, err)
	assert.Equal(t, namerKey, r.Key())
	assert.False(t, g.Has(fixedKey))
	assert.Equal(t, []key.Key{intKey, namerKey}, g.Keys())

	mustExport(t, g, namerKey)
	loc, err := a.Launch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f", MustResolve[namer](loc).Name())
}

func TestGraph_RemoveRetainRemoveIf(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()
	for _, k := range []key.Key{stringKey, intKey, repoKey, greeterKey} {
		_, err := g.ProvideInstance(k, reflect.Zero(k.Type()).Interface())
		require.NoError(t, err)
	}

	require.NoError(t, g.Remove(key.Of[float64](), LocatorKey))
	assert.Equal(t, 4, g.Len())
	assert.True(t, g.Has(LocatorKey))

	require.NoError(t, g.Remove(stringKey))
	assert.Equal(t, []key.Key{intKey, repoKey, greeterKey}, g.Keys())

	require.NoError(t, g.RemoveIf(func(k key.Key, _ Setup) bool {
		return k.Type().Kind() == reflect.Int
	}))
	assert.Equal(t, []key.Key{repoKey, greeterKey}, g.Keys())

	require.NoError(t, g.Retain(greeterKey))
	assert.Equal(t, []key.Key{greeterKey}, g.Keys())
	assert.True(t, g.Has(LocatorKey))
}

func TestGraph_RemoveForgetsRecordedMisses(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Provide(handlerKey, newHandler())
	require.NoError(t, err)
	require.NoError(t, g.Remove(handlerKey))

	assert.Empty(t, a.Requirements())
	assert.NoError(t, a.Build())
}

func TestGraph_RemoveDecoratedForgetsWrappedMisses(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Provide(handlerKey, newHandler())
	require.NoError(t, err)
	_, err = g.Decorate(handlerKey, func(v any) (any, error) { return v, nil })
	require.NoError(t, err)
	require.Len(t, a.Requirements(), 2)

	require.NoError(t, g.Remove(handlerKey))
	assert.Empty(t, a.Requirements())
	assert.NoError(t, a.Build())
}

func TestGraph_ReplaceRekeyedForgetsWrappedMisses(t *testing.T) {
	named := key.Of[*handler](key.Name("primary"))

	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Provide(handlerKey, newHandler())
	require.NoError(t, err)
	_, err = g.Rekey(handlerKey, named)
	require.NoError(t, err)
	require.Len(t, a.Requirements(), 2)

	_, err = g.Replace(named, value("plain", &handler{}))
	require.NoError(t, err)
	assert.Empty(t, a.Requirements())
	assert.NoError(t, a.Build())
}

func TestGraph_RemoveKeepsMissesOfBoundMembers(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	_, err := g.Provide(handlerKey, newHandler())
	require.NoError(t, err)
	_, err = g.Provide(stringKey, fn("describe", stringKey.Type(), func(args []any) (any, error) {
		return "handler", nil
	}, Required(handlerKey)))
	require.NoError(t, err)

	require.NoError(t, g.Remove(handlerKey))
	assert.Len(t, a.Tracker().Missing(), 2)
	assert.True(t, errors.IsUnresolvedDependency(a.Build()))
}

func TestGraph_Decorate(t *testing.T) {
	a := newTestAssembly(t)
	g := a.Root()

	calls := 0
	_, err := g.Provide(stringKey, value("base", "x"))
	require.NoError(t, err)
	consumer, err := g.Prototype(greeterKey, fn("newGreeter", greeterKey.Type(), func(args []any) (any, error) {
		return &greeter{greeting: args[0].(string)}, nil
	}, Required(stringKey)))
	require.NoError(t, err)

	d, err := g.Decorate(stringKey, func(v any) (any, error) {
		calls++
		return v.(string) + "!", nil
	})
	require.NoError(t, err)
	assert.True(t, d.Constant())
	assert.Same(t, d, consumer.Binding(0))

	_, err = g.Decorate(intKey, func(v any) (any, error) { return v, nil })
	assert.True(t, errors.IsServiceNotFound(err))

	mustExport(t, g, stringKey, greeterKey)
	loc, err := a.Launch(context.Background())
	require.NoError(t, err)

	for range 3 {
		assert.Equal(t, "x!", MustResolve[string](loc))
		assert.Equal(t, "x!", MustResolve[*greeter](loc).greeting)
	}
	assert.Equal(t, 1, calls)
}

func TestGraph_FrozenRejectsMutation(t *testing.T) {
	a := newTestAssembly(t)
	child, err := a.NewScope("child", nil)
	require.NoError(t, err)

	_, err = a.Finish(child)
	require.NoError(t, err)
	assert.True(t, child.Frozen())

	_, err = child.Provide(stringKey, value("s", "s"))
	assert.True(t, errors.IsScopeFrozen(err))
	assert.True(t, errors.IsScopeFrozen(child.Remove(stringKey)))
	assert.True(t, errors.IsScopeFrozen(child.Exports().ExportAll("late")))

	_, err = a.NewScope("grandchild", child)
	assert.True(t, errors.IsScopeFrozen(err))

	assert.False(t, a.Root().Frozen())
}

func TestGraph_ImportAll(t *testing.T) {
	first := newTestAssembly(t)
	created := 0
	_, err := first.Root().Provide(repoKey, fn("newRepo", repoKey.Type(), func([]any) (any, error) {
		created++
		return &repo{dsn: "shared"}, nil
	}))
	require.NoError(t, err)
	mustExport(t, first.Root(), repoKey)
	upstream, err := first.Launch(context.Background())
	require.NoError(t, err)

	second := newTestAssembly(t)
	g := second.Root()
	require.NoError(t, g.ImportAll(upstream))
	s, ok := g.Lookup(repoKey)
	require.True(t, ok)
	assert.IsType(t, &ExternalSetup{}, s)

	_, err = g.Provide(handlerKey, newHandler(Optional(greeterKey), Required(repoKey)))
	require.NoError(t, err)
	mustExport(t, g, handlerKey)

	loc, err := second.Launch(context.Background())
	require.NoError(t, err)
	h := MustResolve[*handler](loc)
	assert.Same(t, MustResolve[*repo](upstream), h.repo)
	assert.Nil(t, h.greeter)
	assert.Equal(t, 1, created)
}

func TestGraph_ImportAllConflict(t *testing.T) {
	first := newTestAssembly(t)
	_, err := first.Root().ProvideInstance(repoKey, &repo{})
	require.NoError(t, err)
	_, err = first.Root().ProvideInstance(intKey, 1)
	require.NoError(t, err)
	require.NoError(t, first.Root().Exports().ExportAll("test"))
	upstream, err := first.Launch(context.Background())
	require.NoError(t, err)

	second := newTestAssembly(t)
	_, err = second.Root().ProvideInstance(intKey, 2)
	require.NoError(t, err)

	err = second.Root().ImportAll(upstream)
	assert.True(t, errors.IsKeyAlreadyInUse(err))
	assert.False(t, second.Root().Has(repoKey))
}
