package service

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/graft/key"
)

type (
	greeter struct{ greeting string }
	repo    struct{ dsn string }
	handler struct {
		greeter *greeter
		repo    *repo
	}
	namer interface{ Name() string }
	fixed struct{ name string }
)

func (f *fixed) Name() string { return f.name }

var (
	stringKey  = key.Of[string]()
	intKey     = key.Of[int]()
	greeterKey = key.Of[*greeter]()
	repoKey    = key.Of[*repo]()
	handlerKey = key.Of[*handler]()
)

func newTestAssembly(t *testing.T, opts ...Option) *Assembly {
	t.Helper()
	a, err := NewAssembly(opts...)
	require.NoError(t, err)
	return a
}

// fn builds a member named name producing a value of type result.
func fn(name string, result reflect.Type, invoke Invoker, params ...Dependency) *Member {
	return &Member{
		Name:      name,
		Declaring: "app",
		Params:    params,
		Result:    result,
		Invoke:    invoke,
	}
}

// value builds a member without parameters that always returns v.
func value(name string, v any) *Member {
	return fn(name, reflect.TypeOf(v), func([]any) (any, error) { return v, nil })
}

func newHandler(params ...Dependency) *Member {
	if len(params) == 0 {
		params = []Dependency{Required(greeterKey), Required(repoKey)}
	}
	return fn("newHandler", handlerKey.Type(), func(args []any) (any, error) {
		h := &handler{}
		if args[0] != nil {
			h.greeter = args[0].(*greeter)
		}
		if args[1] != nil {
			h.repo = args[1].(*repo)
		}
		return h, nil
	}, params...)
}

func recoverError(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	f()
	return nil
}

func mustExport(t *testing.T, g *Graph, keys ...key.Key) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, g.Exports().ExportKey(k, key.Key{}, "test"))
	}
}
