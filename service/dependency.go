package service

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/key"
)

// Dependency describes one injection point: the key requested and whether
// the consumer tolerates its absence.
type Dependency struct {
	Key      key.Key
	Optional bool
}

// Required returns a mandatory dependency on k.
func Required(k key.Key) Dependency {
	return Dependency{Key: k}
}

// Optional returns a dependency on k that resolves to nil when absent.
func Optional(k key.Key) Dependency {
	return Dependency{Key: k, Optional: true}
}

func (d Dependency) String() string {
	if d.Optional {
		return d.Key.String() + " (optional)"
	}
	return d.Key.String()
}

// Invoker calls a constructor, factory or method with resolved arguments.
// Arguments for absent optional dependencies are nil.
type Invoker func(args []any) (any, error)

// Member is an invocable provider: a constructor, factory function or method
// together with the dependencies of its parameters.
type Member struct {
	// Name is the constructor, function or method name.
	Name string
	// Declaring names the package or type declaring the member.
	Declaring string
	// Params lists one dependency per parameter, in order.
	Params []Dependency
	// Result is the produced type, when known.
	Result reflect.Type
	// Invoke produces the value.
	Invoke Invoker
}

// Signature renders the member with its parameter list. When missing is a
// valid parameter index that slot is bracketed.
func (m *Member) Signature(missing int) string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		s := p.Key.String()
		if i == missing {
			s = "[" + s + "]"
		}
		parts[i] = s
	}
	return m.Name + "(" + strings.Join(parts, ", ") + ")"
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FuncMember builds a Member from a Go function returning T or (T, error).
// Parameter dependencies default to the unqualified, required keys of the
// parameter types; pass params to qualify or relax them.
func FuncMember(fn any, params ...Dependency) (*Member, error) {
	return funcMember(key.DefaultRegistry(), fn, params)
}

func funcMember(reg *key.Registry, fn any, params []Dependency) (*Member, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, errors.ErrContractViolation(fmt.Sprintf("member must be a non-nil function, got %T", fn))
	}
	t := v.Type()

	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, errors.ErrContractViolation(fmt.Sprintf("member %s must return T or (T, error)", t))
	}
	if t.IsVariadic() {
		return nil, errors.ErrContractViolation(fmt.Sprintf("member %s must not be variadic", t))
	}

	if len(params) == 0 && t.NumIn() > 0 {
		params = make([]Dependency, t.NumIn())
		for i := range params {
			k, err := reg.FromParameter(t, i)
			if err != nil {
				return nil, err
			}
			params[i] = Required(k)
		}
	}
	if len(params) != t.NumIn() {
		return nil, errors.ErrContractViolation(fmt.Sprintf("member %s takes %d parameters, %d dependencies given", t, t.NumIn(), len(params)))
	}

	name, declaring := funcName(v)
	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}

	return &Member{
		Name:      name,
		Declaring: declaring,
		Params:    params,
		Result:    t.Out(0),
		Invoke: func(args []any) (any, error) {
			callArgs := make([]reflect.Value, len(args))
			for i, a := range args {
				if a == nil {
					callArgs[i] = reflect.Zero(in[i])
					continue
				}
				callArgs[i] = reflect.ValueOf(a)
			}
			out := v.Call(callArgs)
			if len(out) == 2 && !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			return out[0].Interface(), nil
		},
	}, nil
}

// funcName splits the runtime symbol of fn into its name and declaring package.
func funcName(v reflect.Value) (string, string) {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return v.Type().String(), ""
	}
	full := f.Name()
	slash := strings.LastIndex(full, "/")
	dot := strings.Index(full[slash+1:], ".")
	if dot < 0 {
		return full, ""
	}
	dot += slash + 1
	return full[dot+1:], full[:dot]
}

// Bean is a component produced elsewhere in the build whose instance is
// handed to the graph as is.
type Bean interface {
	BeanName() string
	Instance(lc *LaunchContext) (any, error)
}

type beanFunc struct {
	name    string
	produce func(lc *LaunchContext) (any, error)
}

func (b *beanFunc) BeanName() string { return b.name }

func (b *beanFunc) Instance(lc *LaunchContext) (any, error) { return b.produce(lc) }

// NewBean adapts a function into a Bean.
func NewBean(name string, produce func(lc *LaunchContext) (any, error)) Bean {
	return &beanFunc{name: name, produce: produce}
}
