package commands

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/xraph/graft"
	"github.com/xraph/graft/key"
)

// Manifest describes a tree of scopes whose services are named strings.
type Manifest struct {
	Root ScopeSpec `yaml:"root"`
}

// ScopeSpec declares one scope.
type ScopeSpec struct {
	Name     string        `yaml:"name"`
	Values   []ValueSpec   `yaml:"values"`
	Services []ServiceSpec `yaml:"services"`
	Rekey    []RekeySpec   `yaml:"rekey"`
	Remove   []string      `yaml:"remove"`
	Exports  []ExportSpec  `yaml:"exports"`
	Scopes   []ScopeSpec   `yaml:"scopes"`
}

// ValueSpec is a constant string.
type ValueSpec struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// ServiceSpec is a string rendered from its dependencies. Each {name} in the
// template is replaced with the value of that dependency and {#} with the
// number of invocations in the current launch.
type ServiceSpec struct {
	Name      string   `yaml:"name"`
	Template  string   `yaml:"template"`
	Requires  []string `yaml:"requires"`
	Optional  []string `yaml:"optional"`
	Prototype bool     `yaml:"prototype"`
	Replace   bool     `yaml:"replace"`
}

// RekeySpec renames a service.
type RekeySpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ExportSpec exports a service, optionally under another name. The name
// "*" exports every service of the scope.
type ExportSpec struct {
	Name string `yaml:"name"`
	As   string `yaml:"as"`
}

// UnmarshalYAML accepts both a plain name and the mapping form.
func (e *ExportSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Name = node.Value
		return nil
	}
	type plain ExportSpec
	return node.Decode((*plain)(e))
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest, rejecting unknown fields.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if m.Root.Name == "" {
		m.Root.Name = "root"
	}
	return &m, nil
}

func serviceKey(name string) key.Key {
	return key.Of[string](key.Name(name))
}

// Assemble registers every scope of the manifest on a new assembly.
func (m *Manifest) Assemble(opts ...graft.Option) (*graft.Assembly, error) {
	opts = append(opts, graft.WithRootName(m.Root.Name))
	a, err := graft.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := m.Root.apply(a, a.Root()); err != nil {
		return nil, err
	}
	return a, nil
}

func (s ScopeSpec) apply(a *graft.Assembly, g *graft.Graph) error {
	for _, v := range s.Values {
		if _, err := g.ProvideInstance(serviceKey(v.Name), v.Value); err != nil {
			return fmt.Errorf("scope %s: value %s: %w", s.Name, v.Name, err)
		}
	}

	for _, svc := range s.Services {
		m := svc.member()
		k := serviceKey(svc.Name)
		var err error
		switch {
		case svc.Replace:
			_, err = g.Replace(k, m)
		case svc.Prototype:
			_, err = g.Prototype(k, m)
		default:
			_, err = g.Provide(k, m)
		}
		if err != nil {
			return fmt.Errorf("scope %s: service %s: %w", s.Name, svc.Name, err)
		}
	}

	for _, r := range s.Rekey {
		if _, err := g.Rekey(serviceKey(r.From), serviceKey(r.To)); err != nil {
			return fmt.Errorf("scope %s: rekey %s: %w", s.Name, r.From, err)
		}
	}

	removed := make([]key.Key, len(s.Remove))
	for i, name := range s.Remove {
		removed[i] = serviceKey(name)
	}
	if err := g.Remove(removed...); err != nil {
		return err
	}

	for _, child := range s.Scopes {
		cg, err := a.NewScope(child.Name, g)
		if err != nil {
			return err
		}
		if err := child.apply(a, cg); err != nil {
			return err
		}
	}

	for i, e := range s.Exports {
		site := fmt.Sprintf("%s exports[%d]", s.Name, i)
		if e.Name == "*" {
			if err := g.Exports().ExportAll(site); err != nil {
				return err
			}
			continue
		}
		var as key.Key
		if e.As != "" {
			as = serviceKey(e.As)
		}
		if err := g.Exports().ExportKey(serviceKey(e.Name), as, site); err != nil {
			return err
		}
	}
	return nil
}

func (svc ServiceSpec) member() *graft.Member {
	names := make([]string, 0, len(svc.Requires)+len(svc.Optional))
	params := make([]graft.Dependency, 0, cap(names))
	for _, n := range svc.Requires {
		names = append(names, n)
		params = append(params, graft.Required(serviceKey(n)))
	}
	for _, n := range svc.Optional {
		names = append(names, n)
		params = append(params, graft.Optional(serviceKey(n)))
	}

	tmpl := svc.Template
	counted := strings.Contains(tmpl, "{#}")
	if counted {
		params = append(params, graft.Required(graft.LocatorKey))
	}

	var launches sync.Map // launch id -> *atomic.Int64
	return &graft.Member{
		Name:      svc.Name,
		Declaring: "manifest",
		Params:    params,
		Result:    reflect.TypeOf(""),
		Invoke: func(args []any) (any, error) {
			pairs := make([]string, 0, 2*len(args)+2)
			if counted {
				loc, ok := args[len(args)-1].(*graft.Locator)
				if !ok {
					return nil, fmt.Errorf("service %s: scope locator unavailable", svc.Name)
				}
				args = args[:len(args)-1]
				c, _ := launches.LoadOrStore(loc.Launch().ID(), new(atomic.Int64))
				pairs = append(pairs, "{#}", fmt.Sprint(c.(*atomic.Int64).Add(1)))
			}
			for i, arg := range args {
				s, _ := arg.(string)
				pairs = append(pairs, "{"+names[i]+"}", s)
			}
			return strings.NewReplacer(pairs...).Replace(tmpl), nil
		},
	}
}

// sortedNames returns the qualifier names of string keys, in order.
func sortedNames(keys []key.Key) []string {
	var out []string
	for _, k := range keys {
		out = append(out, displayName(k))
	}
	sort.Strings(out)
	return out
}

func displayName(k key.Key) string {
	for _, q := range k.Qualifiers() {
		if n, ok := q.(key.Named); ok {
			return n.Name
		}
	}
	return k.String()
}
