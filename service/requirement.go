package service

import (
	"fmt"
	"strings"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/key"
)

// RequirementMode selects how unresolved dependencies are treated when the
// build is checked.
type RequirementMode uint8

const (
	// RequirementsManual fails the build on any unresolved required dependency.
	RequirementsManual RequirementMode = iota
	// RequirementsContract exposes the unresolved set for comparison against
	// a declared contract instead of failing.
	RequirementsContract
)

func (m RequirementMode) String() string {
	if m == RequirementsContract {
		return "contract"
	}
	return "manual"
}

// ParseRequirementMode parses "manual" or "contract". The empty string is manual.
func ParseRequirementMode(s string) (RequirementMode, error) {
	switch strings.ToLower(s) {
	case "", "manual":
		return RequirementsManual, nil
	case "contract":
		return RequirementsContract, nil
	}
	return RequirementsManual, errors.ErrInvalidConfig("requirements", fmt.Errorf("unknown requirement mode %q", s))
}

// Site is one injection point: a member node and a parameter position.
type Site struct {
	Node  *MemberSetup
	Index int
}

func (s Site) String() string {
	m := s.Node.member
	out := m.Signature(s.Index)
	if m.Declaring != "" {
		out += " declared by " + m.Declaring
	}
	return fmt.Sprintf("%s (parameter %d)", out, s.Index)
}

// Requirement lists every site that asked for a key that could not be found.
type Requirement struct {
	Key   key.Key
	Sites []Site
	// Optional is true when every recorded use was optional.
	Optional bool
}

type miss struct {
	site     Site
	optional bool
}

// RequirementTracker records failed lookups during graph construction.
// It is not safe for concurrent use.
type RequirementTracker struct {
	mode    RequirementMode
	entries map[key.Key][]miss
	order   []key.Key
}

func newRequirementTracker(mode RequirementMode) *RequirementTracker {
	return &RequirementTracker{
		mode:    mode,
		entries: make(map[key.Key][]miss),
	}
}

// Mode returns the tracker's requirement mode.
func (t *RequirementTracker) Mode() RequirementMode { return t.mode }

func (t *RequirementTracker) record(node *MemberSetup, index int, dep Dependency) {
	if _, ok := t.entries[dep.Key]; !ok {
		t.order = append(t.order, dep.Key)
	}
	t.entries[dep.Key] = append(t.entries[dep.Key], miss{
		site:     Site{Node: node, Index: index},
		optional: dep.Optional,
	})
}

// satisfied drops the miss recorded for one parameter.
func (t *RequirementTracker) satisfied(node *MemberSetup, index int) {
	t.filter(func(m miss) bool {
		return m.site.Node == node && m.site.Index == index
	})
}

// forget drops every miss recorded by node.
func (t *RequirementTracker) forget(node *MemberSetup) {
	t.filter(func(m miss) bool {
		return m.site.Node == node
	})
}

func (t *RequirementTracker) filter(drop func(miss) bool) {
	kept := t.order[:0]
	for _, k := range t.order {
		misses := t.entries[k]
		out := misses[:0]
		for _, m := range misses {
			if !drop(m) {
				out = append(out, m)
			}
		}
		if len(out) == 0 {
			delete(t.entries, k)
			continue
		}
		t.entries[k] = out
		kept = append(kept, k)
	}
	t.order = kept
}

// Requirements returns every unresolved key, optional ones included, in the
// order they were first observed.
func (t *RequirementTracker) Requirements() []Requirement {
	out := make([]Requirement, 0, len(t.order))
	for _, k := range t.order {
		misses := t.entries[k]
		r := Requirement{Key: k, Optional: true}
		for _, m := range misses {
			r.Sites = append(r.Sites, m.site)
			if !m.optional {
				r.Optional = false
			}
		}
		out = append(out, r)
	}
	return out
}

// Missing returns only the requirements with at least one required use.
func (t *RequirementTracker) Missing() []Requirement {
	var out []Requirement
	for _, r := range t.Requirements() {
		if r.Optional {
			continue
		}
		var required []Site
		for _, m := range t.entries[r.Key] {
			if !m.optional {
				required = append(required, m.site)
			}
		}
		r.Sites = required
		out = append(out, r)
	}
	return out
}

// CheckForMissingDependencies fails with one aggregated error listing every
// unresolved required dependency and each site requesting it. In contract
// mode it never fails; use Requirements instead.
func (t *RequirementTracker) CheckForMissingDependencies() error {
	if t.mode == RequirementsContract {
		return nil
	}
	missing := t.Missing()
	if len(missing) == 0 {
		return nil
	}

	entries := make([]errors.Entry, len(missing))
	for i, r := range missing {
		sites := make([]string, len(r.Sites))
		for j, s := range r.Sites {
			sites[j] = s.String()
		}
		entries[i] = errors.Entry{Key: r.Key.String(), Sites: sites}
	}
	return errors.ErrAggregate(errors.CodeUnresolvedDependency,
		fmt.Sprintf("%d required dependencies could not be resolved:", len(missing)),
		entries)
}
