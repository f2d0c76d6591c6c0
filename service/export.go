package service

import (
	"fmt"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/key"
)

type exportRequest struct {
	key    key.Key // key looked up in the scope
	as     key.Key // key exported under
	target Setup   // set when the provider was bound at declaration time
	site   string
}

func (r *exportRequest) describe() string {
	if r.key == r.as {
		return r.site
	}
	return fmt.Sprintf("%s (exports %s as %s)", r.site, r.key, r.as)
}

// ExportManager collects the export declarations of one scope and resolves
// them once the scope is complete. It is not safe for concurrent use.
type ExportManager struct {
	graph    *Graph
	requests []*exportRequest
	allSite  string
	all      bool
	resolved bool

	out *Exports
	err error
}

func newExportManager(g *Graph) *ExportManager {
	return &ExportManager{graph: g}
}

// ExportService exports an already registered node. A zero as exports it
// under its own key.
func (m *ExportManager) ExportService(s Setup, as key.Key, site string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if s == nil {
		return errors.ErrContractViolation("cannot export a nil service")
	}
	if as.IsZero() {
		as = s.Key()
	}
	m.requests = append(m.requests, &exportRequest{key: s.Key(), as: as, target: s, site: site})
	return nil
}

// ExportKey exports whatever the scope provides for k once it finishes
// building. A zero as exports it under k.
func (m *ExportManager) ExportKey(k, as key.Key, site string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if as.IsZero() {
		as = k
	}
	m.requests = append(m.requests, &exportRequest{key: k, as: as, site: site})
	return nil
}

// ExportAll exports every non-private service of the scope under its own key.
func (m *ExportManager) ExportAll(site string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.all = true
	m.allSite = site
	return nil
}

func (m *ExportManager) checkOpen() error {
	if m.resolved || m.graph.finished {
		return errors.ErrScopeFrozen(m.graph.name, "declare exports")
	}
	return nil
}

// Resolve runs once. It returns the ordered export map together with an
// error aggregating every unresolved and every duplicate export. The map
// holds the exports that did resolve even when the error is non-nil.
func (m *ExportManager) Resolve() (*Exports, error) {
	if m.resolved {
		return nil, errors.ErrContractViolation("exports of scope '" + m.graph.name + "' were already resolved")
	}
	return m.result()
}

// result resolves on first use and returns the cached outcome afterwards.
func (m *ExportManager) result() (*Exports, error) {
	if m.resolved {
		return m.out, m.err
	}
	m.resolved = true

	out := newExports()
	unresolved := newRequestIndex()
	duplicates := newRequestIndex()
	owners := make(map[key.Key]*exportRequest)
	exported := make(map[Setup]bool)

	add := func(r *exportRequest) {
		if duplicates.has(r.as) {
			duplicates.add(r.as, r)
			return
		}
		if prev, ok := owners[r.as]; ok {
			duplicates.add(r.as, prev)
			duplicates.add(r.as, r)
			out.remove(r.as)
			delete(owners, r.as)
			return
		}
		owners[r.as] = r
		exported[r.target] = true
		out.put(r.as, &ExportedSetup{
			base:   base{key: r.as, scope: m.graph},
			target: r.target,
			site:   r.site,
		})
	}

	for _, r := range m.requests {
		if r.target == nil {
			s, ok := m.graph.services[r.key]
			if !ok {
				unresolved.add(r.key, r)
				continue
			}
			r.target = s
		}
		add(r)
	}

	if m.all {
		for _, k := range m.graph.keys(false) {
			s := m.graph.services[k]
			if exported[s] {
				continue
			}
			add(&exportRequest{key: k, as: k, target: s, site: m.allSite})
		}
	}

	var errs []error
	if unresolved.len() > 0 {
		errs = append(errs, errors.ErrAggregate(errors.CodeUnresolvedExport,
			fmt.Sprintf("%d exports of scope '%s' could not be resolved:", unresolved.len(), m.graph.name),
			unresolved.entries()))
	}
	if duplicates.len() > 0 {
		errs = append(errs, errors.ErrAggregate(errors.CodeDuplicateExport,
			fmt.Sprintf("%d keys of scope '%s' are exported more than once:", duplicates.len(), m.graph.name),
			duplicates.entries()))
	}

	m.graph.assembly.logger.Info("resolved exports",
		logger.Scope(m.graph.name),
		logger.Int("exports", out.Len()),
		logger.Int("unresolved", unresolved.len()),
		logger.Int("duplicates", duplicates.len()))

	m.out, m.err = out, errors.Join(errs...)
	return m.out, m.err
}

type requestIndex struct {
	order []key.Key
	byKey map[key.Key][]*exportRequest
}

func newRequestIndex() *requestIndex {
	return &requestIndex{byKey: make(map[key.Key][]*exportRequest)}
}

func (i *requestIndex) has(k key.Key) bool {
	_, ok := i.byKey[k]
	return ok
}

func (i *requestIndex) add(k key.Key, r *exportRequest) {
	if !i.has(k) {
		i.order = append(i.order, k)
	}
	i.byKey[k] = append(i.byKey[k], r)
}

func (i *requestIndex) len() int { return len(i.order) }

func (i *requestIndex) entries() []errors.Entry {
	out := make([]errors.Entry, len(i.order))
	for n, k := range i.order {
		reqs := i.byKey[k]
		sites := make([]string, len(reqs))
		for j, r := range reqs {
			sites[j] = r.describe()
		}
		out[n] = errors.Entry{Key: k.String(), Sites: sites}
	}
	return out
}

// Exports is the immutable, ordered result of export resolution.
type Exports struct {
	keys    []key.Key
	entries map[key.Key]*ExportedSetup
}

func newExports() *Exports {
	return &Exports{entries: make(map[key.Key]*ExportedSetup)}
}

func (e *Exports) put(k key.Key, s *ExportedSetup) {
	e.keys = append(e.keys, k)
	e.entries[k] = s
}

func (e *Exports) remove(k key.Key) {
	delete(e.entries, k)
	for i, existing := range e.keys {
		if existing == k {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			return
		}
	}
}

// Keys returns the exported keys in declaration order.
func (e *Exports) Keys() []key.Key {
	out := make([]key.Key, len(e.keys))
	copy(out, e.keys)
	return out
}

// Get returns the export registered under k.
func (e *Exports) Get(k key.Key) (*ExportedSetup, bool) {
	s, ok := e.entries[k]
	return s, ok
}

// Len returns the number of exports.
func (e *Exports) Len() int { return len(e.keys) }

// Range calls fn for each export in order until fn returns false.
func (e *Exports) Range(fn func(k key.Key, s *ExportedSetup) bool) {
	for _, k := range e.keys {
		if !fn(k, e.entries[k]) {
			return
		}
	}
}

func (e *Exports) setups() map[key.Key]Setup {
	out := make(map[key.Key]Setup, len(e.entries))
	for k, s := range e.entries {
		out[k] = s
	}
	return out
}
