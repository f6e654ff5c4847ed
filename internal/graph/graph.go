package graph

import (
	"sync"

	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/logger"
)

// Graph is the module registry keyed by ModuleId. It holds the
// union-find over symbols, the warnings sink, and the entry list, per
// spec §3's "Graph" component.
type Graph struct {
	Interner  *ids.Interner
	UnionFind *ids.UnionFind
	Log       *logger.Log

	mu        sync.RWMutex
	normal    map[ids.ModuleId]*NormalModule
	external  map[ids.ModuleId]*ExternalModule

	EntryModules []ids.ModuleId
	// EntryGlobs maps a raw (pre-expansion) glob specifier to the entries
	// it expanded to. New allocates it empty and the build pipeline does
	// not fill it in; bundle.Build reports a glob that matches nothing
	// through its own warning instead.
	EntryGlobs map[string][]ids.ModuleId
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		Interner:   ids.NewInterner(),
		UnionFind:  ids.NewUnionFind(1024),
		Log:        logger.New(),
		normal:     make(map[ids.ModuleId]*NormalModule),
		external:   make(map[ids.ModuleId]*ExternalModule),
		EntryGlobs: make(map[string][]ids.ModuleId),
	}
}

// AddNormal installs a normal module. Safe for concurrent use; intended
// to be called only by the Loader's single owner thread, per spec §5.
func (g *Graph) AddNormal(m *NormalModule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.normal[m.ID] = m
}

// AddExternal installs (or returns the existing) external module record.
func (g *Graph) AddExternal(id ids.ModuleId) *ExternalModule {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.external[id]; ok {
		return e
	}
	tag := ids.ScopeTag{Module: id, Seq: ids.TopLevelSeq}
	e := NewExternalModule(id, tag)
	g.external[id] = e
	return e
}

// Normal looks up a normal module by id.
func (g *Graph) Normal(id ids.ModuleId) (*NormalModule, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.normal[id]
	return m, ok
}

// External looks up an external module by id.
func (g *Graph) External(id ids.ModuleId) (*ExternalModule, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.external[id]
	return e, ok
}

// Has reports whether id has already been installed as either a normal
// or an external module — the Loader's "seen" check.
func (g *Graph) Has(id ids.ModuleId) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.normal[id]; ok {
		return true
	}
	_, ok := g.external[id]
	return ok
}

// AllNormal returns every normal module, in deterministic ModuleId
// order.
func (g *Graph) AllNormal() []*NormalModule {
	g.mu.RLock()
	defer g.mu.RUnlock()
	order := SortedModuleIds(g.normal)
	out := make([]*NormalModule, 0, len(order))
	for _, id := range order {
		out = append(out, g.normal[id])
	}
	return out
}

// Len returns the number of normal modules currently installed.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.normal)
}
