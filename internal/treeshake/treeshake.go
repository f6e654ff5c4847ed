// Package treeshake implements spec §4.6: from every entry module,
// recursively mark the StatementParts whose declared symbols are
// reachable or which carry a side effect; every Symbol that survives is
// "live", and the Chunk Finalizer drops everything else when it
// concatenates module bodies.
package treeshake

import (
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
)

type importOwner struct {
	owner ids.ModuleId
	name  string
}

type declSite struct {
	m *graph.NormalModule
	p *graph.StatementPart
}

type shaker struct {
	g *graph.Graph

	declaredBy  map[ids.Ref][]declSite
	importedVia map[ids.Ref]importOwner

	included map[ids.ModuleId]*atomic.Bool
	partGate map[*graph.StatementPart]*atomic.Bool
	defined  sync.Map // ids.Ref -> struct{}
}

// Shake runs tree-shake marking to quiescence. The Finalizer's
// Concatenation step reads the Included flag unconditionally, so a build
// that disables tree-shaking has to set it some other way: bundle.Build's
// treeshake=false path does not call Shake at all and marks every part
// included directly, matching spec §8's "Round-trip" invariant.
func Shake(g *graph.Graph) {
	s := &shaker{
		g:           g,
		declaredBy:  map[ids.Ref][]declSite{},
		importedVia: map[ids.Ref]importOwner{},
		included:    map[ids.ModuleId]*atomic.Bool{},
		partGate:    map[*graph.StatementPart]*atomic.Bool{},
	}

	modules := g.AllNormal()
	for _, m := range modules {
		s.included[m.ID] = new(atomic.Bool)
		for _, p := range m.Parts {
			s.partGate[p] = new(atomic.Bool)
			for _, ref := range p.Declared {
				s.declaredBy[ref] = append(s.declaredBy[ref], declSite{m: m, p: p})
			}
		}
		for ownerID, specs := range m.LinkedImports {
			for _, spec := range specs {
				s.importedVia[spec.ImportedAs] = importOwner{owner: ownerID, name: spec.Imported}
			}
		}
	}

	var wg conc.WaitGroup
	for _, m := range modules {
		if m.IsUserDefinedEntry || m.IsDynamicEntry {
			m := m
			wg.Go(func() { s.include(m, true) })
		}
	}
	wg.Wait()
}

// include marks m "included": every side-effect StatementPart runs
// regardless of isEntry. Only an entry module (spec §4.6 rule 1) has
// every symbol it exports defined unconditionally — a module reached as
// an ordinary static dependency has none of its exports assumed live;
// whichever of its bindings an importer actually references flows in
// through that importer's own define() calls, so an unreferenced named
// export of a dependency is genuinely dropped. Per the resolved Open
// Question (DESIGN.md #2), every module m statically depends on is
// still itself included — transitively reachable side-effect code
// always runs, whether or not anything in it is referenced by name.
func (s *shaker) include(m *graph.NormalModule, isEntry bool) {
	if !s.included[m.ID].CompareAndSwap(false, true) {
		return
	}
	for _, p := range m.Parts {
		if p.SideEffect {
			s.includePart(p)
		}
	}
	if isEntry {
		for _, es := range m.LinkedExports {
			s.define(es.LocalID)
		}
	}
	for _, dep := range m.Dependencies {
		if dm, ok := s.g.Normal(dep); ok {
			s.include(dm, false)
		}
	}
}

func (s *shaker) includePart(p *graph.StatementPart) {
	if !s.partGate[p].CompareAndSwap(false, true) {
		return
	}
	p.Included = true
	for _, ref := range p.Referenced {
		s.define(ref)
	}
}

// define marks Symbol ref live, recursing into whatever StatementPart(s)
// declare it — or, if ref was introduced by an import, into the owner
// module's declaration of the name the import resolved to (spec §4.3
// already redirected every import to its terminal owner, so no further
// re-export chain walk is needed here).
func (s *shaker) define(ref ids.Ref) {
	if ref == ids.NilRef {
		return
	}
	if _, loaded := s.defined.LoadOrStore(ref, struct{}{}); loaded {
		return
	}
	if via, ok := s.importedVia[ref]; ok {
		owner, ok := s.g.Normal(via.owner)
		if !ok {
			return // external: nothing further to mark
		}
		if es, ok := owner.LinkedExports[via.name]; ok {
			s.define(es.LocalID)
		}
		return
	}
	for _, d := range s.declaredBy[ref] {
		s.includePart(d.p)
	}
}
