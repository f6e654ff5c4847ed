// Package linker implements spec §4.3: fixing execution order by DFS
// post-order, computing linked_exports (inlining re-export chains and
// `export *`), computing linked_imports (resolving each import to the
// owner module of the exported symbol and unioning symbols across module
// boundaries), and synthesizing namespace objects for `import * as ns`
// bindings that are referenced as a value rather than purely as member
// accesses.
package linker

import (
	"fmt"
	"sort"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/logger"
)

// Options controls the linker's handling of the spec's optional
// build-API knobs that affect linking (the rest of bundle.Options is
// consumed by other phases).
type Options struct {
	ShimMissingExports bool
}

type linker struct {
	g       *graph.Graph
	opts    Options
	visited map[ids.ModuleId]bool
	next    int
}

// Link runs both linker passes plus namespace synthesis over every
// module in g, mutating each NormalModule's ExecOrder, LinkedExports,
// LinkedImports, FacadeNamespaceSymbol and Parts in place. It returns
// the first fatal error encountered; per spec §7, downstream phases are
// skipped once linking fails, so Link stops at the first one rather than
// continuing to accumulate (unlike the loader).
func Link(g *graph.Graph, opts Options) error {
	l := &linker{g: g, opts: opts, visited: map[ids.ModuleId]bool{}}
	l.assignExecOrder()

	order := l.execOrdered()
	for _, m := range order {
		if err := l.linkExports(m); err != nil {
			return err
		}
	}
	for _, m := range order {
		if err := l.linkImports(m); err != nil {
			return err
		}
	}
	for _, m := range order {
		l.synthesizeNamespace(m)
	}
	return nil
}

// assignExecOrder performs the static-edge DFS post-order from every
// entry, then a second DFS from every dynamic entry (over the same
// static Dependencies edges) to cover modules reachable only through a
// dynamic import.
func (l *linker) assignExecOrder() {
	entries := append([]ids.ModuleId(nil), l.g.EntryModules...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Compare(entries[j]) < 0 })
	for _, e := range entries {
		l.dfs(e, map[ids.ModuleId]bool{})
	}

	var dynEntries []ids.ModuleId
	for _, m := range l.g.AllNormal() {
		if m.IsDynamicEntry {
			dynEntries = append(dynEntries, m.ID)
		}
	}
	sort.Slice(dynEntries, func(i, j int) bool { return dynEntries[i].Compare(dynEntries[j]) < 0 })
	for _, e := range dynEntries {
		l.dfs(e, map[ids.ModuleId]bool{})
	}

	// Anything still unreached (unreachable from any declared entry) gets
	// a stable order too, so later phases never see the sentinel value.
	for _, m := range l.g.AllNormal() {
		if !l.visited[m.ID] {
			l.dfs(m.ID, map[ids.ModuleId]bool{})
		}
	}
}

func (l *linker) dfs(id ids.ModuleId, onStack map[ids.ModuleId]bool) {
	if l.visited[id] || onStack[id] {
		return
	}
	m, ok := l.g.Normal(id)
	if !ok {
		return // external: no exec order
	}
	onStack[id] = true
	for _, dep := range m.Dependencies {
		l.dfs(dep, onStack)
	}
	delete(onStack, id)
	if !l.visited[id] {
		l.visited[id] = true
		m.ExecOrder = l.next
		l.next++
	}
}

// execOrdered returns every normal module sorted by ExecOrder ascending,
// so that a module's static dependencies are always linked before it.
func (l *linker) execOrdered() []*graph.NormalModule {
	out := l.g.AllNormal()
	sort.Slice(out, func(i, j int) bool { return out[i].ExecOrder < out[j].ExecOrder })
	return out
}

func (l *linker) missingExport(owner ids.ModuleId, name string, importer ids.ModuleId) error {
	msg := fmt.Sprintf("%q is not exported by %s", name, owner)
	l.g.Log.AddError(importer.String(), logger.MissingExport, msg)
	return fmt.Errorf("%s: %s", logger.MissingExport, msg)
}

func sortedModuleIds(m map[ids.ModuleId][]graph.ImportedSpecifier) []ids.ModuleId {
	out := make([]ids.ModuleId, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func sortedReExportKeys(m map[ids.ModuleId][]graph.ReExportedSpecifier) []ids.ModuleId {
	out := make([]ids.ModuleId, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func sortedStrings(m map[string]graph.ExportedSpecifier) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

