// Package splitter implements spec §4.4's Code Splitter: one chunk per
// static entry, one per dynamic entry, then a dynamic-entry dedup pass
// and a common-chunk extraction loop run to quiescence.
package splitter

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
)

// Split computes chunk membership for every normal module in g. cwd is
// used to derive chunk ids from entry module paths.
func Split(g *graph.Graph, cwd string) []*graph.Chunk {
	var chunks []*graph.Chunk

	for _, entryID := range orderedEntries(g) {
		m, ok := g.Normal(entryID)
		if !ok {
			continue
		}
		c := graph.NewChunk(chunkID(cwd, entryID.Path), entryID)
		c.IsUserDefinedEntry = m.IsUserDefinedEntry
		c.IsDynamicEntry = m.IsDynamicEntry
		pullSubtree(g, entryID, c)
		chunks = append(chunks, c)
	}

	dedupDynamicEntries(chunks)
	chunks = extractCommonChunksUntilQuiescent(g, cwd, chunks)

	recordSplitPoints(g, chunks)
	return chunks
}

// orderedEntries returns every static entry (in declared order) followed
// by every dynamic entry (sorted by ModuleId, for determinism — dynamic
// entries have no declared order of their own).
func orderedEntries(g *graph.Graph) []ids.ModuleId {
	out := append([]ids.ModuleId(nil), g.EntryModules...)
	seen := map[ids.ModuleId]bool{}
	for _, id := range out {
		seen[id] = true
	}
	var dyn []ids.ModuleId
	for _, m := range g.AllNormal() {
		if m.IsDynamicEntry && !seen[m.ID] {
			dyn = append(dyn, m.ID)
		}
	}
	sort.Slice(dyn, func(i, j int) bool { return dyn[i].Compare(dyn[j]) < 0 })
	return append(out, dyn...)
}

// pullSubtree adds every module reachable from root over static
// Dependencies into c.
func pullSubtree(g *graph.Graph, root ids.ModuleId, c *graph.Chunk) {
	if c.Contains(root) {
		return
	}
	m, ok := g.Normal(root)
	if !ok {
		return
	}
	c.Add(root)
	for _, dep := range m.Dependencies {
		pullSubtree(g, dep, c)
	}
}

// dedupDynamicEntries removes each dynamic entry module (and only that
// module, not its transitive dependencies) from every chunk other than
// its own — spec §4.4's dedup rule.
func dedupDynamicEntries(chunks []*graph.Chunk) {
	for _, c := range chunks {
		if !c.IsDynamicEntry {
			continue
		}
		for _, other := range chunks {
			if other == c {
				continue
			}
			other.Remove(c.Entry)
		}
	}
}

// extractCommonChunksUntilQuiescent repeatedly finds a module shared by
// two or more chunks and promotes it to the root of a new common chunk,
// pulling its reachable static subtree out of every chunk that used to
// contain it, until no module is shared.
func extractCommonChunksUntilQuiescent(g *graph.Graph, cwd string, chunks []*graph.Chunk) []*graph.Chunk {
	for {
		shared := firstSharedModule(chunks)
		if shared == (ids.ModuleId{}) {
			return chunks
		}
		common := graph.NewChunk(chunkID(cwd, shared.Path)+"_common", shared)
		pullSubtree(g, shared, common)
		for _, c := range chunks {
			for modID := range common.Modules {
				c.Remove(modID)
			}
		}
		chunks = append(chunks, common)
	}
}

// firstSharedModule returns the lexicographically smallest ModuleId
// currently present in two or more chunks, or the zero ModuleId if none
// is shared.
func firstSharedModule(chunks []*graph.Chunk) ids.ModuleId {
	count := map[ids.ModuleId]int{}
	for _, c := range chunks {
		for modID := range c.Modules {
			count[modID]++
		}
	}
	var found []ids.ModuleId
	for id, n := range count {
		if n >= 2 {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		return ids.ModuleId{}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Compare(found[j]) < 0 })
	return found[0]
}

// recordSplitPoints fills in each chunk's SplitPointModuleToChunk: for
// every dynamic-import target, the id of the chunk it ended up in. The
// Finalizer's import() rewrite does not use this record.
func recordSplitPoints(g *graph.Graph, chunks []*graph.Chunk) {
	chunkOf := map[ids.ModuleId]*graph.Chunk{}
	for _, c := range chunks {
		for modID := range c.Modules {
			chunkOf[modID] = c
		}
	}
	for _, m := range g.AllNormal() {
		for _, dynID := range m.DynDependencies {
			target, ok := chunkOf[dynID]
			if !ok {
				continue
			}
			owner, ok := chunkOf[m.ID]
			if !ok {
				continue
			}
			owner.SplitPointModuleToChunk[dynID] = target.ID
		}
	}
}

// chunkID derives a chunk id from the entry's path relative to cwd, with
// its extension stripped and path separators mapped to "_".
func chunkID(cwd, path string) string {
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = strings.ReplaceAll(rel, string(filepath.Separator), "_")
	rel = strings.ReplaceAll(rel, "/", "_")
	return rel
}
