package finalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
)

// chunkFile returns the relative module specifier one chunk uses to
// import from another, given their final Filenames.
func chunkFile(from, to *graph.Chunk) string {
	if !strings.HasPrefix(to.Filename, "./") && !strings.HasPrefix(to.Filename, "../") {
		return "./" + to.Filename
	}
	return to.Filename
}

// crossChunkImport is one binding this chunk needs to pull in from
// another chunk: the remote name the declaring chunk settled on, and the
// local alias this chunk's own deconfliction pass chose for the same
// union-find root.
type crossChunkImport struct {
	remoteName string
	localName  string
}

// buildCrossChunkLinks fills in every chunk's BeforeItems (imports of
// symbols declared in another chunk, plus bare imports of chunks kept
// alive only for side effects) and AfterItems (the entry chunk's export
// clause), per spec §4.5's "cross-chunk wiring".
func buildCrossChunkLinks(g *graph.Graph, chunks []*graph.Chunk, names map[*graph.Chunk]map[ids.Ref]string, opts Options) {
	chunkOf := map[ids.ModuleId]*graph.Chunk{}
	for _, c := range chunks {
		for modID := range c.Modules {
			chunkOf[modID] = c
		}
	}

	for _, c := range chunks {
		imports := map[*graph.Chunk][]crossChunkImport{}
		externalImports := map[ids.ModuleId][]crossChunkImport{}
		seen := map[ids.Ref]bool{}

		for modID := range c.Modules {
			m, ok := g.Normal(modID)
			if !ok {
				continue
			}
			for _, p := range m.Parts {
				if !p.Included {
					continue
				}
				for _, ref := range p.Referenced {
					root := g.UnionFind.Find(ref)
					if seen[root] {
						continue
					}
					sym := g.Interner.Lookup(root)
					if sym.Scope.Module.IsExternal {
						seen[root] = true
						local := names[c][root]
						if local == "" {
							local = sym.Name
						}
						externalImports[sym.Scope.Module] = append(externalImports[sym.Scope.Module], crossChunkImport{remoteName: sym.Name, localName: local})
						continue
					}

					declarerChunk, _, ok := declaringChunk(g, chunkOf, ref)
					if !ok || declarerChunk == c {
						continue
					}
					seen[root] = true
					remote, ok := names[declarerChunk][root]
					if !ok {
						continue
					}
					local := names[c][root]
					if local == "" {
						local = remote
					}
					imports[declarerChunk] = append(imports[declarerChunk], crossChunkImport{remoteName: remote, localName: local})
				}
			}
		}

		var externs []ids.ModuleId
		for ext := range externalImports {
			externs = append(externs, ext)
		}
		sort.Slice(externs, func(i, j int) bool { return externs[i].Path < externs[j].Path })
		for _, ext := range externs {
			c.BeforeItems = append(c.BeforeItems, renderImportClause(externalImports[ext], ext.Path))
		}

		var deps []*graph.Chunk
		for dep := range imports {
			deps = append(deps, dep)
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i].ID < deps[j].ID })
		for _, dep := range deps {
			c.BeforeItems = append(c.BeforeItems, renderImportClause(imports[dep], chunkFile(c, dep)))
		}

		if c.IsUserDefinedEntry {
			c.AfterItems = append(c.AfterItems, renderEntryExports(g, c, names[c], opts)...)
		}
	}
}

// declaringChunk walks ref's union-find root and finds the chunk
// containing the module that actually declares it.
func declaringChunk(g *graph.Graph, chunkOf map[ids.ModuleId]*graph.Chunk, ref ids.Ref) (*graph.Chunk, ids.Ref, bool) {
	root := g.UnionFind.Find(ref)
	sym := g.Interner.Lookup(root)
	c, ok := chunkOf[sym.Scope.Module]
	return c, root, ok
}

func renderImportClause(items []crossChunkImport, from string) string {
	sort.Slice(items, func(i, j int) bool { return items[i].remoteName < items[j].remoteName })
	var parts []string
	for _, it := range items {
		if it.remoteName == it.localName {
			parts = append(parts, it.remoteName)
		} else {
			parts = append(parts, fmt.Sprintf("%s as %s", it.remoteName, it.localName))
		}
	}
	return fmt.Sprintf("import { %s } from %q;", strings.Join(parts, ", "), from)
}

// renderEntryExports renders the entry chunk's trailing export clause (or,
// under the cjs format, the module.exports assignment(s)) from the entry
// module's LinkedExports.
func renderEntryExports(g *graph.Graph, c *graph.Chunk, names map[ids.Ref]string, opts Options) []string {
	m, ok := g.Normal(c.Entry)
	if !ok {
		return nil
	}
	exportNames := make([]string, 0, len(m.LinkedExports))
	for name := range m.LinkedExports {
		exportNames = append(exportNames, name)
	}
	sort.Strings(exportNames)

	if opts.Format == FormatCJS {
		return renderCJSExports(g, m, exportNames, names, opts.ExportMode)
	}

	var out []string
	if len(exportNames) > 0 {
		var items []string
		for _, name := range exportNames {
			root := g.UnionFind.Find(m.LinkedExports[name].LocalID)
			local := names[root]
			if local == "" {
				continue
			}
			if local == name {
				items = append(items, local)
			} else {
				items = append(items, fmt.Sprintf("%s as %s", local, name))
			}
		}
		if len(items) > 0 {
			out = append(out, fmt.Sprintf("export { %s };", strings.Join(items, ", ")))
		}
	}
	for _, ext := range m.ExternalModulesOfReExportAll {
		out = append(out, fmt.Sprintf("export * from %q;", ext.Path))
	}
	return out
}

func renderCJSExports(g *graph.Graph, m *graph.NormalModule, exportNames []string, names map[ids.Ref]string, mode graph.ExportMode) []string {
	useDefault := mode == graph.ExportDefault || (mode == graph.ExportAuto && len(exportNames) == 1 && exportNames[0] == "default")
	localFor := func(name string) string {
		root := g.UnionFind.Find(m.LinkedExports[name].LocalID)
		return names[root]
	}
	if useDefault {
		return []string{fmt.Sprintf("module.exports = %s;", localFor("default"))}
	}
	var out []string
	for _, name := range exportNames {
		local := localFor(name)
		if local == "" {
			continue
		}
		out = append(out, fmt.Sprintf("Object.defineProperty(module.exports, %q, { enumerable: true, get: () => %s });", name, local))
	}
	return out
}
