package linker

import (
	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
)

// linkExports implements the "Link exports" pass of spec §4.3 for one
// module, assuming every module with a lower ExecOrder has already run
// through this pass.
func (l *linker) linkExports(m *graph.NormalModule) error {
	for name, spec := range m.LocalExports {
		m.LinkedExports[name] = spec
	}

	for _, importeeID := range sortedReExportKeys(m.ReExportedIDs) {
		for _, spec := range m.ReExportedIDs[importeeID] {
			if importeeID.IsExternal {
				ext := l.g.AddExternal(importeeID)
				sym := l.g.Interner.Intern(ids.Symbol{Name: spec.ExportedAs, Scope: m.TopLevelScopeTag})
				extSym := ext.ExportSymbol(l.g.Interner, spec.Imported)
				l.g.UnionFind.Union(sym, extSym)
				m.LinkedImports[importeeID] = append(m.LinkedImports[importeeID],
					graph.ImportedSpecifier{ImportedAs: sym, Imported: spec.Imported})
				m.LinkedExports[spec.ExportedAs] = graph.ExportedSpecifier{
					ExportedAs: spec.ExportedAs, LocalID: sym, Owner: m.ID,
				}
				continue
			}
			importee, ok := l.g.Normal(importeeID)
			if !ok {
				return l.missingExport(importeeID, spec.Imported, m.ID)
			}
			es, ok := importee.LinkedExports[spec.Imported]
			if !ok {
				return l.missingExport(importeeID, spec.Imported, m.ID)
			}
			m.LinkedExports[spec.ExportedAs] = graph.ExportedSpecifier{
				ExportedAs: spec.ExportedAs, LocalID: es.LocalID, Owner: es.Owner,
			}
		}
	}

	l.linkExportAll(m)
	return nil
}

type reExportAllCandidate struct {
	spec     graph.ExportedSpecifier
	conflict bool
}

// linkExportAll folds every `export * from "..."` source into
// m.LinkedExports, per the merge rule of spec §4.3: default is always
// excluded, an explicit export of the same name always wins, and a name
// reachable via two different `export *` sources with different owning
// ExportedSpecifiers is dropped rather than arbitrarily picked.
func (l *linker) linkExportAll(m *graph.NormalModule) {
	merged := map[string]*reExportAllCandidate{}
	seenSub := map[string]bool{}
	for _, id := range m.ReExportAll {
		seenSub[id.String()] = true
	}

	for _, importeeID := range m.ReExportAll {
		if importeeID.IsExternal {
			m.ExternalModulesOfReExportAll = append(m.ExternalModulesOfReExportAll, importeeID)
			continue
		}
		importee, ok := l.g.Normal(importeeID)
		if !ok {
			continue
		}
		for _, name := range sortedStrings(importee.LinkedExports) {
			if name == "default" {
				continue
			}
			if _, explicit := m.LinkedExports[name]; explicit {
				continue
			}
			es := importee.LinkedExports[name]
			if c, exists := merged[name]; exists {
				if c.spec != es {
					c.conflict = true
				}
			} else {
				merged[name] = &reExportAllCandidate{spec: es}
			}
		}
		for _, sub := range importee.ReExportAll {
			if !seenSub[sub.String()] {
				seenSub[sub.String()] = true
				m.ReExportAll = append(m.ReExportAll, sub)
			}
		}
		m.ExternalModulesOfReExportAll = append(m.ExternalModulesOfReExportAll, importee.ExternalModulesOfReExportAll...)
	}

	for _, name := range sortedStrings(toExportMap(merged)) {
		if merged[name].conflict {
			continue
		}
		m.LinkedExports[name] = merged[name].spec
	}
}

func toExportMap(m map[string]*reExportAllCandidate) map[string]graph.ExportedSpecifier {
	out := make(map[string]graph.ExportedSpecifier, len(m))
	for k, v := range m {
		out[k] = v.spec
	}
	return out
}
