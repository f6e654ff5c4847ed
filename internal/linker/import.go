package linker

import (
	"fmt"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/logger"
)

// linkImports implements the "Link imports" pass of spec §4.3 for one
// module: every import is unioned with the symbol that actually declares
// it, and redirected to that symbol's owner rather than the nominal
// importee.
func (l *linker) linkImports(m *graph.NormalModule) error {
	for _, importeeID := range sortedModuleIds(m.Imports) {
		for _, spec := range m.Imports[importeeID] {
			if importeeID.IsExternal {
				ext := l.g.AddExternal(importeeID)
				sym := ext.ExportSymbol(l.g.Interner, spec.Imported)
				l.g.UnionFind.Union(sym, spec.ImportedAs)
				m.LinkedImports[importeeID] = append(m.LinkedImports[importeeID],
					graph.ImportedSpecifier{ImportedAs: spec.ImportedAs, Imported: spec.Imported})
				continue
			}

			importee, ok := l.g.Normal(importeeID)
			if !ok {
				return l.missingExport(importeeID, spec.Imported, m.ID)
			}

			if es, ok := importee.LinkedExports[spec.Imported]; ok {
				l.g.UnionFind.Union(es.LocalID, spec.ImportedAs)
				m.LinkedImports[es.Owner] = append(m.LinkedImports[es.Owner],
					graph.ImportedSpecifier{ImportedAs: spec.ImportedAs, Imported: es.ExportedAs})
				continue
			}

			if len(importee.ExternalModulesOfReExportAll) > 0 {
				l.g.Log.AddWarning(m.ID.String(), logger.AmbiguousExternalNamespaces,
					fmt.Sprintf("%q is not statically exported by %s; assuming it comes from a re-exported external module", spec.Imported, importeeID))
				extID := importee.ExternalModulesOfReExportAll[0]
				ext := l.g.AddExternal(extID)
				extSym := ext.ExportSymbol(l.g.Interner, spec.Imported)
				ownerSym := l.g.Interner.Intern(ids.Symbol{Name: spec.Imported, Scope: importee.TopLevelScopeTag})
				l.g.UnionFind.Union(extSym, ownerSym)
				importee.LinkedExports[spec.Imported] = graph.ExportedSpecifier{
					ExportedAs: spec.Imported, LocalID: ownerSym, Owner: importeeID,
				}
				l.g.UnionFind.Union(spec.ImportedAs, ownerSym)
				m.LinkedImports[importeeID] = append(m.LinkedImports[importeeID],
					graph.ImportedSpecifier{ImportedAs: spec.ImportedAs, Imported: spec.Imported})
				continue
			}

			if l.opts.ShimMissingExports {
				l.g.Log.AddWarning(m.ID.String(), logger.ShimmedExport,
					fmt.Sprintf("shimming missing export %q of %s", spec.Imported, importeeID))
				shimSym := l.g.Interner.Intern(ids.Symbol{Name: spec.Imported, Scope: importee.TopLevelScopeTag})
				importee.LinkedExports[spec.Imported] = graph.ExportedSpecifier{
					ExportedAs: spec.Imported, LocalID: shimSym, Owner: importeeID,
				}
				l.g.UnionFind.Union(spec.ImportedAs, shimSym)
				m.LinkedImports[importeeID] = append(m.LinkedImports[importeeID],
					graph.ImportedSpecifier{ImportedAs: spec.ImportedAs, Imported: spec.Imported})
				continue
			}

			return l.missingExport(importeeID, spec.Imported, m.ID)
		}
	}
	return nil
}
