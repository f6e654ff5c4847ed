package linker

import (
	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/jsast"
)

// synthesizeNamespace implements spec §4.3's "Namespace synthesis": a
// module whose IsNamespaceReferenced is true gets a new top-level
// statement, appended to its own AST, that binds its facade namespace
// symbol to a frozen object of getters (or, if it re-exports any
// external module wholesale, a call to the _mergeNamespaces runtime
// helper). The new statement is expressed as an ordinary jsast.Stmt so
// the existing printer/rename machinery renders it like any other
// declaration; its LocalSymIDs are fresh symbols private to m's AST,
// bridged to their true (possibly cross-module) owner via m.SymbolRefs.
func (l *linker) synthesizeNamespace(m *graph.NormalModule) {
	if !m.IsNamespaceReferenced {
		return
	}
	if m.FacadeNamespaceSymbol == ids.NilRef {
		m.FacadeNamespaceSymbol = l.g.Interner.Intern(ids.Symbol{Name: "*", Scope: m.TopLevelScopeTag})
	}

	nsLocal := m.AST.NewSymbol("*", true, 0)
	m.SymbolRefs[nsLocal] = m.FacadeNamespaceSymbol

	names := sortedStrings(m.LinkedExports)
	entries := make([]jsast.NamespaceEntry, 0, len(names))
	referenced := make([]ids.Ref, 0, len(names)+len(m.ExternalModulesOfReExportAll))
	for _, name := range names {
		if name == "default" {
			continue
		}
		es := m.LinkedExports[name]
		local := m.AST.NewSymbol(name, true, 0)
		m.SymbolRefs[local] = es.LocalID
		entries = append(entries, jsast.NamespaceEntry{ExportedAs: name, LocalSym: local})
		referenced = append(referenced, es.LocalID)
	}

	var mergeExternal []jsast.LocalSymID
	for _, extID := range m.ExternalModulesOfReExportAll {
		ext := l.g.AddExternal(extID)
		local := m.AST.NewSymbol(extID.Path, true, 0)
		nsSym := ext.ExportSymbol(l.g.Interner, "*")
		m.SymbolRefs[local] = nsSym
		mergeExternal = append(mergeExternal, local)
		referenced = append(referenced, nsSym)
	}

	stmt := &jsast.Stmt{
		Kind:             jsast.SNamespaceSynth,
		NamespaceSym:     nsLocal,
		NamespaceEntries: entries,
		MergeExternal:    mergeExternal,
	}
	m.AST.Stmts = append(m.AST.Stmts, stmt)
	m.Parts = append(m.Parts, &graph.StatementPart{
		Stmt:       stmt,
		Declared:   []ids.Ref{m.FacadeNamespaceSymbol},
		Referenced: referenced,
		SideEffect: false,
	})
}
