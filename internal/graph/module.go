// Package graph holds the module registry: NormalModule and
// ExternalModule records, the Chunk records produced by the splitter, and
// the Graph that owns them plus the shared union-find and warnings sink.
package graph

import (
	"sort"
	"sync"

	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/jsast"
)

// UnresolvedExecOrder is the sentinel exec_order value for a module the
// Linker has not yet visited.
const UnresolvedExecOrder = -1

// ImportedSpecifier records one binding M imports from some importee:
// `imported_as` is the local symbol M's own code refers to, `imported` is
// the exported name being requested ("*" for a namespace import).
type ImportedSpecifier struct {
	ImportedAs ids.Ref
	Imported   string
}

// ExportedSpecifier is what a module textually (or, after linking,
// transitively) exports under a given name.
type ExportedSpecifier struct {
	ExportedAs string
	LocalID    ids.Ref
	Owner      ids.ModuleId
}

// ReExportedSpecifier is one named re-export: `export { imported as
// exported_as } from "...".`
type ReExportedSpecifier struct {
	ExportedAs string
	Imported   string
}

// StatementPart is the tree-shake unit: one top-level statement's
// declared set, referenced set, and side-effect flag.
type StatementPart struct {
	Stmt       *jsast.Stmt
	Declared   []ids.Ref
	Referenced []ids.Ref
	SideEffect bool

	// Included is set by the tree-shaker. It is not read until the
	// tree-shake phase has finished, so it needs no synchronization.
	Included bool
}

// ExportMode controls how an entry chunk's exports are rendered under the
// cjs output format.
type ExportMode uint8

const (
	ExportAuto ExportMode = iota
	ExportNamed
	ExportDefault
	ExportNone
)

// NormalModule is a module the bundler read and parsed, as specified in
// spec §3.
type NormalModule struct {
	ID               ids.ModuleId
	ExecOrder        int
	TopLevelScopeTag ids.ScopeTag
	AST              *jsast.AST

	Dependencies    []ids.ModuleId
	DynDependencies []ids.ModuleId

	// DynImportSpecifiers maps each raw import() literal text this module
	// contains to the ModuleId the Loader resolved it to, so the
	// Finalizer can rewrite the literal to the owning chunk's filename
	// without re-running resolution.
	DynImportSpecifiers map[string]ids.ModuleId

	Imports        map[ids.ModuleId][]ImportedSpecifier
	LocalExports   map[string]ExportedSpecifier
	ReExportedIDs  map[ids.ModuleId][]ReExportedSpecifier
	ReExportAll    []ids.ModuleId

	LinkedImports map[ids.ModuleId][]ImportedSpecifier
	LinkedExports map[string]ExportedSpecifier

	// SymbolRefs maps every top-level jsast.LocalSymID this module's own
	// AST declares (including synthesized default/namespace/ns$member
	// symbols minted by the Scanner or the Linker) to its interned
	// ids.Ref. The Finalizer's per-module NameOf callback goes through
	// this map to resolve a LocalSymID to the chunk's deconflicted final
	// name.
	SymbolRefs map[jsast.LocalSymID]ids.Ref

	FacadeNamespaceSymbol ids.Ref
	IsNamespaceReferenced bool

	ExternalModulesOfReExportAll []ids.ModuleId

	Parts []*StatementPart

	IsUserDefinedEntry bool
	IsDynamicEntry     bool

	SuggestedNames map[string]string

	// DeclaredScopedNames and VisitedGlobalNames feed deconfliction: the
	// former are non-top-level names, the latter are free global names
	// the module references. Both are reserved so that no chunk-level
	// final name reuses them; the scoped names themselves are never
	// renamed.
	DeclaredScopedNames []string
	VisitedGlobalNames  []string
}

// NewNormalModule allocates a module with its maps initialized and its
// exec order marked unresolved.
func NewNormalModule(id ids.ModuleId) *NormalModule {
	return &NormalModule{
		ID:                  id,
		ExecOrder:           UnresolvedExecOrder,
		Imports:             make(map[ids.ModuleId][]ImportedSpecifier),
		LocalExports:        make(map[string]ExportedSpecifier),
		ReExportedIDs:       make(map[ids.ModuleId][]ReExportedSpecifier),
		LinkedImports:       make(map[ids.ModuleId][]ImportedSpecifier),
		LinkedExports:       make(map[string]ExportedSpecifier),
		SuggestedNames:      make(map[string]string),
		SymbolRefs:          make(map[jsast.LocalSymID]ids.Ref),
		DynImportSpecifiers: make(map[string]ids.ModuleId),
	}
}

// ExternalModule is a module the bundler never reads, only references.
type ExternalModule struct {
	ID               ids.ModuleId
	TopLevelScopeTag ids.ScopeTag

	mu      sync.Mutex
	Exports map[string]ids.Ref
}

// NewExternalModule allocates an external module record.
func NewExternalModule(id ids.ModuleId, scope ids.ScopeTag) *ExternalModule {
	return &ExternalModule{ID: id, TopLevelScopeTag: scope, Exports: make(map[string]ids.Ref)}
}

// ExportSymbol returns the fresh top-level symbol standing in for name on
// this external module, creating it on first request so that multiple
// importers of the same external name unify to one symbol.
func (e *ExternalModule) ExportSymbol(interner *ids.Interner, name string) ids.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.Exports[name]; ok {
		return r
	}
	r := interner.Intern(ids.Symbol{Name: name, Scope: e.TopLevelScopeTag})
	e.Exports[name] = r
	return r
}

// SortedModuleIds returns ids sorted by ids.ModuleId.Compare, used
// wherever the spec demands deterministic iteration order.
func SortedModuleIds(in map[ids.ModuleId]*NormalModule) []ids.ModuleId {
	out := make([]ids.ModuleId, 0, len(in))
	for id := range in {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
