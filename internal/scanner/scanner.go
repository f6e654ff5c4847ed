// Package scanner implements the per-module scan pass of spec §4.2: a
// single traversal of one already-parsed jsast.AST that collects imports,
// local exports, re-exports, dynamic-import targets, anonymous-default
// naming, namespace-member rewriting, and the StatementPart sequence the
// tree-shaker consumes.
package scanner

import (
	"fmt"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/jsast"
)

// Result is everything the Scanner produces for one module, keyed by raw
// specifier string where a dependency's resolved ModuleId isn't known
// yet (the Resolver only runs after the scan finishes, per spec §4.1).
type Result struct {
	TopLevelScopeTag ids.ScopeTag

	Dependencies    []string // static, source order, de-duplicated
	DynDependencies []string

	ImportsBySpecifier           map[string][]graph.ImportedSpecifier
	LocalExports                 map[string]graph.ExportedSpecifier
	ReExportedBySpecifier        map[string][]graph.ReExportedSpecifier
	ReExportAllSpecifiers        []string
	NamespaceReferencedSpecifier map[string]bool

	SuggestedNames      map[string]string
	DeclaredScopedNames []string
	VisitedGlobalNames  []string

	Parts []*graph.StatementPart

	// SymbolRefs maps every top-level jsast.LocalSymID this module
	// declares (including synthesized default/namespace/ns$member
	// symbols) to its interned ids.Ref.
	SymbolRefs map[jsast.LocalSymID]ids.Ref
}

type scanner struct {
	ast      *jsast.AST
	moduleID ids.ModuleId
	topTag   ids.ScopeTag
	interner *ids.Interner

	nsSources map[jsast.LocalSymID]string // namespace-import local sym -> source specifier

	res *Result

	depSeen    map[string]bool
	dynDepSeen map[string]bool
	exportSeen map[string]bool
}

// Scan runs the scanner over ast, which must already have gone through
// jsast.Parse for moduleID. interner is the build-wide symbol table;
// every top-level symbol this module declares is interned against it
// before Scan returns.
func Scan(ast *jsast.AST, moduleID ids.ModuleId, interner *ids.Interner) (*Result, error) {
	s := &scanner{
		ast:      ast,
		moduleID: moduleID,
		topTag:   ids.ScopeTag{Module: moduleID, Seq: ids.TopLevelSeq},
		interner: interner,
		nsSources: map[jsast.LocalSymID]string{},
		depSeen:    map[string]bool{},
		dynDepSeen: map[string]bool{},
		exportSeen: map[string]bool{},
		res: &Result{
			ImportsBySpecifier:           map[string][]graph.ImportedSpecifier{},
			LocalExports:                 map[string]graph.ExportedSpecifier{},
			ReExportedBySpecifier:        map[string][]graph.ReExportedSpecifier{},
			NamespaceReferencedSpecifier: map[string]bool{},
			SuggestedNames:               map[string]string{},
			SymbolRefs:                   map[jsast.LocalSymID]ids.Ref{},
		},
	}
	s.res.TopLevelScopeTag = s.topTag

	// First pass: record every namespace-import binding so member-access
	// rewriting can recognize uses of it anywhere in the module.
	for _, stmt := range ast.Stmts {
		if stmt.Kind == jsast.SImport {
			for _, spec := range stmt.ImportSpecs {
				if spec.Imported == "*" {
					s.nsSources[spec.Local] = stmt.ImportSource
				}
			}
		}
	}

	for _, stmt := range ast.Stmts {
		if err := s.statement(stmt); err != nil {
			return nil, err
		}
	}

	for i, sym := range ast.Symbols {
		if i == 0 {
			continue
		}
		if !sym.TopLevel {
			s.res.DeclaredScopedNames = append(s.res.DeclaredScopedNames, sym.Name)
		}
	}

	return s.res, nil
}

func (s *scanner) internTop(id jsast.LocalSymID) ids.Ref {
	if id == jsast.NoSym {
		return ids.NilRef
	}
	if r, ok := s.res.SymbolRefs[id]; ok {
		return r
	}
	name := s.ast.Symbol(id).Name
	r := s.interner.Intern(ids.Symbol{Name: name, Scope: s.topTag})
	s.res.SymbolRefs[id] = r
	return r
}

func (s *scanner) addDependency(specifier string) {
	if specifier == "" || s.depSeen[specifier] {
		return
	}
	s.depSeen[specifier] = true
	s.res.Dependencies = append(s.res.Dependencies, specifier)
}

func (s *scanner) addDynDependency(specifier string) {
	if specifier == "" || s.dynDepSeen[specifier] {
		return
	}
	s.dynDepSeen[specifier] = true
	s.res.DynDependencies = append(s.res.DynDependencies, specifier)
}

func (s *scanner) addImport(specifier string, spec graph.ImportedSpecifier) {
	s.addDependency(specifier)
	s.res.ImportsBySpecifier[specifier] = append(s.res.ImportsBySpecifier[specifier], spec)
}

func (s *scanner) addLocalExport(name string, localID jsast.LocalSymID) error {
	if _, dup := s.exportSeen[name]; dup {
		return fmt.Errorf("duplicate export %q in %s", name, s.moduleID)
	}
	s.exportSeen[name] = true
	s.res.LocalExports[name] = graph.ExportedSpecifier{
		ExportedAs: name,
		LocalID:    s.internTop(localID),
		Owner:      s.moduleID,
	}
	return nil
}

func (s *scanner) statement(stmt *jsast.Stmt) error {
	switch stmt.Kind {
	case jsast.SImport:
		return s.scanImport(stmt)
	case jsast.SExportDefault:
		return s.scanExportDefault(stmt)
	case jsast.SExportDecl:
		return s.scanExportDecl(stmt)
	case jsast.SExportClause:
		return s.scanExportClause(stmt)
	case jsast.SExportAll:
		return s.scanExportAll(stmt)
	case jsast.SVarDecl:
		return s.scanVarDecl(stmt, false)
	case jsast.SFunctionDecl, jsast.SClassDecl:
		return s.scanDecl(stmt, false)
	case jsast.SExprStmt:
		return s.scanExprStmt(stmt)
	}
	return nil
}

func (s *scanner) scanImport(stmt *jsast.Stmt) error {
	s.addDependency(stmt.ImportSource)
	var declared []ids.Ref
	for _, spec := range stmt.ImportSpecs {
		ref := s.internTop(spec.Local)
		declared = append(declared, ref)
		s.addImport(stmt.ImportSource, graph.ImportedSpecifier{ImportedAs: ref, Imported: spec.Imported})
	}
	s.res.Parts = append(s.res.Parts, &graph.StatementPart{
		Stmt:       stmt,
		Declared:   declared,
		SideEffect: len(stmt.ImportSpecs) == 0,
	})
	return nil
}

func (s *scanner) scanExportDefault(stmt *jsast.Stmt) error {
	sym := s.ast.NewSymbol("default", true, 0)
	stmt.DefaultSym = sym
	ref := s.internTop(sym)
	if stmt.DefaultSuggested != "" {
		s.res.SuggestedNames["default"] = stmt.DefaultSuggested
	}
	if err := s.addLocalExport("default", sym); err != nil {
		return err
	}

	var referenced []ids.Ref
	switch stmt.DefaultKind {
	case "function", "class":
		body, refs, free := s.rewriteNamespaceRefs(stmt.Body)
		stmt.Body = body
		referenced = refs
		s.res.VisitedGlobalNames = append(s.res.VisitedGlobalNames, free...)
	default:
		s.rewriteNamespaceInExpr(&stmt.DefaultExpr)
		refs, free := s.collectExprRefs(stmt.DefaultExpr)
		referenced = refs
		s.res.VisitedGlobalNames = append(s.res.VisitedGlobalNames, free...)
	}

	s.res.Parts = append(s.res.Parts, &graph.StatementPart{
		Stmt:       stmt,
		Declared:   []ids.Ref{ref},
		Referenced: referenced,
		SideEffect: false,
	})
	return nil
}

func (s *scanner) scanExportDecl(stmt *jsast.Stmt) error {
	inner := stmt.Decl
	switch inner.Kind {
	case jsast.SVarDecl:
		if err := s.scanVarDecl(inner, true); err != nil {
			return err
		}
	case jsast.SFunctionDecl, jsast.SClassDecl:
		if err := s.scanDecl(inner, true); err != nil {
			return err
		}
	}
	// scanVarDecl/scanDecl already appended inner's StatementPart; the
	// wrapping `export` keyword has no separate runtime effect.
	return nil
}

func (s *scanner) scanVarDecl(stmt *jsast.Stmt, exported bool) error {
	var declared, referenced []ids.Ref
	pure := true
	for _, d := range stmt.VarDecls {
		ref := s.internTop(d.Sym)
		declared = append(declared, ref)
		if exported {
			if err := s.addLocalExport(d.Name, d.Sym); err != nil {
				return err
			}
		}
		if d.Init != nil {
			s.rewriteNamespaceInExpr(&d.Init)
			s.collectDynImports(d.Init)
			refs, free := s.collectExprRefs(d.Init)
			referenced = append(referenced, refs...)
			s.res.VisitedGlobalNames = append(s.res.VisitedGlobalNames, free...)
			if !isPureExpr(d.Init) {
				pure = false
			}
		}
	}
	s.res.Parts = append(s.res.Parts, &graph.StatementPart{
		Stmt:       stmt,
		Declared:   declared,
		Referenced: referenced,
		SideEffect: !pure,
	})
	return nil
}

func (s *scanner) scanDecl(stmt *jsast.Stmt, exported bool) error {
	ref := s.internTop(stmt.Sym)
	if exported {
		if err := s.addLocalExport(stmt.Name, stmt.Sym); err != nil {
			return err
		}
	}
	body, refs, free := s.rewriteNamespaceRefs(stmt.Body)
	stmt.Body = body
	referenced := refs
	s.res.VisitedGlobalNames = append(s.res.VisitedGlobalNames, free...)
	s.res.Parts = append(s.res.Parts, &graph.StatementPart{
		Stmt:       stmt,
		Declared:   []ids.Ref{ref},
		Referenced: referenced,
		SideEffect: false,
	})
	return nil
}

func (s *scanner) scanExportClause(stmt *jsast.Stmt) error {
	if stmt.ExportSource == "" {
		for i, item := range stmt.ExportItems {
			if err := s.addLocalExport(item.ExportedAs, item.LocalSym); err != nil {
				return err
			}
			_ = i
		}
	} else {
		s.addDependency(stmt.ExportSource)
		for _, item := range stmt.ExportItems {
			s.res.ReExportedBySpecifier[stmt.ExportSource] = append(
				s.res.ReExportedBySpecifier[stmt.ExportSource],
				graph.ReExportedSpecifier{ExportedAs: item.ExportedAs, Imported: item.Local},
			)
		}
	}
	s.res.Parts = append(s.res.Parts, &graph.StatementPart{Stmt: stmt})
	return nil
}

func (s *scanner) scanExportAll(stmt *jsast.Stmt) error {
	s.addDependency(stmt.ExportAllSource)
	if stmt.ExportAllAs != "" {
		// `export * as ns from "./a"` exports only the single namespace
		// binding ns — unlike a bare `export * from`, it never re-exports
		// ./a's individual named members, so it must not feed
		// ReExportAllSpecifiers (which linkExportAll treats as "merge every
		// name from this source into my own exports").
		s.res.NamespaceReferencedSpecifier[stmt.ExportAllSource] = true
		ref := s.internTop(stmt.ExportAllSym)
		if err := s.addLocalExport(stmt.ExportAllAs, stmt.ExportAllSym); err != nil {
			return err
		}
		s.res.Parts = append(s.res.Parts, &graph.StatementPart{Stmt: stmt, Declared: []ids.Ref{ref}})
		return nil
	}
	s.res.ReExportAllSpecifiers = append(s.res.ReExportAllSpecifiers, stmt.ExportAllSource)
	s.res.Parts = append(s.res.Parts, &graph.StatementPart{Stmt: stmt})
	return nil
}

func (s *scanner) scanExprStmt(stmt *jsast.Stmt) error {
	s.rewriteNamespaceInExpr(&stmt.Expr)
	s.collectDynImports(stmt.Expr)
	refs, free := s.collectExprRefs(stmt.Expr)
	s.res.VisitedGlobalNames = append(s.res.VisitedGlobalNames, free...)
	s.res.Parts = append(s.res.Parts, &graph.StatementPart{
		Stmt:       stmt,
		Referenced: refs,
		SideEffect: true,
	})
	return nil
}

func isPureExpr(e *jsast.Expr) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case jsast.ENumber, jsast.EString, jsast.EIdent:
		return true
	case jsast.EBinary:
		return isPureExpr(e.Left) && isPureExpr(e.Right)
	default:
		return false
	}
}
