package scanner

import (
	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/jsast"
)

// newNamespaceMember synthesizes the `source$prop` top-level symbol a
// `ns.x` access rewrites to and records the resulting import against
// source, per spec §4.2's namespace-member rewriting rule.
func (s *scanner) newNamespaceMember(source, prop string) jsast.LocalSymID {
	sym := s.ast.NewSymbol(source+"$"+prop, true, 0)
	ref := s.internTop(sym)
	s.addImport(source, graph.ImportedSpecifier{ImportedAs: ref, Imported: prop})
	return sym
}

// rewriteNamespaceInExpr rewrites `ns.x` patterns anywhere in *e in
// place, and marks the namespace source "fully referenced" for any other
// use of a namespace-import binding.
func (s *scanner) rewriteNamespaceInExpr(e **jsast.Expr) {
	if e == nil || *e == nil {
		return
	}
	expr := *e
	switch expr.Kind {
	case jsast.EIdent:
		if src, ok := s.nsSources[expr.Sym]; ok {
			s.res.NamespaceReferencedSpecifier[src] = true
		}
	case jsast.EMember:
		if expr.Obj != nil && expr.Obj.Kind == jsast.EIdent && expr.ComputedProp == nil {
			if src, ok := s.nsSources[expr.Obj.Sym]; ok {
				newSym := s.newNamespaceMember(src, expr.Prop)
				expr.Kind = jsast.EIdent
				expr.Sym = newSym
				expr.Name = ""
				expr.Obj = nil
				expr.Prop = ""
				return
			}
		}
		s.rewriteNamespaceInExpr(&expr.Obj)
		s.rewriteNamespaceInExpr(&expr.ComputedProp)
	case jsast.ECall:
		s.rewriteNamespaceInExpr(&expr.Callee)
		for i := range expr.Args {
			s.rewriteNamespaceInExpr(&expr.Args[i])
		}
	case jsast.EBinary:
		s.rewriteNamespaceInExpr(&expr.Left)
		s.rewriteNamespaceInExpr(&expr.Right)
	case jsast.EAssign:
		s.rewriteNamespaceInExpr(&expr.Target)
		s.rewriteNamespaceInExpr(&expr.Value)
	case jsast.EAwait:
		s.rewriteNamespaceInExpr(&expr.Operand)
	}
}

// rewriteNamespaceRefs rewrites the flattened `ident . ident` token
// pattern in an opaque function or class body wherever the first ident
// names a namespace import, replacing the pair (plus the dot) with a
// single synthesized member token. It returns the rewritten token slice
// (shorter than body whenever a rewrite fired, so callers must assign
// the result back rather than mutate in place) along with the
// referenced top-level symbols and free names recomputed from it — the
// parser's original BodyRefs/BodyFreeNames may still name a namespace
// symbol that no longer appears once fully decomposed.
func (s *scanner) rewriteNamespaceRefs(body []jsast.BodyToken) (out []jsast.BodyToken, refs []ids.Ref, free []string) {
	out = make([]jsast.BodyToken, 0, len(body))
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if tok.IsIdent && tok.Sym != jsast.NoSym {
			if src, ok := s.nsSources[tok.Sym]; ok {
				if j, prop, ok2 := lookaheadMemberAccess(body, i); ok2 {
					newSym := s.newNamespaceMember(src, prop)
					out = append(out, jsast.BodyToken{Sym: newSym, IsIdent: true})
					refs = append(refs, s.internTop(newSym))
					i = j
					continue
				}
				s.res.NamespaceReferencedSpecifier[src] = true
			}
		}
		out = append(out, tok)
		if tok.IsIdent {
			if tok.Sym != jsast.NoSym {
				if s.ast.Symbol(tok.Sym).TopLevel {
					refs = append(refs, s.internTop(tok.Sym))
				}
			} else if tok.Text != "" {
				free = append(free, tok.Text)
			}
		}
	}
	return out, refs, free
}

// lookaheadMemberAccess checks whether body[i] (an identifier token) is
// immediately followed by "." ident, returning the index of the last
// consumed token and the accessed property name.
func lookaheadMemberAccess(body []jsast.BodyToken, i int) (int, string, bool) {
	j := i + 1
	for j < len(body) && body[j].Text == " " {
		j++
	}
	if j >= len(body) || body[j].Text != "." {
		return 0, "", false
	}
	j++
	for j < len(body) && body[j].Text == " " {
		j++
	}
	if j >= len(body) || !body[j].IsIdent || body[j].Sym != jsast.NoSym {
		return 0, "", false
	}
	return j, body[j].Text, true
}

// collectExprRefs walks e collecting the top-level symbols it references
// (after namespace rewriting has already run) and any free/global names.
func (s *scanner) collectExprRefs(e *jsast.Expr) (refs []ids.Ref, free []string) {
	var walk func(e *jsast.Expr)
	walk = func(e *jsast.Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case jsast.EIdent:
			if e.Sym != jsast.NoSym {
				if s.ast.Symbol(e.Sym).TopLevel {
					refs = append(refs, s.internTop(e.Sym))
				}
			} else if e.Name != "" {
				free = append(free, e.Name)
			}
		case jsast.EMember:
			walk(e.Obj)
			walk(e.ComputedProp)
		case jsast.ECall:
			walk(e.Callee)
			for _, a := range e.Args {
				walk(a)
			}
		case jsast.EBinary:
			walk(e.Left)
			walk(e.Right)
		case jsast.EAssign:
			walk(e.Target)
			walk(e.Value)
		case jsast.EAwait:
			walk(e.Operand)
		}
	}
	walk(e)
	return
}

// collectDynImports finds `import("literal")` anywhere in e and records
// each target as a dynamic dependency.
func (s *scanner) collectDynImports(e *jsast.Expr) {
	if e == nil {
		return
	}
	if e.Kind == jsast.EImportCall {
		s.addDynDependency(e.Str)
		return
	}
	switch e.Kind {
	case jsast.EMember:
		s.collectDynImports(e.Obj)
		s.collectDynImports(e.ComputedProp)
	case jsast.ECall:
		s.collectDynImports(e.Callee)
		for _, a := range e.Args {
			s.collectDynImports(a)
		}
	case jsast.EBinary:
		s.collectDynImports(e.Left)
		s.collectDynImports(e.Right)
	case jsast.EAssign:
		s.collectDynImports(e.Target)
		s.collectDynImports(e.Value)
	case jsast.EAwait:
		s.collectDynImports(e.Operand)
	}
}
