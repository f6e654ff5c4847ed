package jsast

import (
	"fmt"
	"strconv"
	"strings"
)

// PrintOptions controls how Print renders a Stmt list.
type PrintOptions struct {
	// NameOf resolves a symbol's final display name. When it returns ""
	// the symbol's original parsed name is used — that's the right
	// behavior both before finalization (no renames yet) and for a
	// symbol the deconflicter dropped because it didn't survive
	// tree-shaking (it shouldn't be printed at all in that case, so
	// callers are expected to have pruned it first).
	NameOf func(sym LocalSymID) string

	// SkipImportsExports strips import/export declarations, which is
	// what scope hoisting calls for once identifiers have been unified
	// by the union-find: every reference already points straight at its
	// defining symbol, so the statements that used to wire them together
	// are redundant.
	SkipImportsExports bool

	// RewriteImportCall rewrites a dynamic import() target to the
	// filename of the chunk that split point ended up in.
	RewriteImportCall func(specifier string) (rewritten string, ok bool)
}

// Print renders ast's statements back to source text.
func Print(ast *AST, stmts []*Stmt, opts PrintOptions) string {
	p := &printer{ast: ast, opts: opts}
	for _, s := range stmts {
		p.stmt(s)
	}
	return p.b.String()
}

type printer struct {
	b    strings.Builder
	ast  *AST
	opts PrintOptions
}

func (p *printer) name(sym LocalSymID) string {
	if sym == NoSym {
		return ""
	}
	if p.opts.NameOf != nil {
		if n := p.opts.NameOf(sym); n != "" {
			return n
		}
	}
	return p.ast.Symbol(sym).Name
}

func (p *printer) stmt(s *Stmt) {
	switch s.Kind {
	case SImport:
		if p.opts.SkipImportsExports {
			return
		}
		p.printImport(s)
	case SExportDefault:
		if p.opts.SkipImportsExports {
			p.printDefaultBinding(s)
			return
		}
		p.b.WriteString("export default ")
		p.printDefaultValue(s)
		p.b.WriteString(";\n")
	case SExportDecl:
		if !p.opts.SkipImportsExports {
			p.b.WriteString("export ")
		}
		p.stmt(s.Decl)
	case SExportClause, SExportAll:
		if !p.opts.SkipImportsExports {
			p.printExportClauseOrAll(s)
		}
		// Hoisted: nothing to print — bindings already unified.
	case SVarDecl:
		p.printVarDecl(s)
	case SFunctionDecl:
		p.b.WriteString("function " + p.name(s.Sym) + " ")
		p.printBody(s.Body)
		p.b.WriteString("\n")
	case SClassDecl:
		p.b.WriteString("class " + p.name(s.Sym) + " ")
		p.printBody(s.Body)
		p.b.WriteString("\n")
	case SExprStmt:
		p.expr(s.Expr)
		p.b.WriteString(";\n")
	case SNamespaceSynth:
		p.printNamespaceSynth(s)
	}
}

func (p *printer) printImport(s *Stmt) {
	if len(s.ImportSpecs) == 0 {
		fmt.Fprintf(&p.b, "import %q;\n", s.ImportSource)
		return
	}
	p.b.WriteString("import ")
	for i, spec := range s.ImportSpecs {
		if i > 0 {
			p.b.WriteString(", ")
		}
		switch spec.Imported {
		case "default":
			p.b.WriteString(p.name(spec.Local))
		case "*":
			p.b.WriteString("* as " + p.name(spec.Local))
		default:
			if spec.Imported == p.name(spec.Local) {
				p.b.WriteString("{ " + spec.Imported + " }")
			} else {
				p.b.WriteString("{ " + spec.Imported + " as " + p.name(spec.Local) + " }")
			}
		}
	}
	fmt.Fprintf(&p.b, " from %q;\n", s.ImportSource)
}

func (p *printer) printExportClauseOrAll(s *Stmt) {
	if s.Kind == SExportAll {
		if s.ExportAllAs != "" {
			fmt.Fprintf(&p.b, "export * as %s from %q;\n", p.name(s.ExportAllSym), s.ExportAllSource)
		} else {
			fmt.Fprintf(&p.b, "export * from %q;\n", s.ExportAllSource)
		}
		return
	}
	p.b.WriteString("export {")
	for i, it := range s.ExportItems {
		if i > 0 {
			p.b.WriteString(",")
		}
		local := it.Local
		if it.LocalSym != NoSym {
			local = p.name(it.LocalSym)
		}
		if local == it.ExportedAs {
			fmt.Fprintf(&p.b, " %s", local)
		} else {
			fmt.Fprintf(&p.b, " %s as %s", local, it.ExportedAs)
		}
	}
	p.b.WriteString(" }")
	if s.ExportSource != "" {
		fmt.Fprintf(&p.b, " from %q", s.ExportSource)
	}
	p.b.WriteString(";\n")
}

func (p *printer) printDefaultBinding(s *Stmt) {
	switch s.DefaultKind {
	case "function":
		p.b.WriteString("function " + p.name(s.DefaultSym) + " ")
		p.printBody(s.Body)
		p.b.WriteString("\n")
	case "class":
		p.b.WriteString("class " + p.name(s.DefaultSym) + " ")
		p.printBody(s.Body)
		p.b.WriteString("\n")
	default:
		p.b.WriteString("var " + p.name(s.DefaultSym) + " = ")
		p.expr(s.DefaultExpr)
		p.b.WriteString(";\n")
	}
}

func (p *printer) printDefaultValue(s *Stmt) {
	switch s.DefaultKind {
	case "function":
		p.b.WriteString("function " + s.Name + " ")
		p.printBody(s.Body)
	case "class":
		p.b.WriteString("class " + s.Name + " ")
		p.printBody(s.Body)
	default:
		p.expr(s.DefaultExpr)
	}
}

func (p *printer) printBody(body []BodyToken) {
	for _, tok := range body {
		if tok.Sym != NoSym {
			p.b.WriteString(p.name(tok.Sym))
		} else {
			p.b.WriteString(tok.Text)
		}
	}
}

func (p *printer) printVarDecl(s *Stmt) {
	p.b.WriteString(s.VarKind + " ")
	for i, d := range s.VarDecls {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(p.name(d.Sym))
		if d.Init != nil {
			p.b.WriteString(" = ")
			p.expr(d.Init)
		}
	}
	p.b.WriteString(";\n")
}

func (p *printer) printNamespaceSynth(s *Stmt) {
	fmt.Fprintf(&p.b, "var %s = ", p.name(s.NamespaceSym))
	if len(s.MergeExternal) > 0 {
		p.b.WriteString("_mergeNamespaces({")
		p.namespaceEntries(s.NamespaceEntries)
		p.b.WriteString("}, [")
		for i, sym := range s.MergeExternal {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(p.name(sym))
		}
		p.b.WriteString("]);\n")
		return
	}
	p.b.WriteString("Object.freeze({ __proto__: null, ")
	p.namespaceEntries(s.NamespaceEntries)
	p.b.WriteString(" });\n")
}

func (p *printer) namespaceEntries(entries []NamespaceEntry) {
	for i, e := range entries {
		if i > 0 {
			p.b.WriteString(", ")
		}
		fmt.Fprintf(&p.b, "%s: () => %s", e.ExportedAs, p.name(e.LocalSym))
	}
}

func (p *printer) expr(e *Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case EIdent:
		p.b.WriteString(p.identName(e))
	case ENumber:
		p.b.WriteString(strconv.FormatFloat(e.Num, 'g', -1, 64))
	case EString:
		fmt.Fprintf(&p.b, "%q", e.Str)
	case EMember:
		p.expr(e.Obj)
		if e.ComputedProp != nil {
			p.b.WriteString("[")
			p.expr(e.ComputedProp)
			p.b.WriteString("]")
		} else {
			p.b.WriteString("." + e.Prop)
		}
	case ECall:
		p.expr(e.Callee)
		p.b.WriteString("(")
		for i, a := range e.Args {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(a)
		}
		p.b.WriteString(")")
	case EBinary:
		p.expr(e.Left)
		p.b.WriteString(" " + e.Op + " ")
		p.expr(e.Right)
	case EAssign:
		p.expr(e.Target)
		p.b.WriteString(" = ")
		p.expr(e.Value)
	case EAwait:
		p.b.WriteString("await ")
		p.expr(e.Operand)
	case EImportCall:
		if p.opts.RewriteImportCall != nil {
			if rewritten, ok := p.opts.RewriteImportCall(e.Str); ok {
				fmt.Fprintf(&p.b, "import(%q)", rewritten)
				return
			}
		}
		fmt.Fprintf(&p.b, "import(%q)", e.Str)
	}
}

func (p *printer) identName(e *Expr) string {
	if e.Sym != NoSym {
		return p.name(e.Sym)
	}
	return e.Name
}
