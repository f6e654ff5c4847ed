package jsast

import "fmt"

// Parse turns source into an AST. It implements the pragmatic ESM subset
// documented on the package; see DESIGN.md for what it deliberately
// doesn't support.
func Parse(source string) (*AST, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, ast: NewAST()}
	p.pushScope()
	defer p.popScope()
	for !p.at(tEOF, "") {
		stmt, err := p.parseTopStmt()
		if err != nil {
			return nil, err
		}
		p.ast.Stmts = append(p.ast.Stmts, stmt)
	}
	return p.ast, nil
}

type parser struct {
	toks []token
	pos  int
	ast  *AST

	scopes     []map[string]LocalSymID
	scopeSeqes []uint32
	nextSeq    uint32
}

func (p *parser) pushScope() {
	seq := uint32(0)
	if len(p.scopes) > 0 {
		p.nextSeq++
		seq = p.nextSeq
	}
	p.scopes = append(p.scopes, map[string]LocalSymID{})
	p.scopeSeqes = append(p.scopeSeqes, seq)
}

func (p *parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
	p.scopeSeqes = p.scopeSeqes[:len(p.scopeSeqes)-1]
}

func (p *parser) topLevel() bool { return len(p.scopes) == 1 }

// declare introduces name as a new binding in the current scope.
func (p *parser) declare(name string) LocalSymID {
	top := p.topLevel()
	seq := p.scopeSeqes[len(p.scopeSeqes)-1]
	sym := p.ast.NewSymbol(name, top, seq)
	p.scopes[len(p.scopes)-1][name] = sym
	return sym
}

// resolve looks name up from the innermost scope outward. It returns
// NoSym if name isn't bound anywhere, meaning it's a free/global
// reference.
func (p *parser) resolve(name string) LocalSymID {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if sym, ok := p.scopes[i][name]; ok {
			return sym
		}
	}
	return NoSym
}

func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		return token{kind: tEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.cur()
	if t.kind != kind {
		return false
	}
	return text == "" || t.text == text
}

func (p *parser) atKeyword(kw string) bool { return p.at(tKeyword, kw) }
func (p *parser) atPunct(pp string) bool   { return p.at(tPunct, pp) }

func (p *parser) advance() token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(pp string) error {
	if !p.atPunct(pp) {
		return fmt.Errorf("expected %q, got %q at token %d", pp, p.cur().text, p.pos)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.cur().kind != tIdent {
		return "", fmt.Errorf("expected identifier, got %q", p.cur().text)
	}
	return p.advance().text, nil
}

// skipSemi consumes an optional trailing ';'.
func (p *parser) skipSemi() {
	if p.atPunct(";") {
		p.advance()
	}
}

func (p *parser) parseTopStmt() (*Stmt, error) {
	switch {
	case p.atKeyword("import"):
		return p.parseImport()
	case p.atKeyword("export"):
		return p.parseExport()
	case p.atKeyword("const"), p.atKeyword("let"), p.atKeyword("var"):
		s, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		p.skipSemi()
		return s, nil
	case p.atKeyword("function"):
		return p.parseFunctionDecl()
	case p.atKeyword("class"):
		return p.parseClassDecl()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseImport() (*Stmt, error) {
	p.advance() // 'import'
	stmt := &Stmt{Kind: SImport}
	if p.cur().kind == tString {
		stmt.ImportSource = p.advance().text
		p.skipSemi()
		return stmt, nil
	}
	for {
		switch {
		case p.atPunct("*"):
			p.advance()
			if err := p.expectKeyword("as"); err != nil {
				return nil, err
			}
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			sym := p.declare(name)
			stmt.ImportSpecs = append(stmt.ImportSpecs, ImportSpecifier{Imported: "*", Local: sym})
		case p.atPunct("{"):
			p.advance()
			for !p.atPunct("}") {
				imported, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				local := imported
				if p.atKeyword("as") {
					p.advance()
					local, err = p.expectIdent()
					if err != nil {
						return nil, err
					}
				}
				sym := p.declare(local)
				stmt.ImportSpecs = append(stmt.ImportSpecs, ImportSpecifier{Imported: imported, Local: sym})
				if p.atPunct(",") {
					p.advance()
				}
			}
			if err := p.expectPunct("}"); err != nil {
				return nil, err
			}
		default:
			// default import
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			sym := p.declare(name)
			stmt.ImportSpecs = append(stmt.ImportSpecs, ImportSpecifier{Imported: "default", Local: sym})
		}
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	if p.cur().kind != tString {
		return nil, fmt.Errorf("expected string specifier after 'from'")
	}
	stmt.ImportSource = p.advance().text
	p.skipSemi()
	return stmt, nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return fmt.Errorf("expected keyword %q, got %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) parseExport() (*Stmt, error) {
	p.advance() // 'export'
	switch {
	case p.atKeyword("default"):
		p.advance()
		return p.parseExportDefault()
	case p.atPunct("*"):
		p.advance()
		stmt := &Stmt{Kind: SExportAll}
		if p.atKeyword("as") {
			p.advance()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.ExportAllAs = name
			stmt.ExportAllSym = p.declare(name)
		}
		if err := p.expectKeyword("from"); err != nil {
			return nil, err
		}
		if p.cur().kind != tString {
			return nil, fmt.Errorf("expected string specifier after 'from'")
		}
		stmt.ExportAllSource = p.advance().text
		p.skipSemi()
		return stmt, nil
	case p.atPunct("{"):
		return p.parseExportClause()
	case p.atKeyword("const"), p.atKeyword("let"), p.atKeyword("var"):
		decl, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		p.skipSemi()
		return &Stmt{Kind: SExportDecl, Decl: decl}, nil
	case p.atKeyword("function"):
		decl, err := p.parseFunctionDecl()
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: SExportDecl, Decl: decl}, nil
	case p.atKeyword("class"):
		decl, err := p.parseClassDecl()
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: SExportDecl, Decl: decl}, nil
	default:
		return nil, fmt.Errorf("unsupported export form at token %d (%q)", p.pos, p.cur().text)
	}
}

func (p *parser) parseExportClause() (*Stmt, error) {
	p.advance() // '{'
	stmt := &Stmt{Kind: SExportClause}
	for !p.atPunct("}") {
		local, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		exportedAs := local
		if p.atKeyword("as") {
			p.advance()
			exportedAs, err = p.expectIdent()
			if err != nil {
				return nil, err
			}
		}
		stmt.ExportItems = append(stmt.ExportItems, ExportClauseItem{Local: local, ExportedAs: exportedAs})
		if p.atPunct(",") {
			p.advance()
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	if p.atKeyword("from") {
		p.advance()
		if p.cur().kind != tString {
			return nil, fmt.Errorf("expected string specifier after 'from'")
		}
		stmt.ExportSource = p.advance().text
	} else {
		// Local re-export: every item must resolve to an existing binding.
		for i, item := range stmt.ExportItems {
			stmt.ExportItems[i].LocalSym = p.resolve(item.Local)
		}
	}
	p.skipSemi()
	return stmt, nil
}

func (p *parser) parseExportDefault() (*Stmt, error) {
	stmt := &Stmt{Kind: SExportDefault}
	switch {
	case p.atKeyword("function"):
		p.advance()
		name := ""
		if p.cur().kind == tIdent {
			name = p.advance().text
		}
		body, refs, free, err := p.parseOpaqueParamsAndBody()
		if err != nil {
			return nil, err
		}
		stmt.DefaultKind = "function"
		stmt.Name = name
		stmt.Body, stmt.BodyRefs, stmt.BodyFreeNames = body, refs, free
		stmt.DefaultSuggested = name
	case p.atKeyword("class"):
		p.advance()
		name := ""
		if p.cur().kind == tIdent {
			name = p.advance().text
		}
		body, refs, free, err := p.parseOpaqueClassBody()
		if err != nil {
			return nil, err
		}
		stmt.DefaultKind = "class"
		stmt.Name = name
		stmt.Body, stmt.BodyRefs, stmt.BodyFreeNames = body, refs, free
		stmt.DefaultSuggested = name
	default:
		expr, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		stmt.DefaultKind = "expr"
		stmt.DefaultExpr = expr
	}
	p.skipSemi()
	return stmt, nil
}

func (p *parser) parseVarDecl() (*Stmt, error) {
	kind := p.advance().text // const/let/var
	stmt := &Stmt{Kind: SVarDecl, VarKind: kind}
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		sym := p.declare(name)
		var init *Expr
		if p.atPunct("=") {
			p.advance()
			init, err = p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
		}
		stmt.VarDecls = append(stmt.VarDecls, VarDeclarator{Name: name, Sym: sym, Init: init})
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return stmt, nil
}

func (p *parser) parseFunctionDecl() (*Stmt, error) {
	if err := p.expectKeyword("function"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	sym := p.declare(name)
	body, refs, free, err := p.parseOpaqueParamsAndBody()
	if err != nil {
		return nil, err
	}
	return &Stmt{Kind: SFunctionDecl, Name: name, Sym: sym, Body: body, BodyRefs: refs, BodyFreeNames: free}, nil
}

func (p *parser) parseClassDecl() (*Stmt, error) {
	if err := p.expectKeyword("class"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	sym := p.declare(name)
	body, refs, free, err := p.parseOpaqueClassBody()
	if err != nil {
		return nil, err
	}
	return &Stmt{Kind: SClassDecl, Name: name, Sym: sym, Body: body, BodyRefs: refs, BodyFreeNames: free}, nil
}

// parseOpaqueParamsAndBody consumes "(params) { body }" verbatim,
// returning the whole "(...) {...}" text plus the set of identifiers
// referenced inside the body (resolved against the enclosing scope
// chain), without building a full statement/expression tree for the
// body. This keeps the parser small while still letting the Scanner and
// tree-shaker see which module-level symbols a function/class depends
// on.
func (p *parser) parseOpaqueParamsAndBody() (body []BodyToken, refs []LocalSymID, free []string, err error) {
	if err = p.expectPunct("("); err != nil {
		return
	}
	p.pushScope()
	defer p.popScope()
	body = append(body, BodyToken{Text: "("})
	first := true
	for !p.atPunct(")") {
		name, e := p.expectIdent()
		if e != nil {
			err = e
			return
		}
		sym := p.declare(name)
		if !first {
			body = append(body, BodyToken{Text: ", "})
		}
		body = append(body, BodyToken{Text: name, Sym: sym})
		first = false
		if p.atPunct(",") {
			p.advance()
		}
	}
	if err = p.expectPunct(")"); err != nil {
		return
	}
	body = append(body, BodyToken{Text: ") "})
	blockBody, bodyRefs, bodyFree, e := p.consumeBracedBlockCollectingRefs()
	if e != nil {
		err = e
		return
	}
	body = append(body, blockBody...)
	refs, free = bodyRefs, bodyFree
	return
}

func (p *parser) parseOpaqueClassBody() ([]BodyToken, []LocalSymID, []string, error) {
	p.pushScope()
	defer p.popScope()
	return p.consumeBracedBlockCollectingRefs()
}

// consumeBracedBlockCollectingRefs consumes a brace-delimited region
// token by token (returning it as a renameable BodyToken sequence,
// including the braces), resolving every identifier token inside it
// against the current scope chain: resolved identifiers become module
// symbol references, the rest are recorded as free/global names.
func (p *parser) consumeBracedBlockCollectingRefs() ([]BodyToken, []LocalSymID, []string, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, nil, nil, err
	}
	depth := 1
	body := []BodyToken{{Text: "{"}}
	refSet := map[LocalSymID]bool{}
	freeSet := map[string]bool{}
	for depth > 0 {
		t := p.cur()
		if t.kind == tEOF {
			return nil, nil, nil, fmt.Errorf("unterminated block")
		}
		if t.kind == tPunct && t.text == "{" {
			depth++
		} else if t.kind == tPunct && t.text == "}" {
			depth--
			if depth == 0 {
				p.advance()
				body = append(body, BodyToken{Text: "}"})
				break
			}
		}
		if t.kind == tIdent {
			if sym := p.resolve(t.text); sym != NoSym {
				refSet[sym] = true
				body = append(body, BodyToken{Text: t.text, Sym: sym, IsIdent: true})
			} else {
				freeSet[t.text] = true
				body = append(body, BodyToken{Text: t.text, IsIdent: true})
			}
		} else {
			body = append(body, BodyToken{Text: tokenText(t)})
		}
		body = append(body, BodyToken{Text: " "})
		p.advance()
	}
	refs := make([]LocalSymID, 0, len(refSet))
	for r := range refSet {
		refs = append(refs, r)
	}
	free := make([]string, 0, len(freeSet))
	for f := range freeSet {
		free = append(free, f)
	}
	return body, refs, free, nil
}

func tokenText(t token) string {
	if t.kind == tString {
		return "\"" + t.text + "\""
	}
	return t.text
}

func (p *parser) parseExprStmt() (*Stmt, error) {
	e, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	p.skipSemi()
	return &Stmt{Kind: SExprStmt, Expr: e}, nil
}

// --- expressions -----------------------------------------------------

func (p *parser) parseAssignExpr() (*Expr, error) {
	left, err := p.parseBinaryExpr()
	if err != nil {
		return nil, err
	}
	if p.atPunct("=") {
		p.advance()
		right, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: EAssign, Op: "=", Target: left, Value: right}, nil
	}
	return left, nil
}

func (p *parser) parseBinaryExpr() (*Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") || p.atPunct("*") || p.atPunct("==") {
		op := p.advance().text
		right, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: EBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnaryExpr() (*Expr, error) {
	if p.atKeyword("await") {
		p.advance()
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: EAwait, Operand: operand}, nil
	}
	return p.parseCallOrMemberExpr()
}

func (p *parser) parseCallOrMemberExpr() (*Expr, error) {
	e, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atPunct("."):
			p.advance()
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			e = &Expr{Kind: EMember, Obj: e, Prop: prop}
		case p.atPunct("["):
			p.advance()
			idx, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			if idx.Kind == EString {
				e = &Expr{Kind: EMember, Obj: e, Prop: idx.Str}
			} else {
				e = &Expr{Kind: EMember, Obj: e, ComputedProp: idx}
			}
		case p.atPunct("("):
			p.advance()
			var args []*Expr
			for !p.atPunct(")") {
				a, err := p.parseAssignExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.atPunct(",") {
					p.advance()
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if e.Kind == EIdent && e.Name == "import" && len(args) == 1 && args[0].Kind == EString {
				e = &Expr{Kind: EImportCall, Str: args[0].Str}
			} else {
				e = &Expr{Kind: ECall, Callee: e, Args: args}
			}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimaryExpr() (*Expr, error) {
	t := p.cur()
	switch {
	case t.kind == tNumber:
		p.advance()
		return &Expr{Kind: ENumber, Num: t.num}, nil
	case t.kind == tString:
		p.advance()
		return &Expr{Kind: EString, Str: t.text}, nil
	case t.kind == tIdent:
		p.advance()
		sym := p.resolve(t.text)
		return &Expr{Kind: EIdent, Sym: sym, Name: t.text}, nil
	case t.kind == tKeyword && t.text == "import":
		p.advance()
		return &Expr{Kind: EIdent, Name: "import"}, nil
	case p.atPunct("("):
		p.advance()
		e, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at %d", t.text, p.pos)
	}
}
