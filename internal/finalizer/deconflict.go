package finalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
)

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true, "instanceof": true,
	"new": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true,
	"await": true, "null": true, "true": true, "false": true, "undefined": true,
	"arguments": true, "eval": true,
}

// runtimeHelperNames are reserved in every chunk regardless of whether
// that chunk ends up needing the helper, so a helper injected later
// never collides with a name already handed out.
var runtimeHelperNames = []string{"_mergeNamespaces"}

// chunkModulesReverseExecOrder returns c's modules sorted by descending
// ExecOrder (entry first), per spec §4.5's deconfliction walk order.
func chunkModulesReverseExecOrder(g *graph.Graph, c *graph.Chunk) []*graph.NormalModule {
	out := make([]*graph.NormalModule, 0, len(c.Modules))
	for id := range c.Modules {
		if m, ok := g.Normal(id); ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecOrder > out[j].ExecOrder })
	return out
}

// deconflictChunk assigns one final identifier to every symbol declared
// by an included StatementPart of c's modules, keyed by its union-find
// root so that every alias of the same root gets the same name.
func deconflictChunk(g *graph.Graph, c *graph.Chunk) map[ids.Ref]string {
	nameMap := map[ids.Ref]string{}
	used := map[string]bool{}
	for w := range reservedWords {
		used[w] = true
	}
	for _, h := range runtimeHelperNames {
		used[h] = true
	}

	modules := chunkModulesReverseExecOrder(g, c)
	for _, m := range modules {
		for _, n := range m.VisitedGlobalNames {
			used[n] = true
		}
		for _, n := range m.DeclaredScopedNames {
			used[n] = true
		}
	}

	for _, m := range modules {
		for _, p := range m.Parts {
			if !p.Included {
				continue
			}
			for _, ref := range p.Declared {
				assignName(g, nameMap, used, ref)
			}
		}
	}
	return nameMap
}

func assignName(g *graph.Graph, nameMap map[ids.Ref]string, used map[string]bool, ref ids.Ref) {
	if ref == ids.NilRef {
		return
	}
	root := g.UnionFind.Find(ref)
	if n, ok := nameMap[root]; ok {
		nameMap[ref] = n
		return
	}
	preferred := preferredName(g, root)
	name := preferred
	n := 1
	for used[name] {
		name = fmt.Sprintf("%s$%d", preferred, n)
		n++
	}
	used[name] = true
	nameMap[root] = name
	nameMap[ref] = name
}

func preferredName(g *graph.Graph, root ids.Ref) string {
	sym := g.Interner.Lookup(root)
	if nm, ok := g.Normal(sym.Scope.Module); ok {
		if s, ok2 := nm.SuggestedNames[sym.Name]; ok2 && s != "" {
			return sanitizeIdent(s)
		}
	}
	return sanitizeIdent(sym.Name)
}

// sanitizeIdent maps an arbitrary preferred name (often a file stem, or
// "default"/"*") to a syntactically valid identifier.
func sanitizeIdent(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	return out
}
