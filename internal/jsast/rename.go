package jsast

// ApplyRename mutates every symbol in ast for which nameOf returns a
// non-empty string, replacing its display name in place. This is the
// concrete "mutable visitor for per-identifier rewriting" the parser
// contract in spec §6 requires. The Chunk Finalizer does not call it: it
// passes its deconflicted names to Print through PrintOptions.NameOf
// and leaves the AST unchanged.
func ApplyRename(ast *AST, nameOf func(LocalSymID) string) {
	for i := range ast.Symbols {
		if i == 0 {
			continue // reserved sentinel
		}
		if n := nameOf(LocalSymID(i)); n != "" {
			ast.Symbols[i].Name = n
		}
	}
}
