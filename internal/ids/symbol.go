package ids

import (
	"fmt"
	"sync"
)

// ScopeTag distinguishes the lexical binding a name refers to within its
// origin module. Every module has exactly one scope-tag designated
// top-level (Seq == TopLevelSeq); every other Seq is a nested or
// synthetic scope.
type ScopeTag struct {
	Module ModuleId
	Seq    uint32
}

// TopLevelSeq is the scope-tag sequence number reserved for a module's
// top-level bindings.
const TopLevelSeq uint32 = 0

// IsTopLevel reports whether the tag names the module's top-level scope.
func (t ScopeTag) IsTopLevel() bool { return t.Seq == TopLevelSeq }

// Symbol is a scoped name: the atomic identity used for all import/export
// reasoning. Two textually identical names with different scope-tags are
// different symbols. Symbols are cheap to copy.
type Symbol struct {
	Name  string
	Scope ScopeTag
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s#%s:%d", s.Name, s.Scope.Module, s.Scope.Seq)
}

// TopLevel builds the symbol for name in module m's top-level scope.
func TopLevel(m ModuleId, name string) Symbol {
	return Symbol{Name: name, Scope: ScopeTag{Module: m, Seq: TopLevelSeq}}
}

// Ref is a cheap interned handle for a Symbol, used as the key type for the
// union-find and for every map that would otherwise be keyed by the
// (much larger) Symbol value itself.
type Ref uint32

// NilRef is the zero value, never allocated by the interner.
const NilRef Ref = 0

// Interner maps Symbols to stable Refs and back. It is append-only and
// safe for concurrent Intern/Lookup calls, matching the "interned
// string/path table... concurrent append-only map" resource described in
// spec §5.
type Interner struct {
	mu    sync.RWMutex
	bySym map[Symbol]Ref
	byRef []Symbol
}

// NewInterner creates an empty symbol table. Index 0 is reserved so that
// the zero Ref value never aliases a real symbol.
func NewInterner() *Interner {
	return &Interner{
		bySym: make(map[Symbol]Ref),
		byRef: []Symbol{{}}, // index 0 reserved
	}
}

// Intern returns the stable Ref for s, allocating one on first use.
func (t *Interner) Intern(s Symbol) Ref {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.bySym[s]; ok {
		return r
	}
	r := Ref(len(t.byRef))
	t.byRef = append(t.byRef, s)
	t.bySym[s] = r
	return r
}

// Lookup returns the Symbol a Ref was interned from.
func (t *Interner) Lookup(r Ref) Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byRef[r]
}

// Len returns the number of distinct interned symbols, including the
// reserved zero slot.
func (t *Interner) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byRef)
}
