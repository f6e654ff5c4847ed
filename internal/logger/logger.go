// Package logger is a small, clang-style diagnostics sink. It is not a
// general purpose logging library: messages are collected as they happen,
// each carries a stable MsgID so callers can distinguish fatal errors from
// warnings, and the final warning order is deterministic regardless of
// which goroutine produced a message first.
package logger

import (
	"fmt"
	"sort"
	"sync"
)

// Kind distinguishes the three tiers of spec §7's error taxonomy.
type Kind uint8

const (
	KindWarning Kind = iota
	KindError
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// MsgID is one of the stable, user-visible error/warning codes from
// spec §6.
type MsgID string

const (
	UnresolvedEntry             MsgID = "UNRESOLVED_ENTRY"
	ExternalEntry               MsgID = "EXTERNAL_ENTRY"
	MissingExport               MsgID = "MISSING_EXPORT"
	AmbiguousExternalNamespaces MsgID = "AMBIGUOUS_EXTERNAL_NAMESPACES"
	CircularDependency          MsgID = "CIRCULAR_DEPENDENCY"
	InvalidExportOption         MsgID = "INVALID_EXPORT_OPTION"
	IncompatibleExportOption    MsgID = "INCOMPATIBLE_EXPORT_OPTION"
	ShimmedExport               MsgID = "SHIMMED_EXPORT"
	CircularReexport            MsgID = "CIRCULAR_REEXPORT"
	ParseFailed                 MsgID = "PARSE_FAILED"
	IOError                     MsgID = "IO_ERROR"
	Panic                       MsgID = "PANIC"
)

// Msg is one diagnostic. Module/Seq give a deterministic sort key even
// when messages are produced out of order by concurrent workers.
type Msg struct {
	Kind     Kind
	ID       MsgID
	Text     string
	Module   string
	Seq      int
}

func (m Msg) String() string {
	if m.Module != "" {
		return fmt.Sprintf("%s [%s]: %s: %s", m.Kind, m.ID, m.Module, m.Text)
	}
	return fmt.Sprintf("%s [%s]: %s", m.Kind, m.ID, m.Text)
}

// Log collects diagnostics from every phase of the build. It is safe for
// concurrent use from the Module Loader's worker pool and from the
// tree-shaker/finalizer's fork-join phases.
type Log struct {
	mu   sync.Mutex
	msgs []Msg
	seq  int
}

// New returns an empty diagnostics log.
func New() *Log { return &Log{} }

// AddError records a fatal, user-facing diagnostic.
func (l *Log) AddError(module string, id MsgID, text string) {
	l.add(Msg{Kind: KindError, ID: id, Text: text, Module: module})
}

// AddWarning records a non-fatal diagnostic.
func (l *Log) AddWarning(module string, id MsgID, text string) {
	l.add(Msg{Kind: KindWarning, ID: id, Text: text, Module: module})
}

// AddPanic records an internal invariant violation, already wrapped with
// its causal chain by the caller (see ids.InvariantError).
func (l *Log) AddPanic(text string) {
	l.add(Msg{Kind: KindPanic, ID: Panic, Text: text})
}

func (l *Log) add(m Msg) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.Seq = l.seq
	l.seq++
	l.msgs = append(l.msgs, m)
}

// HasErrors reports whether any fatal diagnostic (error or panic) has
// been recorded.
func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m.Kind != KindWarning {
			return true
		}
	}
	return false
}

// Errors returns every fatal diagnostic, in deterministic order.
func (l *Log) Errors() []Msg { return l.filter(func(m Msg) bool { return m.Kind != KindWarning }) }

// Warnings returns every warning, in deterministic order ("unspecified
// but deterministic", per spec §7 — here, sorted by module path and then
// by insertion order).
func (l *Log) Warnings() []Msg { return l.filter(func(m Msg) bool { return m.Kind == KindWarning }) }

// All returns every diagnostic recorded, fatal and non-fatal, sorted by
// module path and then by the order each module produced them.
func (l *Log) All() []Msg {
	return l.filter(func(Msg) bool { return true })
}

func (l *Log) filter(keep func(Msg) bool) []Msg {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Msg, 0, len(l.msgs))
	for _, m := range l.msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
