// Package linter implements the three-pass semantic analyzer spec §5
// describes: a pre-pass that collects DEFxxx ranges, TYPE layouts, CONST
// values and DECLARE signatures; a convert-pass that resolves names and
// type-checks every expression and statement (including call arity); and a
// post-pass that verifies labels, dotted-name collisions, and that every
// DECLAREd subprogram has a body, once every subprogram has been seen.
package linter

import "github.com/basilfold/qbi/pkg/ast"

// EntryKind distinguishes the three shapes a symbol-table entry can take.
type EntryKind byte

const (
	// EntryCompact is a plain scalar variable: just a resolved
	// ExpressionType, no further payload.
	EntryCompact EntryKind = iota
	// EntryExtended is a SHARED or parameter variable, or an array: carries
	// the extra bookkeeping (ByRef-ness, dimension count) the convert-pass
	// needs to validate later references against.
	EntryExtended
	// EntryConstant is a CONST name: carries its folded literal value so
	// later expressions referencing it can be evaluated at lint time.
	EntryConstant
)

// Symbol is one symbol-table entry.
type Symbol struct {
	Name     ast.BareName
	Kind     EntryKind
	Type     ast.ExpressionType
	IsArray  bool
	Shared   bool
	ByRef    bool
	IsParam  bool // bound by the VM at call entry; codegen must not re-allocate it
	Dims     int  // declared dimension count, for arrays
	Constant ast.LiteralValue
}

// Scope is one symbol table level: global, or one per SUB/FUNCTION body.
// Scopes chain to a single global parent; BASIC has no block scoping
// within a subprogram, only the two levels (spec §5.1).
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
	name    string // subprogram name, empty for the global scope
}

func NewGlobalScope() *Scope {
	return &Scope{symbols: make(map[string]*Symbol)}
}

func (s *Scope) EnterSub(name string) *Scope {
	return &Scope{parent: s, symbols: make(map[string]*Symbol), name: name}
}

// Define adds sym to this scope, overwriting any existing entry of the
// same canonical name (the pre-pass is responsible for rejecting
// duplicates before calling Define a second time).
func (s *Scope) Define(sym *Symbol) {
	s.symbols[sym.Name.CanonicalName()] = sym
}

// Resolve looks up name in this scope, then among the global scope's
// SHARED variables and constants — BASIC has no deeper nesting, so this is
// a single parent hop, not a walk.
func (s *Scope) Resolve(name ast.BareName) (*Symbol, bool) {
	canon := name.CanonicalName()
	if sym, ok := s.symbols[canon]; ok {
		return sym, true
	}
	if s.parent != nil {
		if sym, ok := s.parent.symbols[canon]; ok && (sym.Shared || sym.Kind == EntryConstant) {
			return sym, true
		}
	}
	return nil, false
}

// ResolveLocal looks up name only within this scope.
func (s *Scope) ResolveLocal(name ast.BareName) (*Symbol, bool) {
	sym, ok := s.symbols[name.CanonicalName()]
	return sym, ok
}

func (s *Scope) IsGlobal() bool { return s.parent == nil }

func (s *Scope) Symbols() map[string]*Symbol { return s.symbols }
