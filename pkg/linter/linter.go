package linter

import (
	"github.com/basilfold/qbi/pkg/ast"
)

// TypeInfo is a resolved TYPE ... END TYPE layout.
type TypeInfo struct {
	Name   ast.BareName
	Fields []FieldInfo
}

// FieldInfo is one element of a TypeInfo, in declaration order (codegen
// needs the order to compute byte offsets for FIELD/RANDOM records).
type FieldInfo struct {
	Name ast.BareName
	Type ast.ExpressionType
}

// Signature is a resolved SUB/FUNCTION, whether it arrived as a DECLARE, a
// full implementation, or both (the two must agree once both are seen).
type Signature struct {
	Name       ast.BareName
	Kind       ast.DeclareKind
	Params     []ast.Parameter
	ReturnType ast.ExpressionType // valid when Kind == DeclareFunction
	IsStatic   bool
	Pos        ast.Position
	HasBody    bool // a full SUB/FUNCTION was seen, not just a DECLARE
}

// Result is everything the codegen pass needs from a successful analysis:
// the global symbol table, every subprogram's own scope, resolved TYPE
// layouts, the merged DECLARE/definition signature table, and the flattened
// DATA literal pool in program order.
type Result struct {
	Global     *Scope
	Types      map[string]*TypeInfo
	Defaults   [26]ast.Qualifier
	Signatures map[string]*Signature
	SubScopes  map[string]*Scope
	FuncScopes map[string]*Scope
	Data       []ast.LiteralValue
}

type loopKind byte

const (
	loopFor loopKind = iota
	loopDo
	loopWhile
)

// context carries the convert-pass state that changes as statements nest:
// which subprogram (if any) is being converted, and which loop kinds
// currently enclose the statement being converted (for EXIT validation).
type context struct {
	subprogram string // canonical name, empty at top level
	isFunction bool
	isSub      bool
	loops      []loopKind
}

func (c *context) pushLoop(k loopKind) { c.loops = append(c.loops, k) }
func (c *context) popLoop()            { c.loops = c.loops[:len(c.loops)-1] }
func (c *context) inLoop(k loopKind) bool {
	for i := len(c.loops) - 1; i >= 0; i-- {
		if c.loops[i] == k {
			return true
		}
	}
	return false
}

// analyzer holds the mutable state threaded through all three passes.
type analyzer struct {
	result *Result
	errors []error
	labels map[string]map[string]ast.Position // scope key -> label -> pos
	refs   map[string][]labelRef              // scope key -> referenced labels
}

type labelRef struct {
	name ast.BareName
	pos  ast.Position
}

func (a *analyzer) fail(e error) { a.errors = append(a.errors, e) }

// Analyze runs the pre-pass, convert-pass, and post-pass over prog and
// returns the resolved Result plus every diagnostic collected. A non-empty
// error slice means the program must not be handed to codegen.
func Analyze(prog *ast.Program) (*Result, []error) {
	a := &analyzer{
		result: &Result{
			Types:      make(map[string]*TypeInfo),
			Signatures: make(map[string]*Signature),
			SubScopes:  make(map[string]*Scope),
			FuncScopes: make(map[string]*Scope),
			Global:     NewGlobalScope(),
		},
		labels: make(map[string]map[string]ast.Position),
		refs:   make(map[string][]labelRef),
	}
	for i := range a.result.Defaults {
		a.result.Defaults[i] = ast.Single
	}

	a.prePass(prog)
	a.convertPass(prog)
	a.postPass(prog)

	return a.result, a.errors
}

// defaultType applies the DEFxxx table to an unqualified name, or the
// explicit qualifier when name carries one.
func (a *analyzer) defaultType(name ast.Name) ast.ExpressionType {
	if name.IsQualified() {
		return ast.BuiltInType(name.Qualifier)
	}
	s := name.Bare.CanonicalName()
	if len(s) == 0 {
		return ast.BuiltInType(ast.Single)
	}
	c := s[0]
	if c < 'A' || c > 'Z' {
		return ast.BuiltInType(ast.Single)
	}
	return ast.BuiltInType(a.result.Defaults[c-'A'])
}

func scopeKey(subprogram string) string {
	if subprogram == "" {
		return "$main"
	}
	return subprogram
}
