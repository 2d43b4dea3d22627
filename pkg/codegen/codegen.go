// Package codegen lowers a linted AST into a vm.Program: a flat
// Instruction stream plus the entry-point and label tables the VM needs to
// execute it (spec §4.2). It assumes prog has already passed
// pkg/linter.Analyze without error — codegen itself raises errs.CompileBug,
// never errs.LintError, since every user-facing mistake was already caught.
package codegen

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/linter"
	"github.com/basilfold/qbi/pkg/vm"
)

// gen holds the mutable state threaded through one compilation.
type gen struct {
	prog   *vm.Program
	result *linter.Result

	scope      *linter.Scope
	scopeName  string // "" at top level, canonical subprogram name otherwise
	isFunction bool
	funcName   ast.BareName // valid when isFunction

	labelPatches []labelPatch
	loopStack    []*loopFrame
	tempCounter  int
}

// newTemp allocates a compiler-private variable name that cannot collide
// with a user identifier (BASIC identifiers never contain '%' or '$' mid-
// name), used to stash a FOR loop's limit/step or a SELECT CASE's selector
// across however many registers the loop body's statements clobber.
func (g *gen) newTemp(tag string) ast.BareName {
	g.tempCounter++
	return ast.NewBareName("%" + tag + "$" + itoa(g.tempCounter))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// emitLoadHidden/emitStoreHiddenFromA read and write a compiler-private
// temp variable directly against the current call frame, bypassing the
// linter scope chain entirely (SHARED is always false: a temp belongs to
// the specific call it was created for, never the global frame).
func (g *gen) emitLoadHidden(name ast.BareName) {
	g.emitVarPathName(name, false)
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyVarPathToA})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
}

func (g *gen) emitStoreHiddenFromA(name ast.BareName) {
	g.emitVarPathName(name, false)
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToVarPath})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
}

type labelPatch struct {
	index int
	key   string
}

// loopFrame tracks one lexically-enclosing FOR/WHILE/DO loop while its body
// is being compiled, so EXIT FOR/WHILE/DO can patch a forward jump to the
// loop's end once that end is known.
type loopFrame struct {
	kind  ast.ExitKind
	exits []int
}

func (g *gen) pushLoop(kind ast.ExitKind) *loopFrame {
	f := &loopFrame{kind: kind}
	g.loopStack = append(g.loopStack, f)
	return f
}

func (g *gen) popLoop() {
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
}

// recordLoopExit attaches a pending EXIT jump to the nearest enclosing loop
// of the matching kind — EXIT FOR reaches past any non-FOR loop nested
// inside it, matching QBASIC's per-kind EXIT semantics.
func (g *gen) recordLoopExit(kind ast.ExitKind, index int) {
	for i := len(g.loopStack) - 1; i >= 0; i-- {
		if g.loopStack[i].kind == kind {
			g.loopStack[i].exits = append(g.loopStack[i].exits, index)
			return
		}
	}
}

func (g *gen) patchLoopExits(f *loopFrame) {
	end := g.prog.Len()
	for _, idx := range f.exits {
		g.patchTo(idx, end)
	}
}

// Generate compiles prog into an executable vm.Program, using result (the
// output of a prior, error-free linter.Analyze call) to resolve every name,
// type, and signature codegen needs but can no longer re-derive from raw
// AST alone.
func Generate(prog *ast.Program, result *linter.Result) (*vm.Program, error) {
	g := &gen{prog: vm.NewProgram(), result: result}

	g.prog.Data = result.Data
	for k, t := range result.Types {
		g.prog.Types[k] = vm.UDTLayout{TypeName: t.Name, Fields: convertFields(t.Fields)}
	}
	for k, sig := range result.Signatures {
		if sig.Kind == ast.DeclareSub {
			g.prog.StaticSubs[k] = sig.IsStatic
			g.prog.SubParams[k] = paramNames(sig.Params)
		} else {
			g.prog.StaticFunctions[k] = sig.IsStatic
			g.prog.FunctionParams[k] = paramNames(sig.Params)
		}
	}

	g.scope = result.Global
	g.scopeName = ""
	g.allocateScopeLocals(result.Global)
	if err := g.compileStmts(prog.TopLevel); err != nil {
		return nil, err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpHalt})

	for _, f := range prog.Functions {
		canon := f.Name.Bare.CanonicalName()
		g.scope = result.FuncScopes[canon]
		g.scopeName = canon
		g.isFunction = true
		g.funcName = f.Name.Bare
		g.prog.FunctionEntry[canon] = g.prog.Len()
		g.allocateScopeLocals(g.scope)
		if err := g.compileStmts(f.Body); err != nil {
			return nil, err
		}
		g.emitFunctionEpilogue()
		g.isFunction = false
	}

	for _, s := range prog.Subs {
		canon := s.Name.CanonicalName()
		g.scope = result.SubScopes[canon]
		g.scopeName = canon
		g.prog.SubEntry[canon] = g.prog.Len()
		g.allocateScopeLocals(g.scope)
		if err := g.compileStmts(s.Body); err != nil {
			return nil, err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPopRet})
	}

	if err := g.patchLabels(); err != nil {
		return nil, err
	}
	return g.prog, nil
}

func convertFields(fields []linter.FieldInfo) []vm.UDTField {
	out := make([]vm.UDTField, len(fields))
	for i, f := range fields {
		out[i] = vm.UDTField{Name: f.Name.CanonicalName(), Type: f.Type}
	}
	return out
}

func paramNames(params []ast.Parameter) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name.Bare.CanonicalName()
	}
	return names
}

// allocateScopeLocals emits the default-value initializer for every scalar
// or user-defined-type symbol this scope owns directly (not inherited
// SHARED globals, and not parameters, which the VM binds at call entry).
// Array symbols are deliberately excluded: their bounds are expressions
// evaluated at their own DIM statement, so they're allocated there instead
// (see compileDim).
func (g *gen) allocateScopeLocals(scope *linter.Scope) {
	for _, sym := range scope.Symbols() {
		if sym.Kind == linter.EntryConstant || sym.IsParam || sym.IsArray {
			continue
		}
		g.emitDefaultInit(sym.Name, sym.Type, sym.Shared)
	}
}

func (g *gen) emitDefaultInit(name ast.BareName, typ ast.ExpressionType, shared bool) {
	g.emitAllocate(typ)
	g.emitVarPathName(name, shared)
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToVarPath})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
}

func (g *gen) emitAllocate(typ ast.ExpressionType) {
	switch typ.Kind {
	case ast.ExprBuiltIn:
		g.prog.Emit(vm.Instruction{Op: vm.OpAllocateBuiltIn, Qualifier: typ.BuiltIn})
	case ast.ExprFixedLengthString:
		g.prog.Emit(vm.Instruction{Op: vm.OpAllocateFixedLengthString, Len: typ.FixedLen})
	case ast.ExprUserDefined:
		g.prog.Emit(vm.Instruction{Op: vm.OpAllocateUserDefined, Name: typ.UDTName.CanonicalName()})
	default:
		g.prog.Emit(vm.Instruction{Op: vm.OpAllocateBuiltIn, Qualifier: ast.Single})
	}
}

func (g *gen) emitVarPathName(name ast.BareName, shared bool) {
	g.prog.Emit(vm.Instruction{Op: vm.OpVarPathName, Name: name.CanonicalName(), Shared: shared})
}

// emitFunctionEpilogue loads the function's own name (its implicit return
// slot) into A before popping the call frame, since A is the only state
// that survives the frame pop back to the caller (spec §4.2.2).
func (g *gen) emitFunctionEpilogue() {
	g.loadReturnValue()
	g.prog.Emit(vm.Instruction{Op: vm.OpPopRet})
}

func (g *gen) loadReturnValue() {
	sym, _ := g.scope.Resolve(g.funcName)
	shared := sym != nil && sym.Shared
	g.emitVarPathName(g.funcName, shared)
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyVarPathToA})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
}

// labelKey is the scoping convention instruction.go documents for
// Program.Labels: "" for the top level, the subprogram's own canonical
// name otherwise.
func (g *gen) labelKey(label ast.BareName) string {
	return g.scopeName + "#" + label.CanonicalName()
}

func (g *gen) recordLabelPatch(index int, label ast.BareName) {
	g.labelPatches = append(g.labelPatches, labelPatch{index: index, key: g.labelKey(label)})
}

func (g *gen) patchLabels() error {
	for _, p := range g.labelPatches {
		addr, ok := g.prog.Labels[p.key]
		if !ok {
			return errs.NewCompileBug("label %q left unresolved after the patch phase", p.key)
		}
		g.prog.Instructions[p.index].Addr = vm.ResolvedAddr(addr)
	}
	return nil
}

// patchHere resolves a structural forward jump (IF/FOR/DO/SELECT/EXIT) to
// the instruction about to be emitted — these never go through the
// Program.Labels table, since they have no user-visible name.
func (g *gen) patchHere(index int) {
	g.prog.Instructions[index].Addr = vm.ResolvedAddr(g.prog.Len())
}

func (g *gen) patchTo(index, target int) {
	g.prog.Instructions[index].Addr = vm.ResolvedAddr(target)
}

func (g *gen) emitJump(addr vm.AddressOrLabel, pos ast.Position) int {
	return g.prog.Emit(vm.Instruction{Op: vm.OpJump, Addr: addr, Pos: pos})
}

func (g *gen) emitJumpIfFalse(addr vm.AddressOrLabel, pos ast.Position) int {
	return g.prog.Emit(vm.Instruction{Op: vm.OpJumpIfFalse, Addr: addr, Pos: pos})
}
