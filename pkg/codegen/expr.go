package codegen

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/linter"
	"github.com/basilfold/qbi/pkg/vm"
)

// lookupSymbol resolves name against the scope currently being compiled.
func (g *gen) lookupSymbol(name ast.BareName) *linter.Symbol {
	sym, _ := g.scope.Resolve(name)
	return sym
}

// resolveShared reports whether a reference to name, from the scope
// currently being compiled, must read through the global frame rather than
// the current call frame — true exactly when name isn't defined in this
// scope itself but is reachable via the SHARED fallback to the global scope
// (spec §5.1; see RootPath.Shared in pkg/vm).
func (g *gen) resolveShared(name ast.BareName) bool {
	if g.scopeName == "" {
		return false
	}
	if _, ok := g.scope.ResolveLocal(name); ok {
		return false
	}
	return true
}

// compileExpr compiles e, leaving its value in register A.
func (g *gen) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Literal:
		g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.LiteralToValue(n.Value), Pos: n.Pos()})
		return nil

	case *ast.VariableRef:
		if sym := g.lookupSymbol(n.Name.Bare); sym != nil && sym.Kind == linter.EntryConstant {
			g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.LiteralToValue(sym.Constant), Pos: n.Pos()})
			return nil
		}
		return g.compileReadPath(n)

	case *ast.ArrayElementRef, *ast.PropertyRef:
		return g.compileReadPath(n)

	case *ast.BinaryExpr:
		// Left is pushed to the value stack before Right is compiled so a
		// nested BinaryExpr on the Right (the common case under the
		// precedence-climbing parser, e.g. 2 + 3*4) can freely use
		// OpCopyAToB for its own operands without clobbering ours (spec
		// §4.2.2). C briefly stashes Right's value across the pop/copy
		// that restores Left into B, since that happens after Right's own
		// evaluation has fully unwound and can't reuse C out from under us.
		if err := g.compileExpr(n.Left); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
		if err := g.compileExpr(n.Right); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToC})
		g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyCToA})
		g.prog.Emit(vm.Instruction{Op: binOpCode(n.Op), Pos: n.Pos()})
		return nil

	case *ast.UnaryExpr:
		if err := g.compileExpr(n.Child); err != nil {
			return err
		}
		if n.Op == ast.OpNegate {
			g.prog.Emit(vm.Instruction{Op: vm.OpNegateA, Pos: n.Pos()})
		} else {
			g.prog.Emit(vm.Instruction{Op: vm.OpNotA, Pos: n.Pos()})
		}
		return nil

	case *ast.FunctionCallExpr:
		return g.compileFunctionCall(n)

	default:
		return errs.NewCompileBug("expression of type %T has no codegen lowering", e)
	}
}

// compileReadPath builds e's variable path and loads its value into A.
func (g *gen) compileReadPath(e ast.Expr) error {
	if err := g.compilePath(e); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyVarPathToA, Pos: e.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
	return nil
}

// compilePath builds e's variable path on the VM's path stack, leaving it
// there for the caller to consume (via OpCopyVarPathToA/OpCopyAToVarPath)
// and pop exactly once.
func (g *gen) compilePath(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.VariableRef:
		g.emitVarPathName(n.Name.Bare, g.resolveShared(n.Name.Bare))
		return nil

	case *ast.ArrayElementRef:
		g.emitVarPathName(n.Name.Bare, g.resolveShared(n.Name.Bare))
		for _, idx := range n.Indices {
			if err := g.compileExpr(idx); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpVarPathIndex, Pos: idx.Pos()})
		}
		return nil

	case *ast.PropertyRef:
		if err := g.compilePath(n.Left); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpVarPathProperty, Name: n.Right.CanonicalName(), Pos: n.Pos()})
		return nil

	default:
		return errs.NewCompileBug("expression of type %T is not a valid variable path", e)
	}
}

// compileAssign writes value into target, coercing it to target's resolved
// type the way BASIC assignment does (widen/narrow numerics, pad/truncate a
// fixed-length string, clone a UDT by value).
func (g *gen) compileAssign(target, value ast.Expr, pos ast.Position) error {
	if err := g.compilePath(target); err != nil {
		return err
	}
	if err := g.compileExpr(value); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpCoerce, ElemType: target.Type(), Pos: pos})
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToVarPath, Pos: pos})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
	return nil
}

func binOpCode(op ast.BinOp) vm.Op {
	switch op {
	case ast.OpPlus:
		return vm.OpPlus
	case ast.OpMinus:
		return vm.OpMinus
	case ast.OpMultiply:
		return vm.OpMultiply
	case ast.OpDivide:
		return vm.OpDivide
	case ast.OpModulo:
		return vm.OpModulo
	case ast.OpAnd:
		return vm.OpAnd
	case ast.OpOr:
		return vm.OpOr
	case ast.OpLess:
		return vm.OpLess
	case ast.OpLessOrEqual:
		return vm.OpLessOrEqual
	case ast.OpEqual:
		return vm.OpEqual
	case ast.OpGreaterOrEqual:
		return vm.OpGreaterOrEqual
	case ast.OpGreater:
		return vm.OpGreater
	case ast.OpNotEqual:
		return vm.OpNotEqual
	default:
		return vm.OpPlus
	}
}
