package codegen

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/vm"
)

// defaultTypeFor mirrors the linter's DEFxxx lookup, using the already-
// resolved Result.Defaults table rather than re-scanning DEFxxx statements.
func (g *gen) defaultTypeFor(name ast.Name) ast.ExpressionType {
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
	return ast.BuiltInType(g.result.Defaults[c-'A'])
}

// paramIsByRef replicates the linter's bindParams rule: arrays and
// user-defined-type parameters are always by reference, and so is any
// scalar parameter not explicitly declared BYVAL.
func paramIsByRef(p ast.Parameter) bool {
	return p.ByRef || p.IsArray || p.Type.Kind == ast.ExprUserDefined
}

// isAddressablePath reports whether e can be passed directly to
// compilePath, i.e. it names a location rather than computing a value.
func isAddressablePath(e ast.Expr) bool {
	switch e.(type) {
	case *ast.VariableRef, *ast.ArrayElementRef, *ast.PropertyRef:
		return true
	default:
		return false
	}
}

// pushUserArgs collects args for a user SUB/FUNCTION call, one entry per
// declared parameter, coercing by-value scalars to the parameter's type and
// capturing a Path for anything passed by reference (spec §4.3: arrays and
// UDTs always by reference, scalars per BYVAL/BYREF). A by-ref argument
// that isn't itself an addressable path is first materialized into a
// compiler temp.
func (g *gen) pushUserArgs(params []ast.Parameter, args []ast.Expr) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	for i, arg := range args {
		p := params[i]
		if paramIsByRef(p) {
			if !isAddressablePath(arg) {
				// A by-ref parameter's argument isn't an lvalue (a literal,
				// a binary expression, a nested call, ...) — materialize
				// it into a compiler temp and pass that temp's path
				// instead, the same way compileFor/compileSelectCase stash
				// their own hidden state.
				tmp := g.newTemp("ARG")
				if err := g.compileExpr(arg); err != nil {
					return err
				}
				g.emitStoreHiddenFromA(tmp)
				g.emitVarPathName(tmp, false)
				g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: arg.Pos()})
				continue
			}
			if err := g.compilePath(arg); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: arg.Pos()})
			continue
		}
		if err := g.compileExpr(arg); err != nil {
			return err
		}
		want := p.Type
		if want.Kind == ast.ExprUnresolved {
			want = g.defaultTypeFor(p.Name)
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpCoerce, ElemType: want, Pos: arg.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: arg.Pos()})
	}
	return nil
}

// compileFunctionCall lowers a call appearing in expression position.
func (g *gen) compileFunctionCall(n *ast.FunctionCallExpr) error {
	if n.IsBuiltIn {
		if err := g.pushBuiltinFunctionArgs(n.BuiltIn, n.Args); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInFunction, BuiltInFn: n.BuiltIn, Pos: n.Pos()})
		return nil
	}
	sig, ok := g.result.Signatures[n.Name.Bare.CanonicalName()]
	if !ok {
		return errs.NewCompileBug("call to undeclared function %q reached codegen", n.Name.String())
	}
	if err := g.pushUserArgs(sig.Params, n.Args); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpUserFunctionCall, Name: n.Name.Bare.CanonicalName(), Pos: n.Pos()})
	return nil
}

// pushBuiltinFunctionArgs pushes a built-in function's arguments by value,
// except LBOUND/UBOUND's array argument, which must arrive as a Path so the
// VM can inspect the array's declared bounds without reading its whole value.
func (g *gen) pushBuiltinFunctionArgs(id ast.BuiltInFunctionID, args []ast.Expr) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	for i, arg := range args {
		if (id == ast.FnLbound || id == ast.FnUbound) && i == 0 {
			if err := g.compilePath(arg); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: arg.Pos()})
			continue
		}
		if err := g.compileExpr(arg); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: arg.Pos()})
	}
	return nil
}

// compileCallStmt lowers a CALL statement: either one of the handful of
// simple built-in subs invoked by name, or a user SUB.
func (g *gen) compileCallStmt(n *ast.CallStmt) error {
	if n.IsBuiltIn {
		g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
		for _, arg := range n.Args {
			if err := g.compileExpr(arg); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: arg.Pos()})
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: n.BuiltIn, Pos: n.Pos()})
		return nil
	}
	sig, ok := g.result.Signatures[n.Name.Bare.CanonicalName()]
	if !ok {
		return errs.NewCompileBug("call to undeclared sub %q reached codegen", n.Name.String())
	}
	if err := g.pushUserArgs(sig.Params, n.Args); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpUserSubCall, Name: n.Name.Bare.CanonicalName(), Pos: n.Pos()})
	return nil
}
