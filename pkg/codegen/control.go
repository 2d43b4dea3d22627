package codegen

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/vm"
)

// compileDim lowers DIM/REDIM. Scalars and UDTs are already default-
// initialized by allocateScopeLocals at scope entry; only arrays need code
// here, since their bounds are expressions evaluated at the DIM's own
// position (spec §5.2 DIM).
func (g *gen) compileDim(n *ast.DimStmt) error {
	for _, v := range n.Vars {
		if !v.IsArray {
			continue
		}
		elem := v.Type
		if elem.Kind == ast.ExprUnresolved {
			elem = g.defaultTypeFor(v.Name)
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
		for _, b := range v.Bounds {
			if b.Lower != nil {
				if err := g.compileExpr(b.Lower); err != nil {
					return err
				}
			} else {
				g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: 0}, Pos: n.Pos()})
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
			if err := g.compileExpr(b.Upper); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: b.Upper.Pos()})
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpAllocateArrayIntoA, ElemType: elem, Pos: n.Pos()})
		shared := v.Shared || g.scopeName == ""
		g.emitVarPathName(v.Name.Bare, shared)
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToVarPath, Pos: n.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})
	}
	return nil
}

// compileIf lowers IF/ELSEIF/ELSE as a chain: each branch's condition
// guards a jump past its body to the next candidate, and every taken
// branch ends with a jump to the statement after the whole chain.
func (g *gen) compileIf(n *ast.IfStmt) error {
	var endJumps []int
	for _, br := range n.Branches {
		if err := g.compileExpr(br.Condition); err != nil {
			return err
		}
		skip := g.emitJumpIfFalse(vm.ResolvedAddr(0), br.Condition.Pos())
		if err := g.compileStmts(br.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, g.emitJump(vm.ResolvedAddr(0), n.Pos()))
		g.patchHere(skip)
	}
	if err := g.compileStmts(n.Else); err != nil {
		return err
	}
	for _, idx := range endJumps {
		g.patchHere(idx)
	}
	return nil
}

// compileFor lowers FOR/NEXT. UPPER and STEP are evaluated once and stashed
// in compiler temps so an arbitrary loop body can clobber A/B/C/D freely
// without disturbing them; the continuation test is direction-aware,
// matching QBASIC's rule that a negative STEP counts down (spec §5.3 FOR).
func (g *gen) compileFor(n *ast.ForStmt) error {
	if err := g.compileAssign(n.Counter, n.Lower, n.Pos()); err != nil {
		return err
	}

	limitName := g.newTemp("FORLIM")
	stepName := g.newTemp("FORSTEP")

	if err := g.compileExpr(n.Upper); err != nil {
		return err
	}
	g.emitStoreHiddenFromA(limitName)

	step := n.Step
	if step == nil {
		step = &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitInteger, Int: 1}}
	}
	if err := g.compileExpr(step); err != nil {
		return err
	}
	g.emitStoreHiddenFromA(stepName)

	top := g.prog.Len()

	// ascending = step >= 0 AND counter <= limit
	g.emitLoadHidden(stepName)
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: 0}})
	g.prog.Emit(vm.Instruction{Op: vm.OpGreaterOrEqual, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
	if err := g.compileExpr(n.Counter); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.emitLoadHidden(limitName)
	g.prog.Emit(vm.Instruction{Op: vm.OpLessOrEqual, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
	g.prog.Emit(vm.Instruction{Op: vm.OpAnd, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})

	// descending = step < 0 AND counter >= limit
	g.emitLoadHidden(stepName)
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: 0}})
	g.prog.Emit(vm.Instruction{Op: vm.OpLess, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
	if err := g.compileExpr(n.Counter); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.emitLoadHidden(limitName)
	g.prog.Emit(vm.Instruction{Op: vm.OpGreaterOrEqual, Pos: n.Pos()})
	// stepNeg is parked on the value stack above ascending; recombine via
	// the stack so the two half-conditions don't fight over the same register.
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
	g.prog.Emit(vm.Instruction{Op: vm.OpAnd, Pos: n.Pos()})

	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
	g.prog.Emit(vm.Instruction{Op: vm.OpOr, Pos: n.Pos()})

	exit := g.emitJumpIfFalse(vm.ResolvedAddr(0), n.Pos())

	f := g.pushLoop(ast.ExitFor)
	if err := g.compileStmts(n.Body); err != nil {
		return err
	}
	g.patchLoopExits(f)
	g.popLoop()

	if err := g.compileExpr(n.Counter); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
	g.emitLoadHidden(stepName)
	g.prog.Emit(vm.Instruction{Op: vm.OpPlus, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpCoerce, ElemType: n.Counter.Type(), Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
	if err := g.compilePath(n.Counter); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
	g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToVarPath, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPopVarPath})

	g.emitJump(vm.ResolvedAddr(top), n.Pos())
	g.patchHere(exit)
	return nil
}

// compileWhile lowers WHILE/WEND: a pre-test loop with no EXIT support of
// its own in real QBASIC, but spec's EXIT WHILE extension is still honored
// via the same loopFrame machinery as FOR/DO.
func (g *gen) compileWhile(n *ast.WhileStmt) error {
	top := g.prog.Len()
	if err := g.compileExpr(n.Condition); err != nil {
		return err
	}
	exit := g.emitJumpIfFalse(vm.ResolvedAddr(0), n.Pos())

	f := g.pushLoop(ast.ExitWhile)
	if err := g.compileStmts(n.Body); err != nil {
		return err
	}
	g.patchLoopExits(f)
	g.popLoop()

	g.emitJump(vm.ResolvedAddr(top), n.Pos())
	g.patchHere(exit)
	return nil
}

// compileDoLoop lowers all four DO/LOOP condition placements.
func (g *gen) compileDoLoop(n *ast.DoLoopStmt) error {
	top := g.prog.Len()
	var preExit int
	hasPreExit := false

	switch n.Kind {
	case ast.DoWhileTop:
		if err := g.compileExpr(n.Condition); err != nil {
			return err
		}
		preExit = g.emitJumpIfFalse(vm.ResolvedAddr(0), n.Pos())
		hasPreExit = true
	case ast.DoUntilTop:
		if err := g.compileExpr(n.Condition); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpNotA, Pos: n.Pos()})
		preExit = g.emitJumpIfFalse(vm.ResolvedAddr(0), n.Pos())
		hasPreExit = true
	}

	f := g.pushLoop(ast.ExitDo)
	if err := g.compileStmts(n.Body); err != nil {
		return err
	}
	g.patchLoopExits(f)
	g.popLoop()

	switch n.Kind {
	case ast.DoForever, ast.DoWhileTop, ast.DoUntilTop:
		g.emitJump(vm.ResolvedAddr(top), n.Pos())
	case ast.DoWhileBottom:
		if err := g.compileExpr(n.Condition); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpNotA, Pos: n.Pos()})
		g.emitJumpIfFalse(vm.ResolvedAddr(top), n.Pos())
	case ast.DoUntilBottom:
		if err := g.compileExpr(n.Condition); err != nil {
			return err
		}
		g.emitJumpIfFalse(vm.ResolvedAddr(top), n.Pos())
	}

	if hasPreExit {
		g.patchHere(preExit)
	}
	return nil
}

// compileSelectCase lowers SELECT CASE. The selector is evaluated once into
// a compiler temp, and each CASE's expressions are OR-ed together (via the
// value stack, since more than one expression can appear per CASE) to form
// that branch's single guard condition.
func (g *gen) compileSelectCase(n *ast.SelectCaseStmt) error {
	selName := g.newTemp("SEL")
	if err := g.compileExpr(n.Selector); err != nil {
		return err
	}
	g.emitStoreHiddenFromA(selName)

	var endJumps []int
	for _, cb := range n.Cases {
		g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: 0}})
		g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
		for _, ce := range cb.Exprs {
			if err := g.compileCaseTest(ce, selName); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
			g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
			g.prog.Emit(vm.Instruction{Op: vm.OpOr, Pos: n.Pos()})
			g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
		skip := g.emitJumpIfFalse(vm.ResolvedAddr(0), n.Pos())
		if err := g.compileStmts(cb.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, g.emitJump(vm.ResolvedAddr(0), n.Pos()))
		g.patchHere(skip)
	}
	if err := g.compileStmts(n.ElseBody); err != nil {
		return err
	}
	for _, idx := range endJumps {
		g.patchHere(idx)
	}
	return nil
}

// compileCaseTest leaves one CASE expression's boolean result (against the
// selector stashed in selName) in A.
func (g *gen) compileCaseTest(ce ast.CaseExpr, selName ast.BareName) error {
	switch ce.Kind {
	case ast.CaseSimple:
		g.emitLoadHidden(selName)
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
		if err := g.compileExpr(ce.Value); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpEqual, Pos: ce.Value.Pos()})
		return nil

	case ast.CaseRange:
		g.emitLoadHidden(selName)
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
		if err := g.compileExpr(ce.From); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpGreaterOrEqual, Pos: ce.From.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpPushAToValueStack})
		g.emitLoadHidden(selName)
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
		if err := g.compileExpr(ce.To); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpLessOrEqual, Pos: ce.To.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
		g.prog.Emit(vm.Instruction{Op: vm.OpPopValueStackIntoA})
		g.prog.Emit(vm.Instruction{Op: vm.OpAnd, Pos: ce.To.Pos()})
		return nil

	case ast.CaseIs:
		g.emitLoadHidden(selName)
		g.prog.Emit(vm.Instruction{Op: vm.OpCopyAToB})
		if err := g.compileExpr(ce.Value); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: binOpCode(ce.Op), Pos: ce.Value.Pos()})
		return nil

	default:
		return nil
	}
}
