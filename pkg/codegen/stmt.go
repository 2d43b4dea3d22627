package codegen

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/vm"
)

func (g *gen) compileStmts(stmts []ast.Stmt) error {
	for _, st := range stmts {
		pc := g.prog.Len()
		if err := g.compileStmt(st); err != nil {
			return err
		}
		g.prog.MarkStatement(pc)
	}
	return nil
}

func (g *gen) compileStmt(st ast.Stmt) error {
	switch n := st.(type) {
	case *ast.AssignStmt:
		return g.compileAssign(n.Target, n.Value, n.Pos())

	case *ast.DimStmt:
		return g.compileDim(n)

	case *ast.ConstStmt, *ast.DefTypeStmt, *ast.TypeDefStmt:
		return nil // fully resolved at lint time; nothing to emit

	case *ast.IfStmt:
		return g.compileIf(n)
	case *ast.ForStmt:
		return g.compileFor(n)
	case *ast.WhileStmt:
		return g.compileWhile(n)
	case *ast.DoLoopStmt:
		return g.compileDoLoop(n)
	case *ast.SelectCaseStmt:
		return g.compileSelectCase(n)

	case *ast.GotoStmt:
		idx := g.emitJump(vm.UnresolvedLabel(n.Label), n.Pos())
		g.recordLabelPatch(idx, n.Label)
		return nil

	case *ast.GosubStmt:
		idx := g.prog.Emit(vm.Instruction{Op: vm.OpGoSub, Addr: vm.UnresolvedLabel(n.Label), Pos: n.Pos()})
		g.recordLabelPatch(idx, n.Label)
		return nil

	case *ast.ReturnStmt:
		if n.Label == (ast.BareName{}) {
			g.prog.Emit(vm.Instruction{Op: vm.OpReturn, Pos: n.Pos()})
			return nil
		}
		idx := g.prog.Emit(vm.Instruction{Op: vm.OpReturn, HasAddr: true, Addr: vm.UnresolvedLabel(n.Label), Pos: n.Pos()})
		g.recordLabelPatch(idx, n.Label)
		return nil

	case *ast.LabelStmt:
		g.prog.Labels[g.labelKey(n.Name)] = g.prog.Len()
		g.prog.Emit(vm.Instruction{Op: vm.OpLabel, Name: n.Name.CanonicalName(), Pos: n.Pos()})
		return nil

	case *ast.OnErrorStmt:
		switch n.Kind {
		case ast.OnErrorGoto:
			idx := g.prog.Emit(vm.Instruction{Op: vm.OpOnErrorGoTo, Addr: vm.UnresolvedLabel(n.Label), Pos: n.Pos()})
			g.recordLabelPatch(idx, n.Label)
		case ast.OnErrorResumeNext:
			g.prog.Emit(vm.Instruction{Op: vm.OpOnErrorResumeNext, Pos: n.Pos()})
		case ast.OnErrorGotoZero:
			g.prog.Emit(vm.Instruction{Op: vm.OpOnErrorGoToZero, Pos: n.Pos()})
		}
		return nil

	case *ast.ResumeStmt:
		switch n.Kind {
		case ast.ResumeBare:
			g.prog.Emit(vm.Instruction{Op: vm.OpResume, Pos: n.Pos()})
		case ast.ResumeNextStmt:
			g.prog.Emit(vm.Instruction{Op: vm.OpResumeNext, Pos: n.Pos()})
		case ast.ResumeLabelStmt:
			idx := g.prog.Emit(vm.Instruction{Op: vm.OpResumeLabel, Addr: vm.UnresolvedLabel(n.Label), Pos: n.Pos()})
			g.recordLabelPatch(idx, n.Label)
		}
		return nil

	case *ast.ExitStmt:
		return g.compileExit(n)

	case *ast.CallStmt:
		return g.compileCallStmt(n)

	case *ast.PrintStmt:
		return g.compilePrint(n)

	case *ast.InputStmt:
		return g.compileInput(n)

	case *ast.ReadStmt:
		return g.compileSimpleSub(ast.SubRead, nil, n.Targets, n.Pos())

	case *ast.DataStmt:
		return nil // flattened into Program.Data at lint time

	case *ast.RestoreStmt:
		g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
		g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubRestore, Pos: n.Pos()})
		return nil

	case *ast.OpenStmt:
		return g.compileOpen(n)
	case *ast.CloseStmt:
		return g.compileSimpleSub(ast.SubClose, n.FileNumbers, nil, n.Pos())
	case *ast.GetPutStmt:
		return g.compileGetPut(n)
	case *ast.FieldStmt:
		return g.compileField(n)
	case *ast.LSetStmt:
		g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
		if err := g.compilePath(n.Target); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: n.Pos()})
		if err := g.compileExpr(n.Value); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubLSet, Pos: n.Pos()})
		return nil
	case *ast.NameStmt:
		return g.compileSimpleSub(ast.SubName, []ast.Expr{n.OldName, n.NewName}, nil, n.Pos())
	case *ast.KillStmt:
		return g.compileSimpleSub(ast.SubKill, []ast.Expr{n.FileName}, nil, n.Pos())

	case *ast.ExprStmt:
		return g.compileExpr(n.Expr)

	default:
		return errs.NewCompileBug("statement of type %T has no codegen lowering", st)
	}
}

// compileSimpleSub pushes byVal then byRef expressions (in that order) and
// dispatches id — the shared shape behind CLOSE/READ/NAME/KILL, whose
// arguments are either all by-value or all by-reference.
func (g *gen) compileSimpleSub(id ast.BuiltInSubID, byVal, byRef []ast.Expr, pos ast.Position) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	for _, e := range byVal {
		if err := g.compileExpr(e); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: e.Pos()})
	}
	for _, e := range byRef {
		if err := g.compilePath(e); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: e.Pos()})
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: id, Pos: pos})
	return nil
}

func (g *gen) compilePrint(n *ast.PrintStmt) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	for _, item := range n.Items {
		if item.Expr == nil {
			continue
		}
		if err := g.compileExpr(item.Expr); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: item.Expr.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: int16(item.Separator)}, Pos: item.Expr.Pos()})
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: item.Expr.Pos()})
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubPrint, Pos: n.Pos()})
	return nil
}

func (g *gen) compileInput(n *ast.InputStmt) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.StringValue{Val: n.Prompt}, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
	if n.LineInput {
		for _, t := range n.Targets {
			if err := g.compilePath(t); err != nil {
				return err
			}
			g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: t.Pos()})
			break
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubLineInput, Pos: n.Pos()})
		return nil
	}
	suppress := int16(0)
	if n.SuppressQM {
		suppress = 1
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: suppress}, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
	for _, t := range n.Targets {
		if err := g.compilePath(t); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: t.Pos()})
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubInput, Pos: n.Pos()})
	return nil
}

func (g *gen) compileOpen(n *ast.OpenStmt) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	if err := g.compileExpr(n.FileName); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.FileName.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpLoad, Value: vm.IntegerValue{Val: int16(n.Mode)}, Pos: n.Pos()})
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
	if err := g.compileExpr(n.FileNumber); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.FileNumber.Pos()})
	if n.RecordLen != nil {
		if err := g.compileExpr(n.RecordLen); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.RecordLen.Pos()})
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubOpen, Pos: n.Pos()})
	return nil
}

func (g *gen) compileGetPut(n *ast.GetPutStmt) error {
	id := ast.SubGet
	if n.IsPut {
		id = ast.SubPut
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	if err := g.compileExpr(n.FileNumber); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
	if n.RecordNum != nil {
		if err := g.compileExpr(n.RecordNum); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: id, Pos: n.Pos()})
	return nil
}

func (g *gen) compileField(n *ast.FieldStmt) error {
	g.prog.Emit(vm.Instruction{Op: vm.OpBeginCollectArguments})
	if err := g.compileExpr(n.FileNumber); err != nil {
		return err
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: n.Pos()})
	for _, item := range n.Items {
		if err := g.compileExpr(item.Width); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByVal, Pos: item.Width.Pos()})
		if err := g.compilePath(item.Target); err != nil {
			return err
		}
		g.prog.Emit(vm.Instruction{Op: vm.OpPushUnnamedByRef, Pos: item.Target.Pos()})
	}
	g.prog.Emit(vm.Instruction{Op: vm.OpBuiltInSub, BuiltInSub: ast.SubField, Pos: n.Pos()})
	return nil
}

func (g *gen) compileExit(n *ast.ExitStmt) error {
	switch n.Kind {
	case ast.ExitFor, ast.ExitDo, ast.ExitWhile:
		idx := g.emitJump(vm.ResolvedAddr(0), n.Pos())
		g.recordLoopExit(n.Kind, idx)
		return nil
	case ast.ExitSub:
		g.prog.Emit(vm.Instruction{Op: vm.OpPopRet, Pos: n.Pos()})
		return nil
	case ast.ExitFunction:
		g.loadReturnValue()
		g.prog.Emit(vm.Instruction{Op: vm.OpPopRet, Pos: n.Pos()})
		return nil
	default:
		return errs.NewCompileBug("unrecognized EXIT kind %v", n.Kind)
	}
}
