package linter

import (
	"strconv"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/vm"
)

// convertPass walks every statement in the program, resolving names against
// the scope chain built by prePass and attaching a resolved ExpressionType
// to every expression node it visits. It is also where DATA statements are
// flattened into Result.Data in source order, since READ's positional
// cursor only makes sense against that single flattened list.
func (a *analyzer) convertPass(prog *ast.Program) {
	ctx := &context{}
	a.convertStmts(prog.TopLevel, a.result.Global, ctx)

	for _, f := range prog.Functions {
		scope := a.result.Global.EnterSub(f.Name.Bare.CanonicalName())
		a.bindParams(scope, f.Params)
		// The function's own name is an implicit local holding the return
		// value, exactly like a parameter of the function's declared type.
		scope.Define(&Symbol{Name: f.Name.Bare, Kind: EntryExtended, Type: a.defaultType(f.Name)})
		a.result.FuncScopes[f.Name.Bare.CanonicalName()] = scope
		fctx := &context{subprogram: f.Name.Bare.CanonicalName(), isFunction: true}
		a.convertStmts(f.Body, scope, fctx)
	}

	for _, s := range prog.Subs {
		scope := a.result.Global.EnterSub(s.Name.CanonicalName())
		a.bindParams(scope, s.Params)
		a.result.SubScopes[s.Name.CanonicalName()] = scope
		sctx := &context{subprogram: s.Name.CanonicalName(), isSub: true}
		a.convertStmts(s.Body, scope, sctx)
	}
}

func (a *analyzer) bindParams(scope *Scope, params []ast.Parameter) {
	for _, p := range params {
		typ := p.Type
		if typ.Kind == ast.ExprUnresolved {
			typ = a.defaultType(p.Name)
		}
		if p.IsArray {
			typ = ast.ArrayType(typ)
		}
		byRef := p.ByRef || p.IsArray || typ.Kind == ast.ExprUserDefined
		scope.Define(&Symbol{Name: p.Name.Bare, Kind: EntryExtended, Type: typ, IsArray: p.IsArray, ByRef: byRef, IsParam: true})
	}
}

func (a *analyzer) convertStmts(stmts []ast.Stmt, scope *Scope, ctx *context) {
	for _, st := range stmts {
		a.convertStmt(st, scope, ctx)
	}
}

func (a *analyzer) convertStmt(st ast.Stmt, scope *Scope, ctx *context) {
	switch n := st.(type) {
	case *ast.AssignStmt:
		targetType, err := a.convertTarget(n.Target, scope)
		if err != nil {
			a.fail(err)
			return
		}
		valType, err := a.convertExpr(n.Value, scope)
		if err != nil {
			a.fail(err)
			return
		}
		if !assignable(valType, targetType) {
			a.fail(errs.NewLintError(errs.LintTypeMismatch, "cannot assign "+valType.String()+" to "+targetType.String()).At(n.Pos()))
		}

	case *ast.DimStmt:
		a.convertDim(n, scope)

	case *ast.ConstStmt:
		if scope.IsGlobal() {
			return // already folded by prePass
		}
		a.defineConst(scope, n)

	case *ast.DefTypeStmt, *ast.TypeDefStmt:
		// handled entirely in prePass

	case *ast.IfStmt:
		for _, br := range n.Branches {
			t, err := a.convertExpr(br.Condition, scope)
			if err != nil {
				a.fail(err)
			} else if !t.IsNumeric() {
				a.fail(errs.NewLintError(errs.LintTypeMismatch, "IF condition must be numeric").At(br.Condition.Pos()))
			}
			a.convertStmts(br.Body, scope, ctx)
		}
		a.convertStmts(n.Else, scope, ctx)

	case *ast.ForStmt:
		counterType, err := a.convertTarget(n.Counter, scope)
		if err != nil {
			a.fail(err)
		} else if !counterType.IsNumeric() {
			a.fail(errs.NewLintError(errs.LintTypeMismatch, "FOR counter must be numeric").At(n.Counter.Pos()))
		}
		a.mustBeNumeric(n.Lower, scope)
		a.mustBeNumeric(n.Upper, scope)
		if n.Step != nil {
			a.mustBeNumeric(n.Step, scope)
		}
		ctx.pushLoop(loopFor)
		a.convertStmts(n.Body, scope, ctx)
		ctx.popLoop()

	case *ast.WhileStmt:
		a.mustBeNumeric(n.Condition, scope)
		ctx.pushLoop(loopWhile)
		a.convertStmts(n.Body, scope, ctx)
		ctx.popLoop()

	case *ast.DoLoopStmt:
		if n.Condition != nil {
			a.mustBeNumeric(n.Condition, scope)
		}
		ctx.pushLoop(loopDo)
		a.convertStmts(n.Body, scope, ctx)
		ctx.popLoop()

	case *ast.SelectCaseStmt:
		selType, err := a.convertExpr(n.Selector, scope)
		if err != nil {
			a.fail(err)
		}
		for _, cb := range n.Cases {
			for _, ce := range cb.Exprs {
				a.convertCaseExpr(ce, selType, scope)
			}
			a.convertStmts(cb.Body, scope, ctx)
		}
		a.convertStmts(n.ElseBody, scope, ctx)

	case *ast.GotoStmt:
		a.recordLabelRef(ctx, n.Label, n.Pos())
	case *ast.GosubStmt:
		a.recordLabelRef(ctx, n.Label, n.Pos())
	case *ast.ReturnStmt:
		if n.Label != (ast.BareName{}) {
			a.recordLabelRef(ctx, n.Label, n.Pos())
		}
	case *ast.LabelStmt:
		a.defineLabel(ctx, n.Name, n.Pos())
	case *ast.OnErrorStmt:
		if n.Kind == ast.OnErrorGoto {
			a.recordLabelRef(ctx, n.Label, n.Pos())
		}
	case *ast.ResumeStmt:
		if n.Kind == ast.ResumeLabelStmt {
			a.recordLabelRef(ctx, n.Label, n.Pos())
		}

	case *ast.ExitStmt:
		a.checkExit(n, ctx)

	case *ast.CallStmt:
		a.convertCall(n, scope)

	case *ast.PrintStmt:
		if n.FileNumber != nil {
			a.mustBeNumeric(n.FileNumber, scope)
		}
		for _, item := range n.Items {
			if item.Expr != nil {
				if _, err := a.convertExpr(item.Expr, scope); err != nil {
					a.fail(err)
				}
			}
		}

	case *ast.InputStmt:
		if n.FileNumber != nil {
			a.mustBeNumeric(n.FileNumber, scope)
		}
		for _, t := range n.Targets {
			if _, err := a.convertTarget(t, scope); err != nil {
				a.fail(err)
			}
		}

	case *ast.ReadStmt:
		for _, t := range n.Targets {
			if _, err := a.convertTarget(t, scope); err != nil {
				a.fail(err)
			}
		}

	case *ast.DataStmt:
		a.result.Data = append(a.result.Data, n.Values...)

	case *ast.RestoreStmt:
		if n.Label != (ast.BareName{}) {
			a.recordLabelRef(ctx, n.Label, n.Pos())
		}

	case *ast.OpenStmt:
		a.mustBeString(n.FileName, scope)
		a.mustBeNumeric(n.FileNumber, scope)
		if n.RecordLen != nil {
			a.mustBeNumeric(n.RecordLen, scope)
		}

	case *ast.CloseStmt:
		for _, fn := range n.FileNumbers {
			a.mustBeNumeric(fn, scope)
		}

	case *ast.GetPutStmt:
		a.mustBeNumeric(n.FileNumber, scope)
		if n.RecordNum != nil {
			a.mustBeNumeric(n.RecordNum, scope)
		}
		if n.Target != nil {
			if _, err := a.convertTarget(n.Target, scope); err != nil {
				a.fail(err)
			}
		}

	case *ast.FieldStmt:
		a.mustBeNumeric(n.FileNumber, scope)
		for _, item := range n.Items {
			a.mustBeNumeric(item.Width, scope)
			if _, err := a.convertTarget(item.Target, scope); err != nil {
				a.fail(err)
			}
		}

	case *ast.LSetStmt:
		if _, err := a.convertTarget(n.Target, scope); err != nil {
			a.fail(err)
		}
		a.mustBeString(n.Value, scope)

	case *ast.NameStmt:
		a.mustBeString(n.OldName, scope)
		a.mustBeString(n.NewName, scope)

	case *ast.KillStmt:
		a.mustBeString(n.FileName, scope)

	case *ast.ExprStmt:
		if _, err := a.convertExpr(n.Expr, scope); err != nil {
			a.fail(err)
		}

	default:
		// Unrecognized statement kinds are a parser/AST contract bug, not a
		// user error — the lint pass has nothing useful to say about them.
	}
}

func (a *analyzer) mustBeNumeric(e ast.Expr, scope *Scope) {
	t, err := a.convertExpr(e, scope)
	if err != nil {
		a.fail(err)
		return
	}
	if !t.IsNumeric() {
		a.fail(errs.NewLintError(errs.LintTypeMismatch, "expected a numeric expression").At(e.Pos()))
	}
}

func (a *analyzer) mustBeString(e ast.Expr, scope *Scope) {
	t, err := a.convertExpr(e, scope)
	if err != nil {
		a.fail(err)
		return
	}
	if !t.IsString() {
		a.fail(errs.NewLintError(errs.LintTypeMismatch, "expected a string expression").At(e.Pos()))
	}
}

func (a *analyzer) convertCaseExpr(ce ast.CaseExpr, selType ast.ExpressionType, scope *Scope) {
	switch ce.Kind {
	case ast.CaseSimple:
		if _, err := a.convertExpr(ce.Value, scope); err != nil {
			a.fail(err)
		}
	case ast.CaseRange:
		if _, err := a.convertExpr(ce.From, scope); err != nil {
			a.fail(err)
		}
		if _, err := a.convertExpr(ce.To, scope); err != nil {
			a.fail(err)
		}
	case ast.CaseIs:
		if _, err := a.convertExpr(ce.Value, scope); err != nil {
			a.fail(err)
		}
	}
}

func (a *analyzer) checkExit(n *ast.ExitStmt, ctx *context) {
	switch n.Kind {
	case ast.ExitFor:
		if !ctx.inLoop(loopFor) {
			a.fail(errs.NewLintError(errs.LintIllegalOutsideSubFunc, "EXIT FOR outside a FOR loop").At(n.Pos()))
		}
	case ast.ExitDo:
		if !ctx.inLoop(loopDo) {
			a.fail(errs.NewLintError(errs.LintIllegalOutsideSubFunc, "EXIT DO outside a DO loop").At(n.Pos()))
		}
	case ast.ExitWhile:
		if !ctx.inLoop(loopWhile) {
			a.fail(errs.NewLintError(errs.LintIllegalOutsideSubFunc, "EXIT WHILE outside a WHILE loop").At(n.Pos()))
		}
	case ast.ExitSub:
		if !ctx.isSub {
			a.fail(errs.NewLintError(errs.LintIllegalOutsideSubFunc, "EXIT SUB outside a SUB").At(n.Pos()))
		}
	case ast.ExitFunction:
		if !ctx.isFunction {
			a.fail(errs.NewLintError(errs.LintIllegalOutsideSubFunc, "EXIT FUNCTION outside a FUNCTION").At(n.Pos()))
		}
	}
}

func (a *analyzer) recordLabelRef(ctx *context, label ast.BareName, pos ast.Position) {
	key := scopeKey(ctx.subprogram)
	a.refs[key] = append(a.refs[key], labelRef{name: label, pos: pos})
}

func (a *analyzer) defineLabel(ctx *context, label ast.BareName, pos ast.Position) {
	key := scopeKey(ctx.subprogram)
	if a.labels[key] == nil {
		a.labels[key] = make(map[string]ast.Position)
	}
	canon := label.CanonicalName()
	if _, dup := a.labels[key][canon]; dup {
		a.fail(errs.NewLintError(errs.LintDuplicateLabel, "label "+label.String()+" already defined").At(pos))
		return
	}
	a.labels[key][canon] = pos
}

// convertDim resolves one DIM/REDIM statement's variable list, defining
// each into the global scope (for SHARED or module-level DIMs) or the
// current subprogram scope otherwise.
func (a *analyzer) convertDim(n *ast.DimStmt, scope *Scope) {
	for _, v := range n.Vars {
		target := scope
		if v.Shared || scope.IsGlobal() {
			target = a.result.Global
		}
		for _, b := range v.Bounds {
			if b.Lower != nil {
				a.mustBeNumeric(b.Lower, scope)
			}
			a.mustBeNumeric(b.Upper, scope)
		}
		typ := v.Type
		if typ.Kind == ast.ExprUnresolved {
			typ = a.defaultType(v.Name)
		}
		if typ.Kind == ast.ExprUserDefined {
			if _, ok := a.result.Types[typ.UDTName.CanonicalName()]; !ok {
				a.fail(errs.NewLintError(errs.LintTypeNotDefined, "TYPE "+typ.UDTName.String()+" is not defined").At(n.Pos()))
				continue
			}
		}
		existing, already := target.ResolveLocal(v.Name.Bare)
		if already && existing.IsArray && v.IsArray && !v.IsRedim {
			a.fail(errs.NewLintError(errs.LintArrayAlreadyDimensioned, v.Name.String()+" is already dimensioned").At(n.Pos()))
			continue
		}
		if already && v.IsRedim && existing.IsArray && existing.Dims != len(v.Bounds) {
			a.fail(errs.NewLintError(errs.LintWrongNumberOfDimensions, "REDIM of "+v.Name.String()+" changes its dimension count").At(n.Pos()))
		}
		full := typ
		if v.IsArray {
			full = ast.ArrayType(typ)
		}
		target.Define(&Symbol{
			Name: v.Name.Bare, Kind: EntryExtended, Type: full,
			IsArray: v.IsArray, Shared: v.Shared, Dims: len(v.Bounds),
		})
	}
}

// convertTarget resolves an assignable expression (the left side of an
// AssignStmt, an INPUT/READ target, a FIELD slot) and rejects literals and
// call expressions, which can never be write destinations.
func (a *analyzer) convertTarget(e ast.Expr, scope *Scope) (ast.ExpressionType, error) {
	switch e.(type) {
	case *ast.VariableRef, *ast.ArrayElementRef, *ast.PropertyRef:
		return a.convertExpr(e, scope)
	default:
		return ast.ExpressionType{}, errs.NewLintError(errs.LintVariableRequired, "expected a variable").At(e.Pos())
	}
}

// convertExpr resolves expr's type against scope, auto-declaring a bare
// variable reference the first time it's seen (QBASIC has no mandatory
// DIM for scalars — spec §5.2 step 5).
func (a *analyzer) convertExpr(expr ast.Expr, scope *Scope) (ast.ExpressionType, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		t := litType(n.Value)
		n.SetType(t)
		return t, nil

	case *ast.VariableRef:
		t, err := a.resolveVariable(scope, n.Name, n.Pos())
		if err != nil {
			return ast.ExpressionType{}, err
		}
		n.SetType(t)
		return t, nil

	case *ast.ArrayElementRef:
		sym, ok := scope.Resolve(n.Name.Bare)
		if !ok || !sym.IsArray {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintArrayNotDefined, n.Name.String()+" is not a dimensioned array").At(n.Pos())
		}
		if sym.Dims != 0 && sym.Dims != len(n.Indices) {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintWrongNumberOfDimensions, n.Name.String()+" indexed with the wrong number of dimensions").At(n.Pos())
		}
		for _, idx := range n.Indices {
			a.mustBeNumeric(idx, scope)
		}
		elem := sym.Type
		if elem.Kind == ast.ExprArray {
			elem = *elem.Elem
		}
		n.SetType(elem)
		return elem, nil

	case *ast.PropertyRef:
		leftType, err := a.convertExpr(n.Left, scope)
		if err != nil {
			return ast.ExpressionType{}, err
		}
		if leftType.Kind != ast.ExprUserDefined {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintElementNotDefined, "left side of . is not a user-defined type").At(n.Pos())
		}
		info, ok := a.result.Types[leftType.UDTName.CanonicalName()]
		if !ok {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintTypeNotDefined, "TYPE "+leftType.UDTName.String()+" is not defined").At(n.Pos())
		}
		for _, f := range info.Fields {
			if f.Name.Equal(n.Right) {
				n.SetType(f.Type)
				return f.Type, nil
			}
		}
		return ast.ExpressionType{}, errs.NewLintError(errs.LintElementNotDefined, n.Right.String()+" is not an element of "+leftType.UDTName.String()).At(n.Pos())

	case *ast.BinaryExpr:
		lt, err := a.convertExpr(n.Left, scope)
		if err != nil {
			return ast.ExpressionType{}, err
		}
		rt, err := a.convertExpr(n.Right, scope)
		if err != nil {
			return ast.ExpressionType{}, err
		}
		result, ok := vm.BinaryResultType(n.Op, lt, rt)
		if !ok {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintTypeMismatch, "operator not valid between "+lt.String()+" and "+rt.String()).At(n.Pos())
		}
		n.SetType(result)
		return result, nil

	case *ast.UnaryExpr:
		ct, err := a.convertExpr(n.Child, scope)
		if err != nil {
			return ast.ExpressionType{}, err
		}
		if !ct.IsNumeric() {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintTypeMismatch, "operator requires a numeric operand").At(n.Pos())
		}
		result := ct
		if n.Op == ast.OpNot {
			result = ast.BuiltInType(ast.Long)
		}
		n.SetType(result)
		return result, nil

	case *ast.FunctionCallExpr:
		return a.convertFunctionCall(n, scope)

	default:
		return ast.ExpressionType{}, errs.NewLintError(errs.LintSyntaxError, "unrecognized expression").At(expr.Pos())
	}
}

func (a *analyzer) resolveVariable(scope *Scope, name ast.Name, pos ast.Position) (ast.ExpressionType, error) {
	if sym, ok := scope.Resolve(name.Bare); ok {
		if sym.IsArray {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintVariableRequired, name.String()+" is an array; index it with ()").At(pos)
		}
		if name.IsQualified() && sym.Type.Kind == ast.ExprBuiltIn && sym.Type.BuiltIn != name.Qualifier {
			return ast.ExpressionType{}, errs.NewLintError(errs.LintDuplicateDefinition, name.String()+" conflicts with an existing declaration of a different type").At(pos)
		}
		return sym.Type, nil
	}
	// Implicit scalar declaration: first mention creates the variable using
	// the DEFxxx default (or its own qualifier suffix), scoped locally
	// unless we're already at the top level.
	t := a.defaultType(name)
	scope.Define(&Symbol{Name: name.Bare, Kind: EntryCompact, Type: t})
	return t, nil
}

func (a *analyzer) convertFunctionCall(n *ast.FunctionCallExpr, scope *Scope) (ast.ExpressionType, error) {
	upper := strings.ToUpper(n.Name.Bare.String())
	if entry, ok := builtinFunctions[upper+n.Name.Qualifier.String()]; ok {
		return a.finishBuiltinCall(n, entry, scope)
	}
	if entry, ok := builtinFunctions[upper]; ok {
		return a.finishBuiltinCall(n, entry, scope)
	}
	sig, ok := a.result.Signatures[n.Name.Bare.CanonicalName()]
	if !ok || sig.Kind != ast.DeclareFunction {
		return ast.ExpressionType{}, errs.NewLintError(errs.LintSubprogramNotDefined, n.Name.String()+" is not a declared FUNCTION").At(n.Pos())
	}
	if err := a.checkArgs(n.Name.String(), sig.Params, n.Args, scope, n.Pos()); err != nil {
		return ast.ExpressionType{}, err
	}
	n.IsBuiltIn = false
	ret := sig.ReturnType
	if ret.Kind == ast.ExprUnresolved || (ret.Kind == ast.ExprBuiltIn && ret.BuiltIn == ast.QualifierNone) {
		ret = a.defaultType(n.Name)
	}
	n.SetType(ret)
	return ret, nil
}

func (a *analyzer) finishBuiltinCall(n *ast.FunctionCallExpr, entry builtinFunctionEntry, scope *Scope) (ast.ExpressionType, error) {
	if len(n.Args) < entry.minArgs || len(n.Args) > entry.maxArgs {
		return ast.ExpressionType{}, errs.NewLintError(errs.LintArgumentCountMismatch, n.Name.String()+" called with the wrong number of arguments").At(n.Pos())
	}
	for _, arg := range n.Args {
		if _, err := a.convertExpr(arg, scope); err != nil {
			return ast.ExpressionType{}, err
		}
	}
	n.IsBuiltIn = true
	n.BuiltIn = entry.id
	n.SetType(entry.ret)
	return entry.ret, nil
}

func (a *analyzer) convertCall(n *ast.CallStmt, scope *Scope) {
	upper := strings.ToUpper(n.Name.Bare.String())
	if id, ok := builtinSubs[upper]; ok {
		n.IsBuiltIn = true
		n.BuiltIn = id
		for _, arg := range n.Args {
			if _, err := a.convertExpr(arg, scope); err != nil {
				a.fail(err)
			}
		}
		return
	}
	sig, ok := a.result.Signatures[n.Name.Bare.CanonicalName()]
	if !ok || sig.Kind != ast.DeclareSub {
		a.fail(errs.NewLintError(errs.LintSubprogramNotDefined, n.Name.String()+" is not a declared SUB").At(n.Pos()))
		return
	}
	if err := a.checkArgs(n.Name.String(), sig.Params, n.Args, scope, n.Pos()); err != nil {
		a.fail(err)
	}
}

func (a *analyzer) checkArgs(name string, params []ast.Parameter, args []ast.Expr, scope *Scope, pos ast.Position) error {
	if len(params) != len(args) {
		return errs.NewLintError(errs.LintArgumentCountMismatch, name+" expects "+strconv.Itoa(len(params))+" argument(s)").At(pos)
	}
	for i, arg := range args {
		argType, err := a.convertExpr(arg, scope)
		if err != nil {
			return err
		}
		p := params[i]
		want := p.Type
		if want.Kind == ast.ExprUnresolved {
			want = a.defaultType(p.Name)
		}
		if p.IsArray != isArrayArg(arg, scope) {
			return errs.NewLintError(errs.LintArgumentTypeMismatch, name+" argument "+strconv.Itoa(i+1)+" array-ness does not match its declaration").At(arg.Pos())
		}
		if !p.IsArray && !assignable(argType, want) {
			return errs.NewLintError(errs.LintArgumentTypeMismatch, name+" argument "+strconv.Itoa(i+1)+" has the wrong type").At(arg.Pos())
		}
	}
	return nil
}

func isArrayArg(e ast.Expr, scope *Scope) bool {
	ref, ok := e.(*ast.VariableRef)
	if !ok {
		return false
	}
	sym, ok := scope.Resolve(ref.Name.Bare)
	return ok && sym.IsArray
}

// assignable reports whether a value of type from may be assigned,
// coerced, or passed into a slot declared with type to: numeric widens or
// narrows freely (the VM raises Overflow at runtime, not lint time),
// string assigns to string or a fixed-length string slot, and UDTs/arrays
// must match exactly.
func assignable(from, to ast.ExpressionType) bool {
	switch to.Kind {
	case ast.ExprBuiltIn:
		if to.BuiltIn == ast.String {
			return from.IsString()
		}
		return from.IsNumeric()
	case ast.ExprFixedLengthString:
		return from.IsString()
	case ast.ExprUserDefined:
		return from.Kind == ast.ExprUserDefined && from.UDTName.Equal(to.UDTName)
	case ast.ExprArray:
		return from.Kind == ast.ExprArray
	default:
		return false
	}
}

