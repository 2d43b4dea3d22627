package linter

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// prePass collects everything later passes need to already know about:
// DEFxxx ranges (so defaultType works before a variable's first mention),
// TYPE layouts, CONST values, and every SUB/FUNCTION signature, whether it
// arrived via DECLARE or as a full body. Order independence is the point —
// a FUNCTION defined at the bottom of the file must still be callable from
// the top.
func (a *analyzer) prePass(prog *ast.Program) {
	a.collectDefTypes(prog.TopLevel)
	a.collectTypeNames(prog.Types)
	a.resolveTypeFields(prog.Types)
	a.collectConsts(prog.TopLevel)
	for _, d := range prog.Declares {
		a.collectSignature(d.Name.Bare, d.Kind, d.Params, d.Name.Qualifier, false, d.Position, false)
	}
	for _, f := range prog.Functions {
		a.collectSignature(f.Name.Bare, ast.DeclareFunction, f.Params, f.Name.Qualifier, f.IsStatic, f.Position, true)
	}
	for _, s := range prog.Subs {
		a.collectSignature(s.Name, ast.DeclareSub, s.Params, ast.QualifierNone, s.IsStatic, s.Position, true)
	}
}

func (a *analyzer) collectDefTypes(stmts []ast.Stmt) {
	for _, st := range stmts {
		d, ok := st.(*ast.DefTypeStmt)
		if !ok {
			continue
		}
		for _, r := range d.Ranges {
			from, to := r.From, r.To
			if from > to {
				from, to = to, from
			}
			for c := from; c <= to; c++ {
				if c < 'A' || c > 'Z' {
					continue
				}
				a.result.Defaults[c-'A'] = d.Qualifier
			}
		}
	}
}

func (a *analyzer) collectTypeNames(types []ast.TypeDefStmt) {
	for _, t := range types {
		canon := t.Name.CanonicalName()
		if _, dup := a.result.Types[canon]; dup {
			a.fail(errs.NewLintError(errs.LintDuplicateDefinition, "TYPE "+t.Name.String()+" already defined").At(t.Pos()))
			continue
		}
		info := &TypeInfo{Name: t.Name}
		seen := make(map[string]bool, len(t.Elements))
		for _, el := range t.Elements {
			fc := el.Name.Bare.CanonicalName()
			if seen[fc] {
				a.fail(errs.NewLintError(errs.LintDuplicateDefinition, "duplicate element "+el.Name.String()+" in TYPE "+t.Name.String()).At(t.Pos()))
				continue
			}
			seen[fc] = true
			info.Fields = append(info.Fields, FieldInfo{Name: el.Name.Bare, Type: el.Type})
		}
		a.result.Types[canon] = info
	}
}

// resolveTypeFields re-walks every field whose declared type references
// another UDT by name, now that every TYPE name in the module is known, and
// rejects references to undefined or self-referential types (QBASIC UDTs
// may not nest themselves, directly or indirectly, since that would make
// the layout infinite).
func (a *analyzer) resolveTypeFields(types []ast.TypeDefStmt) {
	for _, t := range types {
		info := a.result.Types[t.Name.CanonicalName()]
		if info == nil {
			continue
		}
		for _, f := range info.Fields {
			if f.Type.Kind != ast.ExprUserDefined {
				continue
			}
			refName := f.Type.UDTName.CanonicalName()
			if refName == t.Name.CanonicalName() {
				a.fail(errs.NewLintError(errs.LintTypeNotDefined, "TYPE "+t.Name.String()+" cannot contain itself").At(t.Pos()))
				continue
			}
			if _, ok := a.result.Types[refName]; !ok {
				a.fail(errs.NewLintError(errs.LintTypeNotDefined, "element "+f.Name.String()+" refers to undefined TYPE "+f.Type.UDTName.String()).At(t.Pos()))
			}
		}
	}
}

// collectConsts evaluates every top-level CONST in source order, so a CONST
// may reference any CONST defined earlier in the same module.
func (a *analyzer) collectConsts(stmts []ast.Stmt) {
	for _, st := range stmts {
		c, ok := st.(*ast.ConstStmt)
		if !ok {
			continue
		}
		a.defineConst(a.result.Global, c)
	}
}

func (a *analyzer) defineConst(scope *Scope, c *ast.ConstStmt) {
	if _, dup := scope.ResolveLocal(c.Name.Bare); dup {
		a.fail(errs.NewLintError(errs.LintDuplicateDefinition, "CONST "+c.Name.String()+" already defined").At(c.Pos()))
		return
	}
	lit, err := a.evalConstExpr(scope, c.Value)
	if err != nil {
		a.fail(err)
		return
	}
	typ := litType(lit)
	if c.Name.IsQualified() && c.Name.Qualifier != typ.BuiltIn {
		conv, ok := coerceLiteral(lit, c.Name.Qualifier)
		if !ok {
			a.fail(errs.NewLintError(errs.LintTypeMismatch, "CONST "+c.Name.String()+" value does not match its qualifier").At(c.Pos()))
			return
		}
		lit = conv
	}
	sym := &Symbol{Name: c.Name.Bare, Kind: EntryConstant, Type: litType(lit), Constant: lit}
	scope.Define(sym)
}

// evalConstExpr folds a CONST initializer at lint time. Only literals,
// named constants, string concatenation, and the arithmetic/unary operators
// are legal here — anything reaching a variable reference or function call
// means the expression isn't constant.
func (a *analyzer) evalConstExpr(scope *Scope, e ast.Expr) (ast.LiteralValue, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return n.Value, nil
	case *ast.VariableRef:
		sym, ok := scope.Resolve(n.Name.Bare)
		if !ok || sym.Kind != EntryConstant {
			return ast.LiteralValue{}, errs.NewLintError(errs.LintInvalidConstant, n.Name.String()+" is not a constant").At(n.Pos())
		}
		return sym.Constant, nil
	case *ast.UnaryExpr:
		v, err := a.evalConstExpr(scope, n.Child)
		if err != nil {
			return ast.LiteralValue{}, err
		}
		if n.Op == ast.OpNegate {
			return negateLiteral(v), nil
		}
		return ast.LiteralValue{}, errs.NewLintError(errs.LintInvalidConstant, "NOT is not valid in a constant expression").At(n.Pos())
	case *ast.BinaryExpr:
		l, err := a.evalConstExpr(scope, n.Left)
		if err != nil {
			return ast.LiteralValue{}, err
		}
		r, err := a.evalConstExpr(scope, n.Right)
		if err != nil {
			return ast.LiteralValue{}, err
		}
		return foldConstBinary(n.Op, l, r, n.Pos())
	default:
		return ast.LiteralValue{}, errs.NewLintError(errs.LintInvalidConstant, "expression is not constant").At(e.Pos())
	}
}

// collectSignature registers one DECLARE or full-body signature, merging it
// with any signature already seen under the same name and rejecting a
// mismatch between the two (e.g. a DECLARE that disagrees with the body's
// own parameter list).
func (a *analyzer) collectSignature(name ast.BareName, kind ast.DeclareKind, params []ast.Parameter, retQ ast.Qualifier, isStatic bool, pos ast.Position, hasBody bool) {
	canon := name.CanonicalName()
	existing, ok := a.result.Signatures[canon]
	if !ok {
		a.result.Signatures[canon] = &Signature{
			Name: name, Kind: kind, Params: params,
			ReturnType: ast.BuiltInType(retQ), IsStatic: isStatic, Pos: pos, HasBody: hasBody,
		}
		return
	}
	if existing.HasBody && hasBody {
		a.fail(errs.NewLintError(errs.LintDuplicateDefinition, name.String()+" is already defined").At(pos))
		return
	}
	if len(existing.Params) != len(params) {
		a.fail(errs.NewLintError(errs.LintArgumentCountMismatch, "DECLARE for "+name.String()+" does not match its definition").At(pos))
	}
	if hasBody {
		existing.HasBody = true
		existing.Params = params
		existing.IsStatic = isStatic
	}
}
