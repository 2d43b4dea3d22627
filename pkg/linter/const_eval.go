package linter

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// litType maps a literal's LiteralKind to the ExpressionType the rest of
// the analyzer works with.
func litType(lit ast.LiteralValue) ast.ExpressionType {
	switch lit.Kind {
	case ast.LitInteger:
		return ast.BuiltInType(ast.Integer)
	case ast.LitLong:
		return ast.BuiltInType(ast.Long)
	case ast.LitSingle:
		return ast.BuiltInType(ast.Single)
	case ast.LitDouble:
		return ast.BuiltInType(ast.Double)
	default:
		return ast.BuiltInType(ast.String)
	}
}

func litFloat(lit ast.LiteralValue) float64 {
	switch lit.Kind {
	case ast.LitInteger, ast.LitLong:
		return float64(lit.Int)
	default:
		return lit.Flt
	}
}

func qualifierKind(q ast.Qualifier) ast.LiteralKind {
	switch q {
	case ast.Integer:
		return ast.LitInteger
	case ast.Long:
		return ast.LitLong
	case ast.Double:
		return ast.LitDouble
	case ast.String:
		return ast.LitString
	default:
		return ast.LitSingle
	}
}

// coerceLiteral re-kinds a folded constant to match an explicit qualifier
// on its CONST name, used only for numeric<->numeric narrowing/widening;
// string/numeric mismatches are rejected by the caller.
func coerceLiteral(lit ast.LiteralValue, q ast.Qualifier) (ast.LiteralValue, bool) {
	if q == ast.String {
		return lit, lit.Kind == ast.LitString
	}
	if lit.Kind == ast.LitString {
		return lit, false
	}
	f := litFloat(lit)
	switch q {
	case ast.Integer, ast.Long:
		return ast.LiteralValue{Kind: qualifierKind(q), Int: int32(f)}, true
	default:
		return ast.LiteralValue{Kind: qualifierKind(q), Flt: f}, true
	}
}

func negateLiteral(lit ast.LiteralValue) ast.LiteralValue {
	if lit.Kind == ast.LitInteger || lit.Kind == ast.LitLong {
		lit.Int = -lit.Int
		return lit
	}
	lit.Flt = -lit.Flt
	return lit
}

// foldConstBinary evaluates a binary operator over two already-folded
// constants. Only the operators legal in a CONST initializer are handled;
// comparisons and boolean operators aren't allowed there.
func foldConstBinary(op ast.BinOp, l, r ast.LiteralValue, pos ast.Position) (ast.LiteralValue, error) {
	bothString := l.Kind == ast.LitString && r.Kind == ast.LitString
	if bothString {
		if op != ast.OpPlus {
			return ast.LiteralValue{}, errs.NewLintError(errs.LintInvalidConstant, "only & / + concatenation is valid between string constants").At(pos)
		}
		return ast.LiteralValue{Kind: ast.LitString, Str: l.Str + r.Str}, nil
	}
	if l.Kind == ast.LitString || r.Kind == ast.LitString {
		return ast.LiteralValue{}, errs.NewLintError(errs.LintTypeMismatch, "cannot mix string and numeric constants").At(pos)
	}
	lf, rf := litFloat(l), litFloat(r)
	var result float64
	switch op {
	case ast.OpPlus:
		result = lf + rf
	case ast.OpMinus:
		result = lf - rf
	case ast.OpMultiply:
		result = lf * rf
	case ast.OpDivide:
		if rf == 0 {
			return ast.LiteralValue{}, errs.NewLintError(errs.LintInvalidConstant, "division by zero in constant expression").At(pos)
		}
		result = lf / rf
	default:
		return ast.LiteralValue{}, errs.NewLintError(errs.LintInvalidConstant, "operator not valid in a constant expression").At(pos)
	}
	kind := ast.LitDouble
	if (l.Kind == ast.LitInteger || l.Kind == ast.LitLong) && (r.Kind == ast.LitInteger || r.Kind == ast.LitLong) && op != ast.OpDivide {
		kind = ast.LitLong
		if l.Kind == ast.LitInteger && r.Kind == ast.LitInteger {
			kind = ast.LitInteger
		}
	} else if l.Kind == ast.LitSingle || r.Kind == ast.LitSingle {
		if l.Kind != ast.LitDouble && r.Kind != ast.LitDouble {
			kind = ast.LitSingle
		}
	}
	if kind == ast.LitInteger || kind == ast.LitLong {
		return ast.LiteralValue{Kind: kind, Int: int32(result)}, nil
	}
	return ast.LiteralValue{Kind: kind, Flt: result}, nil
}
