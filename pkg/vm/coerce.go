package vm

import (
	"math"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// numericRank orders the widening lattice Integer < Long < Single < Double
// (spec §4.3.5).
func numericRank(q ast.Qualifier) int {
	switch q {
	case ast.Integer:
		return 0
	case ast.Long:
		return 1
	case ast.Single:
		return 2
	case ast.Double:
		return 3
	default:
		return -1
	}
}

// wider returns whichever of a, b ranks higher in the numeric lattice.
func wider(a, b ast.Qualifier) ast.Qualifier {
	if numericRank(a) >= numericRank(b) {
		return a
	}
	return b
}

// ToFloat64 widens any numeric Value to float64 for computation.
func ToFloat64(v Value) (float64, bool) {
	switch val := v.(type) {
	case IntegerValue:
		return float64(val.Val), true
	case LongValue:
		return float64(val.Val), true
	case SingleValue:
		return float64(val.Val), true
	case DoubleValue:
		return val.Val, true
	default:
		return 0, false
	}
}

// CoerceNumeric converts v to the qualifier q, applying round-to-nearest,
// ties-to-even when narrowing a float to an integral type, and raising
// Overflow when the result doesn't fit.
func CoerceNumeric(v Value, q ast.Qualifier) (Value, error) {
	f, ok := ToFloat64(v)
	if !ok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "cannot coerce non-numeric value")
	}
	switch q {
	case ast.Integer:
		r := roundToEven(f)
		if r < math.MinInt16 || r > math.MaxInt16 {
			return nil, errs.NewRuntimeError(errs.KindOverflow, "value does not fit in Integer")
		}
		return IntegerValue{Val: int16(r)}, nil
	case ast.Long:
		r := roundToEven(f)
		if r < math.MinInt32 || r > math.MaxInt32 {
			return nil, errs.NewRuntimeError(errs.KindOverflow, "value does not fit in Long")
		}
		return LongValue{Val: int32(r)}, nil
	case ast.Single:
		return SingleValue{Val: float32(f)}, nil
	case ast.Double:
		return DoubleValue{Val: f}, nil
	default:
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "not a numeric qualifier")
	}
}

// roundToEven implements banker's rounding for narrowing float->int
// coercions, per spec §4.3.5.
func roundToEven(f float64) float64 {
	floor := math.Floor(f)
	diff := f - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			return floor
		}
		return floor + 1
	}
}

// FixLength pads or truncates a string to exactly n characters, the
// behavior spec §3 and §4.1.2 require for assignment into a fixed-length
// string slot.
func FixLength(v StringValue, n uint16) StringValue {
	s := v.Val
	if len(s) > int(n) {
		s = s[:n]
	} else if len(s) < int(n) {
		s = s + strings.Repeat(" ", int(n)-len(s))
	}
	return StringValue{Val: s, FixedLen: n}
}

// Coerce converts v to match the declared ExpressionType t, used for
// assignment and argument passing. Numeric<->numeric widens/narrows per
// CoerceNumeric; string<->string pads/truncates fixed-length targets;
// string<->numeric is always a TypeMismatch.
func Coerce(v Value, t ast.ExpressionType) (Value, error) {
	switch t.Kind {
	case ast.ExprBuiltIn:
		if t.BuiltIn == ast.String {
			sv, ok := v.(StringValue)
			if !ok {
				return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "expected string")
			}
			return StringValue{Val: sv.Val}, nil
		}
		if _, ok := v.(StringValue); ok {
			return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "cannot coerce string to numeric")
		}
		return CoerceNumeric(v, t.BuiltIn)
	case ast.ExprFixedLengthString:
		sv, ok := v.(StringValue)
		if !ok {
			return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "expected string")
		}
		return FixLength(sv, t.FixedLen), nil
	case ast.ExprUserDefined:
		uv, ok := v.(UDTValue)
		if !ok {
			return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "expected user-defined type value")
		}
		return uv.Clone(), nil
	case ast.ExprArray:
		av, ok := v.(ArrayValue)
		if !ok {
			return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "expected array value")
		}
		return av, nil
	default:
		return v, nil
	}
}

// BinaryResultType computes the static result type of a binary operator
// applied to two operand types, following the same lattice the VM uses at
// runtime (spec §4.3.5, §3). Used by the linter for compile-time type
// checking of expressions before any value exists.
func BinaryResultType(op ast.BinOp, left, right ast.ExpressionType) (ast.ExpressionType, bool) {
	lq, lok := scalarQualifier(left)
	rq, rok := scalarQualifier(right)
	if !lok || !rok {
		return ast.ExpressionType{}, false
	}
	switch op {
	case ast.OpPlus:
		if lq == ast.String && rq == ast.String {
			return ast.BuiltInType(ast.String), true
		}
		if lq == ast.String || rq == ast.String {
			return ast.ExpressionType{}, false
		}
		return ast.BuiltInType(wider(lq, rq)), true
	case ast.OpMinus, ast.OpMultiply:
		if lq == ast.String || rq == ast.String {
			return ast.ExpressionType{}, false
		}
		return ast.BuiltInType(wider(lq, rq)), true
	case ast.OpDivide:
		if lq == ast.String || rq == ast.String {
			return ast.ExpressionType{}, false
		}
		if lq == ast.Double || rq == ast.Double {
			return ast.BuiltInType(ast.Double), true
		}
		return ast.BuiltInType(ast.Single), true
	case ast.OpModulo:
		if lq == ast.String || rq == ast.String {
			return ast.ExpressionType{}, false
		}
		return ast.BuiltInType(ast.Long), true
	case ast.OpAnd, ast.OpOr:
		if lq == ast.String || rq == ast.String {
			return ast.ExpressionType{}, false
		}
		return ast.BuiltInType(ast.Long), true
	case ast.OpLess, ast.OpLessOrEqual, ast.OpEqual, ast.OpGreaterOrEqual, ast.OpGreater, ast.OpNotEqual:
		if (lq == ast.String) != (rq == ast.String) {
			return ast.ExpressionType{}, false
		}
		return ast.BuiltInType(ast.Integer), true
	default:
		return ast.ExpressionType{}, false
	}
}

func scalarQualifier(t ast.ExpressionType) (ast.Qualifier, bool) {
	switch t.Kind {
	case ast.ExprBuiltIn:
		return t.BuiltIn, true
	case ast.ExprFixedLengthString:
		return ast.String, true
	default:
		return ast.QualifierNone, false
	}
}
