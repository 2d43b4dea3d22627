package vm

import (
	"math"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// PerformBinary executes a binary operator against registers A and B
// (a=left, b=right) per spec §4.3.5, returning the new value for A.
func PerformBinary(op ast.BinOp, a, b Value) (Value, error) {
	switch op {
	case ast.OpPlus:
		if as, aok := a.(StringValue); aok {
			bs, bok := b.(StringValue)
			if !bok {
				return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "cannot add string and non-string")
			}
			return StringValue{Val: as.Val + bs.Val}, nil
		}
		return addNumeric(a, b)
	case ast.OpMinus:
		return subNumeric(a, b)
	case ast.OpMultiply:
		return mulNumeric(a, b)
	case ast.OpDivide:
		return divNumeric(a, b)
	case ast.OpModulo:
		return moduloNumeric(a, b)
	case ast.OpAnd:
		return bitwise(a, b, func(x, y int32) int32 { return x & y })
	case ast.OpOr:
		return bitwise(a, b, func(x, y int32) int32 { return x | y })
	case ast.OpLess, ast.OpLessOrEqual, ast.OpEqual, ast.OpGreaterOrEqual, ast.OpGreater, ast.OpNotEqual:
		return compare(op, a, b)
	default:
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "unsupported binary operator")
	}
}

// PerformNot implements unary NOT: bitwise complement of the Long coercion
// of the operand (spec §4.3.5).
func PerformNot(a Value) (Value, error) {
	f, ok := ToFloat64(a)
	if !ok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "NOT requires a numeric operand")
	}
	return LongValue{Val: ^int32(roundToEven(f))}, nil
}

// PerformNegate implements unary minus, promoting Integer to Long on
// overflow the same way binary + does, and raising Overflow if the Long
// range is also exceeded.
func PerformNegate(a Value) (Value, error) {
	switch v := a.(type) {
	case IntegerValue:
		r := -int32(v.Val)
		if r < math.MinInt16 || r > math.MaxInt16 {
			return LongValue{Val: r}, nil
		}
		return IntegerValue{Val: int16(r)}, nil
	case LongValue:
		if v.Val == math.MinInt32 {
			return nil, errs.NewRuntimeError(errs.KindOverflow, "negation overflows Long")
		}
		return LongValue{Val: -v.Val}, nil
	case SingleValue:
		return SingleValue{Val: -v.Val}, nil
	case DoubleValue:
		return DoubleValue{Val: -v.Val}, nil
	default:
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "cannot negate a non-numeric value")
	}
}

func addNumeric(a, b Value) (Value, error) {
	if ai, aok := a.(IntegerValue); aok {
		if bi, bok := b.(IntegerValue); bok {
			r := int32(ai.Val) + int32(bi.Val)
			if r < math.MinInt16 || r > math.MaxInt16 {
				return LongValue{Val: r}, nil
			}
			return IntegerValue{Val: int16(r)}, nil
		}
	}
	return widenedOp(a, b, func(x, y float64) float64 { return x + y })
}

func subNumeric(a, b Value) (Value, error) {
	if ai, aok := a.(IntegerValue); aok {
		if bi, bok := b.(IntegerValue); bok {
			r := int32(ai.Val) - int32(bi.Val)
			if r < math.MinInt16 || r > math.MaxInt16 {
				return LongValue{Val: r}, nil
			}
			return IntegerValue{Val: int16(r)}, nil
		}
	}
	return widenedOp(a, b, func(x, y float64) float64 { return x - y })
}

func mulNumeric(a, b Value) (Value, error) {
	if ai, aok := a.(IntegerValue); aok {
		if bi, bok := b.(IntegerValue); bok {
			r := int32(ai.Val) * int32(bi.Val)
			if r < math.MinInt16 || r > math.MaxInt16 {
				return LongValue{Val: r}, nil
			}
			return IntegerValue{Val: int16(r)}, nil
		}
	}
	return widenedOp(a, b, func(x, y float64) float64 { return x * y })
}

// widenedOp computes f(a,b) in the wider of a's and b's numeric types,
// detecting overflow for the Integer/Long results and clamping/erroring
// per spec §4.3.5.
func widenedOp(a, b Value, f func(x, y float64) float64) (Value, error) {
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if !aok || !bok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "operands must be numeric")
	}
	q := wider(a.Qualifier(), b.Qualifier())
	result := f(af, bf)
	switch q {
	case ast.Long:
		r := roundToEven(result)
		if r < math.MinInt32 || r > math.MaxInt32 {
			return nil, errs.NewRuntimeError(errs.KindOverflow, "result does not fit in Long")
		}
		return LongValue{Val: int32(r)}, nil
	case ast.Single:
		return SingleValue{Val: float32(result)}, nil
	case ast.Double:
		return DoubleValue{Val: result}, nil
	default:
		r := roundToEven(result)
		if r < math.MinInt16 || r > math.MaxInt16 {
			return LongValue{Val: int32(r)}, nil
		}
		return IntegerValue{Val: int16(r)}, nil
	}
}

// divNumeric: division always yields Single unless either operand is
// Double (spec §4.3.5).
func divNumeric(a, b Value) (Value, error) {
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if !aok || !bok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "operands must be numeric")
	}
	if bf == 0 {
		return nil, errs.NewRuntimeError(errs.KindDivisionByZero, "division by zero")
	}
	result := af / bf
	if a.Qualifier() == ast.Double || b.Qualifier() == ast.Double {
		return DoubleValue{Val: result}, nil
	}
	return SingleValue{Val: float32(result)}, nil
}

// moduloNumeric coerces both operands to Long and yields Long.
func moduloNumeric(a, b Value) (Value, error) {
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if !aok || !bok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "operands must be numeric")
	}
	al := roundToEven(af)
	bl := roundToEven(bf)
	if al < math.MinInt32 || al > math.MaxInt32 || bl < math.MinInt32 || bl > math.MaxInt32 {
		return nil, errs.NewRuntimeError(errs.KindOverflow, "MOD operand does not fit in Long")
	}
	if int32(bl) == 0 {
		return nil, errs.NewRuntimeError(errs.KindDivisionByZero, "MOD by zero")
	}
	return LongValue{Val: int32(al) % int32(bl)}, nil
}

func bitwise(a, b Value, f func(x, y int32) int32) (Value, error) {
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if !aok || !bok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "operands must be numeric")
	}
	return LongValue{Val: f(int32(roundToEven(af)), int32(roundToEven(bf)))}, nil
}

// compare implements the six relational operators, returning Integer -1
// (true) or 0 (false).
func compare(op ast.BinOp, a, b Value) (Value, error) {
	var cmp int
	as, aIsStr := a.(StringValue)
	bs, bIsStr := b.(StringValue)
	switch {
	case aIsStr && bIsStr:
		cmp = strings.Compare(as.Val, bs.Val)
	case aIsStr != bIsStr:
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "cannot compare string with numeric")
	default:
		af, _ := ToFloat64(a)
		bf, _ := ToFloat64(b)
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		default:
			cmp = 0
		}
	}
	var result bool
	switch op {
	case ast.OpLess:
		result = cmp < 0
	case ast.OpLessOrEqual:
		result = cmp <= 0
	case ast.OpEqual:
		result = cmp == 0
	case ast.OpGreaterOrEqual:
		result = cmp >= 0
	case ast.OpGreater:
		result = cmp > 0
	case ast.OpNotEqual:
		result = cmp != 0
	}
	if result {
		return IntegerValue{Val: -1}, nil
	}
	return IntegerValue{Val: 0}, nil
}
