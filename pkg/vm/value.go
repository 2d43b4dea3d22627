// Package vm implements the bytecode interpreter: the register/stack
// virtual machine described in spec §4.3, plus the Variant value
// representation it operates on (spec §3).
package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
)

// Value is a runtime Variant. All seven spec §3 variants implement it.
type Value interface {
	Qualifier() ast.Qualifier
	String() string
}

// IntegerValue is a signed 16-bit integer, stored as int16. Arithmetic on
// two Integers is done in int32 and yields a Long when the result leaves
// the Integer range; coercion into an Integer slot is range-checked.
type IntegerValue struct{ Val int16 }

func (IntegerValue) Qualifier() ast.Qualifier { return ast.Integer }
func (v IntegerValue) String() string         { return strconv.Itoa(int(v.Val)) }

// LongValue is a signed 32-bit integer.
type LongValue struct{ Val int32 }

func (LongValue) Qualifier() ast.Qualifier { return ast.Long }
func (v LongValue) String() string         { return strconv.Itoa(int(v.Val)) }

// SingleValue is an IEEE-754 binary32.
type SingleValue struct{ Val float32 }

func (SingleValue) Qualifier() ast.Qualifier { return ast.Single }
func (v SingleValue) String() string         { return formatFloat(float64(v.Val), 32) }

// DoubleValue is an IEEE-754 binary64.
type DoubleValue struct{ Val float64 }

func (DoubleValue) Qualifier() ast.Qualifier { return ast.Double }
func (v DoubleValue) String() string         { return formatFloat(v.Val, 64) }

// StringValue is a BASIC string. FixedLen > 0 marks it as the backing value
// of a `STRING * N` element or variable, which must always hold exactly
// FixedLen characters (space-padded or truncated on assignment).
type StringValue struct {
	Val      string
	FixedLen uint16
}

func (StringValue) Qualifier() ast.Qualifier { return ast.String }
func (v StringValue) String() string         { return v.Val }

// ArrayValue is a dense array of Values addressed by per-dimension bounds.
type ArrayValue struct {
	Dims []DimRange
	Elem ast.ExpressionType
	Data []Value
}

// DimRange is one dimension's inclusive (Lower, Upper) bound pair.
type DimRange struct{ Lower, Upper int32 }

func (d DimRange) Len() int { return int(d.Upper-d.Lower) + 1 }

func (ArrayValue) Qualifier() ast.Qualifier { return ast.QualifierNone }
func (v ArrayValue) String() string         { return "[array]" }

// NewArrayValue allocates a zero-initialized array for the given bounds and
// element type.
func NewArrayValue(dims []DimRange, elem ast.ExpressionType) ArrayValue {
	size := 1
	for _, d := range dims {
		size *= d.Len()
	}
	data := make([]Value, size)
	for i := range data {
		data[i] = DefaultValue(elem)
	}
	return ArrayValue{Dims: dims, Elem: elem, Data: data}
}

// Offset computes the flat index for a set of per-dimension indices, or an
// error if any index is out of bounds.
func (v ArrayValue) Offset(indices []int32) (int, error) {
	if len(indices) != len(v.Dims) {
		return 0, fmt.Errorf("expected %d indices, got %d", len(v.Dims), len(indices))
	}
	offset := 0
	for i, idx := range indices {
		d := v.Dims[i]
		if idx < d.Lower || idx > d.Upper {
			return 0, fmt.Errorf("index %d out of range [%d,%d]", idx, d.Lower, d.Upper)
		}
		offset = offset*d.Len() + int(idx-d.Lower)
	}
	return offset, nil
}

// UDTValue is an insertion-ordered record value. Order preserves the
// TYPE...END TYPE declaration order so iteration and display are
// deterministic.
type UDTValue struct {
	TypeName ast.BareName
	Order    []string
	Fields   map[string]Value
}

func (UDTValue) Qualifier() ast.Qualifier { return ast.QualifierNone }
func (v UDTValue) String() string         { return "[" + v.TypeName.String() + "]" }

// Get returns the field's current value.
func (v UDTValue) Get(name string) (Value, bool) {
	val, ok := v.Fields[name]
	return val, ok
}

// Clone performs the deep, by-value copy the spec requires when one UDT
// value is assigned to another.
func (v UDTValue) Clone() UDTValue {
	fields := make(map[string]Value, len(v.Fields))
	for k, val := range v.Fields {
		fields[k] = cloneValue(val)
	}
	order := make([]string, len(v.Order))
	copy(order, v.Order)
	return UDTValue{TypeName: v.TypeName, Order: order, Fields: fields}
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case UDTValue:
		return val.Clone()
	case ArrayValue:
		data := make([]Value, len(val.Data))
		copy(data, val.Data)
		dims := make([]DimRange, len(val.Dims))
		copy(dims, val.Dims)
		return ArrayValue{Dims: dims, Elem: val.Elem, Data: data}
	default:
		return v
	}
}

// LiteralToValue converts a parsed/folded literal into its runtime Value,
// used by OpLoad and by DATA/READ to materialize a constant without the VM
// itself knowing anything about LiteralKind.
func LiteralToValue(lit ast.LiteralValue) Value {
	switch lit.Kind {
	case ast.LitInteger:
		return IntegerValue{Val: int16(lit.Int)}
	case ast.LitLong:
		return LongValue{Val: lit.Int}
	case ast.LitSingle:
		return SingleValue{Val: float32(lit.Flt)}
	case ast.LitDouble:
		return DoubleValue{Val: lit.Flt}
	default:
		return StringValue{Val: lit.Str}
	}
}

// DefaultValue returns the zero value BASIC assigns to a freshly allocated
// variable of the given type.
func DefaultValue(t ast.ExpressionType) Value {
	switch t.Kind {
	case ast.ExprBuiltIn:
		switch t.BuiltIn {
		case ast.Integer:
			return IntegerValue{}
		case ast.Long:
			return LongValue{}
		case ast.Single:
			return SingleValue{}
		case ast.Double:
			return DoubleValue{}
		case ast.String:
			return StringValue{}
		}
	case ast.ExprFixedLengthString:
		return StringValue{Val: spaces(int(t.FixedLen)), FixedLen: t.FixedLen}
	case ast.ExprArray:
		return NewArrayValue(nil, *t.Elem)
	}
	return IntegerValue{}
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// formatFloat renders a float the way QBASIC's PRINT does: no trailing
// zeros, shortest round-tripping representation for the value's precision.
func formatFloat(f float64, bitSize int) string {
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}
