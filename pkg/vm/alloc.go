package vm

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// allocateUserDefined builds a zero-valued record for the named TYPE and
// leaves it in A (spec §4.2.1 OpAllocateUserDefined).
func (vm *VM) allocateUserDefined(typeName string) error {
	layout, ok := vm.Program.Types[foldName(typeName)]
	if !ok {
		return errs.NewCompileBug("allocate of undeclared type %q", typeName)
	}
	vm.A = vm.buildUDT(layout)
	return nil
}

func (vm *VM) buildUDT(layout UDTLayout) UDTValue {
	fields := make(map[string]Value, len(layout.Fields))
	order := make([]string, 0, len(layout.Fields))
	for _, f := range layout.Fields {
		order = append(order, f.Name)
		if f.Type.Kind == ast.ExprUserDefined {
			nested, ok := vm.Program.Types[f.Type.UDTName.CanonicalName()]
			if ok {
				fields[f.Name] = vm.buildUDT(nested)
				continue
			}
		}
		fields[f.Name] = DefaultValue(f.Type)
	}
	return UDTValue{TypeName: layout.TypeName, Order: order, Fields: fields}
}

// allocateArray pops (lower, upper) Integer/Long pairs from the most
// recently collected argument frame and allocates a zero-valued array of
// elem into A (spec §4.2.1 OpAllocateArrayIntoA; DIM/REDIM generation uses
// BeginCollectArguments + PushUnnamedByVal to stage the bound pairs first).
func (vm *VM) allocateArray(elem ast.ExpressionType) error {
	args := vm.popArgs()
	if len(args)%2 != 0 {
		return errs.NewCompileBug("array allocation received an odd number of bound values")
	}
	dims := make([]DimRange, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		lo, err := asIndex(args[i].Value)
		if err != nil {
			return err
		}
		hi, err := asIndex(args[i+1].Value)
		if err != nil {
			return err
		}
		if hi < lo {
			return errs.NewRuntimeError(errs.KindSubscriptOutOfRange, "array upper bound is below its lower bound")
		}
		dims = append(dims, DimRange{Lower: lo, Upper: hi})
	}
	vm.A = NewArrayValue(dims, elem)
	return nil
}
