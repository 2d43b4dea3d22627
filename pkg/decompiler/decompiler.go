// Package decompiler renders a compiled vm.Program back into a readable
// instruction listing for `qbi disasm`.
package decompiler

import (
	"fmt"
	"strings"

	"github.com/basilfold/qbi/pkg/vm"
)

// InstructionInfo is one disassembled instruction, ready for display.
type InstructionInfo struct {
	Offset  int
	Opcode  string
	Operand string
	Line    int
}

// DecompiledOutput is the full disassembly of a Program: the entry points
// every OpUserSubCall/OpUserFunctionCall resolves against, plus one
// InstructionInfo per instruction in source order.
type DecompiledOutput struct {
	SubEntry      map[string]int
	FunctionEntry map[string]int
	Instructions  []InstructionInfo
}

// Decompile walks prog.Instructions in order and renders each one's
// operand the way the instruction actually uses it — unlike the teacher's
// decompiler, there is no byte stream to parse: qbi's Program is already
// the typed instruction vector spec §3 describes, so this is a direct
// render rather than a decode.
func Decompile(prog *vm.Program) *DecompiledOutput {
	out := &DecompiledOutput{
		SubEntry:      prog.SubEntry,
		FunctionEntry: prog.FunctionEntry,
	}
	for i, ins := range prog.Instructions {
		out.Instructions = append(out.Instructions, InstructionInfo{
			Offset:  i,
			Opcode:  ins.Op.String(),
			Operand: operandString(ins),
			Line:    ins.Pos.Line,
		})
	}
	return out
}

// operandString renders the one or two operand fields an instruction's Op
// actually populates (see the field comments on vm.Instruction).
func operandString(ins vm.Instruction) string {
	switch ins.Op {
	case vm.OpLoad:
		return ins.Value.String()
	case vm.OpCast, vm.OpAllocateBuiltIn:
		return ins.Qualifier.String()
	case vm.OpFixLength, vm.OpAllocateFixedLengthString:
		return fmt.Sprintf("%d", ins.Len)
	case vm.OpVarPathName, vm.OpVarPathProperty, vm.OpAllocateUserDefined,
		vm.OpIsVariableDefined, vm.OpUserSubCall, vm.OpUserFunctionCall, vm.OpLabel:
		name := ins.Name
		if ins.Shared {
			name += " SHARED"
		}
		return name
	case vm.OpJump, vm.OpJumpIfFalse, vm.OpGoSub, vm.OpOnErrorGoTo, vm.OpResumeLabel:
		return ins.Addr.String()
	case vm.OpReturn:
		if ins.HasAddr {
			return ins.Addr.String()
		}
		return ""
	case vm.OpBuiltInFunction:
		return fmt.Sprintf("fn#%d", ins.BuiltInFn)
	case vm.OpBuiltInSub:
		return fmt.Sprintf("sub#%d", ins.BuiltInSub)
	case vm.OpThrow:
		if ins.Err != nil {
			return ins.Err.Error()
		}
		return ""
	case vm.OpAllocateArrayIntoA, vm.OpCoerce:
		return ins.ElemType.String()
	default:
		return ""
	}
}

// String renders the full listing, one instruction per line, in the
// teacher's "offset  opcode  operand" column layout.
func (d *DecompiledOutput) String() string {
	var b strings.Builder
	labelFor := make(map[int]string, len(d.SubEntry)+len(d.FunctionEntry))
	for name, addr := range d.SubEntry {
		labelFor[addr] = "SUB " + name
	}
	for name, addr := range d.FunctionEntry {
		labelFor[addr] = "FUNCTION " + name
	}
	for _, ins := range d.Instructions {
		if label, ok := labelFor[ins.Offset]; ok {
			fmt.Fprintf(&b, "; %s\n", label)
		}
		fmt.Fprintf(&b, "%5d  %-22s %s\n", ins.Offset, ins.Opcode, ins.Operand)
	}
	return b.String()
}
