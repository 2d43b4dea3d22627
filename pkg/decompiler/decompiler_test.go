package decompiler

import (
	"strings"
	"testing"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/vm"
	"github.com/stretchr/testify/assert"
)

func TestDecompileRendersInstructions(t *testing.T) {
	prog := &vm.Program{
		Instructions: []vm.Instruction{
			{Op: vm.OpLoad, Value: vm.IntegerValue{Val: 42}, Pos: ast.Position{Line: 10}},
			{Op: vm.OpVarPathName, Name: "X", Pos: ast.Position{Line: 10}},
			{Op: vm.OpCopyAToVarPath, Pos: ast.Position{Line: 10}},
			{Op: vm.OpHalt, Pos: ast.Position{Line: 11}},
		},
		SubEntry:      map[string]int{},
		FunctionEntry: map[string]int{},
	}

	out := Decompile(prog)
	assert.Len(t, out.Instructions, 4)
	assert.Equal(t, "Load", out.Instructions[0].Opcode)
	assert.Equal(t, "42", out.Instructions[0].Operand)
	assert.Equal(t, "VarPathName", out.Instructions[1].Opcode)
	assert.Equal(t, "X", out.Instructions[1].Operand)
	assert.Equal(t, 11, out.Instructions[3].Line)
}

func TestDecompileLabelsSubEntries(t *testing.T) {
	prog := &vm.Program{
		Instructions: []vm.Instruction{
			{Op: vm.OpHalt},
			{Op: vm.OpReturn},
		},
		SubEntry:      map[string]int{"GREET": 1},
		FunctionEntry: map[string]int{},
	}

	out := Decompile(prog)
	listing := out.String()
	assert.True(t, strings.Contains(listing, "SUB GREET"))
}

func TestDecompileJumpOperand(t *testing.T) {
	prog := &vm.Program{
		Instructions: []vm.Instruction{
			{Op: vm.OpJump, Addr: vm.ResolvedAddr(3)},
		},
		SubEntry:      map[string]int{},
		FunctionEntry: map[string]int{},
	}

	out := Decompile(prog)
	assert.Equal(t, "#3", out.Instructions[0].Operand)
}
