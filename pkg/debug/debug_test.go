package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/vm"
)

func newTestVM() *vm.VM {
	prog := &vm.Program{
		Instructions: []vm.Instruction{
			{Op: vm.OpLoad, Value: vm.IntegerValue{Val: 42}, Pos: ast.Position{Line: 1}},
			{Op: vm.OpVarPathName, Name: "X", Pos: ast.Position{Line: 1}},
			{Op: vm.OpCopyAToVarPath, Pos: ast.Position{Line: 1}},
			{Op: vm.OpHalt, Pos: ast.Position{Line: 2}},
		},
		SubEntry:      map[string]int{},
		FunctionEntry: map[string]int{},
	}
	return vm.NewVM(prog, vm.NewBufferConsole())
}

func TestDebuggerCreation(t *testing.T) {
	d := NewDebugger(newTestVM())

	if len(d.ListBreakpoints()) != 0 {
		t.Error("new debugger should have no breakpoints")
	}
	if d.GetStepMode() != StepContinue {
		t.Error("new debugger should default to StepContinue")
	}
	if d.IsPaused() {
		t.Error("new debugger should not start paused")
	}
}

func TestBreakpointManagement(t *testing.T) {
	d := NewDebugger(newTestVM())

	id1 := d.SetBreakpoint(2)
	if id1 != 1 {
		t.Errorf("expected first breakpoint ID 1, got %d", id1)
	}
	id2 := d.SetBreakpoint(3)
	if id2 != 2 {
		t.Errorf("expected second breakpoint ID 2, got %d", id2)
	}

	bp, exists := d.GetBreakpoint(2)
	if !exists || bp.ID != 1 {
		t.Error("breakpoint at 2 should exist with ID 1")
	}

	if !d.ClearBreakpoint(2) {
		t.Error("clearing breakpoint at 2 should succeed")
	}
	if _, exists := d.GetBreakpoint(2); exists {
		t.Error("breakpoint at 2 should be gone after clearing")
	}
}

func TestRunStopsAtBreakpoint(t *testing.T) {
	d := NewDebugger(newTestVM())
	d.SetBreakpoint(2)

	if err := d.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if d.GetPC() != 2 {
		t.Errorf("expected PC 2 at breakpoint, got %d", d.GetPC())
	}
	if !d.IsPaused() {
		t.Error("debugger should be paused at a breakpoint")
	}

	bp, _ := d.GetBreakpoint(2)
	if bp.HitCount != 1 {
		t.Errorf("expected breakpoint hit once, got %d", bp.HitCount)
	}
}

func TestStepIntoStopsAtNextInstruction(t *testing.T) {
	d := NewDebugger(newTestVM())
	d.StepInto()

	if err := d.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if d.GetPC() != 1 {
		t.Errorf("expected PC 1 after single step, got %d", d.GetPC())
	}
}

func TestGetVariableAfterAssignment(t *testing.T) {
	d := NewDebugger(newTestVM())
	d.SetBreakpoint(3) // after the assignment to X, before HALT

	if err := d.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	val, err := d.GetVariable("X")
	if err != nil {
		t.Fatalf("GetVariable(X) failed: %v", err)
	}
	if val.String() != "42" {
		t.Errorf("expected X = 42, got %s", val.String())
	}
}

func TestDisassembleInstruction(t *testing.T) {
	d := NewDebugger(newTestVM())

	instr, err := d.DisassembleInstruction(0)
	if err != nil {
		t.Fatalf("DisassembleInstruction failed: %v", err)
	}
	if !strings.Contains(instr, "Load") {
		t.Errorf("expected disassembly to mention Load, got %q", instr)
	}

	if _, err := d.DisassembleInstruction(99); err == nil {
		t.Error("expected error for out-of-range PC")
	}
}

func TestREPLBreakAndContinue(t *testing.T) {
	d := NewDebugger(newTestVM())
	var out bytes.Buffer
	repl := NewREPL(d, strings.NewReader(""), &out)

	if err := repl.RunCommand("break 3"); err != nil {
		t.Fatalf("break command failed: %v", err)
	}
	if err := repl.RunCommand("continue"); err != nil {
		t.Fatalf("continue command failed: %v", err)
	}
	if !strings.Contains(out.String(), "Breakpoint 1 set at 3") {
		t.Errorf("expected breakpoint confirmation, got %q", out.String())
	}
	if !d.IsPaused() {
		t.Error("expected debugger to be paused after continue hits breakpoint")
	}
}

func TestREPLUnknownCommand(t *testing.T) {
	d := NewDebugger(newTestVM())
	var out bytes.Buffer
	repl := NewREPL(d, strings.NewReader(""), &out)

	if err := repl.RunCommand("frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}
