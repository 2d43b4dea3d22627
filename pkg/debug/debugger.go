// Package debug wraps a vm.VM with single-step execution, breakpoints, and
// state inspection for `qbi repl`.
package debug

import (
	"fmt"
	"strings"

	"github.com/basilfold/qbi/pkg/decompiler"
	"github.com/basilfold/qbi/pkg/vm"
)

// StepMode defines how the debugger should advance the wrapped VM.
type StepMode int

const (
	StepContinue StepMode = iota // Run until next breakpoint
	StepInto                     // Break on the very next instruction
	StepOver                     // Break once back at the current call depth or shallower
	StepOut                      // Break once back at a shallower call depth
)

// Breakpoint is a PC the debugger should stop at.
type Breakpoint struct {
	ID       int
	PC       int
	Enabled  bool
	HitCount int
}

// Debugger wraps VM execution with breakpoints and inspection, stepping the
// VM one instruction (vm.VM.Step) at a time rather than running it to
// completion.
type Debugger struct {
	vm          *vm.VM
	listing     *decompiler.DecompiledOutput
	breakpoints map[int]*Breakpoint
	nextBPID    int
	stepMode    StepMode
	stepDepth   int
	paused      bool
}

// NewDebugger wraps v, rendering its program once up front for disassembly.
func NewDebugger(v *vm.VM) *Debugger {
	return &Debugger{
		vm:          v,
		listing:     decompiler.Decompile(v.Program),
		breakpoints: make(map[int]*Breakpoint),
		nextBPID:    1,
		stepMode:    StepContinue,
	}
}

// SetBreakpoint sets a breakpoint at the given instruction offset.
func (d *Debugger) SetBreakpoint(pc int) int {
	bp := &Breakpoint{ID: d.nextBPID, PC: pc, Enabled: true}
	d.breakpoints[pc] = bp
	d.nextBPID++
	return bp.ID
}

// ClearBreakpoint removes a breakpoint by PC.
func (d *Debugger) ClearBreakpoint(pc int) bool {
	if _, exists := d.breakpoints[pc]; exists {
		delete(d.breakpoints, pc)
		return true
	}
	return false
}

// EnableBreakpoint re-enables a previously disabled breakpoint.
func (d *Debugger) EnableBreakpoint(pc int) bool {
	if bp, exists := d.breakpoints[pc]; exists {
		bp.Enabled = true
		return true
	}
	return false
}

// DisableBreakpoint disables a breakpoint without removing it.
func (d *Debugger) DisableBreakpoint(pc int) bool {
	if bp, exists := d.breakpoints[pc]; exists {
		bp.Enabled = false
		return true
	}
	return false
}

// ListBreakpoints returns all breakpoints, in no particular order.
func (d *Debugger) ListBreakpoints() []*Breakpoint {
	bps := make([]*Breakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		bps = append(bps, bp)
	}
	return bps
}

// GetBreakpoint retrieves a breakpoint by PC.
func (d *Debugger) GetBreakpoint(pc int) (*Breakpoint, bool) {
	bp, exists := d.breakpoints[pc]
	return bp, exists
}

func (d *Debugger) SetStepMode(mode StepMode) { d.stepMode = mode }
func (d *Debugger) GetStepMode() StepMode     { return d.stepMode }
func (d *Debugger) IsPaused() bool            { return d.paused }
func (d *Debugger) Pause()                    { d.paused = true }

// Continue resumes execution until the next breakpoint.
func (d *Debugger) Continue() {
	d.stepMode = StepContinue
	d.paused = false
}

// StepInto arms a single-instruction step.
func (d *Debugger) StepInto() {
	d.stepMode = StepInto
	d.paused = false
}

// StepOver arms stepping that skips over nested calls.
func (d *Debugger) StepOver() {
	d.stepMode = StepOver
	d.stepDepth = d.vm.CallDepth()
	d.paused = false
}

// StepOut arms stepping that runs until the current call returns.
func (d *Debugger) StepOut() {
	d.stepMode = StepOut
	d.stepDepth = d.vm.CallDepth()
	if d.stepDepth > 0 {
		d.stepDepth--
	}
	d.paused = false
}

// Run drives the VM forward until it halts or a breakpoint/step condition
// pauses it. It returns the VM's halt error, if any, only once vm.Halted.
func (d *Debugger) Run() error {
	for !d.vm.Halted {
		if err := d.vm.Step(); err != nil {
			return err
		}
		if d.shouldBreak() {
			d.paused = true
			return nil
		}
	}
	return d.vm.HaltErr
}

// shouldBreak decides whether to stop before executing vm.PC's instruction.
func (d *Debugger) shouldBreak() bool {
	if bp, exists := d.breakpoints[d.vm.PC]; exists && bp.Enabled {
		bp.HitCount++
		return true
	}
	switch d.stepMode {
	case StepInto:
		return true
	case StepOver, StepOut:
		return d.vm.CallDepth() <= d.stepDepth
	default:
		return false
	}
}

// GetPC returns the VM's current program counter.
func (d *Debugger) GetPC() int { return d.vm.PC }

// GetLocals returns a copy of the current call frame's variables.
func (d *Debugger) GetLocals() map[string]vm.Value {
	locals := make(map[string]vm.Value)
	for k, v := range d.vm.CurrentFrame().Vars {
		locals[k] = v
	}
	return locals
}

// GetGlobals returns a copy of the module-level frame's variables.
func (d *Debugger) GetGlobals() map[string]vm.Value {
	globals := make(map[string]vm.Value)
	for k, v := range d.vm.GlobalFrame().Vars {
		globals[k] = v
	}
	return globals
}

// GetVariable looks up name in the current frame, falling back to globals.
func (d *Debugger) GetVariable(name string) (vm.Value, error) {
	if v, ok := d.vm.CurrentFrame().Vars[name]; ok {
		return v, nil
	}
	if v, ok := d.vm.GlobalFrame().Vars[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("variable not found: %s", name)
}

// GetStack returns the VM's current value stack, innermost last.
func (d *Debugger) GetStack() []vm.Value { return d.vm.ValueStack }

// GetCallStack returns the return PC of every active call frame,
// innermost last.
func (d *Debugger) GetCallStack() []int { return d.vm.ReturnPCs() }

// FormatCallStack renders the call stack, innermost first.
func (d *Debugger) FormatCallStack() string {
	pcs := d.GetCallStack()
	if len(pcs) == 0 {
		return "Call stack is empty"
	}
	var b strings.Builder
	b.WriteString("Call Stack:\n")
	for i := len(pcs) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  #%d returns to %d\n", len(pcs)-1-i, pcs[i])
	}
	return b.String()
}

// FormatLocals renders the current frame's variables.
func (d *Debugger) FormatLocals() string {
	locals := d.GetLocals()
	if len(locals) == 0 {
		return "No local variables"
	}
	var b strings.Builder
	b.WriteString("Local Variables:\n")
	for name, val := range locals {
		fmt.Fprintf(&b, "  %s = %s\n", name, formatValue(val))
	}
	return b.String()
}

// FormatStack renders the value stack, top first.
func (d *Debugger) FormatStack() string {
	stack := d.GetStack()
	if len(stack) == 0 {
		return "Stack is empty"
	}
	var b strings.Builder
	b.WriteString("Value Stack:\n")
	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  [%d] %s\n", i, formatValue(stack[i]))
	}
	return b.String()
}

func formatValue(val vm.Value) string {
	return fmt.Sprintf("%s (%s)", val.String(), val.Qualifier().String())
}

// InspectVariable renders a detailed view of a single variable.
func (d *Debugger) InspectVariable(name string) (string, error) {
	val, err := d.GetVariable(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Variable: %s\n", name)
	fmt.Fprintf(&b, "Type: %s\n", val.Qualifier().String())
	fmt.Fprintf(&b, "Value: %s\n", val.String())
	return b.String(), nil
}

// DisassembleInstruction renders the instruction at pc using the same
// listing qbi disasm produces.
func (d *Debugger) DisassembleInstruction(pc int) (string, error) {
	if pc < 0 || pc >= len(d.listing.Instructions) {
		return "", fmt.Errorf("invalid PC: %d", pc)
	}
	ins := d.listing.Instructions[pc]
	return fmt.Sprintf("%5d  %-22s %s", ins.Offset, ins.Opcode, ins.Operand), nil
}

// Reset clears paused/step state and breakpoint hit counts. It does not
// rewind the wrapped VM.
func (d *Debugger) Reset() {
	d.stepMode = StepContinue
	d.paused = false
	d.stepDepth = 0
	for _, bp := range d.breakpoints {
		bp.HitCount = 0
	}
}
