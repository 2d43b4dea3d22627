package debug

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// REPL provides an interactive debugging interface over a Debugger.
type REPL struct {
	debugger *Debugger
	reader   *bufio.Reader
	writer   io.Writer
	running  bool
}

// NewREPL creates a new REPL instance.
func NewREPL(debugger *Debugger, reader io.Reader, writer io.Writer) *REPL {
	return &REPL{
		debugger: debugger,
		reader:   bufio.NewReader(reader),
		writer:   writer,
	}
}

// Start runs the REPL loop until EOF or a quit command.
func (r *REPL) Start() {
	r.running = true
	r.printWelcome()

	for r.running {
		r.printPrompt()
		line, err := r.readLine()
		if err != nil {
			if err == io.EOF {
				r.running = false
				break
			}
			r.printf("Error reading input: %v\n", err)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.executeCommand(line); err != nil {
			r.printf("Error: %v\n", err)
		}
	}

	r.printGoodbye()
}

// Stop ends the REPL loop on its next iteration.
func (r *REPL) Stop() { r.running = false }

func (r *REPL) printWelcome() {
	r.printf("qbi debugger\nType 'help' for available commands\n\n")
}

func (r *REPL) printGoodbye() { r.printf("\nGoodbye!\n") }

func (r *REPL) printPrompt() {
	status := "running"
	if r.debugger.IsPaused() {
		status = "paused"
	}
	r.printf("(qbi-debug:%s) ", status)
}

func (r *REPL) readLine() (string, error) { return r.reader.ReadString('\n') }

func (r *REPL) printf(format string, args ...interface{}) { fmt.Fprintf(r.writer, format, args...) }

// executeCommand dispatches one REPL line to its handler.
func (r *REPL) executeCommand(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "help", "h", "?":
		return r.cmdHelp(args)
	case "break", "b":
		return r.cmdBreak(args)
	case "clear", "cl":
		return r.cmdClear(args)
	case "breakpoints", "bp":
		return r.cmdBreakpoints(args)
	case "continue", "c":
		return r.cmdContinue(args)
	case "step", "s":
		return r.cmdStep(args)
	case "next", "n":
		return r.cmdNext(args)
	case "out", "o":
		return r.cmdOut(args)
	case "print", "p":
		return r.cmdPrint(args)
	case "locals", "l":
		return r.cmdLocals(args)
	case "globals", "g":
		return r.cmdGlobals(args)
	case "stack", "st":
		return r.cmdStack(args)
	case "callstack", "cs", "backtrace", "bt":
		return r.cmdCallStack(args)
	case "inspect", "i":
		return r.cmdInspect(args)
	case "disassemble", "disasm", "d":
		return r.cmdDisassemble(args)
	case "reset", "r":
		return r.cmdReset(args)
	case "quit", "q", "exit":
		return r.cmdQuit(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", command)
	}
}

func (r *REPL) cmdHelp(args []string) error {
	r.printf("Breakpoint Management:\n")
	r.printf("  break, b <pc>           - Set breakpoint at instruction offset\n")
	r.printf("  clear, cl <pc>          - Clear breakpoint at offset\n")
	r.printf("  breakpoints, bp         - List all breakpoints\n\n")
	r.printf("Execution Control:\n")
	r.printf("  continue, c             - Run until next breakpoint\n")
	r.printf("  step, s                 - Step one instruction\n")
	r.printf("  next, n                 - Step over a call\n")
	r.printf("  out, o                  - Step out of the current call\n\n")
	r.printf("Inspection:\n")
	r.printf("  print, p <var>          - Print variable value\n")
	r.printf("  locals, l               - Show local variables\n")
	r.printf("  globals, g              - Show global (SHARED/module) variables\n")
	r.printf("  stack, st               - Show value stack\n")
	r.printf("  callstack, cs, bt       - Show call stack\n")
	r.printf("  inspect, i <var>        - Detailed variable inspection\n")
	r.printf("  disassemble, d [pc]     - Disassemble instruction at PC\n\n")
	r.printf("Utility:\n")
	r.printf("  reset, r                - Clear breakpoint hit counts\n")
	r.printf("  help, h, ?              - Show this help message\n")
	r.printf("  quit, q, exit           - Exit debugger\n\n")
	return nil
}

func (r *REPL) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <pc>")
	}
	pc, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid pc: %s", args[0])
	}
	id := r.debugger.SetBreakpoint(pc)
	r.printf("Breakpoint %d set at %d\n", id, pc)
	return nil
}

func (r *REPL) cmdClear(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: clear <pc>")
	}
	pc, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid pc: %s", args[0])
	}
	if r.debugger.ClearBreakpoint(pc) {
		r.printf("Breakpoint at %d cleared\n", pc)
	} else {
		r.printf("No breakpoint at %d\n", pc)
	}
	return nil
}

func (r *REPL) cmdBreakpoints(args []string) error {
	bps := r.debugger.ListBreakpoints()
	if len(bps) == 0 {
		r.printf("No breakpoints set\n")
		return nil
	}
	r.printf("Breakpoints:\n")
	for _, bp := range bps {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		r.printf("  #%d: %d (%s, hit %d times)\n", bp.ID, bp.PC, status, bp.HitCount)
	}
	return nil
}

func (r *REPL) cmdContinue(args []string) error {
	r.debugger.Continue()
	if err := r.debugger.Run(); err != nil {
		return err
	}
	r.printRunState()
	return nil
}

func (r *REPL) cmdStep(args []string) error {
	r.debugger.StepInto()
	if err := r.debugger.Run(); err != nil {
		return err
	}
	r.printRunState()
	return nil
}

func (r *REPL) cmdNext(args []string) error {
	r.debugger.StepOver()
	if err := r.debugger.Run(); err != nil {
		return err
	}
	r.printRunState()
	return nil
}

func (r *REPL) cmdOut(args []string) error {
	r.debugger.StepOut()
	if err := r.debugger.Run(); err != nil {
		return err
	}
	r.printRunState()
	return nil
}

func (r *REPL) printRunState() {
	if instr, err := r.debugger.DisassembleInstruction(r.debugger.GetPC()); err == nil {
		r.printf("=> %s\n", instr)
	}
}

func (r *REPL) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <variable>")
	}
	varName := args[0]
	val, err := r.debugger.GetVariable(varName)
	if err != nil {
		return err
	}
	r.printf("%s = %s\n", varName, formatValue(val))
	return nil
}

func (r *REPL) cmdLocals(args []string) error {
	r.printf("%s\n", r.debugger.FormatLocals())
	return nil
}

func (r *REPL) cmdGlobals(args []string) error {
	globals := r.debugger.GetGlobals()
	if len(globals) == 0 {
		r.printf("No global variables\n")
		return nil
	}
	r.printf("Global Variables:\n")
	for name, val := range globals {
		r.printf("  %s = %s\n", name, formatValue(val))
	}
	return nil
}

func (r *REPL) cmdStack(args []string) error {
	r.printf("%s\n", r.debugger.FormatStack())
	return nil
}

func (r *REPL) cmdCallStack(args []string) error {
	r.printf("%s\n", r.debugger.FormatCallStack())
	return nil
}

func (r *REPL) cmdInspect(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: inspect <variable>")
	}
	info, err := r.debugger.InspectVariable(args[0])
	if err != nil {
		return err
	}
	r.printf("%s", info)
	return nil
}

func (r *REPL) cmdDisassemble(args []string) error {
	pc := r.debugger.GetPC()
	var err error
	if len(args) > 0 {
		pc, err = strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pc: %s", args[0])
		}
	}

	instr, err := r.debugger.DisassembleInstruction(pc)
	if err != nil {
		return err
	}
	r.printf("%s\n", instr)

	r.printf("\nContext:\n")
	for i := pc - 5; i <= pc+5; i++ {
		marker := "  "
		if i == pc {
			marker = "=>"
		}
		if ctx, err := r.debugger.DisassembleInstruction(i); err == nil {
			r.printf("%s %s\n", marker, ctx)
		}
	}
	return nil
}

func (r *REPL) cmdReset(args []string) error {
	r.debugger.Reset()
	r.printf("Debugger state reset\n")
	return nil
}

func (r *REPL) cmdQuit(args []string) error {
	r.running = false
	return nil
}

// RunCommand executes a single command programmatically.
func (r *REPL) RunCommand(command string) error { return r.executeCommand(command) }

// IsRunning reports whether the REPL loop is still active.
func (r *REPL) IsRunning() bool { return r.running }
