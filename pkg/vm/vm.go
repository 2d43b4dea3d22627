package vm

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/memory"
)

// Frame holds one scope's variables, keyed by canonical name. contextStack
// entry 0 is always the module-level (SHARED) frame; every user SUB/
// FUNCTION call pushes one more. Aliases records which of this frame's
// names are actually by-reference parameters: a lookup of such a name
// chases the alias to the caller's location instead of this frame's Vars
// (spec §4.3: array/UDT arguments, and any scalar parameter not declared
// BYVAL, are always passed by reference).
type Frame struct {
	Vars    map[string]Value
	Aliases map[string]*Path
}

func newFrame() *Frame { return &Frame{Vars: make(map[string]Value)} }

// Arg is one accumulated call argument: a by-value copy, or a by-reference
// path the callee can read and write through (spec §4.3: arrays and UDTs
// are always by reference; scalars follow the parameter's ByRef flag).
type Arg struct {
	ByRef bool
	Value Value
	Path  *Path
}

// ErrorHandlerKind is the three-state ON ERROR policy spec §4.3.3 describes.
type ErrorHandlerKind byte

const (
	ErrorHandlerNone ErrorHandlerKind = iota
	ErrorHandlerResumeNext
	ErrorHandlerGoto
)

type errorHandlerState struct {
	Kind ErrorHandlerKind
	Addr int
}

// callFrame records what OpPopRet needs to unwind a user call: the return
// program counter, and whether a scope frame and error-handler state were
// pushed alongside it (GoSub pushes neither; sub/function calls push both).
type callFrame struct {
	ReturnPC  int
	PushedCtx bool
	Pooled    bool // PushedCtx frame came from vm.framePool and should be returned to it on pop
}

// VM is the register/stack bytecode interpreter, spec §4.3's execution
// model over a compiled Program.
type VM struct {
	Program *Program
	Console Console
	Files   *FileTable

	PC int
	A, B, C, D Value

	ValueStack []Value
	PathStack  []*Path
	CallStack  []callFrame

	contextStack []*Frame
	staticFrames map[string]*Frame
	framePool    *memory.Pool[*Frame]

	argStack [][]Arg

	errHandler      errorHandlerState
	errHandlerStack []errorHandlerState
	lastError       *errs.RuntimeError
	lastErrorPC     int

	dataPos int
	col     int // current output column, for PRINT's comma print-zone alignment

	Metrics *Metrics

	Steps    int64
	MaxSteps int64
	Halted   bool
	HaltErr  error
}

// NewVM builds a VM ready to execute program from instruction 0.
func NewVM(program *Program, console Console) *VM {
	vm := &VM{
		Program:      program,
		Console:      console,
		Files:        NewFileTable(),
		contextStack: []*Frame{newFrame()},
		staticFrames: make(map[string]*Frame),
		MaxSteps:     0, // 0 => unbounded
	}
	vm.framePool = memory.NewPool(newFrame, resetFrame)
	return vm
}

// resetFrame clears a pooled Frame's maps in place so memory.Pool can reuse
// its allocation for the next non-STATIC call instead of reallocating.
func resetFrame(f **Frame) {
	fr := *f
	for k := range fr.Vars {
		delete(fr.Vars, k)
	}
	for k := range fr.Aliases {
		delete(fr.Aliases, k)
	}
}

func (vm *VM) globalFrame() *Frame { return vm.contextStack[0] }
func (vm *VM) topFrame() *Frame    { return vm.contextStack[len(vm.contextStack)-1] }

// CurrentFrame returns the innermost active call frame (SHARED-qualified
// names aside, this is where a bare variable reference resolves). Exposed
// for pkg/debug; the VM itself always goes through topFrame.
func (vm *VM) CurrentFrame() *Frame { return vm.topFrame() }

// GlobalFrame returns the module-level frame, always contextStack[0].
func (vm *VM) GlobalFrame() *Frame { return vm.globalFrame() }

// CallDepth returns the number of active (non-module) call frames.
func (vm *VM) CallDepth() int { return len(vm.CallStack) }

// ReturnPCs returns the return address of every active call frame,
// innermost last, for rendering a backtrace.
func (vm *VM) ReturnPCs() []int {
	pcs := make([]int, len(vm.CallStack))
	for i, cf := range vm.CallStack {
		pcs[i] = cf.ReturnPC
	}
	return pcs
}

// Run drives the VM to completion, returning the first unhandled runtime
// error (if any). A handled error (ON ERROR GOTO/RESUME NEXT routed it)
// never reaches the caller.
func (vm *VM) Run() error {
	for !vm.Halted {
		if err := vm.Step(); err != nil {
			vm.Metrics.ObserveRuntimeError()
			vm.Metrics.ObserveProgramSteps(vm.Steps)
			return err
		}
	}
	vm.Metrics.ObserveProgramSteps(vm.Steps)
	return vm.HaltErr
}

// Step executes exactly one instruction, routing any runtime error through
// the current ON ERROR policy. It returns a non-nil error only when the
// error was unhandled (no active handler), at which point vm.Halted is set.
func (vm *VM) Step() error {
	if vm.PC < 0 || vm.PC >= vm.Program.Len() {
		vm.Halted = true
		return nil
	}
	if vm.MaxSteps > 0 && vm.Steps >= vm.MaxSteps {
		vm.Halted = true
		vm.HaltErr = errs.NewRuntimeError(errs.KindOther, "exceeded maximum step count")
		return vm.HaltErr
	}
	vm.Steps++
	ins := vm.Program.Instructions[vm.PC]
	if vm.Metrics != nil {
		vm.Metrics.ObserveInstruction(ins.Op)
	}
	err := vm.execute(ins)
	if err == nil {
		vm.PC++
		return nil
	}
	rerr, ok := err.(*errs.RuntimeError)
	if !ok {
		vm.Halted = true
		vm.HaltErr = err
		return err
	}
	if rerr.Position == (ast.Position{}) {
		rerr.At(ins.Pos)
	}
	return vm.raise(rerr)
}

// raise applies the current ON ERROR policy to a runtime error.
func (vm *VM) raise(rerr *errs.RuntimeError) error {
	vm.lastError = rerr
	vm.lastErrorPC = vm.PC
	switch vm.errHandler.Kind {
	case ErrorHandlerGoto:
		vm.PC = vm.errHandler.Addr
		return nil
	case ErrorHandlerResumeNext:
		vm.PC = vm.Program.NextStatementStart(vm.PC)
		return nil
	default:
		vm.Halted = true
		vm.HaltErr = rerr
		return rerr
	}
}

func (vm *VM) push(v Value)     { vm.ValueStack = append(vm.ValueStack, v) }
func (vm *VM) popValue() Value {
	n := len(vm.ValueStack)
	v := vm.ValueStack[n-1]
	vm.ValueStack = vm.ValueStack[:n-1]
	return v
}

func (vm *VM) pushPath(p *Path) { vm.PathStack = append(vm.PathStack, p) }
func (vm *VM) topPath() *Path   { return vm.PathStack[len(vm.PathStack)-1] }
func (vm *VM) popPath() *Path {
	n := len(vm.PathStack)
	p := vm.PathStack[n-1]
	vm.PathStack = vm.PathStack[:n-1]
	return p
}

func (vm *VM) execute(ins Instruction) error {
	switch ins.Op {
	case OpLoad:
		vm.A = ins.Value
		return nil
	case OpCast:
		v, err := CoerceNumeric(vm.A, ins.Qualifier)
		if err != nil {
			return err
		}
		vm.A = v
		return nil
	case OpCoerce:
		v, err := Coerce(vm.A, ins.ElemType)
		if err != nil {
			return err
		}
		vm.A = v
		return nil
	case OpFixLength:
		sv, ok := vm.A.(StringValue)
		if !ok {
			return errs.NewRuntimeError(errs.KindTypeMismatch, "FixLength requires a string in A")
		}
		vm.A = FixLength(sv, ins.Len)
		return nil
	case OpCopyAToB:
		vm.B = vm.A
		return nil
	case OpCopyBToA:
		vm.A = vm.B
		return nil
	case OpCopyAToC:
		vm.C = vm.A
		return nil
	case OpCopyCToA:
		vm.A = vm.C
		return nil
	case OpCopyAToD:
		vm.D = vm.A
		return nil
	case OpCopyDToA:
		vm.A = vm.D
		return nil
	case OpCopyCToB:
		vm.B = vm.C
		return nil
	case OpCopyDToB:
		vm.B = vm.D
		return nil

	case OpPlus, OpMinus, OpMultiply, OpDivide, OpModulo, OpAnd, OpOr,
		OpLess, OpLessOrEqual, OpEqual, OpGreaterOrEqual, OpGreater, OpNotEqual:
		result, err := PerformBinary(binOpFor(ins.Op), vm.B, vm.A)
		if err != nil {
			return err
		}
		vm.A = result
		return nil
	case OpNotA:
		v, err := PerformNot(vm.A)
		if err != nil {
			return err
		}
		vm.A = v
		return nil
	case OpNegateA:
		v, err := PerformNegate(vm.A)
		if err != nil {
			return err
		}
		vm.A = v
		return nil

	case OpPushAToValueStack:
		vm.push(vm.A)
		return nil
	case OpPopValueStackIntoA:
		vm.A = vm.popValue()
		return nil
	case OpPushRegisters:
		vm.push(vm.A)
		vm.push(vm.B)
		vm.push(vm.C)
		vm.push(vm.D)
		return nil
	case OpPopRegisters:
		vm.D = vm.popValue()
		vm.C = vm.popValue()
		vm.B = vm.popValue()
		vm.A = vm.popValue()
		return nil

	case OpVarPathName:
		vm.pushPath(&Path{Root: RootPath{Name: ast.NewBareName(ins.Name), Shared: ins.Shared}})
		return nil
	case OpVarPathIndex:
		idx, err := asIndex(vm.A)
		if err != nil {
			return err
		}
		vm.topPath().pushIndex(idx)
		return nil
	case OpVarPathProperty:
		vm.topPath().pushProperty(ins.Name)
		return nil
	case OpCopyVarPathToA:
		v, err := vm.ReadPath(vm.topPath())
		if err != nil {
			return err
		}
		vm.A = v
		return nil
	case OpCopyAToVarPath:
		return vm.WritePath(vm.topPath(), vm.A)
	case OpPopVarPath:
		vm.popPath()
		return nil

	case OpAllocateBuiltIn:
		vm.A = DefaultValue(ast.BuiltInType(ins.Qualifier))
		return nil
	case OpAllocateFixedLengthString:
		vm.A = DefaultValue(ast.FixedLengthStringType(ins.Len))
		return nil
	case OpAllocateUserDefined:
		return vm.allocateUserDefined(ins.Name)
	case OpAllocateArrayIntoA:
		return vm.allocateArray(ins.ElemType)
	case OpBeginCollectArguments:
		vm.argStack = append(vm.argStack, nil)
		return nil
	case OpPushUnnamedByVal:
		vm.pushArg(Arg{Value: cloneValue(vm.A)})
		return nil
	case OpPushUnnamedByRef:
		p := vm.popPath()
		if p.CapturedFrame == nil {
			p.CapturedFrame = vm.frameFor(p.Root)
		}
		vm.pushArg(Arg{ByRef: true, Path: p})
		return nil

	case OpLabel:
		return nil
	case OpJump:
		addr, err := vm.resolveAddr(ins.Addr)
		if err != nil {
			return err
		}
		vm.PC = addr - 1
		return nil
	case OpJumpIfFalse:
		truthy, err := isTruthy(vm.A)
		if err != nil {
			return err
		}
		if !truthy {
			addr, err := vm.resolveAddr(ins.Addr)
			if err != nil {
				return err
			}
			vm.PC = addr - 1
		}
		return nil
	case OpGoSub:
		addr, err := vm.resolveAddr(ins.Addr)
		if err != nil {
			return err
		}
		vm.CallStack = append(vm.CallStack, callFrame{ReturnPC: vm.PC + 1})
		vm.PC = addr - 1
		return nil
	case OpReturn:
		if ins.HasAddr {
			addr, err := vm.resolveAddr(ins.Addr)
			if err != nil {
				return err
			}
			vm.CallStack = vm.CallStack[:len(vm.CallStack)-1]
			vm.PC = addr - 1
			return nil
		}
		return vm.popReturn()
	case OpPopRet:
		return vm.popReturn()
	case OpHalt:
		vm.Halted = true
		return nil

	case OpOnErrorGoTo:
		addr, err := vm.resolveAddr(ins.Addr)
		if err != nil {
			return err
		}
		vm.errHandler = errorHandlerState{Kind: ErrorHandlerGoto, Addr: addr}
		return nil
	case OpOnErrorResumeNext:
		vm.errHandler = errorHandlerState{Kind: ErrorHandlerResumeNext}
		return nil
	case OpOnErrorGoToZero:
		vm.errHandler = errorHandlerState{}
		vm.lastError = nil
		return nil
	case OpThrow:
		return ins.Err
	case OpResume:
		if vm.lastError == nil {
			return errs.NewRuntimeError(errs.KindResumeWithoutError, "RESUME with no active error")
		}
		vm.PC = vm.Program.CurrentStatementStart(vm.pcOfLastError()) - 1
		vm.lastError = nil
		return nil
	case OpResumeNext:
		if vm.lastError == nil {
			return errs.NewRuntimeError(errs.KindResumeWithoutError, "RESUME NEXT with no active error")
		}
		vm.PC = vm.Program.NextStatementStart(vm.pcOfLastError()) - 1
		vm.lastError = nil
		return nil
	case OpResumeLabel:
		if vm.lastError == nil {
			return errs.NewRuntimeError(errs.KindResumeWithoutError, "RESUME with no active error")
		}
		addr, err := vm.resolveAddr(ins.Addr)
		if err != nil {
			return err
		}
		vm.PC = addr - 1
		vm.lastError = nil
		return nil

	case OpBuiltInSub:
		return vm.callBuiltInSub(ins)
	case OpBuiltInFunction:
		return vm.callBuiltInFunction(ins)
	case OpUserSubCall:
		return vm.callUser(ins.Name, vm.Program.SubEntry, vm.Program.SubParams, vm.Program.StaticSubs)
	case OpUserFunctionCall:
		return vm.callUser(ins.Name, vm.Program.FunctionEntry, vm.Program.FunctionParams, vm.Program.StaticFunctions)

	case OpIsVariableDefined:
		_, ok := vm.topFrame().Vars[foldName(ins.Name)]
		if !ok {
			ok = vm.globalFrame().Vars[foldName(ins.Name)] != nil
		}
		vm.A = boolValue(ok)
		return nil

	default:
		return errs.NewRuntimeError(errs.KindOther, "unimplemented opcode")
	}
}

func (vm *VM) resolveAddr(a AddressOrLabel) (int, error) {
	if !a.Resolved {
		return 0, errs.NewCompileBug("unresolved label %s reached the VM", a.Label.String())
	}
	return a.Index, nil
}

func (vm *VM) pushArg(a Arg) {
	top := len(vm.argStack) - 1
	vm.argStack[top] = append(vm.argStack[top], a)
}

func (vm *VM) popArgs() []Arg {
	top := len(vm.argStack) - 1
	args := vm.argStack[top]
	vm.argStack = vm.argStack[:top]
	return args
}

func (vm *VM) popReturn() error {
	n := len(vm.CallStack)
	if n == 0 {
		return errs.NewRuntimeError(errs.KindReturnWithoutGoSub, "RETURN without GOSUB")
	}
	cf := vm.CallStack[n-1]
	vm.CallStack = vm.CallStack[:n-1]
	if cf.PushedCtx {
		top := len(vm.contextStack) - 1
		popped := vm.contextStack[top]
		vm.contextStack = vm.contextStack[:top]
		if cf.Pooled {
			vm.framePool.Put(popped)
		}
		vm.errHandler = vm.errHandlerStack[len(vm.errHandlerStack)-1]
		vm.errHandlerStack = vm.errHandlerStack[:len(vm.errHandlerStack)-1]
	}
	vm.PC = cf.ReturnPC - 1
	return nil
}

// callUser pushes a fresh (or, for STATIC subprograms, persisted) scope
// frame, binds the most recently collected argument list to the callee's
// declared parameter names, and transfers control to its entry point.
func (vm *VM) callUser(name string, entries map[string]int, params map[string][]string, static map[string]bool) error {
	addr, ok := entries[name]
	if !ok {
		return errs.NewCompileBug("call to undefined subprogram %q", name)
	}
	args := vm.popArgs()
	names := params[name]
	frame := vm.frameForCall(name, static[name])
	for i, a := range args {
		if i >= len(names) {
			break
		}
		if a.ByRef {
			if frame.Aliases == nil {
				frame.Aliases = make(map[string]*Path)
			}
			frame.Aliases[names[i]] = a.Path
		} else {
			frame.Vars[names[i]] = a.Value
		}
	}
	vm.contextStack = append(vm.contextStack, frame)
	vm.errHandlerStack = append(vm.errHandlerStack, vm.errHandler)
	vm.errHandler = errorHandlerState{}
	vm.CallStack = append(vm.CallStack, callFrame{ReturnPC: vm.PC + 1, PushedCtx: true, Pooled: !static[name]})
	vm.PC = addr - 1
	return nil
}

func (vm *VM) frameForCall(name string, isStatic bool) *Frame {
	// Non-STATIC calls always get a fresh frame (pulled from framePool to
	// avoid reallocating on deep recursion); STATIC calls reuse (and lazily
	// create) a frame keyed by subprogram name, giving locals the
	// persistence across calls spec's STATIC keyword requires.
	if !isStatic {
		return vm.framePool.Get()
	}
	if f, ok := vm.staticFrames[name]; ok {
		return f
	}
	f := newFrame()
	vm.staticFrames[name] = f
	return f
}

func foldName(s string) string { return ast.NewBareName(s).CanonicalName() }

func boolValue(b bool) Value {
	if b {
		return IntegerValue{Val: -1}
	}
	return IntegerValue{Val: 0}
}

func isTruthy(v Value) (bool, error) {
	f, ok := ToFloat64(v)
	if !ok {
		return false, errs.NewRuntimeError(errs.KindTypeMismatch, "condition must be numeric")
	}
	return f != 0, nil
}

func asIndex(v Value) (int32, error) {
	f, ok := ToFloat64(v)
	if !ok {
		return 0, errs.NewRuntimeError(errs.KindTypeMismatch, "array index must be numeric")
	}
	return int32(roundToEven(f)), nil
}

func binOpFor(op Op) ast.BinOp {
	switch op {
	case OpPlus:
		return ast.OpPlus
	case OpMinus:
		return ast.OpMinus
	case OpMultiply:
		return ast.OpMultiply
	case OpDivide:
		return ast.OpDivide
	case OpModulo:
		return ast.OpModulo
	case OpAnd:
		return ast.OpAnd
	case OpOr:
		return ast.OpOr
	case OpLess:
		return ast.OpLess
	case OpLessOrEqual:
		return ast.OpLessOrEqual
	case OpEqual:
		return ast.OpEqual
	case OpGreaterOrEqual:
		return ast.OpGreaterOrEqual
	case OpGreater:
		return ast.OpGreater
	case OpNotEqual:
		return ast.OpNotEqual
	default:
		return ast.OpPlus
	}
}

// pcOfLastError reports the instruction index the last unhandled error was
// raised at, used to anchor RESUME's statement-boundary lookup.
func (vm *VM) pcOfLastError() int {
	return vm.lastErrorPC
}
