package vm

import (
	"fmt"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// Op is an instruction opcode. Unlike the teacher's byte-serialized
// bytecode, qbi's Program is the struct-based "vector of (Instruction,
// Position)" spec §3 calls for directly — there is no on-disk encoding to
// round-trip, so each Instruction carries typed operand fields instead of
// a length-prefixed byte operand.
type Op int

const (
	// Load/move
	OpLoad Op = iota
	OpCast
	OpCoerce
	OpFixLength
	OpCopyAToB
	OpCopyBToA
	OpCopyAToC
	OpCopyCToA
	OpCopyAToD
	OpCopyDToA
	OpCopyCToB
	OpCopyDToB

	// Arithmetic/logic
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpAnd
	OpOr
	OpNotA
	OpNegateA

	// Comparison
	OpLess
	OpLessOrEqual
	OpEqual
	OpGreaterOrEqual
	OpGreater
	OpNotEqual

	// Stacks
	OpPushAToValueStack
	OpPopValueStackIntoA
	OpPushRegisters
	OpPopRegisters

	// Variable paths
	OpVarPathName
	OpVarPathIndex
	OpVarPathProperty
	OpCopyVarPathToA
	OpCopyAToVarPath
	OpPopVarPath

	// Allocation
	OpAllocateBuiltIn
	OpAllocateFixedLengthString
	OpAllocateUserDefined
	OpAllocateArrayIntoA
	OpBeginCollectArguments
	OpPushUnnamedByVal
	OpPushUnnamedByRef

	// Control flow
	OpLabel
	OpJump
	OpJumpIfFalse
	OpGoSub
	OpReturn
	OpPopRet
	OpHalt

	// Error handling
	OpOnErrorGoTo
	OpOnErrorResumeNext
	OpOnErrorGoToZero
	OpThrow
	OpResume
	OpResumeNext
	OpResumeLabel

	// Calls
	OpBuiltInSub
	OpBuiltInFunction
	OpUserSubCall
	OpUserFunctionCall

	// Bookkeeping
	OpIsVariableDefined
)

var opNames = [...]string{
	"Load", "Cast", "Coerce", "FixLength", "CopyAToB", "CopyBToA", "CopyAToC", "CopyCToA",
	"CopyAToD", "CopyDToA", "CopyCToB", "CopyDToB",
	"Plus", "Minus", "Multiply", "Divide", "Modulo", "And", "Or", "NotA", "NegateA",
	"Less", "LessOrEqual", "Equal", "GreaterOrEqual", "Greater", "NotEqual",
	"PushAToValueStack", "PopValueStackIntoA", "PushRegisters", "PopRegisters",
	"VarPathName", "VarPathIndex", "VarPathProperty", "CopyVarPathToA", "CopyAToVarPath", "PopVarPath",
	"AllocateBuiltIn", "AllocateFixedLengthString", "AllocateUserDefined", "AllocateArrayIntoA",
	"BeginCollectArguments", "PushUnnamedByVal", "PushUnnamedByRef",
	"Label", "Jump", "JumpIfFalse", "GoSub", "Return", "PopRet", "Halt",
	"OnErrorGoTo", "OnErrorResumeNext", "OnErrorGoToZero", "Throw", "Resume", "ResumeNext", "ResumeLabel",
	"BuiltInSub", "BuiltInFunction", "UserSubCall", "UserFunctionCall",
	"IsVariableDefined",
}

func (op Op) String() string {
	if int(op) < 0 || int(op) >= len(opNames) {
		return "Unknown"
	}
	return opNames[op]
}

// AddressOrLabel is the two-state sum type spec §4.2.1 describes: symbolic
// before the patch phase, an absolute instruction index after.
type AddressOrLabel struct {
	Label    ast.BareName
	Index    int
	Resolved bool
}

func UnresolvedLabel(name ast.BareName) AddressOrLabel {
	return AddressOrLabel{Label: name}
}

func ResolvedAddr(i int) AddressOrLabel {
	return AddressOrLabel{Index: i, Resolved: true}
}

func (a AddressOrLabel) String() string {
	if a.Resolved {
		return fmt.Sprintf("#%d", a.Index)
	}
	return a.Label.String()
}

// RootPath identifies the symbol a variable path starts from.
type RootPath struct {
	Name   ast.BareName
	Shared bool
}

// Segment extends a variable path past its root: either an array index
// list consumed all at once, or a single property name.
type Segment struct {
	IsProperty bool
	Property   string
	// Index is filled in incrementally by one VarPathIndex instruction per
	// dimension; the segment keeps taking indices until a property segment
	// follows it.
	Index []int32
}

// Instruction is one tagged step of the generated program. Only the
// operand fields relevant to Op are populated; see §4.2.1 for the mapping
// from spec pseudo-instructions to these fields.
type Instruction struct {
	Op Op

	Value      Value                 // OpLoad
	Qualifier  ast.Qualifier         // OpCast, OpAllocateBuiltIn
	Len        uint16                // OpFixLength, OpAllocateFixedLengthString
	Name       string                // OpVarPathName/Property, OpAllocateUserDefined, OpIsVariableDefined, OpUserSubCall/FunctionCall, OpLabel
	Shared     bool                  // OpVarPathName
	Addr       AddressOrLabel        // jumps/gosub/resume-label/on-error-goto
	HasAddr    bool                  // OpReturn: true => jump to Addr without popping
	BuiltInFn  ast.BuiltInFunctionID // OpBuiltInFunction
	BuiltInSub ast.BuiltInSubID      // OpBuiltInSub
	Err        *errs.RuntimeError    // OpThrow
	ElemType   ast.ExpressionType    // OpAllocateArrayIntoA, OpCoerce (target type)

	Pos ast.Position
}

// Program is the flat instruction stream plus the entry-point maps spec §3
// requires for subprogram calls and label-based control flow.
type Program struct {
	Instructions []Instruction
	// SubEntry/FunctionEntry map a subprogram's canonical name to its first
	// instruction index, used by OpUserSubCall/OpUserFunctionCall.
	SubEntry      map[string]int
	FunctionEntry map[string]int
	// Labels maps a label's canonical name, scoped as
	// "<subprogram>#<label>" (global scope uses "" as the subprogram
	// part), to its instruction index. Populated by the patch phase.
	Labels map[string]int
	// StatementStarts holds, in ascending order, the instruction index of
	// every generated statement's first instruction. RESUME and RESUME
	// NEXT use it to find the faulting statement's start and the start of
	// the statement after it (spec §4.3.3).
	StatementStarts []int
	// Data is the flattened pool of every DATA statement's literals, in
	// source order, consumed by READ/RESTORE.
	Data []ast.LiteralValue
	// SubParams/FunctionParams list each subprogram's parameters' canonical
	// names in declaration order, so the VM can bind a popped argument list
	// to the callee's new frame without re-deriving names from the AST.
	SubParams      map[string][]string
	FunctionParams map[string][]string
	// StaticSubs/StaticFunctions mark subprograms declared STATIC, whose
	// frame persists across calls instead of being recreated each time.
	StaticSubs      map[string]bool
	StaticFunctions map[string]bool
	// Types maps a TYPE...END TYPE declaration's canonical name to its field
	// layout, so OpAllocateUserDefined can build a zero-valued record
	// without consulting the AST at runtime.
	Types map[string]UDTLayout
}

// UDTLayout is a TYPE declaration's runtime shape: field names in
// declaration order plus each field's type.
type UDTLayout struct {
	TypeName ast.BareName
	Fields   []UDTField
}

type UDTField struct {
	Name string
	Type ast.ExpressionType
}

func NewProgram() *Program {
	return &Program{
		SubEntry:        make(map[string]int),
		FunctionEntry:   make(map[string]int),
		Labels:          make(map[string]int),
		SubParams:       make(map[string][]string),
		FunctionParams:  make(map[string][]string),
		StaticSubs:      make(map[string]bool),
		StaticFunctions: make(map[string]bool),
		Types:           make(map[string]UDTLayout),
	}
}

func (p *Program) Len() int { return len(p.Instructions) }

func (p *Program) Emit(ins Instruction) int {
	p.Instructions = append(p.Instructions, ins)
	return len(p.Instructions) - 1
}

// MarkStatement records that pc begins a new statement. Codegen calls this
// once per lowered Stmt, in emission order.
func (p *Program) MarkStatement(pc int) {
	p.StatementStarts = append(p.StatementStarts, pc)
}

// CurrentStatementStart returns the index of the statement containing pc:
// the largest recorded statement-start <= pc.
func (p *Program) CurrentStatementStart(pc int) int {
	start := 0
	for _, s := range p.StatementStarts {
		if s > pc {
			break
		}
		start = s
	}
	return start
}

// NextStatementStart returns the index of the first statement after the one
// containing pc, or Len() if pc's statement is the program's last.
func (p *Program) NextStatementStart(pc int) int {
	for _, s := range p.StatementStarts {
		if s > pc {
			return s
		}
	}
	return p.Len()
}
