// Package ast defines the typed AST produced by the (external) parser and
// consumed by the semantic analyzer. Nodes carry a source Position so every
// later phase can attach it to a diagnostic without re-deriving it.
package ast

import "fmt"

// Position identifies a location in a source file.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Qualifier is one of the five BASIC type-qualifier suffixes.
type Qualifier byte

const (
	QualifierNone Qualifier = iota
	Single                 // !
	Double                 // #
	String                 // $
	Integer                // %
	Long                   // &
)

func (q Qualifier) String() string {
	switch q {
	case Single:
		return "!"
	case Double:
		return "#"
	case String:
		return "$"
	case Integer:
		return "%"
	case Long:
		return "&"
	default:
		return ""
	}
}

// BareName is a case-insensitive identifier. Display preserves the
// originally-written case; equality and map keys use CanonicalName.
type BareName struct {
	text string
}

func NewBareName(s string) BareName { return BareName{text: s} }

// String returns the name as originally written.
func (b BareName) String() string { return b.text }

// CanonicalName returns the case-folded form used for comparisons and as
// symbol-table keys.
func (b BareName) CanonicalName() string { return foldCase(b.text) }

func (b BareName) Equal(other BareName) bool {
	return b.CanonicalName() == other.CanonicalName()
}

// Name is either a Bare name or a Bare name qualified with a type suffix.
type Name struct {
	Bare      BareName
	Qualifier Qualifier // QualifierNone if unqualified
}

func (n Name) IsQualified() bool { return n.Qualifier != QualifierNone }

func (n Name) String() string {
	if n.IsQualified() {
		return n.Bare.String() + n.Qualifier.String()
	}
	return n.Bare.String()
}

// ExpressionType is the resolved type of an expression after linting.
type ExpressionType struct {
	Kind     ExprTypeKind
	BuiltIn  Qualifier // valid when Kind == ExprBuiltIn
	FixedLen uint16    // valid when Kind == ExprFixedLengthString
	UDTName  BareName  // valid when Kind == ExprUserDefined
	Elem     *ExpressionType // valid when Kind == ExprArray
}

type ExprTypeKind byte

const (
	ExprUnresolved ExprTypeKind = iota
	ExprBuiltIn
	ExprFixedLengthString
	ExprUserDefined
	ExprArray
)

func BuiltInType(q Qualifier) ExpressionType { return ExpressionType{Kind: ExprBuiltIn, BuiltIn: q} }

func FixedLengthStringType(n uint16) ExpressionType {
	return ExpressionType{Kind: ExprFixedLengthString, FixedLen: n}
}

func UserDefinedType(name BareName) ExpressionType {
	return ExpressionType{Kind: ExprUserDefined, UDTName: name}
}

func ArrayType(of ExpressionType) ExpressionType {
	return ExpressionType{Kind: ExprArray, Elem: &of}
}

func (t ExpressionType) IsString() bool {
	return t.Kind == ExprFixedLengthString || (t.Kind == ExprBuiltIn && t.BuiltIn == String)
}

func (t ExpressionType) IsNumeric() bool {
	return t.Kind == ExprBuiltIn && t.BuiltIn != String
}

func (t ExpressionType) String() string {
	switch t.Kind {
	case ExprBuiltIn:
		return t.BuiltIn.String()
	case ExprFixedLengthString:
		return fmt.Sprintf("STRING * %d", t.FixedLen)
	case ExprUserDefined:
		return t.UDTName.String()
	case ExprArray:
		return t.Elem.String() + "()"
	default:
		return "<unresolved>"
	}
}

// ---- Expressions ----

// Expr is any node that can appear in expression position. Every concrete
// expression node carries its own Position and, once resolved by the
// linter, its ExpressionType.
type Expr interface {
	exprNode()
	Pos() Position
	Type() ExpressionType
}

type exprBase struct {
	Position Position
	Typ      ExpressionType
}

func (e exprBase) Pos() Position        { return e.Position }
func (e exprBase) Type() ExpressionType { return e.Typ }

// SetType attaches the linter's resolved type to an expression node. The
// analyzer is the only caller: every other package treats Expr as
// read-only once it leaves the parser/linter pipeline.
func (e *exprBase) SetType(t ExpressionType) { e.Typ = t }

// Literal is a constant value appearing directly in source.
type Literal struct {
	exprBase
	Value LiteralValue
}

func (Literal) exprNode() {}

// LiteralValue mirrors the handful of literal forms a lexer can produce;
// the linter folds these into Variants during constant evaluation.
type LiteralValue struct {
	Kind LiteralKind
	Int  int32
	Flt  float64
	Str  string
}

type LiteralKind byte

const (
	LitInteger LiteralKind = iota
	LitLong
	LitSingle
	LitDouble
	LitString
)

// VariableRef is an unresolved or resolved reference to a variable by Name.
type VariableRef struct {
	exprBase
	Name Name
}

func (VariableRef) exprNode() {}

// ArrayElementRef indexes into an array variable.
type ArrayElementRef struct {
	exprBase
	Name    Name
	Indices []Expr
}

func (ArrayElementRef) exprNode() {}

// PropertyRef is a dotted access `left.Right`.
type PropertyRef struct {
	exprBase
	Left  Expr
	Right BareName
}

func (PropertyRef) exprNode() {}

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	exprBase
	Op          BinOp
	Left, Right Expr
}

func (BinaryExpr) exprNode() {}

type BinOp byte

const (
	OpPlus BinOp = iota
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpAnd
	OpOr
	OpLess
	OpLessOrEqual
	OpEqual
	OpGreaterOrEqual
	OpGreater
	OpNotEqual
)

// UnaryExpr is `-x` or `NOT x`.
type UnaryExpr struct {
	exprBase
	Op    UnOp
	Child Expr
}

func (UnaryExpr) exprNode() {}

type UnOp byte

const (
	OpNegate UnOp = iota
	OpNot
)

// FunctionCallExpr calls a built-in or user-defined function.
type FunctionCallExpr struct {
	exprBase
	Name Name
	Args []Expr
	// BuiltIn is set once the linter resolves the call to a built-in id;
	// zero value means "user function" (see IsBuiltIn).
	BuiltIn   BuiltInFunctionID
	IsBuiltIn bool
}

func (FunctionCallExpr) exprNode() {}

// ---- Statements ----

// Stmt is any node that can appear in statement position.
type Stmt interface {
	stmtNode()
	Pos() Position
}

type stmtBase struct{ Position Position }

func (s stmtBase) Pos() Position { return s.Position }

// AssignStmt is `target = expr`.
type AssignStmt struct {
	stmtBase
	Target Expr
	Value  Expr
}

func (AssignStmt) stmtNode() {}

// DimVar describes one variable/array named by a DIM or REDIM statement.
type DimVar struct {
	Name       Name
	Type       ExpressionType
	IsArray    bool
	Bounds     []DimBound // one pair per dimension, empty if not an array
	Shared     bool
	IsRedim    bool
	IsPreserve bool // REDIM PRESERVE
}

// DimBound is a single dimension's (lower, upper) bound expression pair.
// Lower is nil when the bound was omitted (defaults to 0).
type DimBound struct {
	Lower, Upper Expr
}

type DimStmt struct {
	stmtBase
	Vars []DimVar
}

func (DimStmt) stmtNode() {}

type ConstStmt struct {
	stmtBase
	Name  Name
	Value Expr
}

func (ConstStmt) stmtNode() {}

type DefTypeStmt struct {
	stmtBase
	Qualifier Qualifier
	Ranges    []DefTypeRange
}

type DefTypeRange struct{ From, To byte } // 'A'..'Z'

func (DefTypeStmt) stmtNode() {}

type TypeDefStmt struct {
	stmtBase
	Name     BareName
	Elements []TypeElement
}

type TypeElement struct {
	Name Name
	Type ExpressionType
	// FixedLenConstRef is the name of a global CONST providing STRING * N,
	// when N wasn't a literal. Empty if N was a literal or N/A.
	FixedLenConstRef BareName
}

func (TypeDefStmt) stmtNode() {}

// IfStmt models IF/ELSEIF/ELSE.
type IfStmt struct {
	stmtBase
	Branches []IfBranch // first is IF, rest are ELSEIF; condition always set
	Else     []Stmt     // nil if no ELSE
}

type IfBranch struct {
	Condition Expr
	Body      []Stmt
}

func (IfStmt) stmtNode() {}

// ForStmt models FOR var = lo TO hi [STEP step] ... NEXT.
type ForStmt struct {
	stmtBase
	Counter Expr // variable or array element
	Lower   Expr
	Upper   Expr
	Step    Expr // nil => literal Integer 1
	Body    []Stmt
}

func (ForStmt) stmtNode() {}

// WhileStmt models WHILE ... WEND.
type WhileStmt struct {
	stmtBase
	Condition Expr
	Body      []Stmt
}

func (WhileStmt) stmtNode() {}

// DoLoopKind distinguishes the four DO/LOOP condition placements.
type DoLoopKind byte

const (
	DoForever DoLoopKind = iota
	DoWhileTop
	DoUntilTop
	DoWhileBottom
	DoUntilBottom
)

type DoLoopStmt struct {
	stmtBase
	Kind      DoLoopKind
	Condition Expr // nil when Kind == DoForever
	Body      []Stmt
}

func (DoLoopStmt) stmtNode() {}

// SelectCaseStmt models SELECT CASE.
type SelectCaseStmt struct {
	stmtBase
	Selector Expr
	Cases    []CaseBlock
	ElseBody []Stmt // nil if no CASE ELSE
}

type CaseBlock struct {
	Exprs []CaseExpr
	Body  []Stmt
}

// CaseExpr is one of the three case-expression forms.
type CaseExpr struct {
	Kind CaseExprKind
	// Simple: Value set. Range: From/To set. Is: Op/Value set.
	Value    Expr
	From, To Expr
	Op       BinOp
}

type CaseExprKind byte

const (
	CaseSimple CaseExprKind = iota
	CaseRange
	CaseIs
)

func (SelectCaseStmt) stmtNode() {}

// GotoStmt, GosubStmt, ReturnStmt, LabelStmt implement unstructured control
// flow and ON ERROR / RESUME.
type GotoStmt struct {
	stmtBase
	Label BareName
}

func (GotoStmt) stmtNode() {}

type GosubStmt struct {
	stmtBase
	Label BareName
}

func (GosubStmt) stmtNode() {}

type ReturnStmt struct {
	stmtBase
	Label BareName // empty if bare RETURN
}

func (ReturnStmt) stmtNode() {}

type LabelStmt struct {
	stmtBase
	Name BareName
}

func (LabelStmt) stmtNode() {}

type OnErrorKind byte

const (
	OnErrorGoto OnErrorKind = iota
	OnErrorResumeNext
	OnErrorGotoZero
)

type OnErrorStmt struct {
	stmtBase
	Kind  OnErrorKind
	Label BareName // valid when Kind == OnErrorGoto
}

func (OnErrorStmt) stmtNode() {}

type ResumeKind byte

const (
	ResumeBare ResumeKind = iota
	ResumeNextStmt
	ResumeLabelStmt
)

type ResumeStmt struct {
	stmtBase
	Kind  ResumeKind
	Label BareName // valid when Kind == ResumeLabelStmt
}

func (ResumeStmt) stmtNode() {}

// ExitKind distinguishes EXIT FOR/DO/WHILE/SUB/FUNCTION.
type ExitKind byte

const (
	ExitFor ExitKind = iota
	ExitDo
	ExitWhile
	ExitSub
	ExitFunction
)

type ExitStmt struct {
	stmtBase
	Kind ExitKind
}

func (ExitStmt) stmtNode() {}

// CallStmt invokes a built-in or user SUB as a statement.
type CallStmt struct {
	stmtBase
	Name      Name
	Args      []Expr
	BuiltIn   BuiltInSubID
	IsBuiltIn bool
}

func (CallStmt) stmtNode() {}

// PrintStmt models PRINT/LPRINT, optionally file-number-prefixed.
type PrintStmt struct {
	stmtBase
	FileNumber Expr // nil for console PRINT
	ToPrinter  bool // LPRINT
	Items      []PrintItem
}

type PrintItem struct {
	Expr      Expr
	Separator PrintSeparator // separator following this item
}

type PrintSeparator byte

const (
	SepNone PrintSeparator = iota
	SepComma
	SepSemicolon
)

func (PrintStmt) stmtNode() {}

// InputStmt models INPUT/LINE INPUT, optionally file-number-prefixed.
type InputStmt struct {
	stmtBase
	FileNumber Expr // nil for console input
	LineInput  bool
	Prompt     string
	SuppressQM bool // trailing ';' after prompt string suppresses "? "
	Targets    []Expr
}

func (InputStmt) stmtNode() {}

// ReadStmt models READ target, target, ...
type ReadStmt struct {
	stmtBase
	Targets []Expr
}

func (ReadStmt) stmtNode() {}

// DataStmt models DATA v1, v2, ...
type DataStmt struct {
	stmtBase
	Values []LiteralValue
}

func (DataStmt) stmtNode() {}

type RestoreStmt struct {
	stmtBase
	Label BareName // empty => restore to start
}

func (RestoreStmt) stmtNode() {}

// FileMode/FileAccess model the OPEN statement's mode clauses.
type FileMode byte

const (
	ModeInput FileMode = iota
	ModeOutput
	ModeAppend
	ModeBinary
	ModeRandom
)

type FileAccess byte

const (
	AccessDefault FileAccess = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

type OpenStmt struct {
	stmtBase
	FileName   Expr
	Mode       FileMode
	Access     FileAccess
	FileNumber Expr
	RecordLen  Expr // nil unless LEN= given
}

func (OpenStmt) stmtNode() {}

type CloseStmt struct {
	stmtBase
	FileNumbers []Expr // empty means CLOSE all
}

func (CloseStmt) stmtNode() {}

type GetPutStmt struct {
	stmtBase
	IsPut      bool
	FileNumber Expr
	RecordNum  Expr // nil => next record
	Target     Expr
}

func (GetPutStmt) stmtNode() {}

type FieldItem struct {
	Width  Expr
	Target Expr
}

type FieldStmt struct {
	stmtBase
	FileNumber Expr
	Items      []FieldItem
}

func (FieldStmt) stmtNode() {}

type LSetStmt struct {
	stmtBase
	Target Expr
	Value  Expr
}

func (LSetStmt) stmtNode() {}

type NameStmt struct {
	stmtBase
	OldName Expr
	NewName Expr
}

func (NameStmt) stmtNode() {}

type KillStmt struct {
	stmtBase
	FileName Expr
}

func (KillStmt) stmtNode() {}

// ExprStmt wraps a bare expression statement (e.g. a function called for
// its side effects, or a user SUB call already folded into CallStmt).
type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (ExprStmt) stmtNode() {}

// ---- Top-level declarations ----

type Parameter struct {
	Name    Name
	Type    ExpressionType
	IsArray bool
	ByRef   bool // BASIC SUB/FUNCTION parameters are by-reference unless scalar-by-value is requested
}

type DeclareKind byte

const (
	DeclareFunction DeclareKind = iota
	DeclareSub
)

// DeclareDecl models a forward `DECLARE FUNCTION`/`DECLARE SUB`.
type DeclareDecl struct {
	Position Position
	Kind     DeclareKind
	Name     Name
	Params   []Parameter
}

// FunctionDecl is a full FUNCTION ... END FUNCTION implementation.
type FunctionDecl struct {
	Position Position
	Name     Name
	Params   []Parameter
	IsStatic bool
	Body     []Stmt
}

// SubDecl is a full SUB ... END SUB implementation.
type SubDecl struct {
	Position Position
	Name     BareName
	Params   []Parameter
	IsStatic bool
	Body     []Stmt
}

// Program is the top-level parsed unit: the module's top-level statements
// plus every subprogram declared or implemented in the source file.
type Program struct {
	TopLevel  []Stmt
	Types     []TypeDefStmt
	Declares  []DeclareDecl
	Functions []FunctionDecl
	Subs      []SubDecl
}
