package errs

// Code is a stable QBASIC-compatible runtime error number.
type Code int

// Stable codes, matching spec §6. A handful of extension codes beyond the
// spec's table are included from the reference implementation's full error
// enum (see SPEC_FULL.md §C.1); those are noted individually below.
const (
	CodeNextWithoutFor     Code = 1 // extension: reference impl only
	CodeReturnWithoutGoSub Code = 3
	CodeOutOfData          Code = 4 // extension: reference impl only
	CodeIllegalFunctionCall Code = 5
	CodeOverflow            Code = 6
	CodeSubscriptOutOfRange Code = 9
	CodeDuplicateDefinition Code = 10 // extension: reference impl only
	CodeDivisionByZero      Code = 11
	CodeTypeMismatch        Code = 13
	CodeResumeWithoutError  Code = 20
	CodeForWithoutNext      Code = 26 // extension: reference impl only
	CodeWhileWithoutWend    Code = 29 // extension: reference impl only
	CodeBadFileNameOrNumber Code = 52
	CodeFileNotFound        Code = 53
	CodeFileAlreadyOpen     Code = 55
	CodeInputPastEndOfFile  Code = 62
	CodeOther               Code = 257
	CodeForLoopZeroStep     Code = 258
)

// Kind is a descriptive runtime-error kind; Code() maps it to the stable
// numeric code above. A Kind with no numeric-code mapping in the original
// reference implementation is surfaced as CodeOther (per spec §9's open
// question: pick a deterministic extension code rather than panicking).
type Kind string

const (
	KindNextWithoutFor      Kind = "NextWithoutFor"
	KindReturnWithoutGoSub  Kind = "ReturnWithoutGoSub"
	KindOutOfData           Kind = "OutOfData"
	KindIllegalFunctionCall Kind = "IllegalFunctionCall"
	KindOverflow            Kind = "Overflow"
	KindSubscriptOutOfRange Kind = "SubscriptOutOfRange"
	KindDuplicateDefinition Kind = "DuplicateDefinition"
	KindDivisionByZero      Kind = "DivisionByZero"
	KindTypeMismatch        Kind = "TypeMismatch"
	KindResumeWithoutError  Kind = "ResumeWithoutError"
	KindForWithoutNext      Kind = "ForWithoutNext"
	KindWhileWithoutWend    Kind = "WhileWithoutWend"
	KindBadFileNameOrNumber Kind = "BadFileNameOrNumber"
	KindFileNotFound        Kind = "FileNotFound"
	KindFileAlreadyOpen     Kind = "FileAlreadyOpen"
	KindInputPastEndOfFile  Kind = "InputPastEndOfFile"
	KindElementNotDefined   Kind = "ElementNotDefined"
	KindForLoopZeroStep     Kind = "ForLoopZeroStep"
	KindOther               Kind = "Other"
)

var kindCodes = map[Kind]Code{
	KindNextWithoutFor:      CodeNextWithoutFor,
	KindReturnWithoutGoSub:  CodeReturnWithoutGoSub,
	KindOutOfData:           CodeOutOfData,
	KindIllegalFunctionCall: CodeIllegalFunctionCall,
	KindOverflow:            CodeOverflow,
	KindSubscriptOutOfRange: CodeSubscriptOutOfRange,
	KindDuplicateDefinition: CodeDuplicateDefinition,
	KindDivisionByZero:      CodeDivisionByZero,
	KindTypeMismatch:        CodeTypeMismatch,
	KindResumeWithoutError:  CodeResumeWithoutError,
	KindForWithoutNext:      CodeForWithoutNext,
	KindWhileWithoutWend:    CodeWhileWithoutWend,
	KindBadFileNameOrNumber: CodeBadFileNameOrNumber,
	KindFileNotFound:        CodeFileNotFound,
	KindFileAlreadyOpen:     CodeFileAlreadyOpen,
	KindInputPastEndOfFile:  CodeInputPastEndOfFile,
	KindForLoopZeroStep:     CodeForLoopZeroStep,
}

// Code returns the stable numeric code for a Kind, defaulting to CodeOther.
func (k Kind) Code() Code {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return CodeOther
}
