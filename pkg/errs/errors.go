// Package errs carries the three error envelopes used across the
// interpreter pipeline: LintError (semantic analyzer), RuntimeError (VM),
// and CompileBug (instruction generator invariant violations). Position is
// attached at the point each error is raised rather than threaded through
// the type system, matching spec §9's design note.
package errs

import (
	"fmt"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
)

// ANSI color codes for terminal diagnostics.
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
	Bold   = "\033[1m"
)

// LintStructuralKind enumerates the structural/semantic error kinds spec §7
// lists for the analyzer. These are distinct from runtime Kind values above:
// they never carry a stable numeric code because the analyzer never lets a
// program run with one outstanding.
type LintStructuralKind string

const (
	LintDuplicateDefinition     LintStructuralKind = "DuplicateDefinition"
	LintTypeNotDefined          LintStructuralKind = "TypeNotDefined"
	LintTypeMismatch            LintStructuralKind = "TypeMismatch"
	LintArgumentTypeMismatch    LintStructuralKind = "ArgumentTypeMismatch"
	LintArgumentCountMismatch   LintStructuralKind = "ArgumentCountMismatch"
	LintVariableRequired        LintStructuralKind = "VariableRequired"
	LintInvalidConstant         LintStructuralKind = "InvalidConstant"
	LintDotClash                LintStructuralKind = "DotClash"
	LintElementNotDefined       LintStructuralKind = "ElementNotDefined"
	LintArrayNotDefined         LintStructuralKind = "ArrayNotDefined"
	LintFunctionNeedsArguments  LintStructuralKind = "FunctionNeedsArguments"
	LintLabelNotDefined         LintStructuralKind = "LabelNotDefined"
	LintDuplicateLabel          LintStructuralKind = "DuplicateLabel"
	LintIllegalInSubFunction    LintStructuralKind = "IllegalInSubFunction"
	LintIllegalOutsideSubFunc   LintStructuralKind = "IllegalOutsideSubFunction"
	LintArrayAlreadyDimensioned LintStructuralKind = "ArrayAlreadyDimensioned"
	LintWrongNumberOfDimensions LintStructuralKind = "WrongNumberOfDimensions"
	LintSyntaxError             LintStructuralKind = "SyntaxError"
	LintSubprogramNotDefined    LintStructuralKind = "SubprogramNotDefined"
)

// LintError is a fatal semantic-analysis error.
type LintError struct {
	Kind       LintStructuralKind
	Message    string
	Position   ast.Position
	Suggestion string
}

func (e *LintError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Position, e.Message)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Position)
}

// NewLintError builds a LintError without position; callers attach position
// via At as the error bubbles up through nested expression conversion.
func NewLintError(kind LintStructuralKind, message string) *LintError {
	return &LintError{Kind: kind, Message: message}
}

// At attaches (or overwrites) the position on a LintError and returns it,
// so call sites can write `return nil, errs.NewLintError(...).At(pos)`.
func (e *LintError) At(pos ast.Position) *LintError {
	e.Position = pos
	return e
}

// WithSuggestion attaches a human-facing hint.
func (e *LintError) WithSuggestion(s string) *LintError {
	e.Suggestion = s
	return e
}

// FormatError renders a LintError for the CLI, optionally colorized.
func (e *LintError) FormatError(useColors bool, source string) string {
	var b strings.Builder
	header := fmt.Sprintf("%s", e.Kind)
	if useColors {
		b.WriteString(Bold + Red + header + Reset)
	} else {
		b.WriteString(header)
	}
	b.WriteString(fmt.Sprintf(" at line %d, column %d\n", e.Position.Line, e.Position.Column))
	if e.Message != "" {
		b.WriteString("  " + e.Message + "\n")
	}
	if snippet := sourceLine(source, e.Position.Line); snippet != "" {
		if useColors {
			b.WriteString(fmt.Sprintf("  %s%4d |%s %s\n", Cyan, e.Position.Line, Reset, snippet))
		} else {
			b.WriteString(fmt.Sprintf("  %4d | %s\n", e.Position.Line, snippet))
		}
	}
	if e.Suggestion != "" {
		if useColors {
			b.WriteString(fmt.Sprintf("  %shint:%s %s\n", Yellow, Reset, e.Suggestion))
		} else {
			b.WriteString("  hint: " + e.Suggestion + "\n")
		}
	}
	return b.String()
}

func sourceLine(source string, line int) string {
	if source == "" || line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line-1 >= len(lines) {
		return ""
	}
	return lines[line-1]
}

// StackFrame is one entry in a RuntimeError's optional call-stack snapshot.
type StackFrame struct {
	Name     string
	Position ast.Position
}

// RuntimeError is raised by the VM during execution. It always carries the
// faulting instruction's Position once it reaches a component boundary.
type RuntimeError struct {
	Kind     Kind
	Message  string
	Position ast.Position
	Stack    []StackFrame
}

func (e *RuntimeError) Error() string {
	code := e.Kind.Code()
	if e.Message != "" {
		return fmt.Sprintf("error %d (%s) at %s: %s", code, e.Kind, e.Position, e.Message)
	}
	return fmt.Sprintf("error %d (%s) at %s", code, e.Kind, e.Position)
}

// Code returns the stable numeric error code for this runtime error.
func (e *RuntimeError) Code() Code { return e.Kind.Code() }

func NewRuntimeError(kind Kind, message string) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: message}
}

func (e *RuntimeError) At(pos ast.Position) *RuntimeError {
	e.Position = pos
	return e
}

func (e *RuntimeError) WithStack(frames []StackFrame) *RuntimeError {
	e.Stack = frames
	return e
}

// FormatError renders a RuntimeError for the CLI, optionally colorized.
func (e *RuntimeError) FormatError(useColors bool) string {
	var b strings.Builder
	header := fmt.Sprintf("Error %d: %s", e.Code(), e.Kind)
	if useColors {
		b.WriteString(Bold + Red + header + Reset)
	} else {
		b.WriteString(header)
	}
	b.WriteString(fmt.Sprintf(" at %s\n", e.Position))
	if e.Message != "" {
		b.WriteString("  " + e.Message + "\n")
	}
	for _, f := range e.Stack {
		if useColors {
			b.WriteString(fmt.Sprintf("  %sat %s (%s)%s\n", Gray, f.Name, f.Position, Reset))
		} else {
			b.WriteString(fmt.Sprintf("  at %s (%s)\n", f.Name, f.Position))
		}
	}
	return b.String()
}

// CompileBug is raised when the instruction generator's own invariants are
// violated (e.g. a label left Unresolved after the patch phase). This is a
// programmer error in the generator, never a user-facing diagnostic.
type CompileBug struct {
	Message string
}

func (e *CompileBug) Error() string {
	return "instruction generator bug: " + e.Message
}

func NewCompileBug(format string, args ...interface{}) *CompileBug {
	return &CompileBug{Message: fmt.Sprintf(format, args...)}
}

// FormatError is the shared entry point the CLI calls regardless of which
// envelope type it received.
func FormatError(err error, source string, useColors bool) string {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case *LintError:
		return e.FormatError(useColors, source)
	case *RuntimeError:
		return e.FormatError(useColors)
	case *CompileBug:
		return fmt.Sprintf("%sinternal error:%s %s\n", Bold+Red, Reset, e.Message)
	default:
		return fmt.Sprintf("%sError:%s %s\n", Bold+Red, Reset, err.Error())
	}
}
