// Package validate produces AI-friendly, structured validation reports for
// BASIC source files: the same parse/lint pipeline cmd/qbi's lint
// subcommand drives, shaped into JSON a tool can consume instead of the
// terminal-colored text errs.FormatError prints.
package validate

import (
	"encoding/json"
	"strings"

	"github.com/basilfold/qbi/pkg/errs"
	"github.com/basilfold/qbi/pkg/linter"
	"github.com/basilfold/qbi/pkg/parser"
)

// Result is the outcome of validating one source file.
type Result struct {
	Valid    bool          `json:"valid"`
	FilePath string        `json:"file_path"`
	Errors   []*Diagnostic `json:"errors,omitempty"`
	Stats    *Stats        `json:"stats,omitempty"`
}

// Stats summarizes the shape of a successfully parsed program.
type Stats struct {
	Types     int `json:"types"`
	Subs      int `json:"subs"`
	Functions int `json:"functions"`
	Lines     int `json:"lines"`
}

// Diagnostic is a single structured error or warning.
type Diagnostic struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
	Context  string    `json:"context,omitempty"`
	FixHint  string    `json:"fix_hint,omitempty"`
	Severity string    `json:"severity"`
}

// Location is a source position within a file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Diagnostic type tags.
const (
	TypeSyntax   = "syntax_error"
	TypeSemantic = "semantic_error"
)

// Validate parses and lints source, returning a structured report instead
// of the terminal diagnostics cmd/qbi prints for interactive use.
func Validate(source, filePath string) *Result {
	lines := strings.Split(source, "\n")
	result := &Result{
		Valid:    true,
		FilePath: filePath,
		Errors:   make([]*Diagnostic, 0),
		Stats:    &Stats{Lines: len(lines)},
	}

	prog, err := parser.Parse(source)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, diagnostic(err, filePath, lines, TypeSyntax))
		return result
	}

	lintResult, lintErrs := linter.Analyze(prog)
	for _, le := range lintErrs {
		result.Valid = false
		result.Errors = append(result.Errors, diagnostic(le, filePath, lines, TypeSemantic))
	}

	result.Stats.Types = len(lintResult.Types)
	result.Stats.Subs = len(prog.Subs)
	result.Stats.Functions = len(prog.Functions)

	return result
}

// JSON renders the result as indented JSON.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func diagnostic(err error, filePath string, lines []string, kind string) *Diagnostic {
	d := &Diagnostic{Type: kind, Message: err.Error(), Severity: "error"}

	le, ok := err.(*errs.LintError)
	if !ok {
		return d
	}

	d.Location = &Location{File: filePath, Line: le.Position.Line, Column: le.Position.Column}
	d.Context = contextLine(lines, le.Position.Line)
	d.FixHint = le.Suggestion
	return d
}

func contextLine(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}
