package parser

import (
	"fmt"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// errorf raises a syntax error at the parser's current token, reusing
// errs.LintError (spec §9's single diagnostic envelope for user-facing
// mistakes) rather than a parser-private error type.
func (p *Parser) errorf(format string, args ...interface{}) *errs.LintError {
	pos := ast.Position{Line: p.cur.Line, Column: p.cur.Column}
	return errs.NewLintError(errs.LintSyntaxError, fmt.Sprintf(format, args...)).At(pos)
}
