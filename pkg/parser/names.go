package parser

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/lexer"
)

// nameFromLiteral splits a lexed IDENT's literal text into its bare name
// and trailing type-qualifier character, mirroring how DEFtype/AS clauses
// are layered on top in pkg/linter's prepass.
func nameFromLiteral(lit string) ast.Name {
	if lit == "" {
		return ast.Name{}
	}
	last := lit[len(lit)-1]
	q := ast.QualifierNone
	bare := lit
	switch last {
	case '%':
		q = ast.Integer
		bare = lit[:len(lit)-1]
	case '&':
		q = ast.Long
		bare = lit[:len(lit)-1]
	case '!':
		q = ast.Single
		bare = lit[:len(lit)-1]
	case '#':
		q = ast.Double
		bare = lit[:len(lit)-1]
	case '$':
		q = ast.String
		bare = lit[:len(lit)-1]
	}
	return ast.Name{Bare: ast.NewBareName(bare), Qualifier: q}
}

// parseName consumes one IDENT token and returns its Name.
func (p *Parser) parseName() (ast.Name, error) {
	tok, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return ast.Name{}, err
	}
	return nameFromLiteral(tok.Literal), nil
}
