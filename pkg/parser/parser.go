// Package parser builds an *ast.Program from a token stream, grounded on
// the teacher's recursive-descent, single-pass parser.go shape: one method
// per grammar production, a small set of token-stream helpers (at/accept/
// expect), and errors raised the moment an unexpected token is seen rather
// than collected and recovered from.
package parser

import (
	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/lexer"
)

// Parser consumes a pre-lexed token stream. knownArrays tracks every name
// DIMensioned (or declared as an array parameter) so far, since ast draws a
// hard line between ArrayElementRef and FunctionCallExpr for `NAME(args)`
// in expression position and the grammar alone can't tell them apart —
// classic QBASIC source always DIMs an array before indexing it, so a
// single running set (rather than a full per-scope symbol table, which
// belongs to pkg/linter, not the parser) is enough in practice.
type Parser struct {
	toks        []lexer.Token
	pos         int
	cur         lexer.Token
	knownArrays map[string]bool
}

// New builds a Parser over an already-lexed token stream (see
// lexer.New(src).Tokenize()).
func New(toks []lexer.Token) *Parser {
	p := &Parser{toks: toks, knownArrays: map[string]bool{}}
	if len(toks) > 0 {
		p.cur = toks[0]
	}
	return p
}

// Parse lexes and parses src in one call.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, err
	}
	return New(toks).ParseProgram()
}

func (p *Parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	p.cur = p.toks[p.pos]
}

func (p *Parser) peek(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur.Type == tt }

func (p *Parser) accept(tt lexer.TokenType) bool {
	if p.at(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt lexer.TokenType, what string) (lexer.Token, error) {
	if !p.at(tt) {
		return lexer.Token{}, p.errorf("expected %s, found %q", what, p.cur.Literal)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func (p *Parser) pos_() ast.Position { return ast.Position{Line: p.cur.Line, Column: p.cur.Column} }

func (p *Parser) skipSeparators() {
	for p.at(lexer.NEWLINE) || p.at(lexer.COLON) {
		p.advance()
	}
}

// ParseProgram consumes the whole token stream and returns the populated
// Program: TYPE/DECLARE/SUB/FUNCTION blocks are routed to their own lists,
// everything else lands in TopLevel.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for {
		p.skipSeparators()
		if p.at(lexer.EOF) {
			return prog, nil
		}
		switch p.cur.Type {
		case lexer.DECLARE:
			d, err := p.parseDeclare()
			if err != nil {
				return nil, err
			}
			prog.Declares = append(prog.Declares, d)

		case lexer.TYPE:
			t, err := p.parseTypeDef()
			if err != nil {
				return nil, err
			}
			prog.Types = append(prog.Types, t)

		case lexer.SUB:
			s, err := p.parseSubDecl()
			if err != nil {
				return nil, err
			}
			prog.Subs = append(prog.Subs, s)

		case lexer.FUNCTION:
			f, err := p.parseFunctionDecl()
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, f)

		default:
			stmts, err := p.parseStmtLine(isTopLevelEnder)
			if err != nil {
				return nil, err
			}
			prog.TopLevel = append(prog.TopLevel, stmts...)
		}
	}
}

func isTopLevelEnder(tt lexer.TokenType) bool { return false }

// parseBlock parses statements until isEnder reports true for the current
// (unconsumed) token or EOF is reached.
func (p *Parser) parseBlock(isEnder func(lexer.TokenType) bool) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for {
		p.skipSeparators()
		if p.at(lexer.EOF) || isEnder(p.cur.Type) {
			return out, nil
		}
		stmts, err := p.parseStmtLine(isEnder)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
}

// parseStmtLine parses one colon-separated run of statements, including a
// leading label if present, stopping at NEWLINE/EOF/an ender token.
func (p *Parser) parseStmtLine(isEnder func(lexer.TokenType) bool) ([]ast.Stmt, error) {
	var out []ast.Stmt
	if lbl, ok, err := p.tryParseLabel(); err != nil {
		return nil, err
	} else if ok {
		out = append(out, lbl)
		p.skipSeparators()
		if p.at(lexer.EOF) || isEnder(p.cur.Type) {
			return out, nil
		}
	}
	for {
		if p.at(lexer.EOF) || p.at(lexer.NEWLINE) || isEnder(p.cur.Type) {
			return out, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
		if p.accept(lexer.COLON) {
			if p.at(lexer.EOF) || p.at(lexer.NEWLINE) || isEnder(p.cur.Type) {
				return out, nil
			}
			continue
		}
		return out, nil
	}
}

// tryParseLabel recognizes a line-number or bare-word label at the current
// position: a bare INTEGER, or an IDENT immediately followed by ':'.
func (p *Parser) tryParseLabel() (ast.Stmt, bool, error) {
	pos := p.pos_()
	if p.at(lexer.INTEGER) {
		name := p.cur.Literal
		p.advance()
		p.accept(lexer.COLON)
		lbl := ast.LabelStmt{Name: ast.NewBareName(name)}
		lbl.Position = pos
		return &lbl, true, nil
	}
	if p.at(lexer.IDENT) && p.peek(1).Type == lexer.COLON {
		name := p.cur.Literal
		p.advance()
		p.advance() // ':'
		lbl := ast.LabelStmt{Name: ast.NewBareName(name)}
		lbl.Position = pos
		return &lbl, true, nil
	}
	return nil, false, nil
}
