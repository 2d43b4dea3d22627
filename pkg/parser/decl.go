package parser

import (
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/lexer"
)

// parseAsClause parses `AS <type>` where <type> is one of the five builtin
// names, `STRING * n`, or a TYPE name. INTEGER/LONG/SINGLE/DOUBLE/STRING
// aren't reserved lexer keywords (real QBASIC source never uses them as
// plain variable names in practice), so they're recognized here by text.
func (p *Parser) parseAsClause() (ast.ExpressionType, ast.BareName, error) {
	tok, err := p.expect(lexer.IDENT, "type name")
	if err != nil {
		return ast.ExpressionType{}, ast.BareName{}, err
	}
	switch strings.ToUpper(tok.Literal) {
	case "INTEGER":
		return ast.BuiltInType(ast.Integer), ast.BareName{}, nil
	case "LONG":
		return ast.BuiltInType(ast.Long), ast.BareName{}, nil
	case "SINGLE":
		return ast.BuiltInType(ast.Single), ast.BareName{}, nil
	case "DOUBLE":
		return ast.BuiltInType(ast.Double), ast.BareName{}, nil
	case "STRING":
		if p.accept(lexer.STAR) {
			// fixed-length: either a literal, or a named CONST resolved later.
			if p.at(lexer.INTEGER) {
				n, _ := parseIntLiteralText(p.cur.Literal)
				p.advance()
				return ast.FixedLengthStringType(uint16(n)), ast.BareName{}, nil
			}
			nameTok, err := p.expect(lexer.IDENT, "constant name")
			if err != nil {
				return ast.ExpressionType{}, ast.BareName{}, err
			}
			return ast.FixedLengthStringType(0), ast.NewBareName(nameTok.Literal), nil
		}
		return ast.BuiltInType(ast.String), ast.BareName{}, nil
	default:
		return ast.UserDefinedType(ast.NewBareName(tok.Literal)), ast.BareName{}, nil
	}
}

// parseDeclare parses `DECLARE SUB|FUNCTION name (params)`.
func (p *Parser) parseDeclare() (ast.DeclareDecl, error) {
	pos := p.pos_()
	p.advance() // DECLARE
	kind := ast.DeclareSub
	switch p.cur.Type {
	case lexer.SUB:
		kind = ast.DeclareSub
		p.advance()
	case lexer.FUNCTION:
		kind = ast.DeclareFunction
		p.advance()
	default:
		return ast.DeclareDecl{}, p.errorf("expected SUB or FUNCTION, found %q", p.cur.Literal)
	}
	name, err := p.parseName()
	if err != nil {
		return ast.DeclareDecl{}, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return ast.DeclareDecl{}, err
	}
	return ast.DeclareDecl{Position: pos, Kind: kind, Name: name, Params: params}, nil
}

// parseParamList parses an optional parenthesized parameter list.
func (p *Parser) parseParamList() ([]ast.Parameter, error) {
	if !p.accept(lexer.LPAREN) {
		return nil, nil
	}
	var params []ast.Parameter
	if p.at(lexer.RPAREN) {
		p.advance()
		return params, nil
	}
	for {
		byVal := p.accept(lexer.BYVAL)
		nameTok, err := p.expect(lexer.IDENT, "parameter name")
		if err != nil {
			return nil, err
		}
		name := nameFromLiteral(nameTok.Literal)
		isArray := false
		if p.accept(lexer.LPAREN) {
			isArray = true
			if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
				return nil, err
			}
			p.knownArrays[name.Bare.CanonicalName()] = true
		}
		typ := ast.ExpressionType{}
		if p.accept(lexer.AS) {
			t, _, err := p.parseAsClause()
			if err != nil {
				return nil, err
			}
			typ = t
		}
		params = append(params, ast.Parameter{Name: name, Type: typ, IsArray: isArray, ByRef: !byVal})
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
		return nil, err
	}
	return params, nil
}

func isSubEnd(tt lexer.TokenType) bool  { return tt == lexer.END }
func isFuncEnd(tt lexer.TokenType) bool { return tt == lexer.END }

// parseSubDecl parses a full `SUB name (params) [STATIC] ... END SUB`.
func (p *Parser) parseSubDecl() (ast.SubDecl, error) {
	pos := p.pos_()
	p.advance() // SUB
	nameTok, err := p.expect(lexer.IDENT, "sub name")
	if err != nil {
		return ast.SubDecl{}, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return ast.SubDecl{}, err
	}
	for _, prm := range params {
		if prm.IsArray {
			p.knownArrays[prm.Name.Bare.CanonicalName()] = true
		}
	}
	static := p.accept(lexer.STATIC)
	body, err := p.parseBlock(isSubEnd)
	if err != nil {
		return ast.SubDecl{}, err
	}
	if _, err := p.expect(lexer.END, "END"); err != nil {
		return ast.SubDecl{}, err
	}
	if _, err := p.expect(lexer.SUB, "SUB"); err != nil {
		return ast.SubDecl{}, err
	}
	return ast.SubDecl{Position: pos, Name: ast.NewBareName(nameTok.Literal), Params: params, IsStatic: static, Body: body}, nil
}

// parseFunctionDecl parses `FUNCTION name (params) [AS type] [STATIC] ... END FUNCTION`.
func (p *Parser) parseFunctionDecl() (ast.FunctionDecl, error) {
	pos := p.pos_()
	p.advance() // FUNCTION
	name, err := p.parseName()
	if err != nil {
		return ast.FunctionDecl{}, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return ast.FunctionDecl{}, err
	}
	for _, prm := range params {
		if prm.IsArray {
			p.knownArrays[prm.Name.Bare.CanonicalName()] = true
		}
	}
	if p.accept(lexer.AS) {
		if _, _, err := p.parseAsClause(); err != nil {
			return ast.FunctionDecl{}, err
		}
	}
	static := p.accept(lexer.STATIC)
	body, err := p.parseBlock(isFuncEnd)
	if err != nil {
		return ast.FunctionDecl{}, err
	}
	if _, err := p.expect(lexer.END, "END"); err != nil {
		return ast.FunctionDecl{}, err
	}
	if _, err := p.expect(lexer.FUNCTION, "FUNCTION"); err != nil {
		return ast.FunctionDecl{}, err
	}
	return ast.FunctionDecl{Position: pos, Name: name, Params: params, IsStatic: static, Body: body}, nil
}

// parseTypeDef parses `TYPE name ... element [AS type] ... END TYPE`.
func (p *Parser) parseTypeDef() (ast.TypeDefStmt, error) {
	pos := p.pos_()
	p.advance() // TYPE
	nameTok, err := p.expect(lexer.IDENT, "type name")
	if err != nil {
		return ast.TypeDefStmt{}, err
	}
	var elems []ast.TypeElement
	for {
		p.skipSeparators()
		if p.at(lexer.END) || p.at(lexer.EOF) {
			break
		}
		elNameTok, err := p.expect(lexer.IDENT, "element name")
		if err != nil {
			return ast.TypeDefStmt{}, err
		}
		if _, err := p.expect(lexer.AS, "AS"); err != nil {
			return ast.TypeDefStmt{}, err
		}
		typ, constRef, err := p.parseAsClause()
		if err != nil {
			return ast.TypeDefStmt{}, err
		}
		elems = append(elems, ast.TypeElement{
			Name:             nameFromLiteral(elNameTok.Literal),
			Type:             typ,
			FixedLenConstRef: constRef,
		})
	}
	if _, err := p.expect(lexer.END, "END"); err != nil {
		return ast.TypeDefStmt{}, err
	}
	if _, err := p.expect(lexer.TYPE, "TYPE"); err != nil {
		return ast.TypeDefStmt{}, err
	}
	def := ast.TypeDefStmt{Name: ast.NewBareName(nameTok.Literal), Elements: elems}
	def.Position = pos
	return def, nil
}
