package parser

import (
	"strconv"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/lexer"
)

// parseExpr is the entry point for expression parsing: OR binds loosest,
// then AND, then NOT, then the relational operators, then +/-, then
// */MOD, then unary minus, then primary/postfix forms.
//
// QBASIC's integer-divide (\), exponentiation (^) and XOR operators are
// tokenized by pkg/lexer but deliberately rejected here: ast.BinOp has no
// corresponding member (and by extension neither does pkg/vm's arithmetic
// or pkg/codegen's operator lowering), so accepting them at parse time
// would only produce an AST the rest of the pipeline can't execute.
func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OR) {
		pos := p.pos_()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = mkBinary(pos, ast.OpOr, left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AND) {
		pos := p.pos_()
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = mkBinary(pos, ast.OpAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.at(lexer.NOT) {
		pos := p.pos_()
		p.advance()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return mkUnary(pos, ast.OpNot, child), nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.cur.Type {
		case lexer.EQ:
			op = ast.OpEqual
		case lexer.NE:
			op = ast.OpNotEqual
		case lexer.LT:
			op = ast.OpLess
		case lexer.LE:
			op = ast.OpLessOrEqual
		case lexer.GT:
			op = ast.OpGreater
		case lexer.GE:
			op = ast.OpGreaterOrEqual
		default:
			return left, nil
		}
		pos := p.pos_()
		p.advance()
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = mkBinary(pos, op, left, right)
	}
}

func (p *Parser) parseAddSub() (ast.Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := ast.OpPlus
		if p.cur.Type == lexer.MINUS {
			op = ast.OpMinus
		}
		pos := p.pos_()
		p.advance()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = mkBinary(pos, op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMulDiv() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.cur.Type {
		case lexer.STAR:
			op = ast.OpMultiply
		case lexer.SLASH:
			op = ast.OpDivide
		case lexer.MOD:
			op = ast.OpModulo
		case lexer.BACKSLASH, lexer.CARET, lexer.XOR:
			return nil, p.errorf("operator %q is not supported", p.cur.Literal)
		default:
			return left, nil
		}
		pos := p.pos_()
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = mkBinary(pos, op, left, right)
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.at(lexer.MINUS) {
		pos := p.pos_()
		p.advance()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return mkUnary(pos, ast.OpNegate, child), nil
	}
	if p.at(lexer.PLUS) {
		p.advance()
		return p.parseUnary()
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any number of
// `.field` chains.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.DOT) {
		pos := p.pos_()
		p.advance()
		fieldTok, err := p.expect(lexer.IDENT, "field name")
		if err != nil {
			return nil, err
		}
		ref := &ast.PropertyRef{Left: e, Right: ast.NewBareName(fieldTok.Literal)}
		ref.Position = pos
		e = ref
	}
	return e, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur
	pos := p.pos_()
	switch tok.Type {
	case lexer.INTEGER:
		p.advance()
		v, _ := parseIntLiteralText(tok.Literal)
		n := &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitInteger, Int: int32(v)}}
		n.Position = pos
		return n, nil
	case lexer.LONG:
		p.advance()
		v, _ := parseIntLiteralText(tok.Literal)
		n := &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitLong, Int: int32(v)}}
		n.Position = pos
		return n, nil
	case lexer.SINGLE:
		p.advance()
		f, _ := strconv.ParseFloat(trimNumSuffix(tok.Literal), 64)
		n := &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitSingle, Flt: f}}
		n.Position = pos
		return n, nil
	case lexer.DOUBLE:
		p.advance()
		f, _ := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(trimNumSuffix(tok.Literal)), 64)
		n := &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitDouble, Flt: f}}
		n.Position = pos
		return n, nil
	case lexer.STRING:
		p.advance()
		n := &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitString, Str: tok.Literal}}
		n.Position = pos
		return n, nil
	case lexer.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.IDENT:
		p.advance()
		return p.parseIdentExpr(tok, pos)
	default:
		return nil, p.errorf("unexpected token %q in expression", tok.Literal)
	}
}

// parseIdentExpr resolves `NAME`, `NAME(args)` and `NAME(args) IS ...`-free
// forms into a VariableRef, ArrayElementRef or FunctionCallExpr. The
// ArrayElementRef/FunctionCallExpr choice is made from p.knownArrays, which
// is populated as DIM/REDIM statements and array parameters are parsed —
// see the Parser doc comment.
func (p *Parser) parseIdentExpr(tok lexer.Token, pos ast.Position) (ast.Expr, error) {
	name := nameFromLiteral(tok.Literal)
	if !p.at(lexer.LPAREN) {
		n := &ast.VariableRef{Name: name}
		n.Position = pos
		return n, nil
	}
	p.advance() // '('
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if p.knownArrays[name.Bare.CanonicalName()] {
		n := &ast.ArrayElementRef{Name: name, Indices: args}
		n.Position = pos
		return n, nil
	}
	n := &ast.FunctionCallExpr{Name: name, Args: args}
	n.Position = pos
	return n, nil
}

// parseArgList parses a comma-separated expression list up to and
// including the closing ')'. The opening '(' must already be consumed.
func (p *Parser) parseArgList() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.accept(lexer.RPAREN) {
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

func mkBinary(pos ast.Position, op ast.BinOp, left, right ast.Expr) ast.Expr {
	n := &ast.BinaryExpr{Op: op, Left: left, Right: right}
	n.Position = pos
	return n
}

func mkUnary(pos ast.Position, op ast.UnOp, child ast.Expr) ast.Expr {
	n := &ast.UnaryExpr{Op: op, Child: child}
	n.Position = pos
	return n
}

func trimNumSuffix(lit string) string {
	if lit == "" {
		return lit
	}
	switch lit[len(lit)-1] {
	case '%', '&', '!', '#':
		return lit[:len(lit)-1]
	}
	return lit
}

// parseIntLiteralText parses a decimal, &H hex, or &O octal integer literal
// (with an optional trailing type-suffix character already stripped by the
// lexer's tokenizing, but still present in the raw literal text here).
func parseIntLiteralText(lit string) (int64, error) {
	lit = trimNumSuffix(lit)
	if len(lit) > 1 && lit[0] == '&' {
		switch lit[1] {
		case 'H', 'h':
			return strconv.ParseInt(lit[2:], 16, 64)
		case 'O', 'o':
			return strconv.ParseInt(lit[2:], 8, 64)
		}
	}
	return strconv.ParseInt(lit, 10, 64)
}
