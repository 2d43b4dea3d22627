package parser

import (
	"strconv"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/lexer"
)

// parseStatement dispatches on the current token to one production per
// ast.Stmt kind. Bare top-level END (the program terminator, distinct from
// END SUB/FUNCTION/IF/SELECT/TYPE, all of which are consumed by their own
// block parsers) has no ast.Stmt node of its own — pkg/codegen already
// emits a trailing halt after the last top-level statement, so a
// mid-program bare END simply isn't supported here and falls through to a
// syntax error.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.cur.Type {
	case lexer.DIM, lexer.REDIM:
		return p.parseDim()
	case lexer.CONST:
		return p.parseConst()
	case lexer.IF:
		return p.parseIf()
	case lexer.FOR:
		return p.parseFor()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.DO:
		return p.parseDoLoop()
	case lexer.SELECT:
		return p.parseSelectCase()
	case lexer.GOTO:
		return p.parseGoto()
	case lexer.GOSUB:
		return p.parseGosub()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.ON:
		return p.parseOnError()
	case lexer.RESUME:
		return p.parseResume()
	case lexer.EXIT:
		return p.parseExit()
	case lexer.CALL:
		return p.parseCallStmt()
	case lexer.PRINT, lexer.LPRINT:
		return p.parsePrint()
	case lexer.INPUT, lexer.LINE:
		return p.parseInput()
	case lexer.READ:
		return p.parseRead()
	case lexer.DATA:
		return p.parseData()
	case lexer.RESTORE:
		return p.parseRestore()
	case lexer.OPEN:
		return p.parseOpen()
	case lexer.CLOSE:
		return p.parseClose()
	case lexer.GET:
		return p.parseGetPut(false)
	case lexer.PUT:
		return p.parseGetPut(true)
	case lexer.FIELD:
		return p.parseField()
	case lexer.LSET:
		return p.parseLSet()
	case lexer.NAME:
		return p.parseNameStmt()
	case lexer.KILL:
		return p.parseKill()
	case lexer.DEFINT, lexer.DEFLNG, lexer.DEFSNG, lexer.DEFDBL, lexer.DEFSTR:
		return p.parseDefType()
	case lexer.IDENT:
		return p.parseAssignOrCall()
	default:
		return nil, p.errorf("unexpected token %q", p.cur.Literal)
	}
}

// parseAssignOrCall parses everything that starts with a bare identifier in
// statement position: `x = expr`, `arr(i) = expr`, `rec.field = expr`, a
// parenthesized or bare-argument sub call, or a bare sub call with no
// arguments at all.
func (p *Parser) parseAssignOrCall() (ast.Stmt, error) {
	pos := p.pos_()
	expr, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.accept(lexer.EQ) {
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s := &ast.AssignStmt{Target: expr, Value: val}
		s.Position = pos
		return s, nil
	}
	switch e := expr.(type) {
	case *ast.FunctionCallExpr:
		s := &ast.CallStmt{Name: e.Name, Args: e.Args}
		s.Position = pos
		return s, nil
	case *ast.ArrayElementRef:
		s := &ast.CallStmt{Name: e.Name, Args: e.Indices}
		s.Position = pos
		return s, nil
	case *ast.VariableRef:
		args, err := p.parseBareArgList()
		if err != nil {
			return nil, err
		}
		s := &ast.CallStmt{Name: e.Name, Args: args}
		s.Position = pos
		return s, nil
	default:
		return nil, p.errorf("expected '=' after field reference")
	}
}

// parseBareArgList parses a comma-separated expression list with no
// enclosing parens, used by CALL-less sub invocations (`Foo 1, 2`).
func (p *Parser) parseBareArgList() ([]ast.Expr, error) {
	if p.at(lexer.NEWLINE) || p.at(lexer.COLON) || p.at(lexer.EOF) {
		return nil, nil
	}
	var args []ast.Expr
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	return args, nil
}

func (p *Parser) parseCallStmt() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance() // CALL
	nameTok, err := p.expect(lexer.IDENT, "sub name")
	if err != nil {
		return nil, err
	}
	name := nameFromLiteral(nameTok.Literal)
	var args []ast.Expr
	if p.accept(lexer.LPAREN) {
		args, err = p.parseArgList()
	} else {
		args, err = p.parseBareArgList()
	}
	if err != nil {
		return nil, err
	}
	s := &ast.CallStmt{Name: name, Args: args}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseDim() (ast.Stmt, error) {
	pos := p.pos_()
	isRedim := p.at(lexer.REDIM)
	p.advance()
	preserve := false
	if isRedim {
		preserve = p.accept(lexer.PRESERVE)
	}
	var vars []ast.DimVar
	for {
		shared := p.accept(lexer.SHARED)
		nameTok, err := p.expect(lexer.IDENT, "variable name")
		if err != nil {
			return nil, err
		}
		name := nameFromLiteral(nameTok.Literal)
		var bounds []ast.DimBound
		isArray := false
		if p.accept(lexer.LPAREN) {
			isArray = true
			if !p.at(lexer.RPAREN) {
				for {
					b, err := p.parseDimBound()
					if err != nil {
						return nil, err
					}
					bounds = append(bounds, b)
					if p.accept(lexer.COMMA) {
						continue
					}
					break
				}
			}
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
		vars = append(vars, ast.DimVar{
			Name: name, Type: typ, IsArray: isArray, Bounds: bounds,
			Shared: shared, IsRedim: isRedim, IsPreserve: preserve,
		})
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.DimStmt{Vars: vars}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseDimBound() (ast.DimBound, error) {
	first, err := p.parseExpr()
	if err != nil {
		return ast.DimBound{}, err
	}
	if p.accept(lexer.TO) {
		second, err := p.parseExpr()
		if err != nil {
			return ast.DimBound{}, err
		}
		return ast.DimBound{Lower: first, Upper: second}, nil
	}
	return ast.DimBound{Upper: first}, nil
}

func (p *Parser) parseConst() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	nameTok, err := p.expect(lexer.IDENT, "constant name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ, "="); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	s := &ast.ConstStmt{Name: nameFromLiteral(nameTok.Literal), Value: val}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseDefType() (ast.Stmt, error) {
	pos := p.pos_()
	var q ast.Qualifier
	switch p.cur.Type {
	case lexer.DEFINT:
		q = ast.Integer
	case lexer.DEFLNG:
		q = ast.Long
	case lexer.DEFSNG:
		q = ast.Single
	case lexer.DEFDBL:
		q = ast.Double
	case lexer.DEFSTR:
		q = ast.String
	}
	p.advance()
	var ranges []ast.DefTypeRange
	for {
		fromTok, err := p.expect(lexer.IDENT, "letter")
		if err != nil {
			return nil, err
		}
		from := upperByte(fromTok.Literal[0])
		to := from
		if p.accept(lexer.MINUS) {
			toTok, err := p.expect(lexer.IDENT, "letter")
			if err != nil {
				return nil, err
			}
			to = upperByte(toTok.Literal[0])
		}
		ranges = append(ranges, ast.DefTypeRange{From: from, To: to})
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.DefTypeStmt{Qualifier: q, Ranges: ranges}
	s.Position = pos
	return s, nil
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance() // IF
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.THEN, "THEN"); err != nil {
		return nil, err
	}
	if !p.at(lexer.NEWLINE) && !p.at(lexer.EOF) {
		return p.parseSingleLineIf(pos, cond)
	}
	return p.parseBlockIf(pos, cond)
}

func isSingleLineIfEnder(tt lexer.TokenType) bool { return tt == lexer.ELSE }

func (p *Parser) parseSingleLineIf(pos ast.Position, cond ast.Expr) (ast.Stmt, error) {
	thenStmts, err := p.parseThenOrElseClause()
	if err != nil {
		return nil, err
	}
	var elseStmts []ast.Stmt
	if p.at(lexer.ELSE) {
		p.advance()
		if p.at(lexer.IF) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			elseStmts = []ast.Stmt{elseIf}
		} else {
			elseStmts, err = p.parseThenOrElseClause()
			if err != nil {
				return nil, err
			}
		}
	}
	s := &ast.IfStmt{Branches: []ast.IfBranch{{Condition: cond, Body: thenStmts}}, Else: elseStmts}
	s.Position = pos
	return s, nil
}

// parseThenOrElseClause handles the common `THEN 100` / `ELSE 200` shorthand
// (a bare line number meaning GOTO) before falling back to an ordinary
// colon-separated statement run.
func (p *Parser) parseThenOrElseClause() ([]ast.Stmt, error) {
	if p.at(lexer.INTEGER) {
		pos := p.pos_()
		lbl := p.cur.Literal
		p.advance()
		g := &ast.GotoStmt{Label: ast.NewBareName(lbl)}
		g.Position = pos
		return []ast.Stmt{g}, nil
	}
	return p.parseStmtLine(isSingleLineIfEnder)
}

func isIfEnder(tt lexer.TokenType) bool {
	return tt == lexer.ELSEIF || tt == lexer.ELSE || tt == lexer.END
}

func (p *Parser) parseBlockIf(pos ast.Position, cond ast.Expr) (ast.Stmt, error) {
	body, err := p.parseBlock(isIfEnder)
	if err != nil {
		return nil, err
	}
	branches := []ast.IfBranch{{Condition: cond, Body: body}}
	var elseBody []ast.Stmt
	for p.at(lexer.ELSEIF) {
		p.advance()
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.THEN, "THEN"); err != nil {
			return nil, err
		}
		b, err := p.parseBlock(isIfEnder)
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.IfBranch{Condition: c, Body: b})
	}
	if p.at(lexer.ELSE) {
		p.advance()
		b, err := p.parseBlock(isIfEnder)
		if err != nil {
			return nil, err
		}
		elseBody = b
	}
	if _, err := p.expect(lexer.END, "END"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IF, "IF"); err != nil {
		return nil, err
	}
	s := &ast.IfStmt{Branches: branches, Else: elseBody}
	s.Position = pos
	return s, nil
}

func isForEnd(tt lexer.TokenType) bool { return tt == lexer.NEXT }

func (p *Parser) parseFor() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance() // FOR
	counter, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ, "="); err != nil {
		return nil, err
	}
	lower, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TO, "TO"); err != nil {
		return nil, err
	}
	upper, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var step ast.Expr
	if p.accept(lexer.STEP) {
		step, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock(isForEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.NEXT, "NEXT"); err != nil {
		return nil, err
	}
	p.accept(lexer.IDENT) // optional loop-variable name after NEXT
	s := &ast.ForStmt{Counter: counter, Lower: lower, Upper: upper, Step: step, Body: body}
	s.Position = pos
	return s, nil
}

func isWhileEnd(tt lexer.TokenType) bool { return tt == lexer.WEND }

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(isWhileEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.WEND, "WEND"); err != nil {
		return nil, err
	}
	s := &ast.WhileStmt{Condition: cond, Body: body}
	s.Position = pos
	return s, nil
}

func isLoopEnd(tt lexer.TokenType) bool { return tt == lexer.LOOP }

func (p *Parser) parseDoLoop() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance() // DO
	kind := ast.DoForever
	var cond ast.Expr
	topTested := false
	switch {
	case p.accept(lexer.WHILE):
		kind, topTested = ast.DoWhileTop, true
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = c
	case p.accept(lexer.UNTIL):
		kind, topTested = ast.DoUntilTop, true
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	body, err := p.parseBlock(isLoopEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LOOP, "LOOP"); err != nil {
		return nil, err
	}
	if !topTested {
		switch {
		case p.accept(lexer.WHILE):
			kind = ast.DoWhileBottom
			c, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			cond = c
		case p.accept(lexer.UNTIL):
			kind = ast.DoUntilBottom
			c, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			cond = c
		}
	}
	s := &ast.DoLoopStmt{Kind: kind, Condition: cond, Body: body}
	s.Position = pos
	return s, nil
}

func isCaseEnd(tt lexer.TokenType) bool { return tt == lexer.CASE || tt == lexer.END }

func (p *Parser) parseSelectCase() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance() // SELECT
	if _, err := p.expect(lexer.CASE, "CASE"); err != nil {
		return nil, err
	}
	selector, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var blocks []ast.CaseBlock
	var elseBody []ast.Stmt
	for {
		p.skipSeparators()
		if p.at(lexer.END) || p.at(lexer.EOF) {
			break
		}
		if _, err := p.expect(lexer.CASE, "CASE"); err != nil {
			return nil, err
		}
		if p.accept(lexer.ELSE) {
			b, err := p.parseBlock(isCaseEnd)
			if err != nil {
				return nil, err
			}
			elseBody = b
			continue
		}
		var exprs []ast.CaseExpr
		for {
			ce, err := p.parseCaseExpr()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, ce)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
		b, err := p.parseBlock(isCaseEnd)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, ast.CaseBlock{Exprs: exprs, Body: b})
	}
	if _, err := p.expect(lexer.END, "END"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SELECT, "SELECT"); err != nil {
		return nil, err
	}
	s := &ast.SelectCaseStmt{Selector: selector, Cases: blocks, ElseBody: elseBody}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseCaseExpr() (ast.CaseExpr, error) {
	if p.accept(lexer.IS) {
		op, err := p.parseCompareOp()
		if err != nil {
			return ast.CaseExpr{}, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return ast.CaseExpr{}, err
		}
		return ast.CaseExpr{Kind: ast.CaseIs, Op: op, Value: v}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return ast.CaseExpr{}, err
	}
	if p.accept(lexer.TO) {
		second, err := p.parseExpr()
		if err != nil {
			return ast.CaseExpr{}, err
		}
		return ast.CaseExpr{Kind: ast.CaseRange, From: first, To: second}, nil
	}
	return ast.CaseExpr{Kind: ast.CaseSimple, Value: first}, nil
}

func (p *Parser) parseCompareOp() (ast.BinOp, error) {
	switch p.cur.Type {
	case lexer.EQ:
		p.advance()
		return ast.OpEqual, nil
	case lexer.NE:
		p.advance()
		return ast.OpNotEqual, nil
	case lexer.LT:
		p.advance()
		return ast.OpLess, nil
	case lexer.LE:
		p.advance()
		return ast.OpLessOrEqual, nil
	case lexer.GT:
		p.advance()
		return ast.OpGreater, nil
	case lexer.GE:
		p.advance()
		return ast.OpGreaterOrEqual, nil
	default:
		return 0, p.errorf("expected a comparison operator, found %q", p.cur.Literal)
	}
}

func (p *Parser) parseLabelRef() (ast.BareName, error) {
	if p.at(lexer.IDENT) || p.at(lexer.INTEGER) {
		n := p.cur.Literal
		p.advance()
		return ast.NewBareName(n), nil
	}
	return ast.BareName{}, p.errorf("expected a label, found %q", p.cur.Literal)
}

func (p *Parser) parseGoto() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	lbl, err := p.parseLabelRef()
	if err != nil {
		return nil, err
	}
	s := &ast.GotoStmt{Label: lbl}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseGosub() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	lbl, err := p.parseLabelRef()
	if err != nil {
		return nil, err
	}
	s := &ast.GosubStmt{Label: lbl}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	var lbl ast.BareName
	if p.at(lexer.IDENT) {
		lbl = ast.NewBareName(p.cur.Literal)
		p.advance()
	}
	s := &ast.ReturnStmt{Label: lbl}
	s.Position = pos
	return s, nil
}

// parseOnError parses `ON ERROR GOTO label` / `ON ERROR GOTO 0`. QBASIC has
// no `ON ERROR RESUME NEXT` form (RESUME NEXT is its own statement, used
// inside the handler), so ast.OnErrorResumeNext is never produced here.
func (p *Parser) parseOnError() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance() // ON
	if _, err := p.expect(lexer.ERROR, "ERROR"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.GOTO, "GOTO"); err != nil {
		return nil, err
	}
	if p.at(lexer.INTEGER) && p.cur.Literal == "0" {
		p.advance()
		s := &ast.OnErrorStmt{Kind: ast.OnErrorGotoZero}
		s.Position = pos
		return s, nil
	}
	lbl, err := p.parseLabelRef()
	if err != nil {
		return nil, err
	}
	s := &ast.OnErrorStmt{Kind: ast.OnErrorGoto, Label: lbl}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseResume() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	if p.accept(lexer.NEXT) {
		s := &ast.ResumeStmt{Kind: ast.ResumeNextStmt}
		s.Position = pos
		return s, nil
	}
	if p.at(lexer.IDENT) || p.at(lexer.INTEGER) {
		lbl, err := p.parseLabelRef()
		if err != nil {
			return nil, err
		}
		s := &ast.ResumeStmt{Kind: ast.ResumeLabelStmt, Label: lbl}
		s.Position = pos
		return s, nil
	}
	s := &ast.ResumeStmt{Kind: ast.ResumeBare}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseExit() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	var kind ast.ExitKind
	switch p.cur.Type {
	case lexer.FOR:
		kind = ast.ExitFor
	case lexer.DO:
		kind = ast.ExitDo
	case lexer.WHILE:
		kind = ast.ExitWhile
	case lexer.SUB:
		kind = ast.ExitSub
	case lexer.FUNCTION:
		kind = ast.ExitFunction
	default:
		return nil, p.errorf("expected FOR, DO, WHILE, SUB or FUNCTION after EXIT, found %q", p.cur.Literal)
	}
	p.advance()
	s := &ast.ExitStmt{Kind: kind}
	s.Position = pos
	return s, nil
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	pos := p.pos_()
	toPrinter := p.at(lexer.LPRINT)
	p.advance() // PRINT or LPRINT
	var fileNum ast.Expr
	if p.accept(lexer.HASH) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fileNum = e
		p.accept(lexer.COMMA)
	}
	var items []ast.PrintItem
	for !(p.at(lexer.NEWLINE) || p.at(lexer.COLON) || p.at(lexer.EOF)) {
		if p.at(lexer.COMMA) || p.at(lexer.SEMI) {
			sep := ast.SepComma
			if p.at(lexer.SEMI) {
				sep = ast.SepSemicolon
			}
			p.advance()
			items = append(items, ast.PrintItem{Separator: sep})
			continue
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sep := ast.SepNone
		if p.accept(lexer.COMMA) {
			sep = ast.SepComma
		} else if p.accept(lexer.SEMI) {
			sep = ast.SepSemicolon
		}
		items = append(items, ast.PrintItem{Expr: e, Separator: sep})
	}
	s := &ast.PrintStmt{FileNumber: fileNum, ToPrinter: toPrinter, Items: items}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseInput() (ast.Stmt, error) {
	pos := p.pos_()
	lineInput := p.at(lexer.LINE)
	if lineInput {
		p.advance()
		if _, err := p.expect(lexer.INPUT, "INPUT"); err != nil {
			return nil, err
		}
	} else {
		p.advance() // INPUT
	}
	var fileNum ast.Expr
	if p.accept(lexer.HASH) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fileNum = e
		p.accept(lexer.COMMA)
	}
	prompt := ""
	suppressQM := false
	if fileNum == nil && p.at(lexer.STRING) {
		prompt = p.cur.Literal
		p.advance()
		if p.accept(lexer.SEMI) {
			suppressQM = true
		} else {
			p.accept(lexer.COMMA)
		}
	}
	var targets []ast.Expr
	for {
		t, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.InputStmt{FileNumber: fileNum, LineInput: lineInput, Prompt: prompt, SuppressQM: suppressQM, Targets: targets}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseRead() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	var targets []ast.Expr
	for {
		t, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.ReadStmt{Targets: targets}
	s.Position = pos
	return s, nil
}

// parseData parses a literal-only DATA list. An unquoted bare word (common
// for short strings in classic source, e.g. `DATA Smith, 23`) is accepted
// as a string literal, matching how QBASIC itself reads it.
func (p *Parser) parseData() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	var vals []ast.LiteralValue
	for {
		v, err := p.parseDataValue()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.DataStmt{Values: vals}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseDataValue() (ast.LiteralValue, error) {
	neg := p.accept(lexer.MINUS)
	switch p.cur.Type {
	case lexer.INTEGER:
		v, _ := parseIntLiteralText(p.cur.Literal)
		if neg {
			v = -v
		}
		p.advance()
		return ast.LiteralValue{Kind: ast.LitInteger, Int: int32(v)}, nil
	case lexer.LONG:
		v, _ := parseIntLiteralText(p.cur.Literal)
		if neg {
			v = -v
		}
		p.advance()
		return ast.LiteralValue{Kind: ast.LitLong, Int: int32(v)}, nil
	case lexer.SINGLE:
		f, _ := strconv.ParseFloat(trimNumSuffix(p.cur.Literal), 64)
		if neg {
			f = -f
		}
		p.advance()
		return ast.LiteralValue{Kind: ast.LitSingle, Flt: f}, nil
	case lexer.DOUBLE:
		f, _ := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(trimNumSuffix(p.cur.Literal)), 64)
		if neg {
			f = -f
		}
		p.advance()
		return ast.LiteralValue{Kind: ast.LitDouble, Flt: f}, nil
	case lexer.STRING:
		s := p.cur.Literal
		p.advance()
		return ast.LiteralValue{Kind: ast.LitString, Str: s}, nil
	case lexer.IDENT:
		s := p.cur.Literal
		p.advance()
		return ast.LiteralValue{Kind: ast.LitString, Str: s}, nil
	default:
		return ast.LiteralValue{}, p.errorf("expected a literal in DATA, found %q", p.cur.Literal)
	}
}

func (p *Parser) parseRestore() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	var lbl ast.BareName
	if p.at(lexer.IDENT) || p.at(lexer.INTEGER) {
		lbl = ast.NewBareName(p.cur.Literal)
		p.advance()
	}
	s := &ast.RestoreStmt{Label: lbl}
	s.Position = pos
	return s, nil
}

// parseOpen parses `OPEN file FOR mode [ACCESS access] AS #n [LEN = n]`.
// ACCESS/LEN aren't reserved lexer keywords (QBASIC doesn't reserve them
// either outside this context), so they're recognized here by identifier
// text the same way the AS-clause type names are.
func (p *Parser) parseOpen() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	fname, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	mode := ast.ModeRandom
	if p.accept(lexer.FOR) {
		modeTok, err := p.expect(lexer.IDENT, "file mode")
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(modeTok.Literal) {
		case "INPUT":
			mode = ast.ModeInput
		case "OUTPUT":
			mode = ast.ModeOutput
		case "APPEND":
			mode = ast.ModeAppend
		case "BINARY":
			mode = ast.ModeBinary
		case "RANDOM":
			mode = ast.ModeRandom
		}
	}
	access := ast.AccessDefault
	if p.at(lexer.IDENT) && strings.EqualFold(p.cur.Literal, "ACCESS") {
		p.advance()
		a1, err := p.expect(lexer.IDENT, "access mode")
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(a1.Literal) {
		case "READ":
			access = ast.AccessRead
			if p.at(lexer.IDENT) && strings.EqualFold(p.cur.Literal, "WRITE") {
				p.advance()
				access = ast.AccessReadWrite
			}
		case "WRITE":
			access = ast.AccessWrite
		}
	}
	if _, err := p.expect(lexer.AS, "AS"); err != nil {
		return nil, err
	}
	p.accept(lexer.HASH)
	fnum, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var recLen ast.Expr
	if p.at(lexer.IDENT) && strings.EqualFold(p.cur.Literal, "LEN") {
		p.advance()
		if _, err := p.expect(lexer.EQ, "="); err != nil {
			return nil, err
		}
		recLen, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	s := &ast.OpenStmt{FileName: fname, Mode: mode, Access: access, FileNumber: fnum, RecordLen: recLen}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseClose() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	var nums []ast.Expr
	for !(p.at(lexer.NEWLINE) || p.at(lexer.COLON) || p.at(lexer.EOF)) {
		p.accept(lexer.HASH)
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		nums = append(nums, e)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.CloseStmt{FileNumbers: nums}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseGetPut(isPut bool) (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	p.accept(lexer.HASH)
	fnum, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var recNum, target ast.Expr
	if p.accept(lexer.COMMA) {
		if !p.at(lexer.COMMA) {
			recNum, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if p.accept(lexer.COMMA) {
			target, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
	}
	s := &ast.GetPutStmt{IsPut: isPut, FileNumber: fnum, RecordNum: recNum, Target: target}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseField() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	p.accept(lexer.HASH)
	fnum, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COMMA, ","); err != nil {
		return nil, err
	}
	var items []ast.FieldItem
	for {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.AS, "AS"); err != nil {
			return nil, err
		}
		t, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		items = append(items, ast.FieldItem{Width: w, Target: t})
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	s := &ast.FieldStmt{FileNumber: fnum, Items: items}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseLSet() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	target, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ, "="); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	s := &ast.LSetStmt{Target: target, Value: val}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseNameStmt() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	old, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.AS, "AS"); err != nil {
		return nil, err
	}
	nw, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	s := &ast.NameStmt{OldName: old, NewName: nw}
	s.Position = pos
	return s, nil
}

func (p *Parser) parseKill() (ast.Stmt, error) {
	pos := p.pos_()
	p.advance()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	s := &ast.KillStmt{FileName: e}
	s.Position = pos
	return s, nil
}
