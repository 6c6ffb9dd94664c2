package parser

import (
	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/lexer"
)

// parseStatement parses one statement line or compound statement. A line of
// semicolon separated simple statements yields several nodes.
func (p *Parser) parseStatement() ([]ast.Stmt, bool) {
	var stmt ast.Stmt

	switch p.curTok.Type {
	case lexer.IF:
		stmt = p.parseIfStmt()
	case lexer.WHILE:
		stmt = p.parseWhileStmt()
	case lexer.FOR:
		stmt = p.parseForStmt()
	case lexer.DEF, lexer.CLASS, lexer.AT:
		stmt = p.parseDefinition()
	case lexer.TRY, lexer.WITH, lexer.ASYNC:
		stmt = p.parseUnsupportedCompound()
	case lexer.ELIF, lexer.ELSE, lexer.EXCEPT, lexer.FINALLY:
		p.reportUnexpected(p.curTok, "without a matching statement")
		return nil, false
	case lexer.INDENT:
		p.reportError("unexpected indent", p.curTok.Span)
		p.skipIndentedBlock()
		return nil, true
	default:
		return p.parseSimpleStatements()
	}

	if stmt == nil {
		return nil, false
	}
	return []ast.Stmt{stmt}, true
}

// parseSimpleStatements parses "s1; s2; ..." up to and including NEWLINE.
func (p *Parser) parseSimpleStatements() ([]ast.Stmt, bool) {
	var stmts []ast.Stmt

	for {
		stmt := p.parseSmallStatement()
		if stmt == nil {
			return stmts, false
		}
		stmts = append(stmts, stmt)

		if p.peekTok.Type != lexer.SEMICOLON {
			break
		}
		p.nextToken()
		if p.peekTok.Type == lexer.NEWLINE || p.peekTok.Type == lexer.EOF {
			break
		}
		p.nextToken()
	}

	if !p.expect(lexer.NEWLINE) {
		return stmts, false
	}
	return stmts, true
}

func (p *Parser) parseSmallStatement() ast.Stmt {
	tok := p.curTok

	switch tok.Type {
	case lexer.PASS:
		return ast.NewPassStmt(tok.Span)
	case lexer.BREAK:
		return ast.NewBreakStmt(tok.Span)
	case lexer.CONTINUE:
		return ast.NewContinueStmt(tok.Span)
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.DEL:
		return p.parseDelStmt()
	case lexer.GLOBAL:
		return p.parseGlobalStmt()
	case lexer.IMPORT:
		return p.parseImportStmt()
	case lexer.FROM:
		return p.parseFromImportStmt()
	case lexer.RAISE, lexer.ASSERT, lexer.NONLOCAL:
		for !isSmallStatementEnd(p.peekTok.Type) {
			p.nextToken()
		}
		return ast.NewUnsupportedStmt(tok.Value, mergeSpan(tok.Span, p.curTok.Span))
	}

	return p.parseExprOrAssignStmt()
}

func isSmallStatementEnd(tt lexer.TokenType) bool {
	return tt == lexer.NEWLINE || tt == lexer.SEMICOLON || tt == lexer.EOF
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.curTok.Span

	var value ast.Expr
	if isExprStart(p.peekTok.Type) {
		p.nextToken()
		if value = p.parseExprList(); value == nil {
			return nil
		}
	}

	return ast.NewReturnStmt(value, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseDelStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	target := p.parseExprList()
	if target == nil {
		return nil
	}

	targets := []ast.Expr{target}
	if tuple, ok := target.(*ast.TupleLit); ok {
		targets = tuple.Elts
	}

	return ast.NewDelStmt(targets, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseGlobalStmt() ast.Stmt {
	start := p.curTok.Span

	var names []*ast.Ident
	for {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		names = append(names, ast.NewIdent(p.curTok.Value, p.curTok.Span))

		if p.peekTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	return ast.NewGlobalStmt(names, mergeSpan(start, p.curTok.Span))
}

// parseExprOrAssignStmt covers expression statements and the three
// assignment forms.
func (p *Parser) parseExprOrAssignStmt() ast.Stmt {
	start := p.curTok.Span

	first := p.parseExprList()
	if first == nil {
		return nil
	}

	switch p.peekTok.Type {
	case lexer.ASSIGN:
		exprs := []ast.Expr{first}
		for p.peekTok.Type == lexer.ASSIGN {
			p.nextToken() // '='
			p.nextToken()

			next := p.parseExprList()
			if next == nil {
				return nil
			}
			exprs = append(exprs, next)
		}

		value := exprs[len(exprs)-1]
		return ast.NewAssignStmt(exprs[:len(exprs)-1], value, mergeSpan(start, value.Span()))

	case lexer.COLON:
		p.nextToken() // ':'
		p.nextToken()

		annotation := p.parseExpr()
		if annotation == nil {
			return nil
		}

		var value ast.Expr
		if p.peekTok.Type == lexer.ASSIGN {
			p.nextToken()
			p.nextToken()
			if value = p.parseExprList(); value == nil {
				return nil
			}
		}
		return ast.NewAnnAssignStmt(first, annotation, value, mergeSpan(start, p.curTok.Span))
	}

	if op, ok := lexer.AugmentedOperator(p.peekTok.Type); ok {
		p.nextToken() // operator
		p.nextToken()

		value := p.parseExprList()
		if value == nil {
			return nil
		}
		return ast.NewAugAssignStmt(first, op, value, mergeSpan(start, value.Span()))
	}

	return ast.NewExprStmt(first, first.Span())
}

// parseBlock parses the suite after a ':' at curTok. An indented suite ends
// on its DEDENT, an inline suite on its NEWLINE.
func (p *Parser) parseBlock() ([]ast.Stmt, bool) {
	if p.peekTok.Type != lexer.NEWLINE {
		p.nextToken()
		return p.parseSimpleStatements()
	}

	p.nextToken()
	if !p.expect(lexer.INDENT) {
		return nil, false
	}
	p.nextToken()

	stmts := p.parseStatementsUntil(lexer.DEDENT)
	if p.curTok.Type != lexer.DEDENT {
		p.reportError("expected dedent at end of block", p.curTok.Span)
		return stmts, false
	}

	return stmts, true
}

// parseIfStmt is entered on 'if' or 'elif'; an elif chain becomes a nested
// IfStmt in Else.
func (p *Parser) parseIfStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if !p.expect(lexer.COLON) {
		return nil
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}

	var els []ast.Stmt
	switch p.peekTok.Type {
	case lexer.ELIF:
		p.nextToken()
		nested := p.parseIfStmt()
		if nested == nil {
			return nil
		}
		els = []ast.Stmt{nested}
	case lexer.ELSE:
		if els, ok = p.parseElseClause(); !ok {
			return nil
		}
	}

	return ast.NewIfStmt(cond, body, els, mergeSpan(start, p.curTok.Span))
}

// parseElseClause expects peekTok on 'else'.
func (p *Parser) parseElseClause() ([]ast.Stmt, bool) {
	p.nextToken()
	if !p.expect(lexer.COLON) {
		return nil, false
	}
	return p.parseBlock()
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if !p.expect(lexer.COLON) {
		return nil
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}

	var els []ast.Stmt
	if p.peekTok.Type == lexer.ELSE {
		if els, ok = p.parseElseClause(); !ok {
			return nil
		}
	}

	return ast.NewWhileStmt(cond, body, els, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseForStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	target := p.parseExprListAt(precedenceComparison)
	if target == nil {
		return nil
	}
	if !p.expect(lexer.IN) {
		return nil
	}
	p.nextToken()

	iter := p.parseExprList()
	if iter == nil {
		return nil
	}
	if !p.expect(lexer.COLON) {
		return nil
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}

	var els []ast.Stmt
	if p.peekTok.Type == lexer.ELSE {
		if els, ok = p.parseElseClause(); !ok {
			return nil
		}
	}

	return ast.NewForStmt(target, iter, body, els, mergeSpan(start, p.curTok.Span))
}

// parseUnsupportedCompound skips try/with/async statements including their
// blocks and trailing clauses.
func (p *Parser) parseUnsupportedCompound() ast.Stmt {
	start := p.curTok.Span
	construct := p.curTok.Value
	if p.curTok.Type == lexer.ASYNC && p.peekTok.Value != "" {
		construct += " " + p.peekTok.Value
	}

	p.skipClause()
	if p.curTok.Type == lexer.EOF {
		return nil
	}

	if construct == "try" {
		for {
			switch p.peekTok.Type {
			case lexer.EXCEPT, lexer.ELSE, lexer.FINALLY:
				p.nextToken()
				p.skipClause()
				continue
			}
			break
		}
	}

	return ast.NewUnsupportedStmt(construct, mergeSpan(start, p.curTok.Span))
}

// skipClause skips a clause header and its suite, stopping on the clause's
// last token.
func (p *Parser) skipClause() {
	for p.curTok.Type != lexer.NEWLINE && p.curTok.Type != lexer.EOF {
		p.nextToken()
	}
	if p.curTok.Type == lexer.NEWLINE && p.peekTok.Type == lexer.INDENT {
		p.nextToken()
		p.skipIndentedBlock()
	}
}
