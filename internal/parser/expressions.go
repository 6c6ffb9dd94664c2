package parser

import (
	"strconv"
	"strings"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/lexer"
)

func (p *Parser) parseExpr() ast.Expr {
	return p.parseExprPrecedence(precedenceLowest)
}

func (p *Parser) parseExprPrecedence(precedence int) ast.Expr {
	prefix := p.prefixFns[p.curTok.Type]
	if prefix == nil {
		p.reportUnexpected(p.curTok, "in expression")
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekTok.Type]
		if infix == nil {
			return left
		}

		p.nextToken()

		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

// parseExprList parses "a" or "a, b, ..." and returns a TupleLit for the
// latter. A trailing comma also yields a tuple.
func (p *Parser) parseExprList() ast.Expr {
	return p.parseExprListAt(precedenceLowest)
}

// parseExprListAt is parseExprList with each element parsed at precedence.
// For-loop targets use it to stop before 'in'.
func (p *Parser) parseExprListAt(precedence int) ast.Expr {
	start := p.curTok.Span

	first := p.parseExprPrecedence(precedence)
	if first == nil {
		return nil
	}
	if p.peekTok.Type != lexer.COMMA {
		return first
	}

	items := []ast.Expr{first}
	for p.peekTok.Type == lexer.COMMA {
		p.nextToken()
		if !isExprStart(p.peekTok.Type) {
			break
		}
		p.nextToken()

		item := p.parseExprPrecedence(precedence)
		if item == nil {
			return nil
		}
		items = append(items, item)
	}

	return ast.NewTupleLit(items, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseIdentifier() ast.Expr {
	return ast.NewIdent(p.curTok.Value, p.curTok.Span)
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	tok := p.curTok

	value, err := strconv.ParseInt(tok.Value, 0, 64)
	if err != nil {
		p.reportError("integer literal '"+tok.Raw+"' is out of range", tok.Span)
		return nil
	}

	return ast.NewIntLit(tok.Raw, value, tok.Span)
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	tok := p.curTok

	value, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		p.reportError("invalid float literal '"+tok.Raw+"'", tok.Span)
		return nil
	}

	return ast.NewFloatLit(tok.Raw, value, tok.Span)
}

// parseStringLiteral joins adjacent string tokens into one literal.
func (p *Parser) parseStringLiteral() ast.Expr {
	start := p.curTok.Span

	var sb strings.Builder
	sb.WriteString(p.curTok.Value)
	prefix := p.curTok.Prefix

	for p.peekTok.Type == lexer.STRING {
		p.nextToken()
		sb.WriteString(p.curTok.Value)
		if strings.ContainsAny(p.curTok.Prefix, "fb") {
			prefix = p.curTok.Prefix
		}
	}

	return ast.NewStringLit(sb.String(), prefix, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	return ast.NewBoolLit(p.curTok.Type == lexer.TRUE, p.curTok.Span)
}

func (p *Parser) parseNoneLiteral() ast.Expr {
	return ast.NewNoneLit(p.curTok.Span)
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	opTok := p.curTok
	p.nextToken()

	operand := p.parseExprPrecedence(precedenceUnary)
	if operand == nil {
		return nil
	}

	return ast.NewUnaryExpr(opTok.Type, operand, mergeSpan(opTok.Span, operand.Span()))
}

func (p *Parser) parseNotExpr() ast.Expr {
	opTok := p.curTok
	p.nextToken()

	operand := p.parseExprPrecedence(precedenceNot)
	if operand == nil {
		return nil
	}

	return ast.NewUnaryExpr(lexer.NOT, operand, mergeSpan(opTok.Span, operand.Span()))
}

func (p *Parser) parseStarredExpr() ast.Expr {
	start := p.curTok.Span
	p.nextToken()

	operand := p.parseExprPrecedence(precedenceComparison)
	if operand == nil {
		return nil
	}

	return ast.NewStarredExpr(operand, mergeSpan(start, operand.Span()))
}

func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	opTok := p.curTok
	precedence := precedences[opTok.Type]

	p.nextToken()

	right := p.parseExprPrecedence(precedence)
	if right == nil {
		return nil
	}

	return ast.NewBinaryExpr(opTok.Type, left, right, mergeSpan(left.Span(), right.Span()))
}

// parsePowerExpr is right associative and binds tighter than a unary
// operator on its left but not on its right: -2**-1 is -(2**(-1)).
func (p *Parser) parsePowerExpr(left ast.Expr) ast.Expr {
	p.nextToken()

	right := p.parseExprPrecedence(precedenceUnary)
	if right == nil {
		return nil
	}

	return ast.NewBinaryExpr(lexer.POWER, left, right, mergeSpan(left.Span(), right.Span()))
}

func (p *Parser) parseBoolOpExpr(left ast.Expr) ast.Expr {
	opTok := p.curTok
	precedence := precedences[opTok.Type]

	p.nextToken()

	right := p.parseExprPrecedence(precedence)
	if right == nil {
		return nil
	}

	return ast.NewBoolOpExpr(opTok.Type, left, right, mergeSpan(left.Span(), right.Span()))
}

// parseCompareExpr collects a whole comparison chain such as a < b <= c.
func (p *Parser) parseCompareExpr(left ast.Expr) ast.Expr {
	var (
		ops         []ast.CompareOp
		comparators []ast.Expr
	)

	for {
		op, ok := p.compareOp()
		if !ok {
			return nil
		}
		p.nextToken()

		right := p.parseExprPrecedence(precedenceComparison)
		if right == nil {
			return nil
		}

		ops = append(ops, op)
		comparators = append(comparators, right)

		if !isCompareOp(p.peekTok.Type) {
			break
		}
		p.nextToken()
	}

	span := mergeSpan(left.Span(), comparators[len(comparators)-1].Span())
	return ast.NewCompareExpr(left, ops, comparators, span)
}

// compareOp reads the operator at curTok, consuming the second word of
// "not in" and "is not".
func (p *Parser) compareOp() (ast.CompareOp, bool) {
	switch p.curTok.Type {
	case lexer.EQ:
		return ast.CmpEq, true
	case lexer.NOT_EQ:
		return ast.CmpNotEq, true
	case lexer.LT:
		return ast.CmpLt, true
	case lexer.LE:
		return ast.CmpLe, true
	case lexer.GT:
		return ast.CmpGt, true
	case lexer.GE:
		return ast.CmpGe, true
	case lexer.IN:
		return ast.CmpIn, true
	case lexer.IS:
		if p.peekTok.Type == lexer.NOT {
			p.nextToken()
			return ast.CmpIsNot, true
		}
		return ast.CmpIs, true
	case lexer.NOT:
		if !p.expect(lexer.IN) {
			return "", false
		}
		return ast.CmpNotIn, true
	}
	p.reportUnexpected(p.curTok, "in comparison")
	return "", false
}

func isCompareOp(tt lexer.TokenType) bool {
	switch tt {
	case lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.LE, lexer.GT, lexer.GE,
		lexer.IN, lexer.NOT, lexer.IS:
		return true
	}
	return false
}

// parseCondExpr parses "then if cond else other" with curTok on 'if'.
func (p *Parser) parseCondExpr(then ast.Expr) ast.Expr {
	p.nextToken()

	cond := p.parseExprPrecedence(precedenceTernary)
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.ELSE) {
		return nil
	}
	p.nextToken()

	other := p.parseExpr()
	if other == nil {
		return nil
	}

	return ast.NewCondExpr(cond, then, other, mergeSpan(then.Span(), other.Span()))
}

func (p *Parser) parseCallExpr(fn ast.Expr) ast.Expr {
	open := p.curTok.Span
	p.nextToken()

	args, ok := p.parseArgs(open, lexer.RPAREN)
	if !ok {
		return nil
	}

	return ast.NewCallExpr(fn, args, mergeSpan(fn.Span(), p.curTok.Span))
}

// parseArgs parses call arguments starting just after the opening token at
// open and stops on closing.
func (p *Parser) parseArgs(open lexer.Span, closing lexer.TokenType) ([]*ast.Arg, bool) {
	res, ok := parseCommaList[*ast.Arg](p, open, listConfig{
		Closing:             closing,
		AllowEmpty:          true,
		AllowTrailing:       true,
		MissingSeparatorMsg: "expected ',' or '" + string(closing) + "' in argument list",
	}, func(idx int) (*ast.Arg, bool) {
		return p.parseArg(idx)
	})
	if !ok {
		return nil, false
	}
	return res.Items, true
}

func (p *Parser) parseArg(idx int) (*ast.Arg, bool) {
	start := p.curTok.Span

	switch {
	case p.curTok.Type == lexer.ASTERISK || p.curTok.Type == lexer.POWER:
		double := p.curTok.Type == lexer.POWER
		p.nextToken()

		value := p.parseExpr()
		if value == nil {
			return nil, false
		}

		arg := ast.NewArg(nil, value, mergeSpan(start, value.Span()))
		arg.Star = !double
		arg.DoubleStar = double
		return arg, true

	case p.curTok.Type == lexer.IDENT && p.peekTok.Type == lexer.ASSIGN:
		name := ast.NewIdent(p.curTok.Value, p.curTok.Span)
		p.nextToken() // '='
		p.nextToken()

		value := p.parseExpr()
		if value == nil {
			return nil, false
		}
		return ast.NewArg(name, value, mergeSpan(start, value.Span())), true
	}

	value := p.parseExpr()
	if value == nil {
		return nil, false
	}

	if idx == 0 && p.peekTok.Type == lexer.FOR {
		p.skipToClosing()
		value = ast.NewUnsupportedExpr("generator expression", mergeSpan(start, p.curTok.Span))
	}

	return ast.NewArg(nil, value, mergeSpan(start, value.Span())), true
}

func (p *Parser) parseAttributeExpr(x ast.Expr) ast.Expr {
	if !p.expect(lexer.IDENT) {
		return nil
	}

	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)
	return ast.NewAttributeExpr(x, name, mergeSpan(x.Span(), name.Span()))
}

// parseSubscriptExpr parses x[i], x[a:b:c] and x[i, j].
func (p *Parser) parseSubscriptExpr(x ast.Expr) ast.Expr {
	open := p.curTok.Span
	p.nextToken()

	res, ok := parseCommaList[ast.Expr](p, open, listConfig{
		Closing:             lexer.RBRACKET,
		AllowTrailing:       true,
		MissingElementMsg:   "expected subscript",
		MissingSeparatorMsg: "expected ',' or ']' in subscript",
	}, func(int) (ast.Expr, bool) {
		item := p.parseSliceOrExpr()
		return item, item != nil
	})
	if !ok {
		return nil
	}

	var index ast.Expr
	if len(res.Items) == 1 && !res.Trailing {
		index = res.Items[0]
	} else {
		index = ast.NewTupleLit(res.Items, mergeSpan(open, p.curTok.Span))
	}

	return ast.NewIndexExpr(x, index, mergeSpan(x.Span(), p.curTok.Span))
}

func (p *Parser) parseSliceOrExpr() ast.Expr {
	start := p.curTok.Span

	var lo, hi, step ast.Expr
	if p.curTok.Type != lexer.COLON {
		lo = p.parseExpr()
		if lo == nil {
			return nil
		}
		if p.peekTok.Type != lexer.COLON {
			return lo
		}
		p.nextToken()
	}

	if isExprStart(p.peekTok.Type) {
		p.nextToken()
		if hi = p.parseExpr(); hi == nil {
			return nil
		}
	}

	if p.peekTok.Type == lexer.COLON {
		p.nextToken()
		if isExprStart(p.peekTok.Type) {
			p.nextToken()
			if step = p.parseExpr(); step == nil {
				return nil
			}
		}
	}

	return ast.NewSliceExpr(lo, hi, step, mergeSpan(start, p.curTok.Span))
}

// parseGroupedExpr handles (x), tuples and the empty tuple.
func (p *Parser) parseGroupedExpr() ast.Expr {
	start := p.curTok.Span

	if p.peekTok.Type == lexer.RPAREN {
		p.nextToken()
		return ast.NewTupleLit(nil, mergeSpan(start, p.curTok.Span))
	}
	p.nextToken()

	construct := ""
	res, ok := parseCommaList[ast.Expr](p, start, listConfig{
		Closing:             lexer.RPAREN,
		AllowTrailing:       true,
		MissingSeparatorMsg: "expected ',' or ')'",
	}, func(idx int) (ast.Expr, bool) {
		item := p.parseExpr()
		if item == nil {
			return nil, false
		}
		if idx == 0 && p.peekTok.Type == lexer.FOR {
			construct = "generator expression"
			p.skipToClosing()
		}
		return item, true
	})
	if !ok {
		return nil
	}

	span := mergeSpan(start, p.curTok.Span)
	if construct != "" {
		return ast.NewUnsupportedExpr(construct, span)
	}
	if len(res.Items) == 1 && !res.Trailing {
		return res.Items[0]
	}
	return ast.NewTupleLit(res.Items, span)
}

func (p *Parser) parseListLiteral() ast.Expr {
	start := p.curTok.Span
	p.nextToken()

	construct := ""
	res, ok := parseCommaList[ast.Expr](p, start, listConfig{
		Closing:             lexer.RBRACKET,
		AllowEmpty:          true,
		AllowTrailing:       true,
		MissingSeparatorMsg: "expected ',' or ']' in list",
	}, func(idx int) (ast.Expr, bool) {
		item := p.parseExpr()
		if item == nil {
			return nil, false
		}
		if idx == 0 && p.peekTok.Type == lexer.FOR {
			construct = "list comprehension"
			p.skipToClosing()
		}
		return item, true
	})
	if !ok {
		return nil
	}

	span := mergeSpan(start, p.curTok.Span)
	if construct != "" {
		return ast.NewUnsupportedExpr(construct, span)
	}
	return ast.NewListLit(res.Items, span)
}

// parseBraceLiteral parses dict and set displays. The first element decides
// which one it is; {} is an empty dict.
func (p *Parser) parseBraceLiteral() ast.Expr {
	start := p.curTok.Span

	if p.peekTok.Type == lexer.RBRACE {
		p.nextToken()
		return ast.NewDictLit(nil, nil, mergeSpan(start, p.curTok.Span))
	}
	p.nextToken()

	var (
		isDict    bool
		construct string
		values    []ast.Expr
	)
	res, ok := parseCommaList[ast.Expr](p, start, listConfig{
		Closing:             lexer.RBRACE,
		AllowTrailing:       true,
		MissingSeparatorMsg: "expected ',' or '}'",
	}, func(idx int) (ast.Expr, bool) {
		if p.curTok.Type == lexer.POWER {
			construct = "dict unpacking"
			p.skipToClosing()
			return nil, true
		}

		key := p.parseExpr()
		if key == nil {
			return nil, false
		}
		if idx == 0 {
			isDict = p.peekTok.Type == lexer.COLON
		}

		if isDict {
			if !p.expect(lexer.COLON) {
				return nil, false
			}
			p.nextToken()

			value := p.parseExpr()
			if value == nil {
				return nil, false
			}
			values = append(values, value)
		}

		if idx == 0 && p.peekTok.Type == lexer.FOR {
			construct = "comprehension"
			p.skipToClosing()
		}
		return key, true
	})
	if !ok {
		return nil
	}

	span := mergeSpan(start, p.curTok.Span)
	if construct != "" {
		return ast.NewUnsupportedExpr(construct, span)
	}
	if isDict {
		return ast.NewDictLit(res.Items, values, span)
	}
	return ast.NewSetLit(res.Items, span)
}

// parseLambdaExpr skips the parameters, parses the body and yields a
// placeholder; lambdas are never lowered.
func (p *Parser) parseLambdaExpr() ast.Expr {
	start := p.curTok.Span

	for p.curTok.Type != lexer.COLON {
		if p.curTok.Type == lexer.NEWLINE || p.curTok.Type == lexer.EOF {
			p.reportError("expected ':' in lambda", p.curTok.Span)
			return nil
		}
		p.nextToken()
	}
	p.nextToken()

	body := p.parseExpr()
	if body == nil {
		return nil
	}

	return ast.NewUnsupportedExpr("lambda", mergeSpan(start, body.Span()))
}

func (p *Parser) parseYieldExpr() ast.Expr {
	start := p.curTok.Span

	if p.peekTok.Type == lexer.FROM {
		p.nextToken()
	}
	if isExprStart(p.peekTok.Type) {
		p.nextToken()
		if p.parseExprList() == nil {
			return nil
		}
	}

	return ast.NewUnsupportedExpr("yield", mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseAwaitExpr() ast.Expr {
	start := p.curTok.Span
	p.nextToken()

	operand := p.parseExprPrecedence(precedenceUnary)
	if operand == nil {
		return nil
	}

	return ast.NewUnsupportedExpr("await", mergeSpan(start, operand.Span()))
}

func (p *Parser) parseEllipsis() ast.Expr {
	return ast.NewUnsupportedExpr("ellipsis", p.curTok.Span)
}

// skipToClosing advances until peekTok is the bracket closing the current
// nesting level, leaving curTok on the last token inside it.
func (p *Parser) skipToClosing() {
	depth := 0
	for p.peekTok.Type != lexer.EOF {
		switch p.peekTok.Type {
		case lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
			depth++
		case lexer.RPAREN, lexer.RBRACKET, lexer.RBRACE:
			if depth == 0 {
				return
			}
			depth--
		}
		p.nextToken()
	}
}
