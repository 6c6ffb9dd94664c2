package parser

import (
	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/lexer"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Option func(*options)

type options struct {
	filename string
}

// WithFilename configures the parser to attribute all emitted spans to the provided filename.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

const (
	precedenceLowest = iota
	precedenceTernary
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceBitOr
	precedenceBitXor
	precedenceBitAnd
	precedenceShift
	precedenceSum
	precedenceProduct
	precedenceUnary
	precedencePower
	precedencePostfix
)

var precedences = map[lexer.TokenType]int{
	lexer.IF:          precedenceTernary,
	lexer.OR:          precedenceOr,
	lexer.AND:         precedenceAnd,
	lexer.EQ:          precedenceComparison,
	lexer.NOT_EQ:      precedenceComparison,
	lexer.LT:          precedenceComparison,
	lexer.LE:          precedenceComparison,
	lexer.GT:          precedenceComparison,
	lexer.GE:          precedenceComparison,
	lexer.IN:          precedenceComparison,
	lexer.NOT:         precedenceComparison,
	lexer.IS:          precedenceComparison,
	lexer.PIPE:        precedenceBitOr,
	lexer.CARET:       precedenceBitXor,
	lexer.AMPERSAND:   precedenceBitAnd,
	lexer.SHIFT_LEFT:  precedenceShift,
	lexer.SHIFT_RIGHT: precedenceShift,
	lexer.PLUS:        precedenceSum,
	lexer.MINUS:       precedenceSum,
	lexer.ASTERISK:    precedenceProduct,
	lexer.SLASH:       precedenceProduct,
	lexer.FLOOR_DIV:   precedenceProduct,
	lexer.PERCENT:     precedenceProduct,
	lexer.AT:          precedenceProduct,
	lexer.POWER:       precedencePower,
	lexer.LPAREN:      precedencePostfix,
	lexer.LBRACKET:    precedencePostfix,
	lexer.DOT:         precedencePostfix,
}

// ParseError captures a recoverable parsing error with location context.
type ParseError struct {
	Message  string
	Span     lexer.Span
	Severity diag.Severity
}

// ToDiagnostic converts a parse error into a shared diagnostic structure.
func (e ParseError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: e.Severity,
		Code:     diag.CodeParseError,
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.Start,
			End:      e.Span.End,
		},
	}
}

// Parser is a Pratt-style recursive descent parser for the Python subset.
//   - Lookahead: curTok is the token under examination and peekTok the next
//     one. Both only move through nextToken.
//   - Statements: a statement parse starts on its first token and stops on its
//     last one, which is NEWLINE for simple statements and DEDENT for compound
//     statements with an indented block.
//   - Diagnostics: errors is append-only. Lexer errors are kept by the lexer
//     and merged in Diagnostics.
type Parser struct {
	lx      *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token

	errors []ParseError

	filename string

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn
}

// New returns a parser initialised with the provided source input.
func New(input string, opts ...Option) *Parser {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Parser{
		lx:        lexer.New(input),
		prefixFns: make(map[lexer.TokenType]prefixParseFn),
		infixFns:  make(map[lexer.TokenType]infixParseFn),
		filename:  cfg.filename,
	}

	if cfg.filename != "" {
		p.lx.SetFilename(cfg.filename)
	}

	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBoolLiteral)
	p.registerPrefix(lexer.NONE, p.parseNoneLiteral)
	p.registerPrefix(lexer.MINUS, p.parseUnaryExpr)
	p.registerPrefix(lexer.PLUS, p.parseUnaryExpr)
	p.registerPrefix(lexer.TILDE, p.parseUnaryExpr)
	p.registerPrefix(lexer.NOT, p.parseNotExpr)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(lexer.LBRACKET, p.parseListLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseBraceLiteral)
	p.registerPrefix(lexer.ASTERISK, p.parseStarredExpr)
	p.registerPrefix(lexer.LAMBDA, p.parseLambdaExpr)
	p.registerPrefix(lexer.YIELD, p.parseYieldExpr)
	p.registerPrefix(lexer.AWAIT, p.parseAwaitExpr)
	p.registerPrefix(lexer.ELLIPSIS, p.parseEllipsis)

	for _, tt := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.FLOOR_DIV,
		lexer.PERCENT, lexer.AT, lexer.PIPE, lexer.CARET, lexer.AMPERSAND,
		lexer.SHIFT_LEFT, lexer.SHIFT_RIGHT,
	} {
		p.registerInfix(tt, p.parseInfixExpr)
	}
	p.registerInfix(lexer.POWER, p.parsePowerExpr)
	p.registerInfix(lexer.AND, p.parseBoolOpExpr)
	p.registerInfix(lexer.OR, p.parseBoolOpExpr)
	for _, tt := range []lexer.TokenType{
		lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.LE, lexer.GT, lexer.GE,
		lexer.IN, lexer.NOT, lexer.IS,
	} {
		p.registerInfix(tt, p.parseCompareExpr)
	}
	p.registerInfix(lexer.IF, p.parseCondExpr)
	p.registerInfix(lexer.LPAREN, p.parseCallExpr)
	p.registerInfix(lexer.LBRACKET, p.parseSubscriptExpr)
	p.registerInfix(lexer.DOT, p.parseAttributeExpr)

	// Seed curTok/peekTok.
	p.nextToken()
	p.nextToken()

	return p
}

// Parse is a convenience wrapper that parses src and returns the file together
// with every lexer and parser diagnostic.
func Parse(src string, opts ...Option) (*ast.File, []diag.Diagnostic) {
	p := New(src, opts...)
	file := p.ParseFile()
	return file, p.Diagnostics()
}

// Errors returns all recoverable parse errors that were encountered.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

// Diagnostics returns lexer diagnostics followed by parser diagnostics.
func (p *Parser) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, err := range p.lx.Errors {
		out = append(out, err.ToDiagnostic())
	}
	for _, err := range p.errors {
		out = append(out, err.ToDiagnostic())
	}
	return out
}

// ParseFile parses a full module and returns its AST. It never returns nil;
// consult Errors or Diagnostics for problems.
func (p *Parser) ParseFile() *ast.File {
	file := ast.NewFile(p.filename, p.curTok.Span)
	file.Body = p.parseStatementsUntil(lexer.EOF)
	file.SetSpan(mergeSpan(file.Span(), p.curTok.Span))
	return file
}

// parseStatementsUntil parses statements until curTok is end. Each iteration
// leaves curTok on the statement's last token and then steps past it.
func (p *Parser) parseStatementsUntil(end lexer.TokenType) []ast.Stmt {
	var stmts []ast.Stmt

	for p.curTok.Type != end && p.curTok.Type != lexer.EOF {
		if p.curTok.Type == lexer.NEWLINE {
			p.nextToken()
			continue
		}

		parsed, ok := p.parseStatement()
		stmts = append(stmts, parsed...)
		if !ok {
			p.recoverStatement()
		}
		p.nextToken()
	}

	return stmts
}

// recoverStatement skips to the end of the current logical line and, when that
// line opened a block, past the whole block.
func (p *Parser) recoverStatement() {
	for p.curTok.Type != lexer.NEWLINE && p.curTok.Type != lexer.EOF {
		if p.curTok.Type == lexer.DEDENT {
			return
		}
		p.nextToken()
	}
	if p.curTok.Type == lexer.NEWLINE && p.peekTok.Type == lexer.INDENT {
		p.nextToken()
		p.skipIndentedBlock()
	}
}

// skipIndentedBlock expects curTok on INDENT and stops on its matching DEDENT.
func (p *Parser) skipIndentedBlock() {
	depth := 0
	for p.curTok.Type != lexer.EOF {
		switch p.curTok.Type {
		case lexer.INDENT:
			depth++
		case lexer.DEDENT:
			depth--
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
}

// nextToken advances the parser's token window.
// Contract: after calling nextToken, curTok == old(peekTok).
func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.lx.NextToken()
}

// expect asserts that the peek token matches the provided type.
// On success it promotes peekTok into curTok.
func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.peekTok.Type == tt {
		p.nextToken()
		return true
	}

	p.reportError("expected '"+describe(tt)+"', found '"+tokenText(p.peekTok)+"'", p.peekTok.Span)
	return false
}

func (p *Parser) registerPrefix(tt lexer.TokenType, fn prefixParseFn) {
	p.prefixFns[tt] = fn
}

func (p *Parser) registerInfix(tt lexer.TokenType, fn infixParseFn) {
	p.infixFns[tt] = fn
}

func (p *Parser) peekPrecedence() int {
	if p.peekTok.Type == lexer.NOT {
		return precedenceComparison
	}
	if prec, ok := precedences[p.peekTok.Type]; ok {
		return prec
	}
	return precedenceLowest
}

// reportError records a recoverable diagnostic without aborting parsing.
func (p *Parser) reportError(msg string, span lexer.Span) {
	if span.Filename == "" && p.filename != "" {
		span.Filename = p.filename
	}
	p.errors = append(p.errors, ParseError{
		Message:  msg,
		Span:     span,
		Severity: diag.SeverityError,
	})
}

func (p *Parser) reportUnexpected(tok lexer.Token, context string) {
	msg := "unexpected '" + tokenText(tok) + "'"
	if context != "" {
		msg += " " + context
	}
	p.reportError(msg, tok.Span)
}

// mergeSpan returns a span starting at start and covering end.
func mergeSpan(start, end lexer.Span) lexer.Span {
	span := start
	if end.End > span.End {
		span.End = end.End
	}
	return span
}

func describe(tt lexer.TokenType) string {
	switch tt {
	case lexer.NEWLINE:
		return "newline"
	case lexer.INDENT:
		return "indented block"
	case lexer.DEDENT:
		return "dedent"
	case lexer.IDENT:
		return "identifier"
	case lexer.EOF:
		return "end of file"
	}
	return string(tt)
}

func tokenText(tok lexer.Token) string {
	if tok.Raw != "" && tok.Type != lexer.NEWLINE {
		return tok.Raw
	}
	return describe(tok.Type)
}

func isExprStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE,
		lexer.NONE, lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE, lexer.MINUS,
		lexer.PLUS, lexer.TILDE, lexer.NOT, lexer.LAMBDA, lexer.AWAIT, lexer.YIELD,
		lexer.ASTERISK, lexer.ELLIPSIS:
		return true
	}
	return false
}
