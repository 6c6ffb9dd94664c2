package parser

import (
	"strings"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/lexer"
)

// parseDefinition parses optional decorators followed by def or class.
func (p *Parser) parseDefinition() ast.Stmt {
	start := p.curTok.Span

	var decorators []ast.Expr
	for p.curTok.Type == lexer.AT {
		p.nextToken()

		dec := p.parseExpr()
		if dec == nil {
			return nil
		}
		decorators = append(decorators, dec)

		if !p.expect(lexer.NEWLINE) {
			return nil
		}
		p.nextToken()
	}

	switch p.curTok.Type {
	case lexer.DEF:
		return p.parseFuncDef(start, decorators)
	case lexer.CLASS:
		return p.parseClassDef(start, decorators)
	case lexer.ASYNC:
		return p.parseUnsupportedCompound()
	}

	p.reportUnexpected(p.curTok, "after decorator")
	return nil
}

func (p *Parser) parseFuncDef(start lexer.Span, decorators []ast.Expr) ast.Stmt {
	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	if !p.expect(lexer.LPAREN) {
		return nil
	}
	open := p.curTok.Span
	p.nextToken()

	paramRes, ok := parseCommaList[*ast.Param](p, open, listConfig{
		Closing:             lexer.RPAREN,
		AllowEmpty:          true,
		AllowTrailing:       true,
		MissingSeparatorMsg: "expected ',' or ')' in parameter list",
	}, func(int) (*ast.Param, bool) {
		param := p.parseParam()
		return param, param != nil
	})
	if !ok {
		return nil
	}

	var returns ast.Expr
	if p.peekTok.Type == lexer.ARROW {
		p.nextToken()
		p.nextToken()
		if returns = p.parseExpr(); returns == nil {
			return nil
		}
	}

	if !p.expect(lexer.COLON) {
		return nil
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}

	return ast.NewFuncDef(name, paramRes.Items, returns, body, decorators, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseParam() *ast.Param {
	start := p.curTok.Span
	kind := ast.ParamNormal

	switch p.curTok.Type {
	case lexer.ASTERISK:
		if p.peekTok.Type != lexer.IDENT {
			return ast.NewParam(nil, nil, nil, ast.ParamKwOnlyMarker, start)
		}
		p.nextToken()
		kind = ast.ParamVarArgs
	case lexer.POWER:
		if !p.expect(lexer.IDENT) {
			return nil
		}
		kind = ast.ParamKwArgs
	case lexer.SLASH:
		return ast.NewParam(nil, nil, nil, ast.ParamPosOnlyMarker, start)
	case lexer.IDENT:
	default:
		p.reportUnexpected(p.curTok, "in parameter list")
		return nil
	}

	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	var annotation, def ast.Expr
	if p.peekTok.Type == lexer.COLON {
		p.nextToken()
		p.nextToken()
		if annotation = p.parseExpr(); annotation == nil {
			return nil
		}
	}
	if p.peekTok.Type == lexer.ASSIGN {
		p.nextToken()
		p.nextToken()
		if def = p.parseExpr(); def == nil {
			return nil
		}
	}

	return ast.NewParam(name, annotation, def, kind, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseClassDef(start lexer.Span, decorators []ast.Expr) ast.Stmt {
	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	var (
		bases    []ast.Expr
		keywords []*ast.Arg
	)
	if p.peekTok.Type == lexer.LPAREN {
		p.nextToken()
		open := p.curTok.Span
		p.nextToken()

		args, ok := p.parseArgs(open, lexer.RPAREN)
		if !ok {
			return nil
		}
		for _, arg := range args {
			switch {
			case arg.Name != nil || arg.DoubleStar:
				keywords = append(keywords, arg)
			case arg.Star:
				bases = append(bases, ast.NewStarredExpr(arg.Value, arg.Span()))
			default:
				bases = append(bases, arg.Value)
			}
		}
	}

	if !p.expect(lexer.COLON) {
		return nil
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}

	return ast.NewClassDef(name, bases, keywords, body, decorators, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseImportStmt() ast.Stmt {
	start := p.curTok.Span

	var names []*ast.ImportAlias
	for {
		p.nextToken()

		alias := p.parseImportAlias(true)
		if alias == nil {
			return nil
		}
		names = append(names, alias)

		if p.peekTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	return ast.NewImportStmt(names, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseFromImportStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	level := 0
	for p.curTok.Type == lexer.DOT || p.curTok.Type == lexer.ELLIPSIS {
		if p.curTok.Type == lexer.DOT {
			level++
		} else {
			level += 3
		}
		p.nextToken()
	}

	module := ""
	if p.curTok.Type != lexer.IMPORT {
		var ok bool
		if module, ok = p.parseDottedName(); !ok {
			return nil
		}
		if !p.expect(lexer.IMPORT) {
			return nil
		}
	}
	p.nextToken()

	var names []*ast.ImportAlias
	switch p.curTok.Type {
	case lexer.ASTERISK:
		names = append(names, ast.NewImportAlias("*", nil, p.curTok.Span))
	case lexer.LPAREN:
		open := p.curTok.Span
		p.nextToken()
		res, ok := parseCommaList[*ast.ImportAlias](p, open, listConfig{
			Closing:             lexer.RPAREN,
			AllowTrailing:       true,
			MissingElementMsg:   "expected name to import",
			MissingSeparatorMsg: "expected ',' or ')' in import list",
		}, func(int) (*ast.ImportAlias, bool) {
			alias := p.parseImportAlias(false)
			return alias, alias != nil
		})
		if !ok {
			return nil
		}
		names = res.Items
	default:
		for {
			alias := p.parseImportAlias(false)
			if alias == nil {
				return nil
			}
			names = append(names, alias)

			if p.peekTok.Type != lexer.COMMA {
				break
			}
			p.nextToken()
			p.nextToken()
		}
	}

	return ast.NewFromImportStmt(module, level, names, mergeSpan(start, p.curTok.Span))
}

// parseImportAlias parses "name [as alias]" with curTok on the name.
func (p *Parser) parseImportAlias(dotted bool) *ast.ImportAlias {
	start := p.curTok.Span

	var name string
	if dotted {
		var ok bool
		if name, ok = p.parseDottedName(); !ok {
			return nil
		}
	} else {
		if p.curTok.Type != lexer.IDENT {
			p.reportUnexpected(p.curTok, "in import list")
			return nil
		}
		name = p.curTok.Value
	}

	var alias *ast.Ident
	if p.peekTok.Type == lexer.AS {
		p.nextToken()
		if !p.expect(lexer.IDENT) {
			return nil
		}
		alias = ast.NewIdent(p.curTok.Value, p.curTok.Span)
	}

	return ast.NewImportAlias(name, alias, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseDottedName() (string, bool) {
	if p.curTok.Type != lexer.IDENT {
		p.reportUnexpected(p.curTok, "where a module name was expected")
		return "", false
	}

	parts := []string{p.curTok.Value}
	for p.peekTok.Type == lexer.DOT {
		p.nextToken()
		if !p.expect(lexer.IDENT) {
			return "", false
		}
		parts = append(parts, p.curTok.Value)
	}

	return strings.Join(parts, "."), true
}
