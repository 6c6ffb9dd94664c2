package parser

import (
	"github.com/serpent-lang/serpent/internal/lexer"
)

// listConfig describes a comma separated list closed by Closing.
type listConfig struct {
	Closing lexer.TokenType

	AllowEmpty    bool
	AllowTrailing bool

	MissingElementMsg   string
	MissingSeparatorMsg string
}

type listResult[T any] struct {
	Items    []T
	Trailing bool
}

// parseCommaList parses the items of a bracketed list. It is entered with
// curTok on the first item and leaves curTok on the closing token. open is
// the span of the opening bracket, used when the input ends first.
func parseCommaList[T any](p *Parser, open lexer.Span, cfg listConfig, parseItem func(idx int) (T, bool)) (listResult[T], bool) {
	var res listResult[T]

	missingElement := func() {
		if inputEnded(p.curTok.Type) {
			p.reportUnclosed(open, cfg.Closing)
			return
		}
		p.reportError(orDefault(cfg.MissingElementMsg, "expected element"), p.curTok.Span)
	}

	if p.curTok.Type == cfg.Closing {
		if cfg.AllowEmpty {
			return res, true
		}
		missingElement()
		return res, false
	}

	for {
		if inputEnded(p.curTok.Type) {
			p.reportUnclosed(open, cfg.Closing)
			return res, false
		}
		item, ok := parseItem(len(res.Items))
		if !ok {
			return res, false
		}
		res.Items = append(res.Items, item)

		switch p.peekTok.Type {
		case lexer.COMMA:
			p.nextToken()
			p.nextToken()
			if p.curTok.Type != cfg.Closing {
				continue
			}
			if cfg.AllowTrailing {
				res.Trailing = true
				return res, true
			}
			missingElement()
			return res, false
		case cfg.Closing:
			p.nextToken()
			return res, true
		case lexer.EOF, lexer.NEWLINE:
			p.reportUnclosed(open, cfg.Closing)
			return res, false
		default:
			p.reportError(orDefault(cfg.MissingSeparatorMsg, "expected ',' or '"+string(cfg.Closing)+"'"), p.peekTok.Span)
			return res, false
		}
	}
}

// inputEnded reports whether t ends the input inside brackets, where the
// lexer emits NEWLINE only at the end.
func inputEnded(t lexer.TokenType) bool {
	return t == lexer.EOF || t == lexer.NEWLINE
}

// reportUnclosed reports a bracket whose closing token never came.
func (p *Parser) reportUnclosed(open lexer.Span, closing lexer.TokenType) {
	p.reportError("'"+opening(closing)+"' was never closed", open)
}

func opening(closing lexer.TokenType) string {
	switch closing {
	case lexer.RBRACKET:
		return "["
	case lexer.RBRACE:
		return "{"
	}
	return "("
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
