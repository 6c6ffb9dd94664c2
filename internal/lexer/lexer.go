package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/serpent-lang/serpent/internal/diag"
)

type LexerErrorKind int

const (
	ErrUnterminatedString LexerErrorKind = iota
	ErrIllegalRune
	ErrBadIndent
)

type LexerError struct {
	Kind    LexerErrorKind
	Message string
	Span    Span
}

func (k LexerErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrUnterminatedString:
		return diag.CodeLexerUnterminatedString
	case ErrIllegalRune:
		return diag.CodeLexerIllegalRune
	case ErrBadIndent:
		return diag.CodeLexerBadIndent
	default:
		return diag.Code("LEXER_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic structure.
func (e LexerError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
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

// Lexer turns source text into tokens. Indentation is tracked with a stack
// of column widths; changes at the start of a logical line produce INDENT
// and DEDENT tokens, and line breaks inside brackets are ignored.
type Lexer struct {
	input    []rune
	pos      int  // index of the current rune
	ch       rune // current rune (0 = EOF)
	line     int  // current line number (1-based)
	column   int  // current column number (1-based)
	filename string

	indents     []int
	pending     []Token
	depth       int // open brackets
	atLineStart bool
	last        TokenType
	done        bool

	Errors []LexerError
}

// New creates a new lexer for the given input.
func New(input string) *Lexer {
	l := &Lexer{
		input:       []rune(input),
		pos:         -1,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
	l.read()
	return l
}

// SetFilename attributes every produced span to name.
func (l *Lexer) SetFilename(name string) {
	l.filename = name
}

func (l *Lexer) addError(kind LexerErrorKind, msg string, span Span) {
	span.Filename = l.filename
	l.Errors = append(l.Errors, LexerError{
		Kind:    kind,
		Message: msg,
		Span:    span,
	})
}

// read advances to the next rune, keeping line and column pointed at it.
func (l *Lexer) read() {
	if l.pos >= 0 && l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line++
		l.column = 0
	}
	l.pos++
	l.column++
	if l.pos >= len(l.input) {
		l.pos = len(l.input)
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

// peek returns the rune after the current one without advancing.
func (l *Lexer) peek() rune {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) currentSpanStart() (line, column, pos int) {
	return l.line, l.column, l.pos
}

func (l *Lexer) makeToken(tokType TokenType, startLine, startColumn, startPos int, value string) Token {
	end := l.pos
	return Token{
		Type:  tokType,
		Raw:   string(l.input[startPos:end]),
		Value: value,
		Span: Span{
			Filename: l.filename,
			Line:     startLine,
			Column:   startColumn,
			Start:    startPos,
			End:      end,
		},
	}
}

func (l *Lexer) layoutToken(tokType TokenType) Token {
	return Token{
		Type: tokType,
		Span: Span{Filename: l.filename, Line: l.line, Column: l.column, Start: l.pos, End: l.pos},
	}
}

func (l *Lexer) emit(tok Token) Token {
	l.last = tok.Type
	return tok
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	for {
		if len(l.pending) > 0 {
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return l.emit(tok)
		}
		if l.done {
			return l.emit(l.layoutToken(EOF))
		}

		if l.atLineStart && l.depth == 0 {
			if l.measureIndent() {
				continue
			}
		}

		l.skipInlineSpace()

		switch {
		case l.ch == 0:
			l.finish()
			continue
		case l.ch == '\n' || l.ch == '\r':
			tok := l.layoutToken(NEWLINE)
			l.consumeLineBreak()
			if l.depth > 0 {
				continue
			}
			l.atLineStart = true
			if l.last == NEWLINE || l.last == "" || l.last == INDENT || l.last == DEDENT {
				continue
			}
			tok.Raw = "\n"
			return l.emit(tok)
		}

		return l.emit(l.scanToken())
	}
}

// measureIndent consumes leading whitespace of a logical line and queues
// INDENT/DEDENT tokens. It reports true when the line was blank and has been
// skipped entirely.
func (l *Lexer) measureIndent() bool {
	startLine, startColumn, startPos := l.currentSpanStart()
	width := 0
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\f' {
		switch l.ch {
		case ' ':
			width++
		case '\t':
			width += 8 - width%8
		}
		l.read()
	}

	switch l.ch {
	case '#':
		l.skipComment()
		fallthrough
	case '\n', '\r':
		if l.ch != 0 {
			l.consumeLineBreak()
		}
		return true
	case 0:
		return false
	}
	l.atLineStart = false

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.pending = append(l.pending, Token{
			Type: INDENT,
			Span: Span{Filename: l.filename, Line: startLine, Column: startColumn, Start: startPos, End: l.pos},
		})
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, l.layoutToken(DEDENT))
		}
		if l.indents[len(l.indents)-1] != width {
			l.addError(ErrBadIndent, "unindent does not match any outer indentation level",
				Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos})
		}
	}
	return len(l.pending) > 0
}

// finish queues the tokens that close the input: a trailing NEWLINE, one
// DEDENT per open indentation level, then EOF.
func (l *Lexer) finish() {
	l.done = true
	if l.last != "" && l.last != NEWLINE && l.last != DEDENT && l.last != INDENT {
		l.pending = append(l.pending, l.layoutToken(NEWLINE))
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, l.layoutToken(DEDENT))
	}
}

func (l *Lexer) consumeLineBreak() {
	if l.ch == '\r' {
		l.read()
		if l.ch == '\n' {
			l.read()
		}
		return
	}
	l.read()
}

// skipInlineSpace skips blanks, comments and backslash continuations.
func (l *Lexer) skipInlineSpace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\f':
			l.read()
		case l.ch == '#':
			l.skipComment()
		case l.ch == '\\' && (l.peek() == '\n' || l.peek() == '\r'):
			l.read()
			l.consumeLineBreak()
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
		l.read()
	}
}

func (l *Lexer) scanToken() Token {
	startLine, startColumn, startPos := l.currentSpanStart()

	switch {
	case isLetter(l.ch) || l.ch == '_':
		ident := l.readIdentifier()
		if l.ch == '\'' || l.ch == '"' {
			if prefix, ok := stringPrefix(ident); ok {
				return l.readString(prefix, startLine, startColumn, startPos)
			}
		}
		return l.makeToken(LookupIdent(ident), startLine, startColumn, startPos, ident)
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peek())):
		literal, tt := l.readNumber()
		if l.ch == 'j' || l.ch == 'J' {
			l.read()
			l.addError(ErrIllegalRune, "complex literals are not supported",
				Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos})
			return l.makeToken(ILLEGAL, startLine, startColumn, startPos, literal)
		}
		return l.makeToken(tt, startLine, startColumn, startPos, literal)
	case l.ch == '\'' || l.ch == '"':
		return l.readString("", startLine, startColumn, startPos)
	}

	for n := 3; n >= 1; n-- {
		if l.pos+n > len(l.input) {
			continue
		}
		spelling := string(l.input[l.pos : l.pos+n])
		tt, ok := operators[spelling]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			l.read()
		}
		switch tt {
		case LPAREN, LBRACKET, LBRACE:
			l.depth++
		case RPAREN, RBRACKET, RBRACE:
			if l.depth > 0 {
				l.depth--
			}
		}
		return l.makeToken(tt, startLine, startColumn, startPos, spelling)
	}

	ch := l.ch
	l.read()
	l.addError(ErrIllegalRune, "illegal character "+strconv.QuoteRune(ch),
		Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos})
	return l.makeToken(ILLEGAL, startLine, startColumn, startPos, string(ch))
}

func stringPrefix(ident string) (string, bool) {
	p := strings.ToLower(ident)
	switch p {
	case "r", "b", "f", "u", "rb", "br", "fr", "rf":
		return p, true
	}
	return "", false
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads a number literal (decimal, 0x, 0o, 0b, float). The
// returned literal has underscores removed.
func (l *Lexer) readNumber() (string, TokenType) {
	var sb strings.Builder
	digits := func(ok func(rune) bool) {
		for ok(l.ch) || l.ch == '_' {
			if l.ch != '_' {
				sb.WriteRune(l.ch)
			}
			l.read()
		}
	}

	if l.ch == '0' {
		switch l.peek() {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			sb.WriteRune('0')
			l.read()
			base := unicode.ToLower(l.ch)
			sb.WriteRune(base)
			l.read()
			switch base {
			case 'x':
				digits(isHexDigit)
			case 'o':
				digits(func(r rune) bool { return r >= '0' && r <= '7' })
			default:
				digits(func(r rune) bool { return r == '0' || r == '1' })
			}
			return sb.String(), INT
		}
	}

	tt := INT
	digits(isDigit)
	if l.ch == '.' && (isDigit(l.peek()) || !isLetter(l.peek())) && l.peek() != '.' {
		tt = FLOAT
		sb.WriteRune('.')
		l.read()
		digits(isDigit)
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peek()) || ((l.peek() == '+' || l.peek() == '-') && isDigit(l.peekAt(2)))) {
		tt = FLOAT
		sb.WriteRune('e')
		l.read()
		if l.ch == '+' || l.ch == '-' {
			sb.WriteRune(l.ch)
			l.read()
		}
		digits(isDigit)
	}
	return sb.String(), tt
}

// readString reads a quoted string starting at the opening quote. Raw strings
// keep backslashes; other strings decode the usual escapes.
func (l *Lexer) readString(prefix string, startLine, startColumn, startPos int) Token {
	quote := l.ch
	triple := l.peek() == quote && l.peekAt(2) == quote
	if triple {
		l.read()
		l.read()
	}
	l.read()

	raw := strings.ContainsRune(prefix, 'r')
	var sb strings.Builder
	for {
		if l.ch == 0 || (!triple && (l.ch == '\n' || l.ch == '\r')) {
			l.addError(ErrUnterminatedString, "unterminated string literal",
				Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos})
			tok := l.makeToken(STRING, startLine, startColumn, startPos, sb.String())
			tok.Prefix = prefix
			return tok
		}
		if l.ch == quote {
			if !triple {
				l.read()
				break
			}
			if l.peek() == quote && l.peekAt(2) == quote {
				l.read()
				l.read()
				l.read()
				break
			}
		}
		if l.ch == '\\' {
			l.read()
			if raw {
				sb.WriteRune('\\')
				sb.WriteRune(l.ch)
				l.read()
				continue
			}
			l.readEscape(&sb)
			continue
		}
		sb.WriteRune(l.ch)
		l.read()
	}

	tok := l.makeToken(STRING, startLine, startColumn, startPos, sb.String())
	tok.Prefix = prefix
	return tok
}

// readEscape decodes the escape whose backslash was already consumed.
func (l *Lexer) readEscape(sb *strings.Builder) {
	ch := l.ch
	switch ch {
	case '\n':
		l.read()
		return
	case '\r':
		l.consumeLineBreak()
		return
	case 'n':
		sb.WriteRune('\n')
	case 't':
		sb.WriteRune('\t')
	case 'r':
		sb.WriteRune('\r')
	case '0':
		sb.WriteRune(0)
	case 'a':
		sb.WriteRune('\a')
	case 'b':
		sb.WriteRune('\b')
	case 'f':
		sb.WriteRune('\f')
	case 'v':
		sb.WriteRune('\v')
	case '\\', '\'', '"':
		sb.WriteRune(ch)
	case 'x', 'u', 'U':
		n := map[rune]int{'x': 2, 'u': 4, 'U': 8}[ch]
		hex := make([]rune, 0, n)
		for i := 1; i <= n && isHexDigit(l.peekAt(i)); i++ {
			hex = append(hex, l.peekAt(i))
		}
		if len(hex) == n {
			v, _ := strconv.ParseUint(string(hex), 16, 32)
			sb.WriteRune(rune(v))
			for i := 0; i < n; i++ {
				l.read()
			}
		} else {
			sb.WriteRune('\\')
			sb.WriteRune(ch)
		}
	case 0:
		return
	default:
		sb.WriteRune('\\')
		sb.WriteRune(ch)
	}
	l.read()
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
