package lexer

import (
	"testing"
)

type expectedToken struct {
	typ   TokenType
	value string
}

func checkTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.typ {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (value %q)",
				i, tt.typ, tok.Type, tok.Value)
		}
		if tt.value != "" && tok.Value != tt.value {
			t.Fatalf("tests[%d] - value wrong. expected=%q, got=%q",
				i, tt.value, tok.Value)
		}
	}
	if len(l.Errors) > 0 {
		t.Fatalf("unexpected lexer errors: %+v", l.Errors)
	}
}

func TestNextToken_Basic(t *testing.T) {
	checkTokens(t, "x = 10\n", []expectedToken{
		{IDENT, "x"},
		{ASSIGN, "="},
		{INT, "10"},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestNextToken_Operators(t *testing.T) {
	checkTokens(t, "= + - * ** / // % << >> <= >= == != -> += //= **= ...", []expectedToken{
		{ASSIGN, "="},
		{PLUS, "+"},
		{MINUS, "-"},
		{ASTERISK, "*"},
		{POWER, "**"},
		{SLASH, "/"},
		{FLOOR_DIV, "//"},
		{PERCENT, "%"},
		{SHIFT_LEFT, "<<"},
		{SHIFT_RIGHT, ">>"},
		{LE, "<="},
		{GE, ">="},
		{EQ, "=="},
		{NOT_EQ, "!="},
		{ARROW, "->"},
		{PLUS_ASSIGN, "+="},
		{FLOOR_DIV_ASSIGN, "//="},
		{POWER_ASSIGN, "**="},
		{ELLIPSIS, "..."},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestIndentation(t *testing.T) {
	input := "def f(a):\n    if a:\n        return 1\n\n    # comment\n    return 2\nx = f(1)\n"
	checkTokens(t, input, []expectedToken{
		{DEF, "def"},
		{IDENT, "f"},
		{LPAREN, ""},
		{IDENT, "a"},
		{RPAREN, ""},
		{COLON, ""},
		{NEWLINE, ""},
		{INDENT, ""},
		{IF, "if"},
		{IDENT, "a"},
		{COLON, ""},
		{NEWLINE, ""},
		{INDENT, ""},
		{RETURN, "return"},
		{INT, "1"},
		{NEWLINE, ""},
		{DEDENT, ""},
		{RETURN, "return"},
		{INT, "2"},
		{NEWLINE, ""},
		{DEDENT, ""},
		{IDENT, "x"},
		{ASSIGN, ""},
		{IDENT, "f"},
		{LPAREN, ""},
		{INT, "1"},
		{RPAREN, ""},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestDedentAtEOF(t *testing.T) {
	checkTokens(t, "while x:\n    pass", []expectedToken{
		{WHILE, ""},
		{IDENT, "x"},
		{COLON, ""},
		{NEWLINE, ""},
		{INDENT, ""},
		{PASS, ""},
		{NEWLINE, ""},
		{DEDENT, ""},
		{EOF, ""},
	})
}

func TestImplicitLineJoining(t *testing.T) {
	checkTokens(t, "f(1,\n  2)\ny = 1 + \\\n  2\n", []expectedToken{
		{IDENT, "f"},
		{LPAREN, ""},
		{INT, "1"},
		{COMMA, ""},
		{INT, "2"},
		{RPAREN, ""},
		{NEWLINE, ""},
		{IDENT, "y"},
		{ASSIGN, ""},
		{INT, "1"},
		{PLUS, ""},
		{INT, "2"},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestStrings(t *testing.T) {
	input := `a = "hi\n" + 'x' + r"\d" + """multi
line"""` + "\n"
	checkTokens(t, input, []expectedToken{
		{IDENT, "a"},
		{ASSIGN, ""},
		{STRING, "hi\n"},
		{PLUS, ""},
		{STRING, "x"},
		{PLUS, ""},
		{STRING, `\d`},
		{PLUS, ""},
		{STRING, "multi\nline"},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestStringPrefixRecorded(t *testing.T) {
	l := New(`f"x{y}"`)
	tok := l.NextToken()
	if tok.Type != STRING || tok.Prefix != "f" {
		t.Fatalf("expected f-string token, got %+v", tok)
	}
}

func TestNumbers(t *testing.T) {
	checkTokens(t, "1_000 0x1F 0o17 0b101 3.25 1e3 .5", []expectedToken{
		{INT, "1000"},
		{INT, "0x1F"},
		{INT, "0o17"},
		{INT, "0b101"},
		{FLOAT, "3.25"},
		{FLOAT, "1e3"},
		{FLOAT, ".5"},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestKeywords(t *testing.T) {
	checkTokens(t, "class A: pass\nnot None and True or False is in", []expectedToken{
		{CLASS, ""},
		{IDENT, "A"},
		{COLON, ""},
		{PASS, ""},
		{NEWLINE, ""},
		{NOT, ""},
		{NONE, ""},
		{AND, ""},
		{TRUE, ""},
		{OR, ""},
		{FALSE, ""},
		{IS, ""},
		{IN, ""},
		{NEWLINE, ""},
		{EOF, ""},
	})
}

func TestSpans(t *testing.T) {
	l := New("x = 1\nyy = 2\n")
	var got []Token
	for {
		tok := l.NextToken()
		got = append(got, tok)
		if tok.Type == EOF {
			break
		}
	}
	yy := got[4]
	if yy.Value != "yy" || yy.Span.Line != 2 || yy.Span.Column != 1 || yy.Span.Start != 6 || yy.Span.End != 8 {
		t.Fatalf("unexpected span for yy: %+v", yy)
	}
	two := got[6]
	if two.Span.Line != 2 || two.Span.Column != 6 {
		t.Fatalf("unexpected span for 2: %+v", two.Span)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  LexerErrorKind
	}{
		{`x = "abc`, ErrUnterminatedString},
		{"x = 1 $ 2", ErrIllegalRune},
		{"if x:\n        a\n    b\n", ErrBadIndent},
		{"z = 3j", ErrIllegalRune},
	}
	for _, tt := range tests {
		l := New(tt.input)
		l.SetFilename("bad.py")
		for tok := l.NextToken(); tok.Type != EOF; tok = l.NextToken() {
		}
		if len(l.Errors) == 0 {
			t.Fatalf("%q: expected an error", tt.input)
		}
		if l.Errors[0].Kind != tt.kind {
			t.Fatalf("%q: expected kind %d, got %d (%s)", tt.input, tt.kind, l.Errors[0].Kind, l.Errors[0].Message)
		}
		if l.Errors[0].Span.Filename != "bad.py" {
			t.Fatalf("%q: filename not recorded", tt.input)
		}
	}
}
