package lexer

// TokenType represents the type of a token
type TokenType string

// Span represents the source location of a token
type Span struct {
	Filename string // optional source filename for diagnostics
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Start    int    // index in []rune
	End      int    // exclusive end index
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Raw    string // exact runes from source
	Value  string // decoded value (string contents without quotes and escapes)
	Prefix string // string prefix letters, lower-cased (r, b, f, u)
	Span   Span
}

// Token type constants
const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Layout
	NEWLINE TokenType = "NEWLINE"
	INDENT  TokenType = "INDENT"
	DEDENT  TokenType = "DEDENT"

	// Identifiers and literals
	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	FLOAT  TokenType = "FLOAT"
	STRING TokenType = "STRING"

	// Operators
	ASSIGN      TokenType = "="
	PLUS        TokenType = "+"
	MINUS       TokenType = "-"
	ASTERISK    TokenType = "*"
	POWER       TokenType = "**"
	SLASH       TokenType = "/"
	FLOOR_DIV   TokenType = "//"
	PERCENT     TokenType = "%"
	AT          TokenType = "@"
	AMPERSAND   TokenType = "&"
	PIPE        TokenType = "|"
	CARET       TokenType = "^"
	TILDE       TokenType = "~"
	SHIFT_LEFT  TokenType = "<<"
	SHIFT_RIGHT TokenType = ">>"
	WALRUS      TokenType = ":="

	LT     TokenType = "<"
	GT     TokenType = ">"
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LE     TokenType = "<="
	GE     TokenType = ">="

	PLUS_ASSIGN        TokenType = "+="
	MINUS_ASSIGN       TokenType = "-="
	ASTERISK_ASSIGN    TokenType = "*="
	SLASH_ASSIGN       TokenType = "/="
	FLOOR_DIV_ASSIGN   TokenType = "//="
	PERCENT_ASSIGN     TokenType = "%="
	POWER_ASSIGN       TokenType = "**="
	AMPERSAND_ASSIGN   TokenType = "&="
	PIPE_ASSIGN        TokenType = "|="
	CARET_ASSIGN       TokenType = "^="
	SHIFT_LEFT_ASSIGN  TokenType = "<<="
	SHIFT_RIGHT_ASSIGN TokenType = ">>="
	AT_ASSIGN          TokenType = "@="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	DOT       TokenType = "."
	ELLIPSIS  TokenType = "..."
	ARROW     TokenType = "->"

	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"

	// Keywords
	FALSE    TokenType = "False"
	NONE     TokenType = "None"
	TRUE     TokenType = "True"
	AND      TokenType = "and"
	AS       TokenType = "as"
	ASSERT   TokenType = "assert"
	ASYNC    TokenType = "async"
	AWAIT    TokenType = "await"
	BREAK    TokenType = "break"
	CLASS    TokenType = "class"
	CONTINUE TokenType = "continue"
	DEF      TokenType = "def"
	DEL      TokenType = "del"
	ELIF     TokenType = "elif"
	ELSE     TokenType = "else"
	EXCEPT   TokenType = "except"
	FINALLY  TokenType = "finally"
	FOR      TokenType = "for"
	FROM     TokenType = "from"
	GLOBAL   TokenType = "global"
	IF       TokenType = "if"
	IMPORT   TokenType = "import"
	IN       TokenType = "in"
	IS       TokenType = "is"
	LAMBDA   TokenType = "lambda"
	NONLOCAL TokenType = "nonlocal"
	NOT      TokenType = "not"
	OR       TokenType = "or"
	PASS     TokenType = "pass"
	RAISE    TokenType = "raise"
	RETURN   TokenType = "return"
	TRY      TokenType = "try"
	WHILE    TokenType = "while"
	WITH     TokenType = "with"
	YIELD    TokenType = "yield"
)

var keywords = map[string]TokenType{
	"False":    FALSE,
	"None":     NONE,
	"True":     TRUE,
	"and":      AND,
	"as":       AS,
	"assert":   ASSERT,
	"async":    ASYNC,
	"await":    AWAIT,
	"break":    BREAK,
	"class":    CLASS,
	"continue": CONTINUE,
	"def":      DEF,
	"del":      DEL,
	"elif":     ELIF,
	"else":     ELSE,
	"except":   EXCEPT,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"global":   GLOBAL,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"is":       IS,
	"lambda":   LAMBDA,
	"nonlocal": NONLOCAL,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"raise":    RAISE,
	"return":   RETURN,
	"try":      TRY,
	"while":    WHILE,
	"with":     WITH,
	"yield":    YIELD,
}

// LookupIdent checks if the identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether tt is a reserved word.
func IsKeyword(tt TokenType) bool {
	_, ok := keywords[string(tt)]
	return ok
}

// operators maps operator spellings to token types; the lexer tries the
// longest spelling first.
var operators = map[string]TokenType{
	"=": ASSIGN, "+": PLUS, "-": MINUS, "*": ASTERISK, "**": POWER,
	"/": SLASH, "//": FLOOR_DIV, "%": PERCENT, "@": AT, "&": AMPERSAND,
	"|": PIPE, "^": CARET, "~": TILDE, "<<": SHIFT_LEFT, ">>": SHIFT_RIGHT,
	":=": WALRUS, "<": LT, ">": GT, "==": EQ, "!=": NOT_EQ, "<=": LE, ">=": GE,
	"+=": PLUS_ASSIGN, "-=": MINUS_ASSIGN, "*=": ASTERISK_ASSIGN,
	"/=": SLASH_ASSIGN, "//=": FLOOR_DIV_ASSIGN, "%=": PERCENT_ASSIGN,
	"**=": POWER_ASSIGN, "&=": AMPERSAND_ASSIGN, "|=": PIPE_ASSIGN,
	"^=": CARET_ASSIGN, "<<=": SHIFT_LEFT_ASSIGN, ">>=": SHIFT_RIGHT_ASSIGN,
	"@=": AT_ASSIGN,
	",":  COMMA, ";": SEMICOLON, ":": COLON, ".": DOT, "...": ELLIPSIS,
	"->": ARROW, "(": LPAREN, ")": RPAREN, "{": LBRACE, "}": RBRACE,
	"[": LBRACKET, "]": RBRACKET,
}

// AugmentedOperator maps an augmented assignment token to its binary
// operator token, e.g. "+=" to "+".
func AugmentedOperator(tt TokenType) (TokenType, bool) {
	switch tt {
	case PLUS_ASSIGN:
		return PLUS, true
	case MINUS_ASSIGN:
		return MINUS, true
	case ASTERISK_ASSIGN:
		return ASTERISK, true
	case SLASH_ASSIGN:
		return SLASH, true
	case FLOOR_DIV_ASSIGN:
		return FLOOR_DIV, true
	case PERCENT_ASSIGN:
		return PERCENT, true
	case POWER_ASSIGN:
		return POWER, true
	case AMPERSAND_ASSIGN:
		return AMPERSAND, true
	case PIPE_ASSIGN:
		return PIPE, true
	case CARET_ASSIGN:
		return CARET, true
	case SHIFT_LEFT_ASSIGN:
		return SHIFT_LEFT, true
	case SHIFT_RIGHT_ASSIGN:
		return SHIFT_RIGHT, true
	case AT_ASSIGN:
		return AT, true
	}
	return "", false
}
