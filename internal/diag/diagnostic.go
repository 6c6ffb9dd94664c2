package diag

import "fmt"

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer   Stage = "lexer"
	StageParser  Stage = "parser"
	StageCompile Stage = "compile"
	StageEmit    Stage = "emit"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// LabeledSpan is a span with an optional label, rendered under the source line.
type LabeledSpan struct {
	Span  Span
	Label string
	Style string // "primary" or "secondary"
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexerUnterminatedString Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerIllegalRune        Code = "LEXER_ILLEGAL_RUNE"
	CodeLexerBadIndent          Code = "LEXER_BAD_INDENT"

	// Parser errors
	CodeParseError Code = "PARSE_ERROR"

	// Compiler errors
	CodeUnsupportedConstruct   Code = "UNSUPPORTED_CONSTRUCT"
	CodeCompilerException      Code = "COMPILER_EXCEPTION"
	CodeUnresolvedType         Code = "UNRESOLVED_TYPE"
	CodeInternalStackImbalance Code = "INTERNAL_STACK_IMBALANCE"

	// Artifact emission
	CodeArtifactIO Code = "ARTIFACT_IO"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Diagnostic is a compiler diagnostic surfaced to end-users.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span
	// LabeledSpans takes precedence over Span when rendering; the first
	// primary span is the one underlined with '^'.
	LabeledSpans []LabeledSpan
	Notes        []string
	Help         string
}

// Error lets a diagnostic travel through error returns.
func (d Diagnostic) Error() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Span, d.severity(), d.Code, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.severity(), d.Code, d.Message)
}

func (d Diagnostic) severity() Severity {
	if d.Severity == "" {
		return SeverityError
	}
	return d.Severity
}

// IsError reports whether the diagnostic should fail a build.
func (d Diagnostic) IsError() bool {
	return d.severity() == SeverityError
}

// WithLabeledSpan adds a labeled span to the diagnostic.
func (d Diagnostic) WithLabeledSpan(span Span, label string, style string) Diagnostic {
	if style == "" {
		style = "primary"
	}
	d.LabeledSpans = append(d.LabeledSpans, LabeledSpan{
		Span:  span,
		Label: label,
		Style: style,
	})
	return d
}

// WithPrimarySpan adds a primary labeled span.
func (d Diagnostic) WithPrimarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "primary")
}

// WithSecondarySpan adds a secondary labeled span.
func (d Diagnostic) WithSecondarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "secondary")
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp sets the help text.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// HasErrors reports whether any diagnostic in the list is an error.
func HasErrors(list []Diagnostic) bool {
	for _, d := range list {
		if d.IsError() {
			return true
		}
	}
	return false
}
