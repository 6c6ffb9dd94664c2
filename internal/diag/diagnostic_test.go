package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/lexer"
)

func TestFromLexerError(t *testing.T) {
	err := lexer.LexerError{
		Kind:    lexer.ErrUnterminatedString,
		Message: "unterminated string literal",
		Span: lexer.Span{
			Filename: "a.py",
			Line:     1,
			Column:   3,
			Start:    2,
			End:      6,
		},
	}

	d := err.ToDiagnostic()

	if d.Stage != diag.StageLexer {
		t.Fatalf("expected stage %q, got %q", diag.StageLexer, d.Stage)
	}
	if d.Code != diag.CodeLexerUnterminatedString {
		t.Fatalf("expected code %q, got %q", diag.CodeLexerUnterminatedString, d.Code)
	}
	if d.Severity != diag.SeverityError {
		t.Fatalf("expected severity %q, got %q", diag.SeverityError, d.Severity)
	}
	want := diag.Span{Filename: "a.py", Line: 1, Column: 3, Start: 2, End: 6}
	if d.Span != want {
		t.Fatalf("expected span %+v, got %+v", want, d.Span)
	}
}

func TestDiagnosticBuilders(t *testing.T) {
	span := diag.Span{Filename: "m.py", Line: 2, Column: 5, Start: 10, End: 15}
	d := diag.Diagnostic{Code: diag.CodeCompilerException, Message: "boom"}.
		WithPrimarySpan(span, "here").
		WithNote("first").
		WithNote("second").
		WithHelp("try again")

	if len(d.LabeledSpans) != 1 || d.LabeledSpans[0].Style != "primary" {
		t.Fatalf("unexpected labeled spans %+v", d.LabeledSpans)
	}
	if len(d.Notes) != 2 || d.Help != "try again" {
		t.Fatalf("builders lost data: %+v", d)
	}
	if !d.IsError() {
		t.Fatalf("empty severity should count as error")
	}
	if !diag.HasErrors([]diag.Diagnostic{{Severity: diag.SeverityWarning}, d}) {
		t.Fatalf("HasErrors missed the error")
	}
}

func TestFormatterRendersSnippet(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatterTo(&buf)
	f.AddSource("m.py", "x = 1\nwhile x:\n    break\n")

	f.Format(diag.Diagnostic{
		Severity: diag.SeverityError,
		Code:     diag.CodeUnsupportedConstruct,
		Message:  "unsupported construct: lambda",
		Span:     diag.Span{Filename: "m.py", Line: 2, Column: 7, Start: 12, End: 13},
	}.WithHelp("rewrite it as a def"))

	out := buf.String()
	for _, want := range []string{
		"error[UNSUPPORTED_CONSTRUCT]: unsupported construct: lambda",
		"--> m.py:2:7",
		"2 | while x:",
		"^",
		"help: rewrite it as a def",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
