package compiler

import (
	"errors"
	"fmt"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/lexer"
)

// ErrorKind classifies compile failures.
type ErrorKind int

const (
	// UnsupportedConstruct is source the compiler does not lower.
	UnsupportedConstruct ErrorKind = iota
	// CompilerException is a violated semantic rule.
	CompilerException
	// UnresolvedType is a type name that maps to no known class.
	UnresolvedType
	// Internal is a compiler bug such as an unbalanced stack.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedConstruct:
		return "unsupported construct"
	case CompilerException:
		return "compiler exception"
	case UnresolvedType:
		return "unresolved type"
	}
	return "internal error"
}

func (k ErrorKind) code() diag.Code {
	switch k {
	case UnsupportedConstruct:
		return diag.CodeUnsupportedConstruct
	case CompilerException:
		return diag.CodeCompilerException
	case UnresolvedType:
		return diag.CodeUnresolvedType
	}
	return diag.CodeInternalStackImbalance
}

// Error is a fatal problem in one compilation unit.
type Error struct {
	Kind    ErrorKind
	Message string
	Span    lexer.Span
}

func (e *Error) Error() string {
	if e.Span.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Span.Filename, e.Span.Line, e.Span.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ToDiagnostic converts the error for reporting.
func (e *Error) ToDiagnostic() diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageCompile,
		Severity: diag.SeverityError,
		Code:     e.Kind.code(),
		Message:  e.Message,
		Span:     toDiagSpan(e.Span),
	}
	switch e.Kind {
	case UnsupportedConstruct:
		d = d.WithPrimarySpan(d.Span, "not supported").
			WithHelp("rewrite this without the construct; the compiler rejects it rather than miscompile it")
	case Internal:
		d = d.WithNote("this is a compiler bug")
	default:
		d = d.WithPrimarySpan(d.Span, "")
	}
	return d
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}

func unsupported(span lexer.Span, construct string) *Error {
	return &Error{Kind: UnsupportedConstruct, Message: fmt.Sprintf("'%s' is not supported", construct), Span: span}
}

func compilerError(span lexer.Span, format string, args ...any) *Error {
	return &Error{Kind: CompilerException, Message: fmt.Sprintf(format, args...), Span: span}
}

func internalError(span lexer.Span, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Span: span}
}

// asError converts class model failures into compile errors.
func asError(err error, span lexer.Span) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	var ute *classes.UnresolvedTypeError
	if errors.As(err, &ute) {
		return &Error{Kind: UnresolvedType, Message: ute.Error(), Span: span}
	}
	return &Error{Kind: CompilerException, Message: err.Error(), Span: span}
}
