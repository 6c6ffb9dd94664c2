package runtime

import (
	"errors"
	"fmt"
)

// ErrNoAttribute is returned by a catch-all getter, setter or deleter to let
// the lookup fall through to the backing store.
var ErrNoAttribute = errors.New("no such attribute")

// AttributeError reports a failed attribute lookup, assignment or deletion.
type AttributeError struct {
	Name   string
	Object string
}

func (e *AttributeError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("AttributeError: %s", e.Name)
	}
	return fmt.Sprintf("AttributeError: '%s' object has no attribute '%s'", e.Object, e.Name)
}

// ExceptionKind names a builtin exception class.
type ExceptionKind string

const (
	TypeError         ExceptionKind = "TypeError"
	NameError         ExceptionKind = "NameError"
	IndexError        ExceptionKind = "IndexError"
	KeyError          ExceptionKind = "KeyError"
	ValueError        ExceptionKind = "ValueError"
	ZeroDivisionError ExceptionKind = "ZeroDivisionError"
	ImportError       ExceptionKind = "ImportError"
	StopIteration     ExceptionKind = "StopIteration"
	RuntimeError      ExceptionKind = "RuntimeError"
	OverflowError     ExceptionKind = "OverflowError"
	UnboundLocalError ExceptionKind = "UnboundLocalError"
)

// Exception is a program error raised by the runtime library.
type Exception struct {
	Kind    ExceptionKind
	Message string
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Raise builds an Exception of the given kind.
func Raise(kind ExceptionKind, format string, args ...any) error {
	return &Exception{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an Exception of the given kind.
func IsKind(err error, kind ExceptionKind) bool {
	var exc *Exception
	return errors.As(err, &exc) && exc.Kind == kind
}
