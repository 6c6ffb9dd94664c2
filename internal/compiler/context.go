package compiler

import "github.com/serpent-lang/serpent/internal/lexer"

// Context is one lexical region the statement being lowered sits in.
type Context interface {
	context()
}

// FunctionContext marks a function body; break and continue never cross it.
type FunctionContext struct {
	Function *Function
}

// LoopContext carries the branch targets of the innermost loop.
type LoopContext struct {
	Break    *Label
	Continue *Label
}

// ClassContext marks a class body.
type ClassContext struct {
	Class *classState
}

func (*FunctionContext) context() {}
func (*LoopContext) context()     {}
func (*ClassContext) context()    {}

// ContextStack is the lexical nesting of functions, loops and classes.
type ContextStack struct {
	items []Context
}

// Push adds c and returns the function that removes it again. Callers
// defer the returned function so the stack unwinds on every path.
func (s *ContextStack) Push(c Context) (pop func()) {
	s.items = append(s.items, c)
	depth := len(s.items)
	return func() {
		s.items = s.items[:depth-1]
	}
}

// Len returns the nesting depth.
func (s *ContextStack) Len() int { return len(s.items) }

// Loop finds the innermost loop for a break or continue statement named
// keyword. A function or class boundary met first is an error.
func (s *ContextStack) Loop(keyword string, span lexer.Span) (*LoopContext, error) {
	for i := len(s.items) - 1; i >= 0; i-- {
		switch c := s.items[i].(type) {
		case *LoopContext:
			return c, nil
		case *FunctionContext:
			return nil, compilerError(span, "'%s' cannot cross the boundary of function '%s'", keyword, c.Function.Name())
		case *ClassContext:
			return nil, compilerError(span, "'%s' cannot cross the boundary of class '%s'", keyword, c.Class.cls.DisplayName())
		}
	}
	return nil, compilerError(span, "'%s' outside loop", keyword)
}

// Function returns the innermost function, or nil at module or class level.
func (s *ContextStack) Function() *FunctionContext {
	for i := len(s.items) - 1; i >= 0; i-- {
		switch c := s.items[i].(type) {
		case *FunctionContext:
			return c
		case *ClassContext:
			return nil
		}
	}
	return nil
}

// Class returns the innermost class body, stopping at a function boundary.
func (s *ContextStack) Class() *ClassContext {
	for i := len(s.items) - 1; i >= 0; i-- {
		switch c := s.items[i].(type) {
		case *ClassContext:
			return c
		case *FunctionContext:
			return nil
		}
	}
	return nil
}
