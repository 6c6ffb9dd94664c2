package compiler

import (
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/lexer"
)

// Symbol is a name the compiler knows statically. Calls through a symbol
// take the static path: the symbol decides how its own call is emitted.
type Symbol interface {
	Name() string
	// Load pushes the symbol's value.
	Load(w *Writer)
	// WriteCall emits a call with the given arguments, leaving the result
	// on the stack.
	WriteCall(w *Writer, args []Expr, kwargs []Keyword)
}

// Keyword is a keyword argument at a call site.
type Keyword struct {
	Name  string
	Value Expr
}

// Variable is a local slot.
type Variable struct {
	name string
	Slot int
	Span lexer.Span
}

func (v *Variable) Name() string { return v.name }

func (v *Variable) Load(w *Writer) { w.LoadLocal(v.Slot, v.name) }

func (v *Variable) WriteCall(w *Writer, args []Expr, kwargs []Keyword) {
	v.Load(w)
	writeArgs(w, args, kwargs)
	w.Invoke("call")
}

// Builtin is a runtime builtin function such as print or len.
type Builtin struct {
	name string
}

func (b *Builtin) Name() string { return b.name }

func (b *Builtin) Load(w *Writer) {
	w.String(b.name)
	w.Invoke("builtinref")
}

func (b *Builtin) WriteCall(w *Writer, args []Expr, kwargs []Keyword) {
	w.String(b.name)
	writeArgs(w, args, kwargs)
	w.Invoke("builtin")
}

// ClassSymbol is a class defined in source; calling it constructs an
// instance.
type ClassSymbol struct {
	Class classes.Class
}

func (c *ClassSymbol) Name() string { return c.Class.DisplayName() }

func (c *ClassSymbol) Load(w *Writer) { w.LoadClass(c.Class.Name()) }

func (c *ClassSymbol) WriteCall(w *Writer, args []Expr, kwargs []Keyword) {
	w.LoadClass(c.Class.Name())
	w.CheckCast(classes.Object)
	writeArgs(w, args, kwargs)
	w.Invoke("call")
}

// ImportSymbol is a module-level name bound by an import statement. Its
// value lives in the importing module's globals.
type ImportSymbol struct {
	Alias     string
	Qualified string
	// Module is the binary name of the importing module.
	Module string
	Span   lexer.Span
}

func (s *ImportSymbol) Name() string { return s.Alias }

func (s *ImportSymbol) Load(w *Writer) {
	w.LoadClass(s.Module)
	w.String(s.Alias)
	w.Invoke("getglobal")
}

func (s *ImportSymbol) WriteCall(w *Writer, args []Expr, kwargs []Keyword) {
	s.Load(w)
	writeArgs(w, args, kwargs)
	w.Invoke("call")
}

// ModuleSymbol is an imported module value: a native module such as math,
// a host package or another source module. Modules are not callable.
type ModuleSymbol struct {
	ImportSymbol
}

// VarTable assigns local slots in declaration order. Slot 0 holds the
// receiver of a method.
type VarTable struct {
	vars  map[string]*Variable
	order []*Variable
	next  int
}

// NewVarTable creates an empty table.
func NewVarTable() *VarTable {
	return &VarTable{vars: make(map[string]*Variable)}
}

// Declare returns the variable called name, allocating a slot on first use.
func (t *VarTable) Declare(name string, span lexer.Span) *Variable {
	if v, ok := t.vars[name]; ok {
		return v
	}
	v := &Variable{name: name, Slot: t.next, Span: span}
	t.next++
	t.vars[name] = v
	t.order = append(t.order, v)
	return v
}

// Lookup finds a declared variable.
func (t *VarTable) Lookup(name string) (*Variable, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// Temp allocates a hidden slot no source name can reach.
func (t *VarTable) Temp() int {
	slot := t.next
	t.next++
	return slot
}

// MaxLocals is the number of slots allocated so far.
func (t *VarTable) MaxLocals() int { return t.next }

// Names returns the declared names in slot order.
func (t *VarTable) Names() []string {
	names := make([]string, len(t.order))
	for i, v := range t.order {
		names[i] = v.name
	}
	return names
}

// FunctionTable keeps every function defined under each name, in
// definition order.
type FunctionTable struct {
	byName map[string][]*Function
	all    []*Function
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{byName: make(map[string][]*Function)}
}

func (t *FunctionTable) Add(f *Function) {
	t.byName[f.Name()] = append(t.byName[f.Name()], f)
	t.all = append(t.all, f)
}

// Last returns the most recent definition of name.
func (t *FunctionTable) Last(name string) (*Function, bool) {
	fns := t.byName[name]
	if len(fns) == 0 {
		return nil, false
	}
	return fns[len(fns)-1], true
}

// ByArity returns the first definition of name accepting n positional
// arguments.
func (t *FunctionTable) ByArity(name string, n int) (*Function, bool) {
	for _, f := range t.byName[name] {
		if f.Accepts(n) {
			return f, true
		}
	}
	return nil, false
}

// All returns every function in definition order.
func (t *FunctionTable) All() []*Function { return t.all }

// ImportTable maps the names bound by module-level imports.
type ImportTable struct {
	entries map[string]Symbol
}

func NewImportTable() *ImportTable {
	return &ImportTable{entries: make(map[string]Symbol)}
}

// Bind records sym under its alias, replacing an earlier import.
func (t *ImportTable) Bind(sym Symbol) {
	t.entries[sym.Name()] = sym
}

// Lookup finds the import bound to alias.
func (t *ImportTable) Lookup(alias string) (Symbol, bool) {
	sym, ok := t.entries[alias]
	return sym, ok
}

// Qualified returns the dotted name alias refers to.
func (t *ImportTable) Qualified(alias string) (string, bool) {
	switch sym := t.entries[alias].(type) {
	case *ImportSymbol:
		return sym.Qualified, true
	case *ModuleSymbol:
		return sym.Qualified, true
	}
	return "", false
}
