package compiler

import (
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/lexer"
	"github.com/serpent-lang/serpent/internal/runtime"
)

// Expr is a lowered expression. Lowering runs in two steps: Prepare emits
// sub-evaluations that must precede the expression's own code (the callee
// of a dynamic call), then WriteCode emits the rest.
type Expr interface {
	Location() lexer.Span
	// Type is the static type of the pushed value, Void when none.
	Type() classes.Type
	Prepare(w *Writer)
	WriteCode(w *Writer)
}

// Settable expressions can be assignment targets. Set consumes the value
// on top of the stack.
type Settable interface {
	Expr
	Set(w *Writer)
}

// Deletable expressions can be del targets.
type Deletable interface {
	Expr
	Delete(w *Writer)
}

// Write emits e and returns Object when it pushed a value, Void otherwise.
func Write(w *Writer, e Expr) classes.Type {
	w.At(e.Location())
	before := w.Depth()
	e.Prepare(w)
	e.WriteCode(w)
	if w.Depth() > before {
		return classes.Object
	}
	return classes.Void
}

// writeValue emits e, which must push exactly one value.
func writeValue(w *Writer, e Expr) {
	before := w.Depth()
	Write(w, e)
	if w.Depth() != before+1 {
		w.fail("expression at %d:%d left %d values, want 1", e.Location().Line, e.Location().Column, w.Depth()-before)
	}
}

// writeArgs pushes the positional array and the keyword map of a call.
func writeArgs(w *Writer, args []Expr, kwargs []Keyword) {
	for _, a := range args {
		writeValue(w, a)
	}
	w.Build(classfile.OpBuildArray, len(args))
	for _, kw := range kwargs {
		w.String(kw.Name)
		writeValue(w, kw.Value)
	}
	w.Build(classfile.OpBuildKwargs, len(kwargs))
}

type exprBase struct {
	span lexer.Span
}

func (b exprBase) Location() lexer.Span { return b.span }
func (b exprBase) Type() classes.Type   { return classes.Object }
func (exprBase) Prepare(*Writer)        {}

// Constant is a literal value from the constant pool, None, or a class
// value.
type Constant struct {
	exprBase
	c     classfile.Constant
	typ   classes.Type
	none  bool
	class string
}

// NewConstant creates a literal. value is nil (None), string, a sized
// integer or float, bool, or runtime.Char.
func NewConstant(value any, span lexer.Span) *Constant {
	k := &Constant{exprBase: exprBase{span}, typ: classes.Object}
	switch v := value.(type) {
	case nil:
		k.none = true
	case string:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstString, Value: v}, classes.Str
	case int8:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstInt8, Value: v}, classes.PyInt
	case int16:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstInt16, Value: v}, classes.PyInt
	case int32:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstInt32, Value: v}, classes.PyInt
	case int64:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstInt64, Value: v}, classes.PyInt
	case float32:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstFloat32, Value: v}, classes.PyFloat
	case float64:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstFloat64, Value: v}, classes.PyFloat
	case bool:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstBool, Value: v}, classes.Boolean
	case runtime.Char:
		k.c, k.typ = classfile.Constant{Kind: classfile.ConstChar, Value: rune(v)}, classes.Char
	default:
		panic("compiler: unsupported constant type")
	}
	return k
}

// NewClassConstant pushes the class value with the given binary name.
func NewClassConstant(binaryName string, span lexer.Span) *Constant {
	return &Constant{exprBase: exprBase{span}, class: binaryName, typ: classes.ObjectType(binaryName)}
}

func (k *Constant) Type() classes.Type { return k.typ }

// Pool returns the pool entry of the literal; ok is false for None and
// class values.
func (k *Constant) Pool() (classfile.Constant, bool) {
	return k.c, !k.none && k.class == ""
}

func (k *Constant) WriteCode(w *Writer) {
	switch {
	case k.none:
		w.None()
	case k.class != "":
		w.LoadClass(k.class)
	default:
		w.Const(k.c, k.typ)
	}
}

// VariableRef reads or writes a local slot.
type VariableRef struct {
	exprBase
	v *Variable
}

func (r *VariableRef) WriteCode(w *Writer) { r.v.Load(w) }
func (r *VariableRef) Set(w *Writer)       { w.Store(r.v.Slot) }

func (r *VariableRef) Delete(w *Writer) { w.Unbind(r.v.Slot, r.v.name) }

// SelfRef is the receiver of the method being compiled.
type SelfRef struct {
	exprBase
}

func (SelfRef) WriteCode(w *Writer) { w.Load(0, classes.Object) }
func (SelfRef) Set(w *Writer)       { w.Store(0) }

// setNamed stores the value on top of the stack as attribute name of the
// class value owner.
func setNamed(w *Writer, owner, name string) {
	w.LoadClass(owner)
	w.Swap()
	w.String(name)
	w.Swap()
	w.Invoke("setattr")
}

// GlobalRef is a module-level name looked up at run time, falling back to
// the builtins.
type GlobalRef struct {
	exprBase
	Module string
	Name   string
}

func (r *GlobalRef) WriteCode(w *Writer) {
	w.LoadClass(r.Module)
	w.String(r.Name)
	w.Invoke("getglobal")
}

func (r *GlobalRef) Set(w *Writer) { setNamed(w, r.Module, r.Name) }

func (r *GlobalRef) Delete(w *Writer) {
	w.LoadClass(r.Module)
	w.String(r.Name)
	w.Invoke("delattr")
}

// ClassAttrRef is a name bound in the class body being compiled.
type ClassAttrRef struct {
	exprBase
	Class string
	Name  string
}

func (r *ClassAttrRef) WriteCode(w *Writer) {
	w.LoadClass(r.Class)
	w.String(r.Name)
	w.Invoke("getattr")
}

func (r *ClassAttrRef) Set(w *Writer) { setNamed(w, r.Class, r.Name) }

func (r *ClassAttrRef) Delete(w *Writer) {
	w.LoadClass(r.Class)
	w.String(r.Name)
	w.Invoke("delattr")
}

// SymbolRef is a reference to a statically known symbol.
type SymbolRef struct {
	exprBase
	Sym Symbol
}

func (r *SymbolRef) WriteCode(w *Writer) { r.Sym.Load(w) }

// MemberAttr is parent.name.
type MemberAttr struct {
	exprBase
	Parent Expr
	Name   string
}

func (m *MemberAttr) WriteCode(w *Writer) {
	writeValue(w, m.Parent)
	w.String(m.Name)
	w.Invoke("getattr")
}

func (m *MemberAttr) Set(w *Writer) {
	writeValue(w, m.Parent)
	w.Swap()
	w.String(m.Name)
	w.Swap()
	w.Invoke("setattr")
}

func (m *MemberAttr) Delete(w *Writer) {
	writeValue(w, m.Parent)
	w.String(m.Name)
	w.Invoke("delattr")
}

// MemberItem is parent[key] in read position.
type MemberItem struct {
	exprBase
	Parent Expr
	Key    Expr
}

func (m *MemberItem) WriteCode(w *Writer) {
	writeValue(w, m.Parent)
	writeValue(w, m.Key)
	w.Invoke("getitem")
}

// ItemTarget is parent[key] as an assignment or del target.
type ItemTarget struct {
	*MemberItem
}

func (t ItemTarget) Set(w *Writer) {
	writeValue(w, t.Parent)
	w.Swap()
	writeValue(w, t.Key)
	w.Swap()
	w.Invoke("setitem")
}

func (t ItemTarget) Delete(w *Writer) {
	writeValue(w, t.Parent)
	writeValue(w, t.Key)
	w.Invoke("delitem")
}

// MemberCall is a call. A SymbolRef callee takes the static path through
// the symbol; an attribute callee is invoked by member name; anything else
// is evaluated and called.
type MemberCall struct {
	exprBase
	Callee Expr
	Args   []Expr
	Kwargs []Keyword
}

// Static reports whether the call is emitted by a known symbol.
func (c *MemberCall) Static() bool {
	_, ok := c.Callee.(*SymbolRef)
	return ok
}

func (c *MemberCall) Prepare(w *Writer) {
	switch callee := c.Callee.(type) {
	case *SymbolRef:
	case *MemberAttr:
		writeValue(w, callee.Parent)
	default:
		writeValue(w, callee)
	}
}

func (c *MemberCall) WriteCode(w *Writer) {
	switch callee := c.Callee.(type) {
	case *SymbolRef:
		callee.Sym.WriteCall(w, c.Args, c.Kwargs)
	case *MemberAttr:
		w.String(callee.Name)
		writeArgs(w, c.Args, c.Kwargs)
		w.Invoke("callmember")
	default:
		writeArgs(w, c.Args, c.Kwargs)
		w.Invoke("call")
	}
}

// Comparison is a possibly chained comparison. Every operator is its own
// runtime entry point; chained operands are evaluated once.
type Comparison struct {
	exprBase
	Left        Expr
	Ops         []string
	Comparators []Expr
	// Temp holds the shared operand of a chain; unused for one operator.
	Temp int
}

func (*Comparison) Type() classes.Type { return classes.Boolean }

func (c *Comparison) WriteCode(w *Writer) {
	end := w.NewLabel()
	last := len(c.Ops) - 1

	writeValue(w, c.Left)
	for i, op := range c.Ops {
		writeValue(w, c.Comparators[i])
		if i < last {
			w.Dup()
			w.Store(c.Temp)
		}
		w.Invoke(op)
		if i < last {
			w.Dup()
			w.Bool(false)
			w.Jump(classfile.OpIfICmpEQ, end)
			w.Pop()
			w.Load(c.Temp, classes.Object)
		}
	}
	if last > 0 {
		w.Bind(end)
	}
}

// BinaryOp is an arithmetic or bitwise operator.
type BinaryOp struct {
	exprBase
	Entry string
	X, Y  Expr
}

func (b *BinaryOp) WriteCode(w *Writer) {
	writeValue(w, b.X)
	writeValue(w, b.Y)
	w.Invoke(b.Entry)
}

// UnaryOp is -x, +x or ~x.
type UnaryOp struct {
	exprBase
	Entry string
	X     Expr
}

func (u *UnaryOp) WriteCode(w *Writer) {
	writeValue(w, u.X)
	w.Invoke(u.Entry)
}

// Not is the boolean negation of X's truth value.
type Not struct {
	exprBase
	X Expr
}

func (*Not) Type() classes.Type { return classes.Boolean }

func (n *Not) WriteCode(w *Writer) {
	writeValue(w, n.X)
	w.Invoke("not")
}

// BoolOp is a short-circuit and/or yielding the deciding operand.
type BoolOp struct {
	exprBase
	And  bool
	X, Y Expr
}

func (b *BoolOp) Type() classes.Type {
	if b.X.Type() == classes.Boolean && b.Y.Type() == classes.Boolean {
		return classes.Boolean
	}
	return classes.Object
}

func (b *BoolOp) WriteCode(w *Writer) {
	end := w.NewLabel()
	writeValue(w, b.X)
	w.Dup()
	w.TruthCast()
	w.Bool(true)
	if b.And {
		w.Jump(classfile.OpIfICmpNE, end)
	} else {
		w.Jump(classfile.OpIfICmpEQ, end)
	}
	w.Pop()
	writeValue(w, b.Y)
	w.Bind(end)
}

// Conditional is then if cond else otherwise.
type Conditional struct {
	exprBase
	Cond, Then, Else Expr
}

func (c *Conditional) WriteCode(w *Writer) {
	otherwise, end := w.NewLabel(), w.NewLabel()
	writeCondition(w, c.Cond, otherwise)
	writeValue(w, c.Then)
	w.Jump(classfile.OpGoto, end)
	w.Bind(otherwise)
	writeValue(w, c.Else)
	w.Bind(end)
}

// writeCondition evaluates cond and branches to target when it is false.
func writeCondition(w *Writer, cond Expr, target *Label) {
	writeValue(w, cond)
	w.TruthCast()
	w.Bool(true)
	w.Jump(classfile.OpIfICmpNE, target)
}

// ListLit and TupleLit build a collection from their elements.
type ListLit struct {
	exprBase
	Elts []Expr
}

func (*ListLit) Type() classes.Type { return classes.List }

func (l *ListLit) WriteCode(w *Writer) {
	for _, e := range l.Elts {
		writeValue(w, e)
	}
	w.Build(classfile.OpBuildList, len(l.Elts))
}

type TupleLit struct {
	exprBase
	Elts []Expr
}

func (*TupleLit) Type() classes.Type { return classes.Tuple }

func (t *TupleLit) WriteCode(w *Writer) {
	for _, e := range t.Elts {
		writeValue(w, e)
	}
	w.Build(classfile.OpBuildTuple, len(t.Elts))
}

// DictLit builds an insertion-ordered dict.
type DictLit struct {
	exprBase
	Keys, Values []Expr
}

func (*DictLit) Type() classes.Type { return classes.Dict }

func (d *DictLit) WriteCode(w *Writer) {
	for i := range d.Keys {
		writeValue(w, d.Keys[i])
		writeValue(w, d.Values[i])
	}
	w.Build(classfile.OpBuildDict, len(d.Keys))
}

// UnpackTarget assigns the elements of a sequence to several targets.
type UnpackTarget struct {
	exprBase
	Targets []Settable
}

func (u *UnpackTarget) WriteCode(w *Writer) {
	w.fail("unpacking target used as a value")
}

func (u *UnpackTarget) Set(w *Writer) {
	for i, t := range u.Targets {
		w.Dup()
		w.Const(classfile.Constant{Kind: classfile.ConstInt64, Value: int64(i)}, classes.PyInt)
		w.Invoke("getitem")
		t.Set(w)
	}
	w.Pop()
}

// Assignment evaluates Value once and stores it into every target, leaving
// the value on the stack.
type Assignment struct {
	exprBase
	Targets []Settable
	Value   Expr
}

func (a *Assignment) WriteCode(w *Writer) {
	writeValue(w, a.Value)
	for _, t := range a.Targets {
		w.Dup()
		t.Set(w)
	}
}
