package compiler

import (
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/lexer"
	"github.com/serpent-lang/serpent/internal/runtime"
)

// Label is a branch target together with the operand stack expected there.
type Label struct {
	l     *classfile.Label
	stack []classes.Type
	seen  bool
}

// Writer emits the code of one method. It simulates the operand stack so
// every statement can be checked for balance, and remembers the first
// internal error instead of failing each call.
type Writer struct {
	code *classfile.CodeBuilder
	pool *classfile.Pool

	// stack holds the static type of each operand slot.
	stack    []classes.Type
	maxStack int

	// dead is set after an unconditional transfer until the next label.
	dead bool

	loc lexer.Span
	err *Error
}

// NewWriter creates a writer emitting into a fresh method body whose
// constants go to pool.
func NewWriter(pool *classfile.Pool) *Writer {
	return &Writer{code: &classfile.CodeBuilder{}, pool: pool}
}

// Err returns the first internal error recorded.
func (w *Writer) Err() *Error { return w.err }

func (w *Writer) fail(format string, args ...any) {
	if w.err == nil {
		w.err = internalError(w.loc, format, args...)
	}
}

// At records the source position of the code that follows.
func (w *Writer) At(span lexer.Span) {
	if span.Line <= 0 {
		return
	}
	w.loc = span
	w.code.MarkLine(span.Line)
}

// Location returns the last recorded position.
func (w *Writer) Location() lexer.Span { return w.loc }

// Depth returns the simulated operand stack depth.
func (w *Writer) Depth() int { return len(w.stack) }

// Top returns the static type on top of the stack.
func (w *Writer) Top() classes.Type {
	if len(w.stack) == 0 {
		return classes.Void
	}
	return w.stack[len(w.stack)-1]
}

// MaxStack returns the deepest stack seen.
func (w *Writer) MaxStack() int { return w.maxStack }

// Reachable reports whether the next instruction can execute.
func (w *Writer) Reachable() bool { return !w.dead }

func (w *Writer) push(t classes.Type) {
	w.stack = append(w.stack, t)
	if len(w.stack) > w.maxStack {
		w.maxStack = len(w.stack)
	}
}

func (w *Writer) pop(n int) {
	if n > len(w.stack) {
		w.fail("operand stack underflow: need %d, have %d", n, len(w.stack))
		w.stack = w.stack[:0]
		return
	}
	w.stack = w.stack[:len(w.stack)-n]
}

func (w *Writer) emit(op classfile.Opcode, a, b int32) {
	w.code.Emit(op, a, b)
}

// Const pushes a pool constant of static type t.
func (w *Writer) Const(c classfile.Constant, t classes.Type) {
	w.emit(classfile.OpConst, w.pool.Add(c), 0)
	w.push(t)
}

// String pushes a string constant.
func (w *Writer) String(s string) {
	w.Const(classfile.Constant{Kind: classfile.ConstString, Value: s}, classes.Str)
}

// Bool pushes a boolean constant.
func (w *Writer) Bool(b bool) {
	w.Const(classfile.Constant{Kind: classfile.ConstBool, Value: b}, classes.Boolean)
}

func (w *Writer) None() {
	w.emit(classfile.OpNone, 0, 0)
	w.push(classes.Object)
}

func (w *Writer) Load(slot int, t classes.Type) {
	w.emit(classfile.OpLoad, int32(slot), 0)
	w.push(t)
}

// LoadLocal pushes the local variable name held in slot.
func (w *Writer) LoadLocal(slot int, name string) {
	w.emit(classfile.OpLoad, int32(slot), w.pool.String(name)+1)
	w.push(classes.Object)
}

// Unbind unbinds the local variable name held in slot.
func (w *Writer) Unbind(slot int, name string) {
	w.emit(classfile.OpUnbind, int32(slot), w.pool.String(name)+1)
}

func (w *Writer) Store(slot int) {
	w.pop(1)
	w.emit(classfile.OpStore, int32(slot), 0)
}

func (w *Writer) Pop() {
	w.pop(1)
	w.emit(classfile.OpPop, 0, 0)
}

func (w *Writer) Dup() {
	t := w.Top()
	if w.Depth() == 0 {
		w.fail("dup on empty stack")
		return
	}
	w.emit(classfile.OpDup, 0, 0)
	w.push(t)
}

func (w *Writer) Swap() {
	n := len(w.stack)
	if n < 2 {
		w.fail("swap needs two operands, have %d", n)
		return
	}
	w.stack[n-1], w.stack[n-2] = w.stack[n-2], w.stack[n-1]
	w.emit(classfile.OpSwap, 0, 0)
}

// LoadClass pushes the class value named by its binary name.
func (w *Writer) LoadClass(binaryName string) {
	w.emit(classfile.OpLoadClass, w.pool.Class(binaryName), 0)
	w.push(classes.ObjectType(binaryName))
}

// CheckCast narrows the static type of the top of stack.
func (w *Writer) CheckCast(t classes.Type) {
	if w.Depth() == 0 {
		w.fail("checkcast on empty stack")
		return
	}
	w.emit(classfile.OpCheckCast, w.pool.Class(t.BinaryName()), 0)
	w.stack[len(w.stack)-1] = t
}

// Build pops n values (pairs for kwargs and dicts) into a collection.
func (w *Writer) Build(op classfile.Opcode, n int) {
	var t classes.Type
	popped := n
	switch op {
	case classfile.OpBuildArray:
		t = classes.ArrayOf(classes.Object)
	case classfile.OpBuildList:
		t = classes.List
	case classfile.OpBuildTuple:
		t = classes.Tuple
	case classfile.OpBuildKwargs, classfile.OpBuildDict:
		t = classes.Dict
		popped = 2 * n
	default:
		w.fail("%s is not a build instruction", op)
		return
	}
	w.pop(popped)
	w.emit(op, int32(n), 0)
	w.push(t)
}

// Invoke calls the runtime entry point name, popping its parameters and
// pushing its result unless it returns void.
func (w *Writer) Invoke(name string) classes.Type {
	entry, ok := runtime.LookupEntry(name)
	if !ok {
		w.fail("unknown runtime entry %q", name)
		return classes.Void
	}
	w.pop(len(entry.Params))
	w.emit(classfile.OpInvokeStatic, w.pool.String(entry.Name), w.pool.String(entry.Desc))
	if entry.Return != classes.Void {
		w.push(entry.Return)
	}
	return entry.Return
}

// InvokeDyn pops owner, args array and kwargs map and pushes the result of
// calling member name on owner.
func (w *Writer) InvokeDyn(name string) {
	w.pop(3)
	w.emit(classfile.OpInvokeDyn, w.pool.String(name), 0)
	w.push(classes.Object)
}

// TruthCast converts the top of stack to a bool unless it already is one.
func (w *Writer) TruthCast() {
	if w.Top() != classes.Boolean {
		w.Invoke("truth")
	}
}

func (w *Writer) Return() {
	w.emit(classfile.OpReturn, 0, 0)
	w.dead = true
}

func (w *Writer) ReturnValue() {
	w.pop(1)
	w.emit(classfile.OpReturnValue, 0, 0)
	w.dead = true
}

// NewLabel allocates an unbound label.
func (w *Writer) NewLabel() *Label {
	return &Label{l: w.code.NewLabel()}
}

// note records or merges the stack expected at l.
func (w *Writer) note(l *Label, stack []classes.Type) {
	if !l.seen {
		l.stack = append([]classes.Type(nil), stack...)
		l.seen = true
		return
	}
	if len(l.stack) != len(stack) {
		w.fail("stack depth %d at branch does not match %d at its target", len(stack), len(l.stack))
		return
	}
	for i := range stack {
		if l.stack[i] != stack[i] {
			l.stack[i] = classes.Object
		}
	}
}

// Jump emits a branch to l. Conditional compares pop their operands first.
func (w *Writer) Jump(op classfile.Opcode, l *Label) {
	switch op {
	case classfile.OpGoto:
	case classfile.OpIfTrue, classfile.OpIfFalse:
		w.pop(1)
	case classfile.OpIfICmpEQ, classfile.OpIfICmpNE:
		w.pop(2)
	default:
		w.fail("%s is not a branch", op)
		return
	}
	if !w.dead {
		w.note(l, w.stack)
	}
	w.code.Jump(op, l.l)
	if op == classfile.OpGoto {
		w.dead = true
	}
}

// Bind places l at the current position. Code after an unconditional
// transfer adopts the stack recorded by the branches to l.
func (w *Writer) Bind(l *Label) {
	if err := w.code.Bind(l.l); err != nil {
		w.fail("%v", err)
		return
	}
	switch {
	case w.dead && l.seen:
		w.stack = append(w.stack[:0], l.stack...)
	case !w.dead:
		w.note(l, w.stack)
		w.stack = append(w.stack[:0], l.stack...)
	}
	w.dead = false
}

// Finish resolves branches and returns the method body.
func (w *Writer) Finish() ([]classfile.Instruction, []classfile.LineEntry, *Error) {
	code, lines, err := w.code.Finish()
	if err != nil {
		w.fail("%v", err)
	}
	return code, lines, w.err
}
