package compiler

import (
	"strings"
	"testing"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/lexer"
)

func TestWriterTracksEntryEffects(t *testing.T) {
	var pool classfile.Pool
	w := NewWriter(&pool)

	w.None()
	w.String("name")
	if got := w.Invoke("getattr"); got != classes.Object {
		t.Fatalf("getattr returns %s", got)
	}
	if w.Depth() != 1 {
		t.Fatalf("depth = %d, want 1", w.Depth())
	}
	w.Invoke("truth")
	if w.Top() != classes.Boolean {
		t.Fatalf("truth should leave a bool, top is %s", w.Top())
	}
	w.TruthCast()
	w.Pop()

	w.None()
	w.String("x")
	w.None()
	if got := w.Invoke("setattr"); got != classes.Void || w.Depth() != 0 {
		t.Fatalf("setattr: returned %s, depth %d", got, w.Depth())
	}
	if w.MaxStack() != 3 {
		t.Fatalf("max stack = %d, want 3", w.MaxStack())
	}
	if err := w.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriterReportsUnderflow(t *testing.T) {
	var pool classfile.Pool
	w := NewWriter(&pool)
	w.Pop()
	if w.Err() == nil || w.Err().Kind != Internal {
		t.Fatalf("expected an internal error, got %v", w.Err())
	}
}

func TestWriterRejectsMismatchedBranches(t *testing.T) {
	var pool classfile.Pool
	w := NewWriter(&pool)
	end := w.NewLabel()

	w.Bool(true)
	w.Bool(true)
	w.Jump(classfile.OpIfICmpEQ, end)
	w.None()
	w.Bind(end)

	if w.Err() == nil || !strings.Contains(w.Err().Message, "does not match") {
		t.Fatalf("expected a depth mismatch, got %v", w.Err())
	}
}

func TestWriterMergesTypesAtLabels(t *testing.T) {
	var pool classfile.Pool
	w := NewWriter(&pool)
	otherwise, end := w.NewLabel(), w.NewLabel()

	w.Bool(true)
	w.Bool(true)
	w.Jump(classfile.OpIfICmpNE, otherwise)
	w.Bool(false)
	w.Jump(classfile.OpGoto, end)
	if w.Reachable() {
		t.Fatalf("code after goto should be unreachable")
	}
	w.Bind(otherwise)
	w.String("s")
	w.Bind(end)

	if w.Depth() != 1 || w.Top() != classes.Object {
		t.Fatalf("merged top = %s at depth %d", w.Top(), w.Depth())
	}
	w.Pop()
	w.Return()
	if _, _, err := w.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestWriterFinishRejectsUnboundLabel(t *testing.T) {
	var pool classfile.Pool
	w := NewWriter(&pool)
	w.Jump(classfile.OpGoto, w.NewLabel())
	if _, _, err := w.Finish(); err == nil {
		t.Fatalf("expected an error for an unbound label")
	}
}

func TestContextStack(t *testing.T) {
	var s ContextStack
	span := lexer.Span{Filename: "t.py", Line: 3, Column: 1}

	if _, err := s.Loop("break", span); err == nil {
		t.Fatalf("break with no loop should fail")
	}

	popLoop := s.Push(&LoopContext{})
	loop, err := s.Loop("continue", span)
	if err != nil || loop == nil {
		t.Fatalf("loop not found: %v", err)
	}

	fn := &Function{name: "inner"}
	popFn := s.Push(&FunctionContext{Function: fn})
	if _, err := s.Loop("break", span); err == nil || !strings.Contains(err.Error(), "function 'inner'") {
		t.Fatalf("expected a function boundary error, got %v", err)
	}
	if got := s.Function(); got == nil || got.Function != fn {
		t.Fatalf("innermost function not found")
	}

	popFn()
	if _, err := s.Loop("break", span); err != nil {
		t.Fatalf("loop should be visible again: %v", err)
	}
	popLoop()
	if s.Len() != 0 {
		t.Fatalf("stack not empty after pops: %d", s.Len())
	}
}

func TestFunctionTable(t *testing.T) {
	one := &Function{name: "f", Params: []Param{{Name: "a"}}}
	two := &Function{name: "f", Params: []Param{{Name: "a"}, {Name: "b", Default: NewConstant(int64(1), lexer.Span{})}}}
	varargs := &Function{name: "f", Params: []Param{{Name: "rest", Kind: classfile.ParamVarArgs}}}

	table := NewFunctionTable()
	table.Add(one)
	table.Add(two)
	table.Add(varargs)

	if last, _ := table.Last("f"); last != varargs {
		t.Fatalf("last writer should win")
	}
	tests := []struct {
		n    int
		want *Function
	}{
		{0, varargs},
		{1, one},
		{2, two},
		{5, varargs},
	}
	for _, tt := range tests {
		got, ok := table.ByArity("f", tt.n)
		if !ok || got != tt.want {
			t.Fatalf("ByArity(%d) picked the wrong definition", tt.n)
		}
	}
	if _, ok := table.Last("g"); ok {
		t.Fatalf("unexpected function g")
	}
}
