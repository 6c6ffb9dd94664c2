package runtime

import (
	"bytes"
	"math"
	"testing"

	"github.com/serpent-lang/serpent/internal/classes"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b any) (any, error)
		a, b any
		want any
	}{
		{"int add", Add, int64(2), int64(3), int64(5)},
		{"mixed add", Add, int64(1), 2.5, 3.5},
		{"str add", Add, "ab", "cd", "abcd"},
		{"floor div rounds down", FloorDiv, int64(-7), int64(2), int64(-4)},
		{"mod takes divisor sign", Mod, int64(-7), int64(2), int64(1)},
		{"int pow", Pow, int64(2), int64(10), int64(1024)},
		{"negative pow", Pow, int64(2), int64(-1), 0.5},
		{"true div", TrueDiv, int64(7), int64(2), 3.5},
		{"str repeat", Mul, "ab", int64(3), "ababab"},
		{"repeat reversed", Mul, int64(2), "x", "xx"},
		{"shift", LShift, int64(1), int64(4), int64(16)},
		{"bool and", BitAnd, true, false, false},
		{"largest pow", Pow, int64(-2), int64(63), int64(math.MinInt64)},
		{"add to max", Add, int64(math.MaxInt64 - 1), int64(1), int64(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	if _, err := TrueDiv(int64(1), int64(0)); !IsKind(err, ZeroDivisionError) {
		t.Fatalf("expected ZeroDivisionError, got %v", err)
	}
	if _, err := Sub("a", int64(1)); !IsKind(err, TypeError) {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestIntegerOverflow(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b any) (any, error)
		a, b any
	}{
		{"pow", Pow, int64(2), int64(64)},
		{"add", Add, int64(math.MaxInt64), int64(1)},
		{"sub", Sub, int64(math.MinInt64), int64(1)},
		{"mul", Mul, int64(math.MaxInt64), int64(2)},
		{"floor div", FloorDiv, int64(math.MinInt64), int64(-1)},
		{"shift", LShift, int64(1), int64(63)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(tt.a, tt.b); !IsKind(err, OverflowError) {
				t.Fatalf("expected OverflowError, got %v", err)
			}
		})
	}

	if _, err := Neg(int64(math.MinInt64)); !IsKind(err, OverflowError) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
}

func TestComparisons(t *testing.T) {
	if !Equal(int64(1), 1.0) {
		t.Fatalf("1 == 1.0 must hold")
	}
	if !Equal(NewList(1, "a"), NewList(int64(1), "a")) {
		t.Fatalf("lists with equal items must compare equal")
	}
	if Equal(NewList(), Tuple{}) {
		t.Fatalf("a list never equals a tuple")
	}
	if less, err := Less(Tuple{int64(1), int64(2)}, Tuple{int64(1), int64(3)}); err != nil || !less {
		t.Fatalf("tuple ordering is lexicographic: %v %v", less, err)
	}
	if _, err := Less("a", int64(1)); !IsKind(err, TypeError) {
		t.Fatalf("expected TypeError comparing str and int, got %v", err)
	}

	l := NewList()
	if !Is(l, l) || Is(l, NewList()) {
		t.Fatalf("identity must follow references")
	}
	if ok, _ := Contains("hello", "ell"); !ok {
		t.Fatalf("substring membership failed")
	}
	if ok, _ := Contains(&Range{Start: 0, Stop: 10, Step: 3}, int64(9)); !ok {
		t.Fatalf("range membership failed")
	}
}

func TestTruth(t *testing.T) {
	falsy := []any{nil, false, int64(0), 0.0, "", NewList(), Tuple{}, NewDict(), &Range{Step: 1}}
	for _, v := range falsy {
		if Truth(v) {
			t.Fatalf("%s should be false", Repr(v))
		}
	}
	if !Truth("x") || !Truth(int64(-1)) || !Truth(NewList(nil)) {
		t.Fatalf("non-empty values should be true")
	}
}

func TestRepr(t *testing.T) {
	d := NewDict()
	_ = d.Set("k", Tuple{int64(1)})

	tests := []struct {
		v    any
		want string
	}{
		{NewList(int64(1), "a", nil, 1.0, true), "[1, 'a', None, 1.0, True]"},
		{d, "{'k': (1,)}"},
		{"it's", `"it's"`},
		{math.Inf(1), "inf"},
		{&Range{Start: 0, Stop: 3, Step: 1}, "range(0, 3)"},
	}
	for _, tt := range tests {
		if got := Repr(tt.v); got != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestDictKeepsInsertionOrder(t *testing.T) {
	d := NewDict()
	for _, k := range []any{"b", "a", int64(1)} {
		if err := d.Set(k, k); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	_ = d.Set(1.0, "one")
	if err := d.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := Repr(d); got != "{'b': 'b', 1: 'one'}" {
		t.Fatalf("unexpected dict %s", got)
	}
	if err := d.Set(NewList(), 1); !IsKind(err, TypeError) {
		t.Fatalf("lists are unhashable, got %v", err)
	}
	if _, err := GetItem(d, "missing"); !IsKind(err, KeyError) {
		t.Fatalf("expected KeyError, got %v", err)
	}
}

func TestIterateRange(t *testing.T) {
	items, err := Collect(&Range{Start: 0, Stop: 5, Step: 2})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := Repr(Tuple(items)); got != "(0, 2, 4)" {
		t.Fatalf("unexpected items %s", got)
	}

	items, _ = Collect(&Range{Start: 3, Stop: 0, Step: -1})
	if got := Repr(Tuple(items)); got != "(3, 2, 1)" {
		t.Fatalf("unexpected items %s", got)
	}
}

func TestItems(t *testing.T) {
	l := NewList(int64(1), int64(2), int64(3))
	if v, _ := GetItem(l, int64(-1)); v != int64(3) {
		t.Fatalf("negative index failed: %v", v)
	}
	if _, err := GetItem(l, int64(3)); !IsKind(err, IndexError) {
		t.Fatalf("expected IndexError, got %v", err)
	}
	if err := SetItem(l, int64(0), "x"); err != nil {
		t.Fatalf("setitem: %v", err)
	}
	if err := DelItem(l, int64(1)); err != nil {
		t.Fatalf("delitem: %v", err)
	}
	if Repr(l) != "['x', 3]" {
		t.Fatalf("unexpected list %s", Repr(l))
	}
}

func invokeEntry(t *testing.T, env *Env, name string, args ...any) (any, error) {
	t.Helper()
	e, ok := LookupEntry(name)
	if !ok {
		t.Fatalf("no entry %q", name)
	}
	if len(args) != len(e.Params) {
		t.Fatalf("%s takes %d operands, got %d", name, len(e.Params), len(args))
	}
	return e.Fn(env, args)
}

func TestPrintBuiltin(t *testing.T) {
	var out bytes.Buffer
	env := NewEnv(&out, nil)

	_, err := invokeEntry(t, env, "builtin", "print", []any{"a", int64(1), 2.0}, map[string]any{"sep": "-", "end": "!\n"})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if out.String() != "a-1-2.0!\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestBuiltins(t *testing.T) {
	env := NewEnv(&bytes.Buffer{}, nil)

	call := func(name string, args ...any) any {
		t.Helper()
		b, ok := env.Builtin(name)
		if !ok {
			t.Fatalf("no builtin %s", name)
		}
		v, err := b.Call(args, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return v
	}

	if call("chr", int64(65)) != "A" || call("ord", "A") != int64(65) {
		t.Fatalf("chr/ord round trip failed")
	}
	if call("len", "héllo") != int64(5) {
		t.Fatalf("len counts characters")
	}
	if call("int", "0x1f", int64(0)) != int64(31) || call("int", 3.9) != int64(3) {
		t.Fatalf("int conversion failed")
	}
	if call("max", int64(3), int64(9), int64(4)) != int64(9) || call("min", NewList(int64(3), int64(1))) != int64(1) {
		t.Fatalf("min/max failed")
	}
	if call("sum", &Range{Start: 1, Stop: 5, Step: 1}) != int64(10) {
		t.Fatalf("sum failed")
	}
	if Repr(call("sorted", NewList("b", "c", "a"))) != "['a', 'b', 'c']" {
		t.Fatalf("sorted failed")
	}
	intType := call("type", int64(3))
	if call("isinstance", true, intType) != true {
		t.Fatalf("bool is an int")
	}
	if call("hex", int64(255)) != "0xff" {
		t.Fatalf("hex failed")
	}
}

func TestGetGlobalFallsBackToBuiltins(t *testing.T) {
	env := NewEnv(&bytes.Buffer{}, nil)
	module := &Module{Name: "m", Attrs: map[string]any{"x": int64(1)}}

	if v, err := env.GetGlobal(module, "x"); err != nil || v != int64(1) {
		t.Fatalf("module global: %v %v", v, err)
	}
	if v, err := env.GetGlobal(module, "len"); err != nil || v.(*Builtin).Name != "len" {
		t.Fatalf("builtin fallback: %v %v", v, err)
	}
	if _, err := env.GetGlobal(module, "undefined_name"); !IsKind(err, NameError) {
		t.Fatalf("expected NameError, got %v", err)
	}
}

func TestMathModule(t *testing.T) {
	env := NewEnv(&bytes.Buffer{}, nil)
	m, err := env.Import("math")
	if err != nil {
		t.Fatalf("import math: %v", err)
	}

	v, err := CallMember(m, "sqrt", []any{int64(16)}, nil)
	if err != nil || v != 4.0 {
		t.Fatalf("sqrt: %v %v", v, err)
	}
	if _, err := CallMember(m, "sqrt", []any{int64(-1)}, nil); !IsKind(err, ValueError) {
		t.Fatalf("expected math domain error, got %v", err)
	}
	if v, _ := CallMember(m, "floor", []any{2.7}, nil); v != int64(2) {
		t.Fatalf("floor returns an int, got %#v", v)
	}
	if pi, _ := GetAttr(m, "pi"); pi != math.Pi {
		t.Fatalf("pi: %v", pi)
	}
	if _, err := env.Import("nowhere"); !IsKind(err, ImportError) {
		t.Fatalf("expected ImportError, got %v", err)
	}
}

func TestEntryDescriptors(t *testing.T) {
	for _, name := range EntryNames() {
		e := Entries[name]
		params, ret, err := classes.ParseMethodDescriptor(e.Desc)
		if err != nil {
			t.Fatalf("%s: bad descriptor %s: %v", name, e.Desc, err)
		}
		if len(params) != len(e.Params) || ret != e.Return {
			t.Fatalf("%s: descriptor %s does not match its signature", name, e.Desc)
		}
	}

	for _, name := range []string{"getattr", "call", "builtin", "iter", "hasnext", "next", "eq", "notin", "truth"} {
		if _, ok := LookupEntry(name); !ok {
			t.Fatalf("missing entry %s", name)
		}
	}
}

func TestIteratorEntries(t *testing.T) {
	env := NewEnv(&bytes.Buffer{}, nil)
	it, err := invokeEntry(t, env, "iter", NewList("a", "b"))
	if err != nil {
		t.Fatalf("iter: %v", err)
	}

	var got []any
	for {
		more, err := invokeEntry(t, env, "hasnext", it)
		if err != nil {
			t.Fatalf("hasnext: %v", err)
		}
		if more != true {
			break
		}
		v, err := invokeEntry(t, env, "next", it)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, v)
	}
	if Repr(Tuple(got)) != "('a', 'b')" {
		t.Fatalf("unexpected items %v", got)
	}
}
