package classfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleFile(t *testing.T) *File {
	t.Helper()

	f := &File{Name: "example/ToLoadPy", SourceFile: "to_load.py", Flags: 0x40}
	var b CodeBuilder

	end := b.NewLabel()
	b.MarkLine(1)
	b.Emit(OpConst, f.Pool.Add(Constant{Kind: ConstBool, Value: true}), 0)
	b.Emit(OpConst, f.Pool.Add(Constant{Kind: ConstBool, Value: true}), 0)
	b.Jump(OpIfICmpNE, end)
	b.MarkLine(2)
	b.Emit(OpConst, f.Pool.String("print"), 0)
	b.Emit(OpConst, f.Pool.String("hi"), 0)
	b.Emit(OpBuildArray, 1, 0)
	b.Emit(OpBuildKwargs, 0, 0)
	b.Emit(OpInvokeStatic, f.Pool.String("builtin"), f.Pool.String("(Lpy/str;[Lpy/object;Lpy/dict;)Lpy/object;"))
	b.Emit(OpPop, 0, 0)
	if err := b.Bind(end); err != nil {
		t.Fatalf("bind: %v", err)
	}
	b.Emit(OpReturn, 0, 0)

	code, lines, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	f.AddMethod(&Method{
		Name:      ClassInit,
		Desc:      "()V",
		Flags:     MethodStatic,
		MaxLocals: 0,
		MaxStack:  4,
		Code:      code,
		Lines:     lines,
	})
	f.AddMethod(&Method{
		Name:  "greet",
		Desc:  "(Lpy/object;)V",
		Flags: MethodStatic,
		Params: []Param{
			{Name: "who", Desc: "Lpy/object;", Kind: ParamDefaulted, Default: f.Pool.String("world")},
		},
		MaxLocals: 1,
		Code:      []Instruction{{Op: OpReturn}},
	})
	f.Pool.Add(Constant{Kind: ConstInt64, Value: int64(-7)})
	f.Pool.Add(Constant{Kind: ConstFloat32, Value: float32(1.5)})
	f.Pool.Add(Constant{Kind: ConstChar, Value: 'x'})
	f.Pool.Add(Constant{Kind: ConstInt8, Value: int8(3)})
	f.Pool.Add(Constant{Kind: ConstInt16, Value: int16(300)})
	f.Pool.Add(Constant{Kind: ConstInt32, Value: int32(70000)})
	f.Pool.Add(Constant{Kind: ConstFloat64, Value: 2.25})
	f.Pool.Class("example/to_load/Greeter")
	f.Supers = []string{"py/object"}

	return f
}

func TestPoolDeduplicates(t *testing.T) {
	var p Pool
	a := p.String("x")
	b := p.String("x")
	c := p.Add(Constant{Kind: ConstClass, Value: "x"})
	if a != b {
		t.Fatalf("equal constants must share an index")
	}
	if a == c {
		t.Fatalf("a class and a string with the same text are distinct constants")
	}
	if _, err := p.Get(99); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestCodeBuilderPatchesForwardJumps(t *testing.T) {
	f := sampleFile(t)
	m := f.Method(ClassInit)

	if m.Code[2].Op != OpIfICmpNE || m.Code[2].A != 9 {
		t.Fatalf("expected branch to pc 9, got %+v", m.Code[2])
	}
	if m.LineAt(0) != 1 || m.LineAt(5) != 2 {
		t.Fatalf("unexpected line table %+v", m.Lines)
	}
}

func TestCodeBuilderRejectsUnboundLabel(t *testing.T) {
	var b CodeBuilder
	b.Jump(OpGoto, b.NewLabel())
	if _, _, err := b.Finish(); err == nil {
		t.Fatalf("expected error for unbound label")
	}
}

func TestAddMethodLastWriterWins(t *testing.T) {
	f := &File{Name: "m/MPy"}
	f.AddMethod(&Method{Name: "f", Desc: "()V", MaxStack: 1})
	f.AddMethod(&Method{Name: "f", Desc: "(Lpy/object;)V"})
	f.AddMethod(&Method{Name: "f", Desc: "()V", MaxStack: 2})

	if len(f.Methods) != 2 {
		t.Fatalf("expected one method per descriptor, got %d", len(f.Methods))
	}
	if got := f.Method("f"); got.Desc != "()V" || got.MaxStack != 2 {
		t.Fatalf("expected the last definition, got %+v", got)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := sampleFile(t)

	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if DumpString(got) != DumpString(f) {
		t.Fatalf("round trip changed the artifact:\n%s\nvs\n%s", DumpString(got), DumpString(f))
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(strings.NewReader("JUNKJUNK")); err == nil {
		t.Fatalf("expected bad magic error")
	}
	if _, err := Read(strings.NewReader("SR")); err == nil {
		t.Fatalf("expected short read error")
	}
}

func TestWriteFileMirrorsBinaryName(t *testing.T) {
	dir := t.TempDir()
	f := sampleFile(t)

	path, err := WriteFile(dir, f)
	if err != nil {
		t.Fatalf("write file: %v", err)
	}
	want := filepath.Join(dir, "example", "ToLoadPy.sclass")
	if path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "example"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files must not remain, found %d entries", len(entries))
	}

	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if back.SourceFile != "to_load.py" {
		t.Fatalf("source file not preserved: %q", back.SourceFile)
	}
}

func TestDump(t *testing.T) {
	out := DumpString(sampleFile(t))

	for _, want := range []string{
		"class example/ToLoadPy",
		"source: to_load.py",
		"method <clinit> ()V [static]",
		`const "hi"`,
		"if_icmpne -> 9",
		"invokestatic builtin (Lpy/str;[Lpy/object;Lpy/dict;)Lpy/object;",
		`param who Lpy/object; defaulted = "world"`,
		"#0 bool true",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestFormatNamedLocals(t *testing.T) {
	var p Pool
	name := p.String("x") + 1
	tests := []struct {
		in   Instruction
		want string
	}{
		{Instruction{Op: OpLoad, A: 1, B: name}, `load 1 "x"`},
		{Instruction{Op: OpUnbind, A: 1, B: name}, `unbind 1 "x"`},
		{Instruction{Op: OpLoad, A: 2}, "load 2"},
	}
	for _, tt := range tests {
		if got := FormatInstruction(&p, tt.in); got != tt.want {
			t.Fatalf("FormatInstruction(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
