package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/runtime"
)

const testModule = classes.ModulePath("example.to_load")

func source(text string) Source {
	return Source{Path: "to_load.py", Module: testModule, Text: text}
}

func compileOK(t *testing.T, text string, opts ...Option) *Unit {
	t.Helper()
	res, diags := New(opts...).Compile(source(text))
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(res.Units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(res.Units))
	}
	for _, f := range res.Units[0].Files {
		verifyStack(t, f)
	}
	return res.Units[0]
}

func compileFail(t *testing.T, text string) diag.Diagnostic {
	t.Helper()
	res, diags := New().Compile(source(text))
	if len(res.Units) != 0 {
		t.Fatalf("expected the unit to fail, got %d units", len(res.Units))
	}
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", len(diags), diags)
	}
	return diags[0]
}

func methodOf(t *testing.T, f *classfile.File, name string) *classfile.Method {
	t.Helper()
	m := f.Method(name)
	if m == nil {
		t.Fatalf("%s has no method %s:\n%s", f.Name, name, classfile.DumpString(f))
	}
	return m
}

func assertContains(t *testing.T, dump string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(dump, p) {
			t.Fatalf("expected %q in:\n%s", p, dump)
		}
	}
}

// verifyStack walks every path through each method and checks that the
// operand stack depth agrees at merge points and never underflows.
func verifyStack(t *testing.T, f *classfile.File) {
	t.Helper()
	for _, m := range f.Methods {
		depth := make([]int, len(m.Code)+1)
		for i := range depth {
			depth[i] = -1
		}
		work := []int{0}
		depth[0] = 0
		for len(work) > 0 {
			pc := work[len(work)-1]
			work = work[:len(work)-1]
			if pc >= len(m.Code) {
				t.Fatalf("%s.%s: falls off the end of the code", f.Name, m.Name)
			}
			in := m.Code[pc]
			d := depth[pc]
			pops, pushes := stackEffect(t, f, in)
			if d < pops {
				t.Fatalf("%s.%s pc %d: %s underflows depth %d", f.Name, m.Name, pc, in.Op, d)
			}
			d = d - pops + pushes
			if d > int(m.MaxStack) {
				t.Fatalf("%s.%s pc %d: depth %d exceeds max stack %d", f.Name, m.Name, pc, d, m.MaxStack)
			}

			var next []int
			switch in.Op {
			case classfile.OpReturn:
				if d != 0 {
					t.Fatalf("%s.%s pc %d: return with %d operands left", f.Name, m.Name, pc, d)
				}
			case classfile.OpReturnValue:
				if d != 0 {
					t.Fatalf("%s.%s pc %d: returnvalue with %d extra operands", f.Name, m.Name, pc, d)
				}
			case classfile.OpGoto:
				next = []int{int(in.A)}
			default:
				next = []int{pc + 1}
				if in.Op.IsJump() {
					next = append(next, int(in.A))
				}
			}
			for _, n := range next {
				switch depth[n] {
				case -1:
					depth[n] = d
					work = append(work, n)
				case d:
				default:
					t.Fatalf("%s.%s: depth %d and %d meet at pc %d", f.Name, m.Name, depth[n], d, n)
				}
			}
		}
	}
}

func stackEffect(t *testing.T, f *classfile.File, in classfile.Instruction) (pops, pushes int) {
	t.Helper()
	switch in.Op {
	case classfile.OpConst, classfile.OpNone, classfile.OpLoad, classfile.OpLoadClass:
		return 0, 1
	case classfile.OpStore, classfile.OpPop, classfile.OpIfTrue, classfile.OpIfFalse, classfile.OpReturnValue:
		return 1, 0
	case classfile.OpDup:
		return 1, 2
	case classfile.OpSwap:
		return 2, 2
	case classfile.OpCheckCast:
		return 1, 1
	case classfile.OpIfICmpEQ, classfile.OpIfICmpNE:
		return 2, 0
	case classfile.OpBuildArray, classfile.OpBuildList, classfile.OpBuildTuple:
		return int(in.A), 1
	case classfile.OpBuildKwargs, classfile.OpBuildDict:
		return 2 * int(in.A), 1
	case classfile.OpInvokeDyn:
		return 3, 1
	case classfile.OpInvokeStatic:
		name, err := f.Pool.StringAt(in.A)
		if err != nil {
			t.Fatalf("invokestatic operand: %v", err)
		}
		entry, ok := runtime.LookupEntry(name)
		if !ok {
			t.Fatalf("unknown runtime entry %q", name)
		}
		if entry.Return != classes.Void {
			pushes = 1
		}
		return len(entry.Params), pushes
	}
	return 0, 0
}

func TestModuleInitializerCallsBuiltin(t *testing.T) {
	u := compileOK(t, "print(\"hi\", end=\"!\")\n")

	mod := u.Module()
	if mod.Name != "example/ToLoadPy" || mod.SourceFile != "to_load.py" {
		t.Fatalf("unexpected module header %s %s", mod.Name, mod.SourceFile)
	}
	clinit := methodOf(t, mod, classfile.ClassInit)
	if clinit.Desc != "()V" || !clinit.Flags.Has(classfile.MethodStatic) {
		t.Fatalf("unexpected initializer %s %s", clinit.Desc, clinit.Flags)
	}
	assertContains(t, classfile.DumpString(mod),
		`const "print"`,
		`const "hi"`,
		"buildarray 1",
		`const "end"`,
		"buildkwargs 1",
		"invokestatic builtin (Lpy/str;[Lpy/object;Lpy/dict;)Lpy/object;",
		"pop",
		"return",
	)
}

func TestStaticAndDynamicCallPaths(t *testing.T) {
	u := compileOK(t, `
def helper(x):
    return x

helper(1)
f = helper
f(2)
items = [1, 2]
items.append(3)
`)
	dump := classfile.DumpString(u.Module())
	assertContains(t, dump,
		"ldclass example/ToLoadPy",
		"invokedyn helper",
		"invokestatic getglobal (Lpy/object;Lpy/str;)Lpy/object;",
		"invokestatic call (Lpy/object;[Lpy/object;Lpy/dict;)Lpy/object;",
		`const "append"`,
		"invokestatic callmember",
	)

	helper := methodOf(t, u.Module(), "helper")
	if helper.Desc != "(Lpy/object;)Lpy/object;" {
		t.Fatalf("helper descriptor = %s", helper.Desc)
	}
	if !helper.Flags.Has(classfile.MethodStatic) {
		t.Fatalf("module function should be static, flags %s", helper.Flags)
	}
}

func TestClassCompilesToOwnArtifact(t *testing.T) {
	u := compileOK(t, `
class Point:
    origin = 0

    def move(self, dx: object, dy: object):
        self.x = dx
        self.y = dy

    def scale(self, k: int) -> float:
        return k

    @staticmethod
    def make():
        return Point()

p = Point.make()
`)
	if len(u.Files) != 2 {
		t.Fatalf("expected module and class artifacts, got %d", len(u.Files))
	}
	cls := u.Files[1]
	if cls.Name != "example/to_load/Point" {
		t.Fatalf("class binary name = %s", cls.Name)
	}

	move := methodOf(t, cls, "move")
	if move.Desc != "(Lpy/object;Lpy/object;)V" {
		t.Fatalf("move descriptor = %s", move.Desc)
	}
	if move.Flags.Has(classfile.MethodStatic) {
		t.Fatalf("instance method marked static")
	}
	if len(move.Params) != 2 || move.Params[0].Kind != classfile.ParamTyped || move.Params[1].Name != "dy" {
		t.Fatalf("unexpected parameter table %+v", move.Params)
	}
	if move.MaxLocals != 3 {
		t.Fatalf("move locals = %d, want receiver plus two", move.MaxLocals)
	}

	if scale := methodOf(t, cls, "scale"); scale.Desc != "(Lpy/int;)Lpy/float;" {
		t.Fatalf("scale descriptor = %s", scale.Desc)
	}
	if mk := methodOf(t, cls, "make"); !mk.Flags.Has(classfile.MethodStatic) {
		t.Fatalf("make flags = %s", mk.Flags)
	}

	clsDump := classfile.DumpString(cls)
	assertContains(t, clsDump,
		"ldclass example/to_load/Point",
		`const "origin"`,
		"invokestatic setattr",
		"checkcast py/object",
	)
	assertContains(t, classfile.DumpString(u.Module()),
		"invokestatic initclass (Lpy/object;)V",
		"invokedyn make",
	)
}

func TestInstanceMethodCallThroughSelfIsStatic(t *testing.T) {
	u := compileOK(t, `
class Counter:
    def bump(self):
        self.n = self.n + 1

    def twice(self):
        self.bump()
        self.bump()
`)
	dump := classfile.DumpString(u.Files[1])
	assertContains(t, dump, "invokedyn bump")
	if strings.Contains(dump, `invokestatic callmember`) {
		t.Fatalf("self.bump() should take the static path:\n%s", dump)
	}
}

func TestParameterTable(t *testing.T) {
	u := compileOK(t, `
def greet(name, greeting="hi", *rest, **opts):
    pass

def neg(x=-1, y=None):
    pass
`)
	greet := methodOf(t, u.Module(), "greet")
	if greet.Desc != "(Lpy/object;Lpy/object;Lpy/tuple;Lpy/dict;)V" {
		t.Fatalf("greet descriptor = %s", greet.Desc)
	}
	want := []classfile.ParamKind{classfile.ParamPlain, classfile.ParamDefaulted, classfile.ParamVarArgs, classfile.ParamVarKw}
	for i, k := range want {
		if greet.Params[i].Kind != k {
			t.Fatalf("param %d kind = %s, want %s", i, greet.Params[i].Kind, k)
		}
	}
	if !greet.Flags.Has(classfile.MethodVarArgs | classfile.MethodVarKw) {
		t.Fatalf("greet flags = %s", greet.Flags)
	}
	assertContains(t, classfile.DumpString(u.Module()),
		`param greeting Lpy/object; defaulted = "hi"`,
		"param x Lpy/object; defaulted = -1",
	)

	neg := methodOf(t, u.Module(), "neg")
	if neg.Params[1].Default != -1 || !neg.Params[1].Kind.HasDefault() {
		t.Fatalf("None default should be encoded as -1 with a defaulted kind: %+v", neg.Params[1])
	}
}

func TestLastDefinitionWins(t *testing.T) {
	u := compileOK(t, `
def f(a):
    return 1

def f(a):
    return 2

def f(a, b):
    return 3
`)
	var count int
	for _, m := range u.Module().Methods {
		if m.Name == "f" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected one method per descriptor, got %d", count)
	}
	if f := u.Module().Method("f"); f.Desc != "(Lpy/object;Lpy/object;)Lpy/object;" {
		t.Fatalf("last f has descriptor %s", f.Desc)
	}
}

func TestControlFlowIsBalanced(t *testing.T) {
	u := compileOK(t, `
total = 0
for i in range(10):
    if i % 2 == 0:
        continue
    elif i > 7:
        break
    total += i
else:
    total = -1

n = 0
while n < 3 and total != 0:
    n += 1
else:
    print("done")

a, b = 1, 2
d = {"k": [a, b]}
d["k"][0] += 5
ok = 0 < a <= b < 10
label = "big" if total > 10 else "small"
if total:
    pass
del d["k"]
`)
	assertContains(t, classfile.DumpString(u.Module()),
		"invokestatic iter",
		"invokestatic hasnext",
		"invokestatic next",
		"invokestatic truth",
		"if_icmpne",
		"builddict 1",
		"invokestatic delitem",
	)
}

func TestFunctionsKeepLocalsInSlots(t *testing.T) {
	u := compileOK(t, `
counter = 0

def bump(step):
    global counter
    total = counter + step
    counter = total
    return total
`)
	bump := methodOf(t, u.Module(), "bump")
	dump := classfile.DumpString(u.Module())
	assertContains(t, dump, "store 1", `const "counter"`, "invokestatic setattr")
	if bump.MaxLocals != 2 {
		t.Fatalf("bump locals = %d, want 2", bump.MaxLocals)
	}
}

func TestImports(t *testing.T) {
	u := compileOK(t, `
import math
from example import util as u

r = math.sqrt(4.0)
u.run()
`)
	assertContains(t, classfile.DumpString(u.Module()),
		`const "math"`,
		"invokestatic import (Lpy/str;)Lpy/object;",
		`const "example"`,
		`const "util"`,
		`const "sqrt"`,
		"invokestatic callmember",
	)
}

func TestKnownGlobalsShadowBuiltins(t *testing.T) {
	u := compileOK(t, "len(3)\n", WithKnownGlobals("len"))
	dump := classfile.DumpString(u.Module())
	assertContains(t, dump, "invokestatic getglobal", "invokestatic call ")
	if strings.Contains(dump, "invokestatic builtin ") {
		t.Fatalf("len should resolve to the known global:\n%s", dump)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		code    diag.Code
		message string
	}{
		{"break outside loop", "break\n", diag.CodeCompilerException, "'break' outside loop"},
		{"break across function", "for i in range(3):\n    def f():\n        break\n", diag.CodeCompilerException, "boundary of function 'f'"},
		{"continue across class", "while True:\n    class C:\n        continue\n", diag.CodeCompilerException, "boundary of class 'C'"},
		{"return at module level", "return 1\n", diag.CodeCompilerException, "'return' outside function"},
		{"try statement", "try:\n    pass\nexcept:\n    pass\n", diag.CodeUnsupportedConstruct, "'try' is not supported"},
		{"lambda", "f = lambda: 1\n", diag.CodeUnsupportedConstruct, "'lambda'"},
		{"set literal", "s = {1, 2}\n", diag.CodeUnsupportedConstruct, "set literal"},
		{"slice", "x = [1, 2]\ny = x[0:1]\n", diag.CodeUnsupportedConstruct, "slice"},
		{"keyword-only marker", "def f(*, a):\n    pass\n", diag.CodeUnsupportedConstruct, "keyword-only"},
		{"non-constant default", "def f(a=[]):\n    pass\n", diag.CodeUnsupportedConstruct, "non-constant default"},
		{"nested function", "def f():\n    def g():\n        pass\n", diag.CodeUnsupportedConstruct, "nested function"},
		{"unknown decorator", "class C:\n    @property\n    def x(self):\n        return 1\n", diag.CodeCompilerException, "unsupported decorator @property"},
		{"staticmethod at module level", "@staticmethod\ndef f():\n    pass\n", diag.CodeCompilerException, "only valid inside a class"},
		{"self on module function", "def f(self):\n    pass\n", diag.CodeCompilerException, "'self' parameter on function 'f'"},
		{"self on static method", "class C:\n    @staticmethod\n    def f(self):\n        pass\n", diag.CodeCompilerException, "'self' parameter on static method"},
		{"method without receiver", "class C:\n    def f():\n        pass\n", diag.CodeCompilerException, "has no receiver parameter"},
		{"unresolved annotation", "def f(x: Missing):\n    pass\n", diag.CodeUnresolvedType, "Missing"},
		{"unresolved base", "class C(Missing):\n    pass\n", diag.CodeUnresolvedType, "Missing"},
		{"module not callable", "import math\nmath()\n", diag.CodeCompilerException, "not callable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := compileFail(t, tt.src)
			if d.Code != tt.code {
				t.Fatalf("code = %s, want %s (%s)", d.Code, tt.code, d.Message)
			}
			if !strings.Contains(d.Message, tt.message) {
				t.Fatalf("message %q does not contain %q", d.Message, tt.message)
			}
			if d.Stage != diag.StageCompile {
				t.Fatalf("stage = %s", d.Stage)
			}
		})
	}
}

func TestParseErrorsSkipUnit(t *testing.T) {
	res, diags := New().Compile(source("x = (\n"))
	if len(res.Units) != 0 {
		t.Fatalf("unit with parse errors should not compile")
	}
	if !diag.HasErrors(diags) {
		t.Fatalf("expected a syntax error, got %v", diags)
	}
}

func TestFailingUnitDoesNotStopOthers(t *testing.T) {
	c := New()
	res, diags := c.Compile(
		Source{Path: "bad.py", Module: "pkg.bad", Text: "break\n"},
		Source{Path: "good.py", Module: "pkg.good", Text: "x = 1\n"},
	)
	if len(diags) != 1 || len(res.Units) != 1 || res.Units[0].Source.Module != "pkg.good" {
		t.Fatalf("unexpected result: %d units, diags %v", len(res.Units), diags)
	}
	if _, ok := c.Cache().Lookup("pkg/BadPy"); ok {
		t.Fatalf("failed unit should be forgotten by the cache")
	}
}

func TestCrossUnitBaseClass(t *testing.T) {
	res, diags := New().Compile(
		Source{Path: "shapes.py", Module: "geo.shapes", Text: "from geo.base import Shape\n\nclass Circle(Shape):\n    pass\n"},
		Source{Path: "base.py", Module: "geo.base", Text: "class Shape:\n    pass\n"},
	)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	circle := res.Units[0].Files[1]
	if len(circle.Supers) != 1 || circle.Supers[0] != "geo/base/Shape" {
		t.Fatalf("Circle supers = %v", circle.Supers)
	}
}

func TestRedefinitionNeedsReplace(t *testing.T) {
	c := New()
	if _, diags := c.Compile(source("class A:\n    pass\n")); len(diags) != 0 {
		t.Fatalf("first compile: %v", diags)
	}
	if _, diags := c.Compile(source("class A:\n    pass\n")); len(diags) != 1 {
		t.Fatalf("redefinition should fail, got %v", diags)
	}

	r := New(WithReplace(), WithCache(c.Cache()))
	if _, diags := r.Compile(source("class A:\n    pass\n")); len(diags) != 0 {
		t.Fatalf("replacing compile: %v", diags)
	}
}

func TestEmitWritesArtifacts(t *testing.T) {
	u := compileOK(t, "class A:\n    pass\n")
	dir := t.TempDir()

	paths, diags := Emit(dir, []*Unit{u})
	if len(diags) != 0 {
		t.Fatalf("emit: %v", diags)
	}
	want := []string{
		filepath.Join(dir, "example", "ToLoadPy.sclass"),
		filepath.Join(dir, "example", "to_load", "A.sclass"),
	}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("path %d = %s, want %s", i, paths[i], p)
		}
		f, err := classfile.ReadFile(p)
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if f.Name != u.Files[i].Name {
			t.Fatalf("read back %s, want %s", f.Name, u.Files[i].Name)
		}
	}
}

func TestEmitRollsBackFailedUnit(t *testing.T) {
	u := compileOK(t, "class A:\n    pass\n")
	dir := t.TempDir()

	// A regular file where the class directory should go.
	if err := os.MkdirAll(filepath.Join(dir, "example"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "example", "to_load"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, diags := Emit(dir, []*Unit{u})
	if len(paths) != 0 {
		t.Fatalf("no artifact should remain reported, got %v", paths)
	}
	if len(diags) != 1 || diags[0].Code != diag.CodeArtifactIO {
		t.Fatalf("expected one artifact diagnostic, got %v", diags)
	}
	if _, err := os.Stat(filepath.Join(dir, "example", "ToLoadPy.sclass")); !os.IsNotExist(err) {
		t.Fatalf("module artifact should have been removed, stat err = %v", err)
	}
}
