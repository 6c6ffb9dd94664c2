package vm

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/compiler"
	"github.com/serpent-lang/serpent/internal/runtime"
)

func compileAll(t *testing.T, sources ...compiler.Source) *compiler.Result {
	t.Helper()
	res, diags := compiler.New().Compile(sources...)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return res
}

func runMain(t *testing.T, text string, opts ...Option) (string, error) {
	t.Helper()
	res := compileAll(t, compiler.Source{Path: "main.py", Module: "main", Text: text})
	var out bytes.Buffer
	opts = append([]Option{WithStdout(&out), WithLoader(NewMemLoader(res.Files()...))}, opts...)
	err := New(opts...).Run("main")
	return out.String(), err
}

func expectOutput(t *testing.T, text, want string) {
	t.Helper()
	got, err := runMain(t, text)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got != want {
		t.Fatalf("output mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestPrint(t *testing.T) {
	expectOutput(t, `print("hello", 1 + 2)
print("a", "b", sep="-", end="!\n")
`, "hello 3\na-b!\n")
}

func TestMainModuleName(t *testing.T) {
	expectOutput(t, "print(__name__)\n", "__main__\n")
}

func TestFunctionsWithDefaultsAndKeywords(t *testing.T) {
	expectOutput(t, `def greet(name, greeting="hello"):
    return greeting + ", " + name

def nothing(x=None):
    return x

print(greet("bob"))
print(greet("amy", greeting="hi"))
print(nothing())
`, "hello, bob\nhi, amy\nNone\n")
}

func TestVariadicParameters(t *testing.T) {
	expectOutput(t, `def collect(first, *rest, **named):
    return len(rest) + len(named) + first

print(collect(1, 2, 3, a=4))
print(collect(10))
`, "4\n10\n")
}

func TestLoops(t *testing.T) {
	expectOutput(t, `total = 0
for i in range(10):
    if i % 2 == 0:
        continue
    if i > 7:
        break
    total += i
else:
    total = -1
print(total)

n = 3
while n > 0:
    n -= 1
else:
    print("done", n)
`, "16\ndone 0\n")
}

func TestCollections(t *testing.T) {
	expectOutput(t, `items = [3, 1, 2]
items.append(0)
pairs = {"a": 1}
pairs["b"] = 2
first, second = (10, 20)
print(sorted(items), len(pairs), pairs["b"], first + second)
print(2 in items, 5 not in items)
`, "[0, 1, 2, 3] 2 2 30\nTrue True\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `def fact(n):
    if n <= 1:
        return 1
    return n * fact(n - 1)

print(fact(5))
`, "120\n")
}

func TestClassesAndInheritance(t *testing.T) {
	expectOutput(t, `class Animal:
    sound = "..."

    def __init__(self, name):
        self.name = name

    def speak(self):
        return self.name + " says " + self.sound

class Dog(Animal):
    sound = "woof"

d = Dog("rex")
print(d.speak())
print(isinstance(d, Animal), isinstance(d, Dog), isinstance(Animal("x"), Dog))
`, "rex says woof\nTrue True False\n")
}

func TestStaticAndClassMethods(t *testing.T) {
	expectOutput(t, `class Counter:
    count = 0

    @classmethod
    def bump(cls):
        cls.count = cls.count + 1
        return cls.count

    @staticmethod
    def double(x):
        return x * 2

Counter.bump()
print(Counter.bump(), Counter.double(21))
`, "2 42\n")
}

func TestObjectStringUsesStrMethod(t *testing.T) {
	expectOutput(t, `class Pair:
    def __init__(self, a, b):
        self.a = a
        self.b = b

    def __str__(self):
        return "Pair(" + str(self.a) + ", " + str(self.b) + ")"

print(Pair(1, 2))
`, "Pair(1, 2)\n")
}

func TestSameNameFunctionsDispatchByArity(t *testing.T) {
	expectOutput(t, `def f(a):
    return "one"

def f(a, b):
    return "two"

print(f(1), f(1, 2))
`, "one two\n")
}

func TestNativeModule(t *testing.T) {
	expectOutput(t, `import math
print(math.floor(2.5))
`, "2\n")
}

func TestImportsAcrossModules(t *testing.T) {
	res := compileAll(t,
		compiler.Source{Path: "lib/util.py", Module: "lib.util", Text: `GREETING = "hi"

def shout(s):
    return s.upper() + "!"
`},
		compiler.Source{Path: "main.py", Module: "main", Text: `import lib.util
from lib.util import shout, GREETING
import lib

print(shout(GREETING), lib.util.GREETING)
print(lib.util.shout("x"))
`},
	)

	var out bytes.Buffer
	m := New(WithStdout(&out), WithLoader(NewMemLoader(res.Files()...)))
	if err := m.Run("main"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got, want := out.String(), "HI! hi\nX!\n"; got != want {
		t.Fatalf("output mismatch\n got: %q\nwant: %q", got, want)
	}
	if v, ok := m.Global("main", "GREETING"); !ok || v != "hi" {
		t.Fatalf("GREETING not bound in main: %v", v)
	}
}

func TestImportMissingModule(t *testing.T) {
	_, err := runMain(t, "import nowhere\n")
	if !runtime.IsKind(err, runtime.ImportError) {
		t.Fatalf("expected ImportError, got %v", err)
	}
}

type point struct {
	X, Y int64
}

func (p *point) Sum() int64 { return p.X + p.Y }

func TestHostTypes(t *testing.T) {
	hosts := classes.HostRegistry{"geo.Point": reflect.TypeOf(point{})}
	out, err := runMain(t, `from geo import Point
p = Point(3, 4)
print(p.Sum(), p.X)
`, WithHosts(hosts))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "7 3\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestErrorTraceback(t *testing.T) {
	_, err := runMain(t, `def fail(x):
    return x / 0

fail(1)
`)
	if !runtime.IsKind(err, runtime.ZeroDivisionError) {
		t.Fatalf("expected ZeroDivisionError, got %v", err)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	want := []Frame{
		{File: "main.py", Line: 2, Function: "fail"},
		{File: "main.py", Line: 4, Function: "<module>"},
	}
	if !reflect.DeepEqual(e.Trace, want) {
		t.Fatalf("trace = %+v, want %+v", e.Trace, want)
	}
	tb := e.Traceback()
	if !strings.HasPrefix(tb, "Traceback (most recent call last):\n  File \"main.py\", line 4, in <module>") ||
		!strings.HasSuffix(tb, "ZeroDivisionError: division by zero") {
		t.Fatalf("unexpected traceback:\n%s", tb)
	}
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		call string
		want string
	}{
		{"missing", "f()", "missing required argument: 'a'"},
		{"too many", "f(1, 2, 3)", "takes 2 positional arguments but 3 were given"},
		{"unknown keyword", "f(1, c=2)", "unexpected keyword argument 'c'"},
		{"duplicate", "f(1, a=2)", "multiple values for argument 'a'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMain(t, "def f(a, b=1):\n    return a\n\n"+tt.call+"\n")
			if !runtime.IsKind(err, runtime.TypeError) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected TypeError containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRecursionLimit(t *testing.T) {
	_, err := runMain(t, `def down(n):
    return down(n + 1)

down(0)
`)
	if !runtime.IsKind(err, runtime.RuntimeError) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
}

func TestDefineKeepsModuleGlobals(t *testing.T) {
	var out bytes.Buffer
	m := New(WithStdout(&out))

	first := compileAll(t, compiler.Source{Path: "<stdin>", Module: "main", Text: "x = 1\n"})
	m.Define(first.Files()...)
	if err := m.Run("main"); err != nil {
		t.Fatalf("first run: %v", err)
	}

	res, diags := compiler.New(compiler.WithKnownGlobals(m.Globals("main")...)).Compile(
		compiler.Source{Path: "<stdin>", Module: "main", Text: "x = x + 41\nprint(x)\n"})
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	m.Define(res.Files()...)
	if err := m.Run("main"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRedefinedModuleKeepsOlderFunctionsRunnable(t *testing.T) {
	var out bytes.Buffer
	m := New(WithStdout(&out))

	entries := []string{
		"def double(n, k=2):\n    return n * k\n",
		"print('hi')\n",
		"print(double(21))\n",
	}
	for _, text := range entries {
		res, diags := compiler.New(compiler.WithKnownGlobals(m.Globals("main")...)).Compile(
			compiler.Source{Path: "<stdin>", Module: "main", Text: text})
		if len(diags) > 0 {
			t.Fatalf("unexpected diagnostics for %q: %v", text, diags)
		}
		m.Define(res.Files()...)
		if err := m.Run("main"); err != nil {
			t.Fatalf("run %q: %v", text, err)
		}
	}
	if out.String() != "hi\n42\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestUnboundLocals(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"read before assignment", "x = 5\ndef f():\n    print(x)\n    x = 1\nf()\n"},
		{"read after del", "def g():\n    y = 1\n    del y\n    return y\ng()\n"},
		{"del twice", "def h():\n    y = 1\n    del y\n    del y\nh()\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMain(t, tt.code)
			if !runtime.IsKind(err, runtime.UnboundLocalError) {
				t.Fatalf("expected UnboundLocalError, got %v", err)
			}
		})
	}

	expectOutput(t, "def k():\n    z = 1\n    del z\n    z = 2\n    return z\nprint(k())\n", "2\n")
}
