package vm

import (
	"bytes"
	"testing"

	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/compiler"
)

func TestDirLoaderRunsEmittedArtifacts(t *testing.T) {
	res := compileAll(t,
		compiler.Source{Path: "shapes.py", Module: "pkg.shapes", Text: `class Square:
    def __init__(self, side):
        self.side = side

    def area(self):
        return self.side * self.side
`},
		compiler.Source{Path: "main.py", Module: "main", Text: `from pkg.shapes import Square
print(Square(4).area())
`},
	)

	dir := t.TempDir()
	if _, diags := compiler.Emit(dir, res.Units); len(diags) > 0 {
		t.Fatalf("emit: %v", diags)
	}

	loader := DirLoader{Root: dir}
	if !loader.HasPackage("pkg") || loader.HasPackage("nothere") {
		t.Fatalf("package detection is wrong")
	}

	var out bytes.Buffer
	if err := New(WithStdout(&out), WithLoader(loader)).Run("main"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "16\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestLoadersReportNotFound(t *testing.T) {
	for _, l := range []Loader{DirLoader{Root: t.TempDir()}, NewMemLoader()} {
		if _, err := l.Load("missing/ThingPy"); !isNotFound(err) {
			t.Fatalf("%T: expected not found, got %v", l, err)
		}
	}
}

func TestChainPrefersEarlierLoaders(t *testing.T) {
	a := NewMemLoader(&classfile.File{Name: "m/MPy", SourceFile: "a.py"})
	b := NewMemLoader(&classfile.File{Name: "m/MPy", SourceFile: "b.py"}, &classfile.File{Name: "n/NPy"})
	c := chain{a, b}

	f, err := c.Load("m/MPy")
	if err != nil || f.SourceFile != "a.py" {
		t.Fatalf("expected the first loader's artifact, got %+v, %v", f, err)
	}
	if _, err := c.Load("n/NPy"); err != nil {
		t.Fatalf("fallback failed: %v", err)
	}
	if !c.HasPackage("n") || c.HasPackage("o") {
		t.Fatalf("package detection is wrong")
	}
}
