package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/serpent-lang/serpent/internal/classes"
)

func TestModulePath(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		file string
		want classes.ModulePath
	}{
		{filepath.Join(root, "main.py"), "main"},
		{filepath.Join(root, "lib", "util.py"), "lib.util"},
		{filepath.Join(root, "a", "b", "c.py"), "a.b.c"},
	}
	for _, tt := range tests {
		got, err := modulePath(root, tt.file)
		if err != nil {
			t.Fatalf("modulePath(%q): %v", tt.file, err)
		}
		if got != tt.want {
			t.Fatalf("modulePath(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}

	if _, err := modulePath(root, filepath.Join(filepath.Dir(root), "other.py")); err == nil {
		t.Fatalf("expected an error for a file outside the root")
	}
	if _, err := modulePath(root, filepath.Join(root, "notes.txt")); err == nil {
		t.Fatalf("expected an error for a non-.py file")
	}
}

func TestSessionKeepsStateBetweenEntries(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)

	entries := []string{
		"x = 40\n",
		"def double(n):\n    return n * 2\n",
		"print('hi')\n",
		"double(x + 1)\n",
	}
	for _, code := range entries {
		if err := s.eval(code); err != nil {
			t.Fatalf("eval(%q): %v", code, err)
		}
	}
	if got := out.String(); got != "hi\n82\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestSessionReportsErrors(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)

	if err := s.eval("x = (\n"); err == nil {
		t.Fatalf("expected a parse error")
	}
	if err := s.eval("undefined_name\n"); err == nil {
		t.Fatalf("expected an error for an unknown name")
	}
	// The session stays usable.
	if err := s.eval("1 + 1\n"); err != nil {
		t.Fatalf("eval after errors: %v", err)
	}
	if got := out.String(); got != "2\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"test_math.py", true},
		{"math_test.py", true},
		{filepath.Join("tests", "helpers.py"), true},
		{"math.py", false},
		{filepath.Join("lib", "testing.py"), false},
	}
	for _, tt := range tests {
		if got := isTestFile(tt.path); got != tt.want {
			t.Fatalf("isTestFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRunTestModules(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("calc.py", "def add(a, b):\n    return a + b\n")
	write("test_calc.py", "from calc import add\n\ndef test_add():\n    print(add(1, 2))\n\ndef test_broken():\n    add(1)\n")

	files, err := findSources(dir)
	if err != nil {
		t.Fatalf("findSources: %v", err)
	}
	sources, err := readSources(dir, files)
	if err != nil {
		t.Fatalf("readSources: %v", err)
	}
	res, ok := compileSources(sources)
	if !ok {
		t.Fatalf("compile failed")
	}

	results := runTestModule(res, "test_calc")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	add, broken := results[0], results[1]
	if add.Name != "test_calc.test_add" || !add.Passed || add.Output != "3" {
		t.Fatalf("test_add = %+v", add)
	}
	if broken.Name != "test_calc.test_broken" || broken.Passed || broken.Error == nil {
		t.Fatalf("test_broken = %+v", broken)
	}
}
