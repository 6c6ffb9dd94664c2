package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/serpent-lang/serpent/internal/compiler"
	"github.com/serpent-lang/serpent/internal/runtime"
	"github.com/serpent-lang/serpent/internal/vm"
)

// TestResult represents the result of running a single test
type TestResult struct {
	Name   string
	Passed bool
	Error  error
	Output string
}

// runTest executes the test command
func runTest(args []string) int {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	verbose := flags.Bool("v", false, "show the output of passing tests")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	paths := flags.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	code := 0
	for _, path := range paths {
		if !runAllTests(path, *verbose) {
			code = 1
		}
	}
	return code
}

// runAllTests compiles every module under path and runs the test modules
// among them. A file path is compiled on its own.
func runAllTests(path string, verbose bool) bool {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error accessing path %s: %v\n", path, err)
		return false
	}

	root, files := path, []string{path}
	if info.IsDir() {
		if files, err = findSources(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error finding test files: %v\n", err)
			return false
		}
	} else {
		root = filepath.Dir(path)
	}

	sources, err := readSources(root, files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	var tests []compiler.Source
	for _, src := range sources {
		if !info.IsDir() || isTestFile(src.Path) {
			tests = append(tests, src)
		}
	}
	if len(tests) == 0 {
		fmt.Printf("No test files found in %s\n", path)
		return true
	}

	res, ok := compileSources(sources)
	if !ok {
		return false
	}

	fmt.Printf("Running tests in %s...\n\n", path)

	var total, passed, failed int
	for _, src := range tests {
		for _, result := range runTestModule(res, string(src.Module)) {
			total++
			if result.Passed {
				passed++
				fmt.Printf("  ✓ %s\n", result.Name)
				if verbose && result.Output != "" {
					fmt.Printf("    Output: %s\n", result.Output)
				}
				continue
			}
			failed++
			fmt.Printf("  ✗ %s\n", result.Name)
			if result.Error != nil {
				fmt.Printf("    Error: %s\n", indent(describe(result.Error)))
			}
			if result.Output != "" {
				fmt.Printf("    Output: %s\n", result.Output)
			}
		}
	}

	fmt.Printf("\n")
	fmt.Printf("Test Results: %d total, %d passed, %d failed\n", total, passed, failed)
	return failed == 0
}

// findSources lists the .py files under dir, skipping hidden directories.
func findSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && filepath.Ext(path) == ".py" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// isTestFile reports whether path is a test module: test_*.py, *_test.py,
// or any module in a tests/ directory.
func isTestFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") {
		return true
	}
	return filepath.Base(filepath.Dir(path)) == "tests"
}

// runTestModule runs module on a fresh VM and then calls each of its
// test_ functions individually. A module without test functions counts as
// one test that passes when the module runs.
func runTestModule(res *compiler.Result, module string) []TestResult {
	var out bytes.Buffer
	m := vm.New(vm.WithStdout(&out))
	m.Define(res.Files()...)

	if err := m.Run(module); err != nil {
		return []TestResult{{
			Name:   module,
			Error:  err,
			Output: strings.TrimSpace(out.String()),
		}}
	}

	var results []TestResult
	for _, name := range m.Globals(module) {
		if !strings.HasPrefix(name, "test_") {
			continue
		}
		v, _ := m.Global(module, name)
		fn, ok := v.(runtime.Callable)
		if !ok {
			continue
		}

		out.Reset()
		_, err := fn.Call(nil, nil)
		results = append(results, TestResult{
			Name:   module + "." + name,
			Passed: err == nil,
			Error:  err,
			Output: strings.TrimSpace(out.String()),
		})
	}

	if len(results) == 0 {
		return []TestResult{{Name: module, Passed: true, Output: strings.TrimSpace(out.String())}}
	}
	return results
}

func describe(err error) string {
	var vmErr *vm.Error
	if errors.As(err, &vmErr) {
		return vmErr.Traceback()
	}
	return err.Error()
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n    ")
}
