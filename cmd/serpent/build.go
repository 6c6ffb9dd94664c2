package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/compiler"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/vm"
)

// modulePath names the module of file by its path under root:
// root/lib/util.py is lib.util.
func modulePath(root, file string) (classes.ModulePath, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under source root %s", file, root)
	}
	if filepath.Ext(rel) != ".py" {
		return "", fmt.Errorf("%s is not a .py file", file)
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	return classes.ModulePath(strings.ReplaceAll(rel, "/", ".")), nil
}

// readSources loads files as modules relative to root.
func readSources(root string, files []string) ([]compiler.Source, error) {
	sources := make([]compiler.Source, 0, len(files))
	for _, file := range files {
		module, err := modulePath(root, file)
		if err != nil {
			return nil, err
		}
		text, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		sources = append(sources, compiler.Source{Path: file, Module: module, Text: string(text)})
	}
	return sources, nil
}

// compileSources compiles sources and prints diagnostics to stderr. ok is
// false when any error was reported.
func compileSources(sources []compiler.Source, opts ...compiler.Option) (res *compiler.Result, ok bool) {
	res, diags := compiler.New(opts...).Compile(sources...)
	if len(diags) > 0 {
		f := diag.NewFormatter()
		for _, src := range sources {
			f.AddSource(src.Path, src.Text)
		}
		f.FormatAll(diags)
	}
	return res, !diag.HasErrors(diags)
}

func runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", ".", "directory the artifacts are written to")
	root := fs.String("root", ".", "source root module names are derived from")
	verbose := fs.Bool("v", false, "list the artifacts written")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: serpent build [-o dir] [-root dir] <files>\n")
		return 1
	}

	sources, err := readSources(*root, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	res, ok := compileSources(sources)
	written, diags := compiler.Emit(*out, res.Units)
	if len(diags) > 0 {
		diag.NewFormatter().FormatAll(diags)
		ok = false
	}
	if *verbose {
		for _, path := range written {
			fmt.Println(path)
		}
	}
	if !ok {
		return 1
	}
	return 0
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	root := fs.String("root", "", "source root module names are derived from (default: directory of the main file)")
	classpath := fs.String("classpath", "", "directory of prebuilt artifacts to load imports from")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: serpent run [-root dir] [-classpath dir] <main.py> [more.py...]\n")
		return 1
	}
	if *root == "" {
		*root = filepath.Dir(fs.Arg(0))
	}

	sources, err := readSources(*root, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	res, ok := compileSources(sources)
	if !ok {
		return 1
	}

	var opts []vm.Option
	if *classpath != "" {
		opts = append(opts, vm.WithLoader(vm.DirLoader{Root: *classpath}))
	}
	m := vm.New(opts...)
	m.Define(res.Files()...)
	if err := m.Run(string(sources[0].Module)); err != nil {
		reportRuntimeError(err)
		return 1
	}
	return 0
}

// reportRuntimeError prints the traceback of a failed run.
func reportRuntimeError(err error) {
	var vmErr *vm.Error
	if errors.As(err, &vmErr) {
		fmt.Fprintln(os.Stderr, vmErr.Traceback())
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func runDump(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: serpent dump <file.sclass>...\n")
		return 1
	}
	for _, path := range args {
		f, err := classfile.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := classfile.Dump(os.Stdout, f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}
