package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/compiler"
	"github.com/serpent-lang/serpent/internal/parser"
	"github.com/serpent-lang/serpent/internal/runtime"
	"github.com/serpent-lang/serpent/internal/vm"
)

const (
	historyFile = ".serpent_history"
	promptMain  = ">>> "
	promptCont  = "... "

	replModule = "main"
	replFile   = "<stdin>"
	// resultName holds the value of the last expression entered.
	resultName = "_"
)

func runRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	classpath := fs.String("classpath", "", "directory of prebuilt artifacts to load imports from")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	fmt.Println("serpent repl. Type :quit or Ctrl-D to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	var opts []vm.Option
	if *classpath != "" {
		opts = append(opts, vm.WithLoader(vm.DirLoader{Root: *classpath}))
	}
	s := newSession(os.Stdout, opts...)

	for {
		code, ok := readEntry(ln)
		if !ok {
			fmt.Println()
			return 0
		}

		switch strings.TrimSpace(code) {
		case "":
			continue
		case ":quit":
			return 0
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if err := s.eval(code); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// readEntry reads one statement. A line ending in ':' opens a block that
// continues until an empty line.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	block := false

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if block && strings.TrimSpace(line) == "" {
			return b.String() + "\n", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if strings.HasSuffix(strings.TrimSpace(line), ":") {
			block = true
		}
		if !block {
			return b.String() + "\n", true
		}
	}
}

// session compiles each entry as a new version of one module. Globals and
// classes of earlier entries stay visible to later ones.
type session struct {
	vm    *vm.VM
	cache *classes.Cache
	out   io.Writer
}

func newSession(out io.Writer, opts ...vm.Option) *session {
	opts = append([]vm.Option{vm.WithStdout(out)}, opts...)
	return &session{
		vm:    vm.New(opts...),
		cache: compiler.New().Cache(),
		out:   out,
	}
}

// eval runs one entry. The value of a lone expression is echoed unless it
// is None.
func (s *session) eval(code string) error {
	file, diags := parser.Parse(code, parser.WithFilename(replFile))
	if len(diags) > 0 {
		return diags[0]
	}

	echo := false
	if len(file.Body) == 1 {
		if _, ok := file.Body[0].(*ast.ExprStmt); ok {
			code = resultName + " = " + code
			echo = true
		}
	}

	res, diags := compiler.New(
		compiler.WithCache(s.cache),
		compiler.WithReplace(),
		compiler.WithKnownGlobals(s.vm.Globals(replModule)...),
	).Compile(compiler.Source{Path: replFile, Module: replModule, Text: code})
	if len(diags) > 0 {
		return diags[0]
	}

	s.vm.Define(res.Files()...)
	if err := s.vm.Run(replModule); err != nil {
		var vmErr *vm.Error
		if errors.As(err, &vmErr) {
			return errors.New(vmErr.Traceback())
		}
		return err
	}

	if echo {
		if v, ok := s.vm.Global(replModule, resultName); ok && v != nil {
			fmt.Fprintln(s.out, runtime.Repr(v))
		}
	}
	return nil
}
