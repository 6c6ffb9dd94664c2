// Package compiler lowers parsed modules into class artifacts. Each source
// module becomes a module class whose static initializer runs the
// module-level statements; each class statement becomes its own class.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/parser"
)

// Source is one module to compile.
type Source struct {
	// Path is the file name used in diagnostics and line tables.
	Path   string
	Module classes.ModulePath
	Text   string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithKnownGlobals declares module globals that exist before the module
// runs, such as names bound by earlier REPL entries. They shadow builtins.
func WithKnownGlobals(names ...string) Option {
	return func(c *Compiler) {
		for _, n := range names {
			c.known[n] = true
		}
	}
}

// WithHosts registers Go types source code may name as classes.
func WithHosts(hosts classes.HostRegistry) Option {
	return func(c *Compiler) {
		c.hosts = hosts
	}
}

// WithCache shares a class cache between compilations.
func WithCache(cache *classes.Cache) Option {
	return func(c *Compiler) {
		c.cache = cache
	}
}

// WithReplace lets a compilation redefine classes already in the cache.
func WithReplace() Option {
	return func(c *Compiler) {
		c.replace = true
	}
}

// Compiler holds the state shared by the units of one compilation.
type Compiler struct {
	cache   *classes.Cache
	hosts   classes.HostRegistry
	known   map[string]bool
	replace bool
}

// New creates a compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{known: make(map[string]bool)}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = classes.NewCache(c.hosts)
	}
	return c
}

// Cache returns the class cache.
func (c *Compiler) Cache() *classes.Cache { return c.cache }

// Unit is the output of one source module: the module artifact first,
// then one artifact per class.
type Unit struct {
	Source Source
	Files  []*classfile.File
}

// Module returns the module artifact.
func (u *Unit) Module() *classfile.File { return u.Files[0] }

// Result holds the units that compiled.
type Result struct {
	Units []*Unit
}

// Files returns every artifact in unit order.
func (r *Result) Files() []*classfile.File {
	var out []*classfile.File
	for _, u := range r.Units {
		out = append(out, u.Files...)
	}
	return out
}

// Compile parses and lowers sources. A failing unit is reported and left
// out of the result; the other units still compile.
func (c *Compiler) Compile(sources ...Source) (*Result, []diag.Diagnostic) {
	var (
		diags []diag.Diagnostic
		units []*unit
	)

	for _, src := range sources {
		file, parseDiags := parser.Parse(src.Text, parser.WithFilename(src.Path))
		diags = append(diags, parseDiags...)
		if diag.HasErrors(parseDiags) {
			continue
		}
		units = append(units, newUnit(c, src, file))
	}

	// Classes of every unit are declared first so bases may refer to
	// classes from other units.
	var ready []*unit
	for _, u := range units {
		if err := u.declareClasses(); err != nil {
			diags = append(diags, asError(err, u.file.Span()).ToDiagnostic())
			u.rollback()
			continue
		}
		ready = append(ready, u)
	}

	res := &Result{}
	for _, u := range ready {
		if err := u.compile(); err != nil {
			diags = append(diags, asError(err, u.file.Span()).ToDiagnostic())
			u.rollback()
			continue
		}
		res.Units = append(res.Units, &Unit{Source: u.src, Files: u.files()})
	}
	return res, diags
}

// CompileFile reads path and compiles it as module.
func (c *Compiler) CompileFile(path string, module classes.ModulePath) (*Result, []diag.Diagnostic) {
	text, err := os.ReadFile(path)
	if err != nil {
		return &Result{}, []diag.Diagnostic{{
			Stage:    diag.StageCompile,
			Severity: diag.SeverityError,
			Code:     diag.CodeArtifactIO,
			Message:  fmt.Sprintf("failed to read %s: %v", path, err),
		}}
	}
	return c.Compile(Source{Path: path, Module: module, Text: string(text)})
}

// Emit writes every unit's artifacts under dir. When a write fails, the
// artifacts of that unit already written are removed and the next unit
// is emitted.
func Emit(dir string, units []*Unit) ([]string, []diag.Diagnostic) {
	var (
		written []string
		diags   []diag.Diagnostic
	)
	for _, u := range units {
		var paths []string
		var failed error
		for _, f := range u.Files {
			path, err := classfile.WriteFile(dir, f)
			if err != nil {
				failed = err
				break
			}
			paths = append(paths, path)
		}
		if failed != nil {
			for _, p := range paths {
				_ = os.Remove(p)
			}
			diags = append(diags, diag.Diagnostic{
				Stage:    diag.StageEmit,
				Severity: diag.SeverityError,
				Code:     diag.CodeArtifactIO,
				Message:  fmt.Sprintf("cannot write artifacts of %s: %v", u.Source.Module, failed),
				Span:     diag.Span{Filename: u.Source.Path},
			}.WithNote(fmt.Sprintf("removed %d artifact(s) already written for this module", len(paths))))
			continue
		}
		written = append(written, paths...)
	}
	return written, diags
}

// unit is the compilation state of one source module.
type unit struct {
	c    *Compiler
	src  Source
	file *ast.File

	module *classes.ModuleClass
	out    *classfile.File

	// classes in definition order, and by their defining statement.
	classes []*classState
	byDef   map[*ast.ClassDef]*classState
	// classSyms maps module-level class names.
	classSyms map[string]*ClassSymbol

	functions *FunctionTable
	fnByDef   map[*ast.FuncDef]*Function
	imports   *ImportTable
	// globals are names assigned at module level or declared global.
	globals map[string]bool

	ctx ContextStack

	defined []string
}

// classState is a class under construction.
type classState struct {
	cls       *classes.SourceClass
	def       *ast.ClassDef
	out       *classfile.File
	functions *FunctionTable
	// attrs are names bound in the class body so far.
	attrs map[string]bool
}

func newUnit(c *Compiler, src Source, file *ast.File) *unit {
	module := classes.NewModuleClass(src.Module, filepath.Base(src.Path))
	return &unit{
		c:         c,
		src:       src,
		file:      file,
		module:    module,
		out:       &classfile.File{Name: module.Name(), SourceFile: module.SourceFile, Flags: uint16(module.Flags())},
		byDef:     make(map[*ast.ClassDef]*classState),
		classSyms: make(map[string]*ClassSymbol),
		functions: NewFunctionTable(),
		fnByDef:   make(map[*ast.FuncDef]*Function),
		imports:   NewImportTable(),
		globals:   make(map[string]bool),
	}
}

func (u *unit) files() []*classfile.File {
	out := []*classfile.File{u.out}
	for _, cs := range u.classes {
		out = append(out, cs.out)
	}
	return out
}

func (u *unit) define(cls classes.Class) error {
	if u.c.replace {
		u.c.cache.Replace(cls)
	} else if err := u.c.cache.Define(cls); err != nil {
		return err
	}
	u.defined = append(u.defined, cls.Name())
	return nil
}

// rollback forgets the classes the unit defined.
func (u *unit) rollback() {
	if u.c.replace {
		return
	}
	for _, name := range u.defined {
		u.c.cache.Forget(name)
	}
	u.defined = nil
}

// moduleStatements visits the statements that run at module level,
// including those nested in module-level control flow.
func moduleStatements(body []ast.Stmt, fn func(ast.Stmt)) {
	for _, s := range body {
		fn(s)
		switch s := s.(type) {
		case *ast.IfStmt:
			moduleStatements(s.Body, fn)
			moduleStatements(s.Else, fn)
		case *ast.WhileStmt:
			moduleStatements(s.Body, fn)
			moduleStatements(s.Else, fn)
		case *ast.ForStmt:
			moduleStatements(s.Body, fn)
			moduleStatements(s.Else, fn)
		}
	}
}

// declareClasses registers the module class, binds the module-level
// imports and registers every module-level class.
func (u *unit) declareClasses() error {
	if err := u.define(u.module); err != nil {
		return err
	}

	var err error
	moduleStatements(u.file.Body, func(s ast.Stmt) {
		if err == nil {
			err = u.bindImports(s)
		}
	})
	if err != nil {
		return err
	}

	moduleStatements(u.file.Body, func(s ast.Stmt) {
		def, ok := s.(*ast.ClassDef)
		if !ok || err != nil {
			return
		}
		if _, dup := u.classSyms[def.Name.Name]; dup {
			err = compilerError(def.Span(), "class '%s' is defined twice in module %s", def.Name.Name, u.src.Module)
			return
		}

		bases := make([]*classes.ClassRef, 0, len(def.Bases))
		for _, b := range def.Bases {
			ref, rerr := u.classRef(b)
			if rerr != nil {
				err = rerr
				return
			}
			bases = append(bases, ref)
		}

		cls := classes.NewSourceClass(u.src.Module, def.Name.Name, bases, toDiagSpan(def.Span()))
		if derr := u.define(cls); derr != nil {
			err = compilerError(def.Span(), "%v", derr)
			return
		}
		cs := &classState{
			cls:       cls,
			def:       def,
			out:       &classfile.File{Name: cls.Name(), SourceFile: u.module.SourceFile},
			functions: NewFunctionTable(),
			attrs:     make(map[string]bool),
		}
		u.classes = append(u.classes, cs)
		u.byDef[def] = cs
		u.classSyms[def.Name.Name] = &ClassSymbol{Class: cls}
	})
	return err
}

// declareFunctions collects module functions and the names assigned at
// module level before any body is lowered.
func (u *unit) declareFunctions() error {
	var err error
	moduleStatements(u.file.Body, func(s ast.Stmt) {
		if err != nil {
			return
		}
		switch s := s.(type) {
		case *ast.FuncDef:
			fn, ferr := u.declareFunction(s, u.module.Name(), false)
			if ferr != nil {
				err = ferr
				return
			}
			u.functions.Add(fn)
			u.fnByDef[s] = fn
		default:
			for _, name := range assignedNames(s) {
				u.globals[name] = true
			}
		}
	})
	if err != nil {
		return err
	}

	for _, cs := range u.classes {
		for _, s := range cs.def.Body {
			def, ok := s.(*ast.FuncDef)
			if !ok {
				continue
			}
			fn, err := u.declareFunction(def, cs.cls.Name(), true)
			if err != nil {
				return err
			}
			cs.functions.Add(fn)
			u.fnByDef[def] = fn
		}
	}

	ast.Walk(u.file, func(n ast.Node) bool {
		if g, ok := n.(*ast.GlobalStmt); ok {
			for _, id := range g.Names {
				u.globals[id.Name] = true
			}
		}
		return true
	})
	return nil
}

func (u *unit) compile() error {
	if err := u.declareFunctions(); err != nil {
		return err
	}

	w := NewWriter(&u.out.Pool)
	sc := &scope{w: w, vars: NewVarTable(), level: levelModule}

	if err := u.block(sc, u.file.Body); err != nil {
		return err
	}
	if w.Reachable() {
		w.Return()
	}
	return u.finishMethod(u.out, sc, classfile.ClassInit, "()V", classfile.MethodStatic, nil)
}

// finishMethod resolves the writer's code into a method of out.
func (u *unit) finishMethod(out *classfile.File, sc *scope, name, desc string, flags classfile.MethodFlags, params []classfile.Param) error {
	code, lines, werr := sc.w.Finish()
	if werr != nil {
		return werr
	}
	out.AddMethod(&classfile.Method{
		Name:      name,
		Desc:      desc,
		Flags:     flags,
		Params:    params,
		MaxLocals: uint16(sc.vars.MaxLocals()),
		MaxStack:  uint16(sc.w.MaxStack()),
		Code:      code,
		Lines:     lines,
	})
	return nil
}
