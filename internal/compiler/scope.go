package compiler

import (
	"strings"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/lexer"
	"github.com/serpent-lang/serpent/internal/runtime"
)

type scopeLevel int

const (
	levelModule scopeLevel = iota
	levelClass
	levelFunction
)

// scope is the method under construction: its writer, its locals, and the
// function or class body it belongs to. It is passed down explicitly.
type scope struct {
	w     *Writer
	vars  *VarTable
	level scopeLevel

	fn    *Function
	class *classState

	// locals are the names a function body assigns; declared are the
	// names it lists in global statements.
	locals   map[string]bool
	declared map[string]bool
}

// assignedNames returns the plain names a statement binds directly, not
// looking into nested blocks.
func assignedNames(s ast.Stmt) []string {
	var names []string
	var targets func(e ast.Expr)
	targets = func(e ast.Expr) {
		switch e := e.(type) {
		case *ast.Ident:
			names = append(names, e.Name)
		case *ast.TupleLit:
			for _, elt := range e.Elts {
				targets(elt)
			}
		case *ast.ListLit:
			for _, elt := range e.Elts {
				targets(elt)
			}
		}
	}

	switch s := s.(type) {
	case *ast.AssignStmt:
		for _, t := range s.Targets {
			targets(t)
		}
	case *ast.AnnAssignStmt:
		targets(s.Target)
	case *ast.AugAssignStmt:
		targets(s.Target)
	case *ast.ForStmt:
		targets(s.Target)
	case *ast.DelStmt:
		for _, t := range s.Targets {
			targets(t)
		}
	case *ast.ImportStmt:
		for _, a := range s.Names {
			names = append(names, importAlias(a))
		}
	case *ast.FromImportStmt:
		for _, a := range s.Names {
			names = append(names, importAlias(a))
		}
	}
	return names
}

func importAlias(a *ast.ImportAlias) string {
	if a.Alias != nil {
		return a.Alias.Name
	}
	return a.Name
}

// functionLocals finds the names local to a function body and those it
// declares global.
func functionLocals(body []ast.Stmt) (locals, declared map[string]bool) {
	locals, declared = make(map[string]bool), make(map[string]bool)
	for _, s := range body {
		ast.Walk(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncDef, *ast.ClassDef:
				return false
			case *ast.GlobalStmt:
				for _, id := range n.Names {
					declared[id.Name] = true
				}
			case ast.Stmt:
				for _, name := range assignedNames(n) {
					locals[name] = true
				}
			}
			return true
		})
	}
	for name := range declared {
		delete(locals, name)
	}
	return locals, declared
}

// isLocal reports whether name refers to a slot of the current function.
func (sc *scope) isLocal(name string) bool {
	if sc.level != levelFunction || sc.declared[name] {
		return false
	}
	if _, ok := sc.vars.Lookup(name); ok {
		return true
	}
	return sc.locals[name]
}

// local returns the reference for a local name, allocating its slot.
func (sc *scope) local(name string, span lexer.Span) Settable {
	if sc.fn != nil && sc.fn.HasReceiver() && name == sc.fn.Receiver {
		return SelfRef{exprBase{span}}
	}
	return &VariableRef{exprBase{span}, sc.vars.Declare(name, span)}
}

// resolveName lowers a name in read position.
func (u *unit) resolveName(sc *scope, name string, span lexer.Span) Expr {
	if sc.isLocal(name) {
		return sc.local(name, span)
	}
	if sc.level == levelClass && sc.class.attrs[name] {
		return &ClassAttrRef{exprBase{span}, sc.class.cls.Name(), name}
	}
	return u.globalName(name, span)
}

// globalName resolves a module-level name: imports, classes and functions
// defined here, assigned globals, then builtins.
func (u *unit) globalName(name string, span lexer.Span) Expr {
	global := &GlobalRef{exprBase{span}, u.module.Name(), name}
	if u.c.known[name] {
		return global
	}
	if sym, ok := u.imports.Lookup(name); ok {
		return &SymbolRef{exprBase{span}, sym}
	}
	if !u.globals[name] {
		if cs, ok := u.classSyms[name]; ok {
			return &SymbolRef{exprBase{span}, cs}
		}
		if fn, ok := u.functions.Last(name); ok {
			return &SymbolRef{exprBase{span}, fn}
		}
	}
	if u.globals[name] {
		return global
	}
	if runtime.IsBuiltin(name) {
		return &SymbolRef{exprBase{span}, &Builtin{name: name}}
	}
	return global
}

// nameTarget lowers a name in store position.
func (u *unit) nameTarget(sc *scope, name string, span lexer.Span) Settable {
	switch sc.level {
	case levelFunction:
		if !sc.declared[name] {
			return sc.local(name, span)
		}
	case levelClass:
		sc.class.attrs[name] = true
		sc.class.cls.AddMember(name)
		return &ClassAttrRef{exprBase{span}, sc.class.cls.Name(), name}
	}
	return &GlobalRef{exprBase{span}, u.module.Name(), name}
}

// dottedName flattens a chain of attribute accesses on a name.
func dottedName(e ast.Expr) (string, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name, true
	case *ast.AttributeExpr:
		prefix, ok := dottedName(e.X)
		if !ok {
			return "", false
		}
		return prefix + "." + e.Name.Name, true
	}
	return "", false
}

// qualify rewrites the first segment of a dotted name through the imports
// and the classes of this module.
func (u *unit) qualify(dotted string) string {
	head, rest, _ := strings.Cut(dotted, ".")
	if cs, ok := u.classSyms[head]; ok && rest == "" {
		return cs.Class.Name()
	}
	if q, ok := u.imports.Qualified(dotted); ok {
		return q
	}
	if q, ok := u.imports.Qualified(head); ok {
		if rest == "" {
			return q
		}
		return q + "." + rest
	}
	return dotted
}

// classRef creates the unresolved reference for a base class expression.
func (u *unit) classRef(e ast.Expr) (*classes.ClassRef, error) {
	if _, ok := e.(*ast.StarredExpr); ok {
		return nil, unsupported(e.Span(), "starred base class")
	}
	dotted, ok := dottedName(e)
	if !ok {
		return nil, unsupported(e.Span(), "computed base class")
	}
	return classes.NewClassRef(u.qualify(dotted), toDiagSpan(e.Span())), nil
}

// resolveType maps an annotation to a descriptor.
func (u *unit) resolveType(e ast.Expr) (classes.Type, error) {
	var dotted string
	switch a := e.(type) {
	case *ast.NoneLit:
		return classes.NoneType, nil
	case *ast.StringLit:
		dotted = a.Value
	case *ast.IndexExpr:
		return u.resolveType(a.X)
	default:
		var ok bool
		if dotted, ok = dottedName(e); !ok {
			return "", unsupported(e.Span(), "annotation expression")
		}
	}

	if b, ok := u.c.cache.Builtin(dotted); ok && !u.shadowsBuiltin(dotted) {
		return b.Descriptor(), nil
	}
	cls, err := u.c.cache.Resolve(u.qualify(dotted), toDiagSpan(e.Span()))
	if err != nil {
		return "", asError(err, e.Span())
	}
	return cls.Descriptor(), nil
}

func (u *unit) shadowsBuiltin(name string) bool {
	if _, ok := u.classSyms[name]; ok {
		return true
	}
	_, ok := u.imports.Lookup(name)
	return ok
}

// importedModule returns the absolute module a from-import reads.
func (u *unit) importedModule(s *ast.FromImportStmt) (string, error) {
	if s.Level == 0 {
		return s.Module, nil
	}
	segs := u.src.Module.Segments()
	if s.Level > len(segs) {
		return "", compilerError(s.Span(), "relative import beyond the top-level package")
	}
	base := strings.Join(segs[:len(segs)-s.Level], ".")
	switch {
	case base == "":
		return s.Module, nil
	case s.Module == "":
		return base, nil
	}
	return base + "." + s.Module, nil
}

// bindImports records the symbols of a module-level import statement.
func (u *unit) bindImports(s ast.Stmt) error {
	owner := u.module.Name()
	switch s := s.(type) {
	case *ast.ImportStmt:
		for _, a := range s.Names {
			u.imports.Bind(&ModuleSymbol{ImportSymbol{Alias: importAlias(a), Qualified: a.Name, Module: owner, Span: a.Span()}})
		}
	case *ast.FromImportStmt:
		module, err := u.importedModule(s)
		if err != nil {
			return err
		}
		for _, a := range s.Names {
			if a.Name == "*" {
				return unsupported(a.Span(), "import *")
			}
			u.imports.Bind(&ImportSymbol{Alias: importAlias(a), Qualified: module + "." + a.Name, Module: owner, Span: a.Span()})
		}
	}
	return nil
}
