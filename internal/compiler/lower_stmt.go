package compiler

import (
	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
)

// block lowers statements in order. Every statement must leave the operand
// stack as it found it.
func (u *unit) block(sc *scope, body []ast.Stmt) error {
	for _, s := range body {
		before := sc.w.Depth()
		if err := u.stmt(sc, s); err != nil {
			return err
		}
		if err := sc.w.Err(); err != nil {
			return err
		}
		if after := sc.w.Depth(); after != before {
			return internalError(s.Span(), "statement changed the operand stack depth from %d to %d", before, after)
		}
	}
	return nil
}

func (u *unit) stmt(sc *scope, s ast.Stmt) error {
	sc.w.At(s.Span())

	switch s := s.(type) {
	case *ast.ExprStmt:
		x, err := u.expr(sc, s.X)
		if err != nil {
			return err
		}
		if Write(sc.w, x) != classes.Void {
			sc.w.Pop()
		}
		return nil

	case *ast.AssignStmt:
		return u.assign(sc, s.Targets, s.Value)

	case *ast.AnnAssignStmt:
		if s.Value == nil {
			if id, ok := s.Target.(*ast.Ident); ok && sc.level == levelFunction {
				sc.local(id.Name, id.Span())
			}
			return nil
		}
		return u.assign(sc, []ast.Expr{s.Target}, s.Value)

	case *ast.AugAssignStmt:
		return u.augAssign(sc, s)

	case *ast.IfStmt:
		return u.ifStmt(sc, s)

	case *ast.WhileStmt:
		return u.whileStmt(sc, s)

	case *ast.ForStmt:
		return u.forStmt(sc, s)

	case *ast.BreakStmt:
		loop, err := u.ctx.Loop("break", s.Span())
		if err != nil {
			return err
		}
		sc.w.Jump(classfile.OpGoto, loop.Break)
		return nil

	case *ast.ContinueStmt:
		loop, err := u.ctx.Loop("continue", s.Span())
		if err != nil {
			return err
		}
		sc.w.Jump(classfile.OpGoto, loop.Continue)
		return nil

	case *ast.PassStmt:
		return nil

	case *ast.ReturnStmt:
		return u.returnStmt(sc, s)

	case *ast.DelStmt:
		return u.delStmt(sc, s)

	case *ast.GlobalStmt:
		if sc.level == levelClass {
			return unsupported(s.Span(), "global in a class body")
		}
		return nil

	case *ast.ImportStmt:
		return u.importStmt(sc, s)

	case *ast.FromImportStmt:
		return u.fromImportStmt(sc, s)

	case *ast.FuncDef:
		return u.functionDef(sc, s)

	case *ast.ClassDef:
		return u.classDef(sc, s)

	case *ast.UnsupportedStmt:
		return unsupported(s.Span(), s.Construct)
	}
	return unsupported(s.Span(), "statement")
}

// target lowers an assignment target.
func (u *unit) target(sc *scope, e ast.Expr) (Settable, error) {
	switch e := e.(type) {
	case *ast.Ident:
		return u.nameTarget(sc, e.Name, e.Span()), nil
	case *ast.AttributeExpr:
		parent, err := u.expr(sc, e.X)
		if err != nil {
			return nil, err
		}
		return &MemberAttr{exprBase{e.Span()}, parent, e.Name.Name}, nil
	case *ast.IndexExpr:
		item, err := u.item(sc, e)
		if err != nil {
			return nil, err
		}
		return ItemTarget{item}, nil
	case *ast.TupleLit:
		return u.unpackTarget(sc, e.Elts, e)
	case *ast.ListLit:
		return u.unpackTarget(sc, e.Elts, e)
	case *ast.StarredExpr:
		return nil, unsupported(e.Span(), "starred assignment target")
	}
	return nil, compilerError(e.Span(), "cannot assign to this expression")
}

func (u *unit) unpackTarget(sc *scope, elts []ast.Expr, e ast.Expr) (Settable, error) {
	t := &UnpackTarget{exprBase: exprBase{e.Span()}}
	for _, elt := range elts {
		s, err := u.target(sc, elt)
		if err != nil {
			return nil, err
		}
		t.Targets = append(t.Targets, s)
	}
	return t, nil
}

func (u *unit) assign(sc *scope, targets []ast.Expr, value ast.Expr) error {
	v, err := u.expr(sc, value)
	if err != nil {
		return err
	}
	a := &Assignment{exprBase: exprBase{value.Span()}, Value: v}
	for _, t := range targets {
		s, err := u.target(sc, t)
		if err != nil {
			return err
		}
		a.Targets = append(a.Targets, s)
	}
	Write(sc.w, a)
	sc.w.Pop()
	return nil
}

// augAssign evaluates the target's container once.
func (u *unit) augAssign(sc *scope, s *ast.AugAssignStmt) error {
	entry, ok := binaryEntries[s.Op]
	if !ok {
		return unsupported(s.Span(), "augmented operator "+string(s.Op))
	}
	value, err := u.expr(sc, s.Value)
	if err != nil {
		return err
	}
	w := sc.w

	switch t := s.Target.(type) {
	case *ast.Ident:
		current, err := u.expr(sc, t)
		if err != nil {
			return err
		}
		target := u.nameTarget(sc, t.Name, t.Span())
		writeValue(w, current)
		writeValue(w, value)
		w.Invoke(entry)
		target.Set(w)

	case *ast.AttributeExpr:
		parent, err := u.expr(sc, t.X)
		if err != nil {
			return err
		}
		writeValue(w, parent)
		w.Dup()
		w.String(t.Name.Name)
		w.Invoke("getattr")
		writeValue(w, value)
		w.Invoke(entry)
		w.String(t.Name.Name)
		w.Swap()
		w.Invoke("setattr")

	case *ast.IndexExpr:
		item, err := u.item(sc, t)
		if err != nil {
			return err
		}
		container, key := sc.vars.Temp(), sc.vars.Temp()
		writeValue(w, item.Parent)
		w.Store(container)
		writeValue(w, item.Key)
		w.Store(key)

		w.Load(container, classes.Object)
		w.Load(key, classes.Object)
		w.Invoke("getitem")
		writeValue(w, value)
		w.Invoke(entry)

		w.Load(container, classes.Object)
		w.Swap()
		w.Load(key, classes.Object)
		w.Swap()
		w.Invoke("setitem")

	default:
		return compilerError(s.Target.Span(), "illegal target for augmented assignment")
	}
	return nil
}

func (u *unit) condition(sc *scope, cond ast.Expr, target *Label) error {
	c, err := u.expr(sc, cond)
	if err != nil {
		return err
	}
	writeCondition(sc.w, c, target)
	return nil
}

func (u *unit) ifStmt(sc *scope, s *ast.IfStmt) error {
	w := sc.w
	end := w.NewLabel()
	otherwise := end
	if len(s.Else) > 0 {
		otherwise = w.NewLabel()
	}

	if err := u.condition(sc, s.Cond, otherwise); err != nil {
		return err
	}
	if err := u.block(sc, s.Body); err != nil {
		return err
	}
	if len(s.Else) > 0 {
		w.Jump(classfile.OpGoto, end)
		w.Bind(otherwise)
		if err := u.block(sc, s.Else); err != nil {
			return err
		}
	}
	w.Bind(end)
	return nil
}

// loopBody lowers a loop body inside its loop context.
func (u *unit) loopBody(sc *scope, body []ast.Stmt, loop *LoopContext) error {
	pop := u.ctx.Push(loop)
	defer pop()
	return u.block(sc, body)
}

// finishLoop closes a loop whose back edge jumps to start. The else block
// runs when the condition fails; break skips it.
func (u *unit) finishLoop(sc *scope, start, exhausted, end *Label, orelse []ast.Stmt) error {
	w := sc.w
	w.Jump(classfile.OpGoto, start)
	if exhausted != end {
		w.Bind(exhausted)
		if err := u.block(sc, orelse); err != nil {
			return err
		}
	}
	w.Bind(end)
	return nil
}

func (u *unit) whileStmt(sc *scope, s *ast.WhileStmt) error {
	w := sc.w
	start, end := w.NewLabel(), w.NewLabel()
	exhausted := end
	if len(s.Else) > 0 {
		exhausted = w.NewLabel()
	}

	w.Bind(start)
	if err := u.condition(sc, s.Cond, exhausted); err != nil {
		return err
	}
	if err := u.loopBody(sc, s.Body, &LoopContext{Break: end, Continue: start}); err != nil {
		return err
	}
	return u.finishLoop(sc, start, exhausted, end, s.Else)
}

// forStmt drives the loop with the runtime iterator protocol; the iterator
// lives in a hidden slot.
func (u *unit) forStmt(sc *scope, s *ast.ForStmt) error {
	w := sc.w
	iterable, err := u.expr(sc, s.Iter)
	if err != nil {
		return err
	}
	target, err := u.target(sc, s.Target)
	if err != nil {
		return err
	}

	it := sc.vars.Temp()
	writeValue(w, iterable)
	w.Invoke("iter")
	w.Store(it)

	start, end := w.NewLabel(), w.NewLabel()
	exhausted := end
	if len(s.Else) > 0 {
		exhausted = w.NewLabel()
	}

	w.Bind(start)
	w.Load(it, classes.Object)
	w.Invoke("hasnext")
	w.Bool(true)
	w.Jump(classfile.OpIfICmpNE, exhausted)

	w.At(s.Target.Span())
	w.Load(it, classes.Object)
	w.Invoke("next")
	target.Set(w)

	if err := u.loopBody(sc, s.Body, &LoopContext{Break: end, Continue: start}); err != nil {
		return err
	}
	return u.finishLoop(sc, start, exhausted, end, s.Else)
}

func (u *unit) returnStmt(sc *scope, s *ast.ReturnStmt) error {
	if sc.level != levelFunction {
		return compilerError(s.Span(), "'return' outside function")
	}
	w := sc.w

	var value Expr
	if s.Value != nil {
		v, err := u.expr(sc, s.Value)
		if err != nil {
			return err
		}
		value = v
	}

	if sc.fn.Return == classes.Void {
		if value != nil {
			writeValue(w, value)
			w.Pop()
		}
		w.Return()
		return nil
	}
	if value == nil {
		w.None()
	} else {
		writeValue(w, value)
	}
	w.ReturnValue()
	return nil
}

func (u *unit) delStmt(sc *scope, s *ast.DelStmt) error {
	for _, t := range s.Targets {
		target, err := u.target(sc, t)
		if err != nil {
			return err
		}
		d, ok := target.(Deletable)
		if !ok {
			return compilerError(t.Span(), "cannot delete this expression")
		}
		d.Delete(sc.w)
	}
	return nil
}

// bindImported stores the value on top of the stack under alias in the
// scope the import statement appears in.
func (u *unit) bindImported(sc *scope, a *ast.ImportAlias) {
	u.nameTarget(sc, importAlias(a), a.Span()).Set(sc.w)
}

func (u *unit) importStmt(sc *scope, s *ast.ImportStmt) error {
	for _, a := range s.Names {
		sc.w.String(a.Name)
		sc.w.Invoke("import")
		u.bindImported(sc, a)
	}
	return nil
}

func (u *unit) fromImportStmt(sc *scope, s *ast.FromImportStmt) error {
	module, err := u.importedModule(s)
	if err != nil {
		return err
	}
	for _, a := range s.Names {
		if a.Name == "*" {
			return unsupported(a.Span(), "import *")
		}
		sc.w.String(module)
		sc.w.Invoke("import")
		sc.w.String(a.Name)
		sc.w.Invoke("getattr")
		u.bindImported(sc, a)
	}
	return nil
}

// functionDef lowers a def where it appears, so the contexts around it are
// visible to the boundary checks in its body.
func (u *unit) functionDef(sc *scope, def *ast.FuncDef) error {
	fn, ok := u.fnByDef[def]
	switch {
	case sc.level == levelFunction:
		return unsupported(def.Span(), "nested function")
	case !ok:
		return unsupported(def.Span(), "conditional method definition")
	}

	out := u.out
	var class *classState
	if sc.level == levelClass {
		class = sc.class
		out = class.out
		class.cls.AddMember(fn.Name())
	}

	if err := u.lowerFunction(fn, class, out); err != nil {
		return err
	}

	if sc.level == levelModule {
		// Bind the name so later rebinding and other modules see it.
		fn.Load(sc.w)
		u.nameTarget(sc, fn.Name(), def.Name.Span()).Set(sc.w)
	}
	return nil
}

func (u *unit) lowerFunction(fn *Function, class *classState, out *classfile.File) error {
	pop := u.ctx.Push(&FunctionContext{Function: fn})
	defer pop()

	locals, declared := functionLocals(fn.def.Body)
	sc := &scope{
		w:        NewWriter(&out.Pool),
		vars:     NewVarTable(),
		level:    levelFunction,
		fn:       fn,
		class:    class,
		locals:   locals,
		declared: declared,
	}
	if fn.HasReceiver() {
		sc.vars.Declare(fn.Receiver, fn.Span)
	}
	for _, p := range fn.Params {
		if declared[p.Name] {
			return compilerError(p.Span, "name '%s' is parameter and global", p.Name)
		}
		sc.vars.Declare(p.Name, p.Span)
	}

	sc.w.At(fn.Span)
	if err := u.block(sc, fn.def.Body); err != nil {
		return err
	}
	if sc.w.Reachable() {
		if fn.Return == classes.Void {
			sc.w.Return()
		} else {
			sc.w.None()
			sc.w.ReturnValue()
		}
	}
	return u.finishMethod(out, sc, fn.Name(), fn.Descriptor(), fn.Flags(), fn.paramTable(&out.Pool))
}

// classDef lowers the class body into the class initializer and, at the
// definition point, initializes the class and binds its name.
func (u *unit) classDef(sc *scope, def *ast.ClassDef) error {
	cs, ok := u.byDef[def]
	if !ok || sc.level != levelModule {
		return unsupported(def.Span(), "nested class")
	}
	if len(def.Decorators) > 0 {
		return unsupported(def.Decorators[0].Span(), "class decorator")
	}
	if len(def.Keywords) > 0 {
		return unsupported(def.Keywords[0].Span(), "class keyword argument")
	}

	supers, ifaces, err := cs.cls.Split(u.c.cache)
	if err != nil {
		return asError(err, def.Span())
	}
	for _, s := range supers {
		cs.out.Supers = append(cs.out.Supers, s.Name())
	}
	for _, i := range ifaces {
		cs.out.Interfaces = append(cs.out.Interfaces, i.Name())
	}
	cs.out.Flags = uint16(cs.cls.Flags())

	if err := u.lowerClassBody(cs); err != nil {
		return err
	}

	w := sc.w
	w.LoadClass(cs.cls.Name())
	w.Dup()
	w.Invoke("initclass")
	u.nameTarget(sc, def.Name.Name, def.Name.Span()).Set(w)
	return nil
}

func (u *unit) lowerClassBody(cs *classState) error {
	pop := u.ctx.Push(&ClassContext{Class: cs})
	defer pop()

	sc := &scope{w: NewWriter(&cs.out.Pool), vars: NewVarTable(), level: levelClass, class: cs}
	sc.w.At(cs.def.Span())
	if err := u.block(sc, cs.def.Body); err != nil {
		return err
	}
	if sc.w.Reachable() {
		sc.w.Return()
	}
	return u.finishMethod(cs.out, sc, classfile.ClassInit, "()V", classfile.MethodStatic, nil)
}
