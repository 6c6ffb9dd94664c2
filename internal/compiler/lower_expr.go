package compiler

import (
	"strings"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/lexer"
)

var binaryEntries = map[lexer.TokenType]string{
	lexer.PLUS:        "add",
	lexer.MINUS:       "sub",
	lexer.ASTERISK:    "mul",
	lexer.SLASH:       "truediv",
	lexer.FLOOR_DIV:   "floordiv",
	lexer.PERCENT:     "mod",
	lexer.POWER:       "pow",
	lexer.SHIFT_LEFT:  "lshift",
	lexer.SHIFT_RIGHT: "rshift",
	lexer.AMPERSAND:   "and",
	lexer.PIPE:        "or",
	lexer.CARET:       "xor",
}

var unaryEntries = map[lexer.TokenType]string{
	lexer.MINUS: "neg",
	lexer.PLUS:  "pos",
	lexer.TILDE: "invert",
}

var compareEntries = map[ast.CompareOp]string{
	ast.CmpEq:    "eq",
	ast.CmpNotEq: "ne",
	ast.CmpLt:    "lt",
	ast.CmpLe:    "le",
	ast.CmpGt:    "gt",
	ast.CmpGe:    "ge",
	ast.CmpIs:    "is",
	ast.CmpIsNot: "isnot",
	ast.CmpIn:    "in",
	ast.CmpNotIn: "notin",
}

// expr lowers a parsed expression in read position.
func (u *unit) expr(sc *scope, e ast.Expr) (Expr, error) {
	span := e.Span()
	base := exprBase{span}

	switch e := e.(type) {
	case *ast.Ident:
		return u.resolveName(sc, e.Name, span), nil

	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.NoneLit:
		k, _ := constantValue(e)
		return k, nil

	case *ast.StringLit:
		k, ok := constantValue(e)
		if !ok {
			return nil, unsupported(span, e.Prefix+"-string literal")
		}
		return k, nil

	case *ast.UnaryExpr:
		if k, ok := constantValue(e); ok {
			return k, nil
		}
		x, err := u.expr(sc, e.X)
		if err != nil {
			return nil, err
		}
		if e.Op == lexer.NOT {
			return &Not{base, x}, nil
		}
		entry, ok := unaryEntries[e.Op]
		if !ok {
			return nil, unsupported(span, "unary "+string(e.Op))
		}
		return &UnaryOp{base, entry, x}, nil

	case *ast.BinaryExpr:
		entry, ok := binaryEntries[e.Op]
		if !ok {
			return nil, unsupported(span, "operator "+string(e.Op))
		}
		x, y, err := u.pair(sc, e.X, e.Y)
		if err != nil {
			return nil, err
		}
		return &BinaryOp{base, entry, x, y}, nil

	case *ast.BoolOpExpr:
		x, y, err := u.pair(sc, e.X, e.Y)
		if err != nil {
			return nil, err
		}
		return &BoolOp{base, e.Op == lexer.AND, x, y}, nil

	case *ast.CompareExpr:
		return u.comparison(sc, e)

	case *ast.CondExpr:
		cond, err := u.expr(sc, e.Cond)
		if err != nil {
			return nil, err
		}
		then, otherwise, err := u.pair(sc, e.Then, e.Else)
		if err != nil {
			return nil, err
		}
		return &Conditional{base, cond, then, otherwise}, nil

	case *ast.CallExpr:
		return u.call(sc, e)

	case *ast.AttributeExpr:
		if sym, ok := u.dottedImport(sc, e); ok {
			return sym, nil
		}
		parent, err := u.expr(sc, e.X)
		if err != nil {
			return nil, err
		}
		return &MemberAttr{base, parent, e.Name.Name}, nil

	case *ast.IndexExpr:
		item, err := u.item(sc, e)
		if err != nil {
			return nil, err
		}
		return item, nil

	case *ast.ListLit:
		elts, err := u.elements(sc, e.Elts)
		if err != nil {
			return nil, err
		}
		return &ListLit{base, elts}, nil

	case *ast.TupleLit:
		elts, err := u.elements(sc, e.Elts)
		if err != nil {
			return nil, err
		}
		return &TupleLit{base, elts}, nil

	case *ast.DictLit:
		keys, err := u.elements(sc, e.Keys)
		if err != nil {
			return nil, err
		}
		values, err := u.elements(sc, e.Values)
		if err != nil {
			return nil, err
		}
		return &DictLit{base, keys, values}, nil

	case *ast.SetLit:
		return nil, unsupported(span, "set literal")
	case *ast.SliceExpr:
		return nil, unsupported(span, "slice")
	case *ast.StarredExpr:
		return nil, unsupported(span, "starred expression")
	case *ast.UnsupportedExpr:
		return nil, unsupported(span, e.Construct)
	}
	return nil, unsupported(span, "expression")
}

func (u *unit) pair(sc *scope, a, b ast.Expr) (Expr, Expr, error) {
	x, err := u.expr(sc, a)
	if err != nil {
		return nil, nil, err
	}
	y, err := u.expr(sc, b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (u *unit) elements(sc *scope, elts []ast.Expr) ([]Expr, error) {
	out := make([]Expr, 0, len(elts))
	for _, e := range elts {
		if _, ok := e.(*ast.StarredExpr); ok {
			return nil, unsupported(e.Span(), "unpacking in a literal")
		}
		x, err := u.expr(sc, e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (u *unit) comparison(sc *scope, e *ast.CompareExpr) (Expr, error) {
	left, err := u.expr(sc, e.Left)
	if err != nil {
		return nil, err
	}
	c := &Comparison{exprBase: exprBase{e.Span()}, Left: left}
	for i, op := range e.Ops {
		entry, ok := compareEntries[op]
		if !ok {
			return nil, unsupported(e.Span(), "comparison "+string(op))
		}
		right, err := u.expr(sc, e.Comparators[i])
		if err != nil {
			return nil, err
		}
		c.Ops = append(c.Ops, entry)
		c.Comparators = append(c.Comparators, right)
	}
	if len(c.Ops) > 1 {
		c.Temp = sc.vars.Temp()
	}
	return c, nil
}

func (u *unit) item(sc *scope, e *ast.IndexExpr) (*MemberItem, error) {
	if _, ok := e.Index.(*ast.SliceExpr); ok {
		return nil, unsupported(e.Index.Span(), "slice")
	}
	parent, key, err := u.pair(sc, e.X, e.Index)
	if err != nil {
		return nil, err
	}
	return &MemberItem{exprBase{e.Span()}, parent, key}, nil
}

// dottedImport resolves a.b.c when a.b was bound by "import a.b".
func (u *unit) dottedImport(sc *scope, e *ast.AttributeExpr) (Expr, bool) {
	dotted, ok := dottedName(e)
	if !ok {
		return nil, false
	}
	head, _, _ := strings.Cut(dotted, ".")
	if sc.isLocal(head) {
		return nil, false
	}
	if sym, ok := u.imports.Lookup(dotted); ok {
		return &SymbolRef{exprBase{e.Span()}, sym}, true
	}
	return nil, false
}

// call lowers a call, choosing the static path when the callee is a known
// symbol.
func (u *unit) call(sc *scope, e *ast.CallExpr) (Expr, error) {
	c := &MemberCall{exprBase: exprBase{e.Span()}}

	for _, a := range e.Args {
		switch {
		case a.Star:
			return nil, unsupported(a.Span(), "*args in a call")
		case a.DoubleStar:
			return nil, unsupported(a.Span(), "**kwargs in a call")
		}
		v, err := u.expr(sc, a.Value)
		if err != nil {
			return nil, err
		}
		if a.Name != nil {
			for _, kw := range c.Kwargs {
				if kw.Name == a.Name.Name {
					return nil, compilerError(a.Span(), "keyword argument repeated: %s", kw.Name)
				}
			}
			c.Kwargs = append(c.Kwargs, Keyword{Name: a.Name.Name, Value: v})
			continue
		}
		if len(c.Kwargs) > 0 {
			return nil, compilerError(a.Span(), "positional argument follows keyword argument")
		}
		c.Args = append(c.Args, v)
	}

	if fn, ok := u.methodSymbol(sc, e.Func); ok {
		c.Callee = &SymbolRef{exprBase{e.Func.Span()}, fn}
		return c, nil
	}

	callee, err := u.expr(sc, e.Func)
	if err != nil {
		return nil, err
	}
	switch r := callee.(type) {
	case *SymbolRef:
		if m, ok := r.Sym.(*ModuleSymbol); ok {
			return nil, compilerError(e.Func.Span(), "module '%s' is not callable", m.Qualified)
		}
	case *VariableRef:
		callee = &SymbolRef{r.exprBase, r.v}
	}
	c.Callee = callee
	return c, nil
}

// methodSymbol finds the method behind self.m or C.m when it is known
// statically: any method of the current class through its receiver, and
// static or class methods through the class name.
func (u *unit) methodSymbol(sc *scope, callee ast.Expr) (*Function, bool) {
	attr, ok := callee.(*ast.AttributeExpr)
	if !ok {
		return nil, false
	}
	id, ok := attr.X.(*ast.Ident)
	if !ok {
		return nil, false
	}

	if sc.fn != nil && sc.fn.Kind == InstanceMethod && sc.class != nil && id.Name == sc.fn.Receiver {
		if fn, ok := sc.class.functions.Last(attr.Name.Name); ok && fn.Kind == InstanceMethod {
			return fn, true
		}
		return nil, false
	}

	if sc.isLocal(id.Name) || u.globals[id.Name] {
		return nil, false
	}
	cs, ok := u.classSyms[id.Name]
	if !ok {
		return nil, false
	}
	for _, state := range u.classes {
		if state.cls != cs.Class {
			continue
		}
		if fn, ok := state.functions.Last(attr.Name.Name); ok && fn.Kind != InstanceMethod {
			return fn, true
		}
	}
	return nil, false
}
