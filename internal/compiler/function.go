package compiler

import (
	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/lexer"
)

// FunctionKind says how a function binds its receiver.
type FunctionKind int

const (
	ModuleFunction FunctionKind = iota
	InstanceMethod
	StaticMethod
	ClassMethod
)

func (k FunctionKind) String() string {
	switch k {
	case InstanceMethod:
		return "instance method"
	case StaticMethod:
		return "static method"
	case ClassMethod:
		return "class method"
	}
	return "function"
}

// Param is one declared parameter, receiver excluded.
type Param struct {
	Name    string
	Kind    classfile.ParamKind
	Type    classes.Type
	Default *Constant
	Span    lexer.Span
}

// Function is a def statement: a module function or a method.
type Function struct {
	name string
	Kind FunctionKind
	// Owner is the binary name of the module or class holding the method.
	Owner string
	// Receiver names the self or cls parameter of a method.
	Receiver string
	Params   []Param
	Return   classes.Type
	Span     lexer.Span

	def *ast.FuncDef
}

func (f *Function) Name() string { return f.name }

// HasReceiver reports whether slot 0 holds self or cls.
func (f *Function) HasReceiver() bool {
	return f.Kind == InstanceMethod || f.Kind == ClassMethod
}

// Descriptor is the method descriptor of the declared parameters and
// return type.
func (f *Function) Descriptor() string {
	params := make([]classes.Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return classes.MethodDescriptor(params, f.Return)
}

func (f *Function) Flags() classfile.MethodFlags {
	var flags classfile.MethodFlags
	switch f.Kind {
	case ModuleFunction, StaticMethod:
		flags |= classfile.MethodStatic
	case ClassMethod:
		flags |= classfile.MethodClassMethod
	}
	for _, p := range f.Params {
		switch p.Kind {
		case classfile.ParamVarArgs:
			flags |= classfile.MethodVarArgs
		case classfile.ParamVarKw:
			flags |= classfile.MethodVarKw
		}
	}
	return flags
}

// Accepts reports whether n positional arguments fit the parameter list.
func (f *Function) Accepts(n int) bool {
	required, max := 0, 0
	for _, p := range f.Params {
		switch p.Kind {
		case classfile.ParamVarArgs:
			max = -1
		case classfile.ParamVarKw:
		default:
			if p.Default == nil {
				required++
			}
			if max >= 0 {
				max++
			}
		}
	}
	return n >= required && (max < 0 || n <= max)
}

// paramTable encodes the parameters, interning defaults into pool.
func (f *Function) paramTable(pool *classfile.Pool) []classfile.Param {
	out := make([]classfile.Param, len(f.Params))
	for i, p := range f.Params {
		out[i] = classfile.Param{Name: p.Name, Desc: string(p.Type), Kind: p.Kind, Default: -1}
		if p.Default != nil {
			if c, ok := p.Default.Pool(); ok {
				out[i].Default = pool.Add(c)
			}
		}
	}
	return out
}

// loadOwner pushes the value the method is looked up on.
func (f *Function) loadOwner(w *Writer) {
	if f.Kind == InstanceMethod {
		w.Load(0, classes.Object)
		return
	}
	w.LoadClass(f.Owner)
}

func (f *Function) Load(w *Writer) {
	f.loadOwner(w)
	w.String(f.name)
	w.Invoke("getattr")
}

func (f *Function) WriteCall(w *Writer, args []Expr, kwargs []Keyword) {
	f.loadOwner(w)
	writeArgs(w, args, kwargs)
	w.InvokeDyn(f.name)
}

// functionKind reads the decorators of def.
func functionKind(def *ast.FuncDef, inClass bool) (FunctionKind, error) {
	kind := ModuleFunction
	if inClass {
		kind = InstanceMethod
	}
	for _, dec := range def.Decorators {
		id, ok := dec.(*ast.Ident)
		if !ok {
			return kind, compilerError(dec.Span(), "unsupported decorator on '%s'", def.Name.Name)
		}
		switch id.Name {
		case "staticmethod", "classmethod":
			if !inClass {
				return kind, compilerError(dec.Span(), "@%s is only valid inside a class", id.Name)
			}
			if len(def.Decorators) > 1 {
				return kind, compilerError(dec.Span(), "'%s' has conflicting decorators", def.Name.Name)
			}
			kind = StaticMethod
			if id.Name == "classmethod" {
				kind = ClassMethod
			}
		default:
			return kind, compilerError(dec.Span(), "unsupported decorator @%s on '%s'", id.Name, def.Name.Name)
		}
	}
	return kind, nil
}

// declareFunction builds the signature of def without lowering its body.
func (u *unit) declareFunction(def *ast.FuncDef, owner string, inClass bool) (*Function, error) {
	kind, err := functionKind(def, inClass)
	if err != nil {
		return nil, err
	}

	fn := &Function{name: def.Name.Name, Kind: kind, Owner: owner, Span: def.Span(), def: def}

	params := def.Params
	if fn.HasReceiver() {
		if len(params) == 0 || params[0].Kind != ast.ParamNormal {
			return nil, compilerError(def.Span(), "%s '%s' has no receiver parameter", kind, fn.name)
		}
		if params[0].Annotation != nil || params[0].Default != nil {
			return nil, compilerError(params[0].Span(), "receiver of '%s' cannot be annotated or defaulted", fn.name)
		}
		fn.Receiver = params[0].Name.Name
		params = params[1:]
	}

	seen := map[string]bool{fn.Receiver: fn.Receiver != ""}
	for _, p := range params {
		switch p.Kind {
		case ast.ParamKwOnlyMarker:
			return nil, unsupported(p.Span(), "keyword-only parameters")
		case ast.ParamPosOnlyMarker:
			return nil, unsupported(p.Span(), "positional-only parameters")
		}

		name := p.Name.Name
		if name == "self" {
			return nil, compilerError(p.Span(), "'self' parameter on %s '%s'", kind, fn.name)
		}
		if seen[name] {
			return nil, compilerError(p.Span(), "duplicate parameter '%s' in '%s'", name, fn.name)
		}
		seen[name] = true

		param, err := u.declareParam(p)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
	}

	fn.Return, err = u.returnType(def)
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (u *unit) declareParam(p *ast.Param) (Param, error) {
	param := Param{Name: p.Name.Name, Type: classes.Object, Span: p.Span()}

	switch p.Kind {
	case ast.ParamVarArgs:
		param.Kind, param.Type = classfile.ParamVarArgs, classes.Tuple
		return param, nil
	case ast.ParamKwArgs:
		param.Kind, param.Type = classfile.ParamVarKw, classes.Dict
		return param, nil
	}

	if p.Annotation != nil {
		t, err := u.resolveType(p.Annotation)
		if err != nil {
			return param, err
		}
		param.Type = t
	}
	if p.Default != nil {
		k, ok := constantValue(p.Default)
		if !ok {
			return param, unsupported(p.Default.Span(), "non-constant default value")
		}
		param.Default = k
	}

	switch {
	case p.Annotation != nil && p.Default != nil:
		param.Kind = classfile.ParamTypedDefault
	case p.Annotation != nil:
		param.Kind = classfile.ParamTyped
	case p.Default != nil:
		param.Kind = classfile.ParamDefaulted
	default:
		param.Kind = classfile.ParamPlain
	}
	return param, nil
}

// returnType is the annotated type, else Void when no return statement in
// the body carries a value, else Object.
func (u *unit) returnType(def *ast.FuncDef) (classes.Type, error) {
	if def.Returns != nil {
		if _, ok := def.Returns.(*ast.NoneLit); ok {
			return classes.Void, nil
		}
		return u.resolveType(def.Returns)
	}
	if returnsValue(def.Body) {
		return classes.Object, nil
	}
	return classes.Void, nil
}

func returnsValue(body []ast.Stmt) bool {
	found := false
	for _, s := range body {
		ast.Walk(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncDef, *ast.ClassDef:
				return false
			case *ast.ReturnStmt:
				if n.Value != nil {
					found = true
				}
			}
			return !found
		})
	}
	return found
}

// constantValue folds a literal, or a negated numeric literal.
func constantValue(e ast.Expr) (*Constant, bool) {
	switch e := e.(type) {
	case *ast.IntLit:
		return NewConstant(e.Value, e.Span()), true
	case *ast.FloatLit:
		return NewConstant(e.Value, e.Span()), true
	case *ast.StringLit:
		if e.Prefix != "" && e.Prefix != "r" && e.Prefix != "u" {
			return nil, false
		}
		return NewConstant(e.Value, e.Span()), true
	case *ast.BoolLit:
		return NewConstant(e.Value, e.Span()), true
	case *ast.NoneLit:
		return NewConstant(nil, e.Span()), true
	case *ast.UnaryExpr:
		if e.Op != lexer.MINUS {
			return nil, false
		}
		switch x := e.X.(type) {
		case *ast.IntLit:
			return NewConstant(-x.Value, e.Span()), true
		case *ast.FloatLit:
			return NewConstant(-x.Value, e.Span()), true
		}
	}
	return nil, false
}
