package vm

import (
	"fmt"
	"strings"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/runtime"
)

type initState uint8

const (
	uninitialized initState = iota
	initializing
	initialized
)

// Class is the runtime value of a loaded artifact: a source class, or a
// module when the artifact carries the module flag. A module's attributes
// are its globals.
type Class struct {
	vm      *VM
	file    *classfile.File
	display string
	module  bool

	attrs   map[string]any
	methods map[string][]*classfile.Method

	// origin maps every method ever installed to the artifact whose pool
	// its code indexes. Redefinition adds entries; functions bound from an
	// older version keep running against their own pool.
	origin map[*classfile.Method]*classfile.File

	supers []any
	state  initState
}

func newClass(vm *VM, f *classfile.File) *Class {
	c := &Class{
		vm:      vm,
		file:    f,
		display: f.Name[strings.LastIndexByte(f.Name, '/')+1:],
		module:  classes.Flags(f.Flags)&classes.FlagModule != 0,
		attrs:   make(map[string]any),
		origin:  make(map[*classfile.Method]*classfile.File),
	}
	c.setMethods(f)
	return c
}

func (c *Class) setMethods(f *classfile.File) {
	c.file = f
	c.methods = make(map[string][]*classfile.Method, len(f.Methods))
	for _, m := range f.Methods {
		c.origin[m] = f
		if m.Name == classfile.ClassInit {
			continue
		}
		c.methods[m.Name] = append(c.methods[m.Name], m)
	}
}

// fileOf returns the artifact m was loaded from.
func (c *Class) fileOf(m *classfile.Method) *classfile.File {
	if f, ok := c.origin[m]; ok {
		return f
	}
	return c.file
}

// mro lists c and its source class ancestors depth first, left to right,
// each once.
func (c *Class) mro() []*Class {
	var (
		out  []*Class
		seen = make(map[*Class]bool)
		walk func(*Class)
	)
	walk = func(k *Class) {
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
		for _, s := range k.supers {
			if sc, ok := s.(*Class); ok {
				walk(sc)
			}
		}
	}
	walk(c)
	return out
}

// inherits reports whether c is other or derives from it.
func (c *Class) inherits(other *Class) bool {
	for _, k := range c.mro() {
		if k == other {
			return true
		}
	}
	return false
}

// lookup finds name along the method resolution order: class attributes
// first, then methods, per class.
func (c *Class) lookup(name string) (owner *Class, attr any, methods []*classfile.Method, ok bool) {
	for _, k := range c.mro() {
		if v, found := k.attrs[name]; found {
			return k, v, nil, true
		}
		if ms := k.methods[name]; len(ms) > 0 {
			return k, nil, ms, true
		}
	}
	return nil, nil, nil, false
}

// bind turns a method group found on owner into the value seen through c
// or an instance of c. self is nil for access through the class.
func (c *Class) bind(owner *Class, name string, methods []*classfile.Method, self any) any {
	fn := &Function{owner: owner, name: name, methods: methods}
	flags := methods[len(methods)-1].Flags
	switch {
	case flags.Has(classfile.MethodClassMethod):
		return &runtime.BoundMethod{Self: c, Name: c.display + "." + name, Fn: fn}
	case flags.Has(classfile.MethodStatic), self == nil:
		return fn
	}
	return &runtime.BoundMethod{Self: self, Name: c.display + "." + name, Fn: fn}
}

func (c *Class) GetAttr(name string) (any, error) {
	if c.module {
		if v, ok := c.attrs[name]; ok {
			return v, nil
		}
		if ms := c.methods[name]; len(ms) > 0 {
			return &Function{owner: c, name: name, methods: ms}, nil
		}
		return nil, runtime.ErrNoAttribute
	}

	if name == "__name__" {
		return c.display, nil
	}
	owner, attr, methods, ok := c.lookup(name)
	switch {
	case !ok:
		return nil, runtime.ErrNoAttribute
	case methods == nil:
		return attr, nil
	}
	return c.bind(owner, name, methods, nil), nil
}

func (c *Class) AttrDict() map[string]any { return c.attrs }

// Call instantiates a source class and runs its __init__.
func (c *Class) Call(args []any, kwargs map[string]any) (any, error) {
	if c.module {
		return nil, runtime.Raise(runtime.TypeError, "'module' object is not callable")
	}
	obj := &Object{class: c, dict: make(map[string]any)}

	owner, _, methods, ok := c.lookup("__init__")
	if !ok || methods == nil {
		if len(args) > 0 || len(kwargs) > 0 {
			return nil, runtime.Raise(runtime.TypeError, "%s() takes no arguments", c.display)
		}
		return obj, nil
	}
	init := &Function{owner: owner, name: "__init__", methods: methods}
	ret, err := init.Call(append([]any{obj}, args...), kwargs)
	if err != nil {
		return nil, err
	}
	if ret != nil {
		return nil, runtime.Raise(runtime.TypeError, "__init__() should return None, not '%s'", runtime.TypeName(ret))
	}
	return obj, nil
}

func (c *Class) IsInstance(obj any) bool {
	o, ok := obj.(*Object)
	return ok && o.class.inherits(c)
}

func (c *Class) TypeName() string {
	if c.module {
		return "module"
	}
	return "type"
}

func (c *Class) String() string {
	if c.module {
		if name, ok := c.attrs["__name__"].(string); ok {
			return fmt.Sprintf("<module '%s'>", name)
		}
		return fmt.Sprintf("<module '%s'>", c.file.Name)
	}
	return fmt.Sprintf("<class '%s'>", c.display)
}

// Object is an instance of a source class.
type Object struct {
	class *Class
	dict  map[string]any
}

func (o *Object) GetAttr(name string) (any, error) {
	if v, ok := o.dict[name]; ok {
		return v, nil
	}
	if name == "__class__" {
		return o.class, nil
	}
	owner, attr, methods, ok := o.class.lookup(name)
	switch {
	case !ok:
		return nil, &runtime.AttributeError{Name: name, Object: o.class.display}
	case methods == nil:
		return attr, nil
	}
	return o.class.bind(owner, name, methods, o), nil
}

func (o *Object) AttrDict() map[string]any { return o.dict }

func (o *Object) ClassValue() any { return o.class }

func (o *Object) TypeName() string { return o.class.display }

// String uses a __str__ or __repr__ method when the class defines one.
func (o *Object) String() string {
	for _, name := range []string{"__str__", "__repr__"} {
		owner, _, methods, ok := o.class.lookup(name)
		if !ok || methods == nil {
			continue
		}
		fn := &Function{owner: owner, name: name, methods: methods}
		if s, err := fn.Call([]any{o}, nil); err == nil {
			if str, ok := s.(string); ok {
				return str
			}
		}
	}
	return fmt.Sprintf("<%s object>", o.class.display)
}

// Function is a group of same-name methods of one module or class. A call
// runs the first definition accepting the positional argument count, or
// the last definition when none does.
type Function struct {
	owner   *Class
	name    string
	methods []*classfile.Method
}

func (f *Function) Call(args []any, kwargs map[string]any) (any, error) {
	m := f.methods[len(f.methods)-1]
	for _, cand := range f.methods {
		n := len(args)
		if hasReceiver(cand) {
			n--
		}
		if accepts(cand, n) {
			m = cand
			break
		}
	}

	var recv any
	if hasReceiver(m) {
		if len(args) == 0 {
			return nil, runtime.Raise(runtime.TypeError, "%s() missing required receiver", f.name)
		}
		recv, args = args[0], args[1:]
	}
	return f.owner.vm.invoke(f.owner, m, recv, args, kwargs)
}

func (f *Function) TypeName() string { return "function" }

func (f *Function) String() string {
	if f.owner.module {
		return fmt.Sprintf("<function %s>", f.name)
	}
	return fmt.Sprintf("<function %s.%s>", f.owner.display, f.name)
}

func hasReceiver(m *classfile.Method) bool {
	return !m.Flags.Has(classfile.MethodStatic)
}

// accepts reports whether n positional arguments fit m, receiver excluded.
func accepts(m *classfile.Method, n int) bool {
	required, max := 0, 0
	for _, p := range m.Params {
		switch p.Kind {
		case classfile.ParamVarArgs:
			max = -1
		case classfile.ParamVarKw:
		default:
			if !p.Kind.HasDefault() {
				required++
			}
			if max >= 0 {
				max++
			}
		}
	}
	return n >= required && (max < 0 || n <= max)
}

// Package is the namespace value of a dotted import that names a directory
// of modules or a prefix of registered host types.
type Package struct {
	vm    *VM
	name  string
	attrs map[string]any
}

func (p *Package) GetAttr(name string) (any, error) {
	if v, ok := p.attrs[name]; ok {
		return v, nil
	}
	v, err := p.vm.Import(p.name + "." + name)
	if err != nil {
		if runtime.IsKind(err, runtime.ImportError) {
			return nil, runtime.ErrNoAttribute
		}
		return nil, err
	}
	p.attrs[name] = v
	return v, nil
}

func (p *Package) AttrDict() map[string]any { return p.attrs }

func (p *Package) TypeName() string { return "module" }

func (p *Package) String() string { return fmt.Sprintf("<package '%s'>", p.name) }
