// Package vm loads compiled artifacts and runs them on a stack machine
// that shares its entry points with the compiler through internal/runtime.
//
// A VM is not safe for concurrent use.
package vm

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/runtime"
)

// maxDepth bounds nested calls.
const maxDepth = 1000

// Option configures a VM.
type Option func(*VM)

// WithStdout redirects print.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithHosts exposes Go types to programs under their dotted names.
func WithHosts(hosts classes.HostRegistry) Option {
	return func(vm *VM) {
		for name, t := range hosts {
			vm.hosts[name] = t
		}
	}
}

// WithLoader adds a source of artifacts. Loaders are consulted in the order
// given.
func WithLoader(l Loader) Option {
	return func(vm *VM) { vm.loaders = append(vm.loaders, l) }
}

// VM holds the loaded classes and modules of one program.
type VM struct {
	env     *runtime.Env
	stdout  io.Writer
	loaders chain
	defined MemLoader
	hosts   classes.HostRegistry

	classes map[string]any
	modules map[string]any
	depth   int
}

// New creates a VM. Artifacts passed to Define are seen before any loader.
func New(opts ...Option) *VM {
	vm := &VM{
		defined: make(MemLoader),
		hosts:   make(classes.HostRegistry),
		classes: make(map[string]any),
		modules: make(map[string]any),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.loaders = append(chain{vm.defined}, vm.loaders...)
	vm.env = runtime.NewEnv(vm.stdout, vm)
	return vm
}

// Define makes files loadable, replacing earlier artifacts with the same
// binary name. A module that was already loaded keeps its globals and runs
// its new initializer on the next Run; a redefined class is linked afresh.
func (vm *VM) Define(files ...*classfile.File) {
	vm.defined.Add(files...)
	for _, f := range files {
		v, ok := vm.classes[f.Name]
		if !ok {
			continue
		}
		if c, ok := v.(*Class); ok && c.module {
			c.setMethods(f)
			c.state = uninitialized
			continue
		}
		delete(vm.classes, f.Name)
	}
}

// Run initializes the module with the dotted name module as the main
// program: its __name__ is "__main__".
func (vm *VM) Run(module string) error {
	c, err := vm.moduleClass(module)
	if err != nil {
		return err
	}
	c.attrs["__name__"] = "__main__"
	vm.modules[module] = c
	return vm.initialize(c)
}

// Globals returns the sorted global names of a loaded module.
func (vm *VM) Globals(module string) []string {
	c, ok := vm.modules[module].(*Class)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(c.attrs))
	for name := range c.attrs {
		if !strings.HasPrefix(name, "__") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Global reads a global of a loaded module.
func (vm *VM) Global(module, name string) (any, bool) {
	c, ok := vm.modules[module].(*Class)
	if !ok {
		return nil, false
	}
	v, ok := c.attrs[name]
	return v, ok
}

func (vm *VM) moduleClass(module string) (*Class, error) {
	v, err := vm.classValue(classes.ModulePath(module).AsType())
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Class)
	if !ok || !c.module {
		return nil, runtime.Raise(runtime.ImportError, "'%s' is not a module", module)
	}
	if _, ok := c.attrs["__name__"]; !ok {
		c.attrs["__name__"] = module
	}
	return c, nil
}

// Import implements runtime.Hooks. It initializes a source module once,
// and otherwise returns a namespace for a package directory or a host
// package, or a registered host type.
func (vm *VM) Import(name string) (any, error) {
	if m, ok := vm.modules[name]; ok {
		if c, ok := m.(*Class); ok {
			return c, vm.initialize(c)
		}
		return m, nil
	}

	c, err := vm.moduleClass(name)
	switch {
	case err == nil:
		vm.modules[name] = c
		return c, vm.initialize(c)
	case !isNotFound(err):
		return nil, err
	}

	if t, ok := vm.hosts[name]; ok {
		return vm.hostType(name, t), nil
	}
	if vm.loaders.HasPackage(strings.ReplaceAll(name, ".", "/")) || vm.hostPackage(name) {
		p := &Package{vm: vm, name: name, attrs: map[string]any{"__name__": name}}
		vm.modules[name] = p
		return p, nil
	}
	return nil, runtime.Raise(runtime.ImportError, "No module named '%s'", name)
}

// InitClass implements runtime.Hooks.
func (vm *VM) InitClass(cls any) error {
	c, ok := cls.(*Class)
	if !ok {
		return nil
	}
	return vm.initialize(c)
}

// initialize runs the static initializer of c once. A module imported
// again while it initializes is returned as it is.
func (vm *VM) initialize(c *Class) error {
	if c.state != uninitialized {
		return nil
	}
	c.state = initializing
	m := c.file.Method(classfile.ClassInit)
	if m != nil {
		if _, err := vm.execute(c, m, nil); err != nil {
			c.state = uninitialized
			return err
		}
	}
	c.state = initialized
	return nil
}

func (vm *VM) hostPackage(name string) bool {
	prefix := name + "."
	for host := range vm.hosts {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

func (vm *VM) hostType(name string, t reflect.Type) *runtime.HostType {
	if v, ok := vm.classes[strings.ReplaceAll(name, ".", "/")].(*runtime.HostType); ok {
		return v
	}
	h := &runtime.HostType{Name: name, T: t}
	vm.classes[strings.ReplaceAll(name, ".", "/")] = h
	return h
}

// classValue returns the runtime value named by a binary name: a builtin
// type, a host type or a linked artifact.
func (vm *VM) classValue(name string) (any, error) {
	if v, ok := vm.classes[name]; ok {
		return v, nil
	}

	if builtin, ok := strings.CutPrefix(name, "py/"); ok {
		if b, ok := vm.env.Builtin(builtin); ok {
			vm.classes[name] = b
			return b, nil
		}
		if builtin == "object" {
			return objectClass, nil
		}
	}
	dotted := strings.ReplaceAll(name, "/", ".")
	if t, ok := vm.hosts[dotted]; ok {
		return vm.hostType(dotted, t), nil
	}

	f, err := vm.loaders.Load(name)
	if err != nil {
		return nil, err
	}
	c := newClass(vm, f)
	vm.classes[name] = c
	for _, s := range append(append([]string(nil), f.Supers...), f.Interfaces...) {
		sv, err := vm.classValue(s)
		if err != nil {
			delete(vm.classes, name)
			return nil, errors.Wrapf(err, "link %s", name)
		}
		if sv != objectClass {
			c.supers = append(c.supers, sv)
		}
	}
	return c, nil
}

// objectClass stands for py/object, the root every class derives from.
var objectClass = &runtime.Builtin{Name: "object", Fn: func(args []any, kwargs map[string]any) (any, error) {
	return nil, runtime.Raise(runtime.TypeError, "object() cannot be instantiated")
}}

// Frame is one entry of a traceback.
type Frame struct {
	File     string
	Line     int
	Function string
}

// Error is a program error with the frames it unwound through, innermost
// first.
type Error struct {
	Err   error
	Trace []Frame
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Traceback renders the frames outermost first, followed by the error.
func (e *Error) Traceback() string {
	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")
	for i := len(e.Trace) - 1; i >= 0; i-- {
		f := e.Trace[i]
		fmt.Fprintf(&sb, "  File \"%s\", line %d, in %s\n", f.File, f.Line, f.Function)
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}
