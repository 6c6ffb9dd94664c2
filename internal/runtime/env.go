package runtime

import (
	"io"
	"os"
)

// Hooks connect the runtime library to the program loader.
type Hooks interface {
	// Import returns the module value for a dotted name.
	Import(name string) (any, error)
	// InitClass runs the static initializer of a class value once.
	InitClass(cls any) error
}

// nativeModules are importable without a loader.
var nativeModules = map[string]func() *Module{
	"math": MathModule,
}

// IsNativeModule reports whether name is a module the runtime provides.
func IsNativeModule(name string) bool {
	_, ok := nativeModules[name]
	return ok
}

// Env is the per-program state the runtime entry points work against.
type Env struct {
	Stdout io.Writer
	Hooks  Hooks

	builtins map[string]*Builtin
	modules  map[string]any
}

// NewEnv returns an environment writing to stdout. A nil writer means
// os.Stdout; nil hooks disable imports of non-native modules.
func NewEnv(stdout io.Writer, hooks Hooks) *Env {
	if stdout == nil {
		stdout = os.Stdout
	}
	env := &Env{Stdout: stdout, Hooks: hooks}
	env.builtins = newBuiltins(env)
	env.modules = make(map[string]any, len(nativeModules))
	for name, mk := range nativeModules {
		env.modules[name] = mk()
	}
	return env
}

// Builtin returns the builtin function called name.
func (e *Env) Builtin(name string) (*Builtin, bool) {
	b, ok := e.builtins[name]
	return b, ok
}

// Import resolves native modules first and then asks the hooks.
func (e *Env) Import(name string) (any, error) {
	if m, ok := e.modules[name]; ok {
		return m, nil
	}
	if e.Hooks == nil {
		return nil, Raise(ImportError, "No module named '%s'", name)
	}
	m, err := e.Hooks.Import(name)
	if err != nil {
		return nil, err
	}
	e.modules[name] = m
	return m, nil
}

// GetGlobal reads a module level name, falling back to the builtins.
func (e *Env) GetGlobal(module any, name string) (any, error) {
	if module != nil {
		v, err := GetAttr(module, name)
		if err == nil {
			return v, nil
		}
		if _, ok := err.(*AttributeError); !ok {
			return nil, err
		}
	}
	if b, ok := e.builtins[name]; ok {
		return b, nil
	}
	return nil, Raise(NameError, "name '%s' is not defined", name)
}
