package runtime

import (
	"sort"

	"github.com/serpent-lang/serpent/internal/classes"
)

// Entry is a runtime entry point reachable from emitted code through
// invokestatic. The compiler reads Params and Return to track the operand
// stack; the VM pops len(Params) values and pushes a result unless Return
// is void.
type Entry struct {
	Name   string
	Desc   string
	Params []classes.Type
	Return classes.Type
	Fn     func(env *Env, args []any) (any, error)
}

// Entries holds every entry point by name.
var Entries = map[string]*Entry{}

// LookupEntry returns the entry point called name.
func LookupEntry(name string) (*Entry, bool) {
	e, ok := Entries[name]
	return e, ok
}

// EntryNames returns the entry names in sorted order.
func EntryNames() []string {
	names := make([]string, 0, len(Entries))
	for name := range Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func register(name string, params []classes.Type, ret classes.Type, fn func(env *Env, args []any) (any, error)) {
	Entries[name] = &Entry{
		Name:   name,
		Desc:   classes.MethodDescriptor(params, ret),
		Params: params,
		Return: ret,
		Fn:     fn,
	}
}

var (
	tObj    = classes.Object
	tStr    = classes.Str
	tArgs   = classes.ArrayOf(classes.Object)
	tKwargs = classes.Dict
)

// ArgsArray and KwargsMap convert the operands built by buildarray and
// buildkwargs.
func ArgsArray(v any) []any {
	a, _ := v.([]any)
	return a
}

func KwargsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func nameOperand(v any) string {
	s, _ := stringValue(v)
	return s
}

func binary(name string, fn func(a, b any) (any, error)) {
	register(name, []classes.Type{tObj, tObj}, tObj, func(_ *Env, a []any) (any, error) {
		return fn(a[0], a[1])
	})
}

func unaryOp(name string, fn func(a any) (any, error)) {
	register(name, []classes.Type{tObj}, tObj, func(_ *Env, a []any) (any, error) {
		return fn(a[0])
	})
}

func predicate(name string, fn func(a, b any) (bool, error)) {
	register(name, []classes.Type{tObj, tObj}, classes.Boolean, func(_ *Env, a []any) (any, error) {
		return fn(a[0], a[1])
	})
}

func ordering(op string, accept func(c int) bool) func(a, b any) (bool, error) {
	return func(a, b any) (bool, error) {
		c, err := Compare(a, b, op)
		return err == nil && accept(c), err
	}
}

func init() {
	register("getattr", []classes.Type{tObj, tStr}, tObj, func(_ *Env, a []any) (any, error) {
		return GetAttr(a[0], nameOperand(a[1]))
	})
	register("setattr", []classes.Type{tObj, tStr, tObj}, classes.Void, func(_ *Env, a []any) (any, error) {
		return nil, SetAttr(a[0], nameOperand(a[1]), a[2])
	})
	register("hasattr", []classes.Type{tObj, tStr}, classes.Boolean, func(_ *Env, a []any) (any, error) {
		return HasAttr(a[0], nameOperand(a[1]))
	})
	register("delattr", []classes.Type{tObj, tStr}, classes.Void, func(_ *Env, a []any) (any, error) {
		return nil, DelAttr(a[0], nameOperand(a[1]))
	})
	register("getglobal", []classes.Type{tObj, tStr}, tObj, func(env *Env, a []any) (any, error) {
		return env.GetGlobal(a[0], nameOperand(a[1]))
	})

	register("getitem", []classes.Type{tObj, tObj}, tObj, func(_ *Env, a []any) (any, error) {
		return GetItem(a[0], a[1])
	})
	register("setitem", []classes.Type{tObj, tObj, tObj}, classes.Void, func(_ *Env, a []any) (any, error) {
		return nil, SetItem(a[0], a[1], a[2])
	})
	register("delitem", []classes.Type{tObj, tObj}, classes.Void, func(_ *Env, a []any) (any, error) {
		return nil, DelItem(a[0], a[1])
	})

	register("call", []classes.Type{tObj, tArgs, tKwargs}, tObj, func(_ *Env, a []any) (any, error) {
		return Call(a[0], ArgsArray(a[1]), KwargsMap(a[2]))
	})
	register("callmember", []classes.Type{tObj, tStr, tArgs, tKwargs}, tObj, func(_ *Env, a []any) (any, error) {
		return CallMember(a[0], nameOperand(a[1]), ArgsArray(a[2]), KwargsMap(a[3]))
	})
	register("builtin", []classes.Type{tStr, tArgs, tKwargs}, tObj, func(env *Env, a []any) (any, error) {
		name := nameOperand(a[0])
		b, ok := env.Builtin(name)
		if !ok {
			return nil, Raise(NameError, "name '%s' is not defined", name)
		}
		return b.Call(ArgsArray(a[1]), KwargsMap(a[2]))
	})
	register("builtinref", []classes.Type{tStr}, tObj, func(env *Env, a []any) (any, error) {
		name := nameOperand(a[0])
		b, ok := env.Builtin(name)
		if !ok {
			return nil, Raise(NameError, "name '%s' is not defined", name)
		}
		return b, nil
	})
	register("import", []classes.Type{tStr}, tObj, func(env *Env, a []any) (any, error) {
		return env.Import(nameOperand(a[0]))
	})
	register("initclass", []classes.Type{tObj}, classes.Void, func(env *Env, a []any) (any, error) {
		if env.Hooks == nil {
			return nil, nil
		}
		return nil, env.Hooks.InitClass(a[0])
	})

	predicate("eq", func(a, b any) (bool, error) { return Equal(a, b), nil })
	predicate("ne", func(a, b any) (bool, error) { return !Equal(a, b), nil })
	predicate("lt", ordering("<", func(c int) bool { return c < 0 }))
	predicate("le", ordering("<=", func(c int) bool { return c <= 0 }))
	predicate("gt", ordering(">", func(c int) bool { return c > 0 }))
	predicate("ge", ordering(">=", func(c int) bool { return c >= 0 }))
	predicate("is", func(a, b any) (bool, error) { return Is(a, b), nil })
	predicate("isnot", func(a, b any) (bool, error) { return !Is(a, b), nil })
	predicate("in", func(a, b any) (bool, error) { return Contains(b, a) })
	predicate("notin", func(a, b any) (bool, error) {
		ok, err := Contains(b, a)
		return !ok, err
	})

	register("truth", []classes.Type{tObj}, classes.Boolean, func(_ *Env, a []any) (any, error) {
		return Truth(a[0]), nil
	})
	register("not", []classes.Type{tObj}, classes.Boolean, func(_ *Env, a []any) (any, error) {
		return !Truth(a[0]), nil
	})

	unaryOp("iter", func(a any) (any, error) { return Iterate(a) })
	register("hasnext", []classes.Type{tObj}, classes.Boolean, func(_ *Env, a []any) (any, error) {
		it, ok := a[0].(Iterator)
		if !ok {
			return nil, Raise(TypeError, "'%s' object is not an iterator", TypeName(a[0]))
		}
		return it.HasNext(), nil
	})
	unaryOp("next", func(a any) (any, error) {
		it, ok := a.(Iterator)
		if !ok {
			return nil, Raise(TypeError, "'%s' object is not an iterator", TypeName(a))
		}
		return it.Next()
	})

	binary("add", Add)
	binary("sub", Sub)
	binary("mul", Mul)
	binary("truediv", TrueDiv)
	binary("floordiv", FloorDiv)
	binary("mod", Mod)
	binary("pow", Pow)
	binary("lshift", LShift)
	binary("rshift", RShift)
	binary("and", BitAnd)
	binary("or", BitOr)
	binary("xor", BitXor)

	unaryOp("neg", Neg)
	unaryOp("pos", Pos)
	unaryOp("invert", Invert)
}
