package vm

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/classfile"
	"github.com/serpent-lang/serpent/internal/runtime"
)

// unboundSlot marks a local slot that holds no value.
type unboundSlot struct{}

var unbound any = unboundSlot{}

type frame struct {
	owner  *Class
	method *classfile.Method
	locals []any
	stack  []any
	pc     int
}

func (f *frame) push(v any) { f.stack = append(f.stack, v) }

func (f *frame) pop() any {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popN(n int) []any {
	out := make([]any, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

func (f *frame) top() any { return f.stack[len(f.stack)-1] }

// where names the frame for a traceback.
func (f *frame) where() Frame {
	name := f.method.Name
	if name == classfile.ClassInit {
		name = "<module>"
		if !f.owner.module {
			name = f.owner.display
		}
	}
	line := f.method.LineAt(f.pc)
	return Frame{File: f.owner.fileOf(f.method).SourceFile, Line: line, Function: name}
}

// invoke binds arguments to the parameter table of m and runs it.
func (vm *VM) invoke(owner *Class, m *classfile.Method, recv any, args []any, kwargs map[string]any) (any, error) {
	locals, err := bindArgs(owner, m, recv, args, kwargs)
	if err != nil {
		return nil, err
	}
	return vm.execute(owner, m, locals)
}

func bindArgs(owner *Class, m *classfile.Method, recv any, args []any, kwargs map[string]any) ([]any, error) {
	base := 0
	if hasReceiver(m) {
		base = 1
	}
	size := int(m.MaxLocals)
	if size < base+len(m.Params) {
		size = base + len(m.Params)
	}
	locals := make([]any, size)
	if base == 1 {
		locals[0] = recv
	}
	for i := base + len(m.Params); i < size; i++ {
		locals[i] = unbound
	}

	bound := make([]bool, len(m.Params))
	varargs, varkw := -1, -1
	next := 0
	for i, p := range m.Params {
		switch p.Kind {
		case classfile.ParamVarArgs:
			varargs = i
			continue
		case classfile.ParamVarKw:
			varkw = i
			continue
		}
		if next < len(args) {
			locals[base+i] = args[next]
			bound[i] = true
			next++
		}
	}

	if next < len(args) {
		if varargs < 0 {
			return nil, runtime.Raise(runtime.TypeError, "%s() takes %d positional arguments but %d were given", m.Name, next, len(args))
		}
		locals[base+varargs] = runtime.Tuple(append([]any(nil), args[next:]...))
		bound[varargs] = true
	}

	var extra *runtime.Dict
	if varkw >= 0 {
		extra = runtime.NewDict()
		locals[base+varkw] = extra
		bound[varkw] = true
	}
	names := make([]string, 0, len(kwargs))
	for k := range kwargs {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		i := paramIndex(m, k)
		switch {
		case i >= 0 && bound[i]:
			return nil, runtime.Raise(runtime.TypeError, "%s() got multiple values for argument '%s'", m.Name, k)
		case i >= 0:
			locals[base+i] = kwargs[k]
			bound[i] = true
		case extra != nil:
			if err := extra.Set(k, kwargs[k]); err != nil {
				return nil, err
			}
		default:
			return nil, runtime.Raise(runtime.TypeError, "%s() got an unexpected keyword argument '%s'", m.Name, k)
		}
	}

	for i, p := range m.Params {
		switch {
		case bound[i]:
		case p.Kind == classfile.ParamVarArgs:
			locals[base+i] = runtime.Tuple{}
		case p.Kind.HasDefault():
			v, err := defaultValue(owner, m, p)
			if err != nil {
				return nil, err
			}
			locals[base+i] = v
		default:
			return nil, runtime.Raise(runtime.TypeError, "%s() missing required argument: '%s'", m.Name, p.Name)
		}
	}
	return locals, nil
}

func paramIndex(m *classfile.Method, name string) int {
	for i, p := range m.Params {
		if p.Name == name && p.Kind != classfile.ParamVarArgs && p.Kind != classfile.ParamVarKw {
			return i
		}
	}
	return -1
}

func defaultValue(owner *Class, m *classfile.Method, p classfile.Param) (any, error) {
	if p.Default < 0 {
		return nil, nil
	}
	c, err := owner.fileOf(m).Pool.Get(p.Default)
	if err != nil {
		return nil, errors.Wrapf(err, "default of %s", p.Name)
	}
	return owner.vm.constant(c)
}

// constant converts a pool entry to a runtime value. Narrow integers and
// floats widen to int64 and float64.
func (vm *VM) constant(c classfile.Constant) (any, error) {
	switch v := c.Value.(type) {
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		if c.Kind == classfile.ConstChar {
			return runtime.Char(v), nil
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case string:
		if c.Kind == classfile.ConstClass {
			return vm.classValue(v)
		}
	}
	return c.Value, nil
}

// execute runs m with the given locals until it returns. Errors leave the
// frame's position in the traceback of the returned *Error.
func (vm *VM) execute(owner *Class, m *classfile.Method, locals []any) (result any, err error) {
	if vm.depth >= maxDepth {
		return nil, runtime.Raise(runtime.RuntimeError, "maximum recursion depth exceeded")
	}
	vm.depth++
	defer func() { vm.depth-- }()

	if len(locals) < int(m.MaxLocals) {
		grown := make([]any, m.MaxLocals)
		n := copy(grown, locals)
		for i := n; i < len(grown); i++ {
			grown[i] = unbound
		}
		locals = grown
	}
	f := &frame{owner: owner, method: m, locals: locals, stack: make([]any, 0, m.MaxStack)}

	defer func() {
		if err == nil {
			return
		}
		if e, ok := err.(*Error); ok {
			e.Trace = append(e.Trace, f.where())
			return
		}
		err = &Error{Err: err, Trace: []Frame{f.where()}}
	}()

	pool := &owner.fileOf(m).Pool
	for f.pc < len(m.Code) {
		in := m.Code[f.pc]
		switch in.Op {
		case classfile.OpNop:

		case classfile.OpConst:
			c, err := pool.Get(in.A)
			if err != nil {
				return nil, err
			}
			v, err := vm.constant(c)
			if err != nil {
				return nil, err
			}
			f.push(v)

		case classfile.OpNone:
			f.push(nil)

		case classfile.OpLoad:
			v := f.locals[in.A]
			if v == unbound {
				if in.B > 0 {
					return nil, unboundLocal(pool, in.B)
				}
				v = nil
			}
			f.push(v)

		case classfile.OpUnbind:
			if in.B > 0 && f.locals[in.A] == unbound {
				return nil, unboundLocal(pool, in.B)
			}
			f.locals[in.A] = unbound

		case classfile.OpStore:
			f.locals[in.A] = f.pop()

		case classfile.OpPop:
			f.pop()

		case classfile.OpDup:
			f.push(f.top())

		case classfile.OpSwap:
			n := len(f.stack)
			f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]

		case classfile.OpGoto:
			f.pc = int(in.A)
			continue

		case classfile.OpIfTrue, classfile.OpIfFalse:
			if runtime.Truth(f.pop()) == (in.Op == classfile.OpIfTrue) {
				f.pc = int(in.A)
				continue
			}

		case classfile.OpIfICmpEQ, classfile.OpIfICmpNE:
			b, a := f.pop(), f.pop()
			if runtime.Equal(a, b) == (in.Op == classfile.OpIfICmpEQ) {
				f.pc = int(in.A)
				continue
			}

		case classfile.OpInvokeStatic:
			name, err := pool.StringAt(in.A)
			if err != nil {
				return nil, err
			}
			entry, ok := runtime.LookupEntry(name)
			if !ok {
				return nil, errors.Errorf("unknown runtime entry %q", name)
			}
			v, err := entry.Fn(vm.env, f.popN(len(entry.Params)))
			if err != nil {
				return nil, err
			}
			if entry.Return != classes.Void {
				f.push(v)
			}

		case classfile.OpInvokeDyn:
			name, err := pool.StringAt(in.A)
			if err != nil {
				return nil, err
			}
			kwargs, args := runtime.KwargsMap(f.pop()), runtime.ArgsArray(f.pop())
			v, err := runtime.CallMember(f.pop(), name, args, kwargs)
			if err != nil {
				return nil, err
			}
			f.push(v)

		case classfile.OpLoadClass:
			name, err := pool.StringAt(in.A)
			if err != nil {
				return nil, err
			}
			v, err := vm.classValue(name)
			if err != nil {
				return nil, err
			}
			f.push(v)

		case classfile.OpCheckCast:
			if err := vm.checkCast(pool, in.A, f.top()); err != nil {
				return nil, err
			}

		case classfile.OpBuildArray:
			f.push(f.popN(int(in.A)))

		case classfile.OpBuildList:
			f.push(runtime.NewList(f.popN(int(in.A))...))

		case classfile.OpBuildTuple:
			f.push(runtime.Tuple(f.popN(int(in.A))))

		case classfile.OpBuildKwargs:
			items := f.popN(2 * int(in.A))
			kwargs := make(map[string]any, in.A)
			for i := 0; i < len(items); i += 2 {
				name, _ := items[i].(string)
				kwargs[name] = items[i+1]
			}
			f.push(kwargs)

		case classfile.OpBuildDict:
			items := f.popN(2 * int(in.A))
			d := runtime.NewDict()
			for i := 0; i < len(items); i += 2 {
				if err := d.Set(items[i], items[i+1]); err != nil {
					return nil, err
				}
			}
			f.push(d)

		case classfile.OpReturn:
			return nil, nil

		case classfile.OpReturnValue:
			return f.pop(), nil

		default:
			return nil, errors.Errorf("invalid opcode %d at pc %d", in.Op, f.pc)
		}
		f.pc++
	}
	return nil, nil
}

func unboundLocal(pool *classfile.Pool, name int32) error {
	s, err := pool.StringAt(name - 1)
	if err != nil {
		return err
	}
	return runtime.Raise(runtime.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", s)
}

func (vm *VM) checkCast(pool *classfile.Pool, index int32, v any) error {
	name, err := pool.StringAt(index)
	if err != nil {
		return err
	}
	if name == "py/object" || v == nil {
		return nil
	}
	cls, err := vm.classValue(name)
	if err != nil {
		return err
	}
	if ic, ok := cls.(runtime.InstanceChecker); ok && !ic.IsInstance(v) {
		return runtime.Raise(runtime.TypeError, "'%s' object cannot be cast to %s", runtime.TypeName(v), name)
	}
	return nil
}
