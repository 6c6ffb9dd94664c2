// Package classfile defines the binary artifact produced for every source
// module and class: a constant pool, methods with stack machine code and
// line tables, and the class header.
package classfile

import "strings"

const (
	// Magic starts every artifact.
	Magic = "SRPC"
	// Version is bumped on any incompatible layout change.
	Version uint16 = 1
	// Ext is the artifact file extension.
	Ext = ".sclass"

	// ClassInit is the static initializer run when a class or module is
	// first initialised.
	ClassInit = "<clinit>"
)

// MethodFlags describe how a method binds and collects arguments.
type MethodFlags uint16

const (
	MethodStatic MethodFlags = 1 << iota
	MethodClassMethod
	MethodVarArgs
	MethodVarKw
)

func (f MethodFlags) Has(want MethodFlags) bool { return f&want == want }

func (f MethodFlags) String() string {
	var parts []string
	if f.Has(MethodStatic) {
		parts = append(parts, "static")
	}
	if f.Has(MethodClassMethod) {
		parts = append(parts, "classmethod")
	}
	if f.Has(MethodVarArgs) {
		parts = append(parts, "varargs")
	}
	if f.Has(MethodVarKw) {
		parts = append(parts, "varkw")
	}
	return strings.Join(parts, " ")
}

// ParamKind mirrors the source parameter forms.
type ParamKind uint8

const (
	ParamPlain ParamKind = iota
	ParamTyped
	ParamTypedDefault
	ParamDefaulted
	ParamVarArgs
	ParamVarKw
)

var paramKindNames = [...]string{"plain", "typed", "typed-default", "defaulted", "varargs", "varkw"}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return "param?"
}

// HasDefault reports whether the kind carries a default value.
func (k ParamKind) HasDefault() bool {
	return k == ParamTypedDefault || k == ParamDefaulted
}

// Param is one entry of a method's parameter table. Default is a pool
// index, or -1; a defaulted kind with -1 defaults to None.
type Param struct {
	Name    string
	Desc    string
	Kind    ParamKind
	Default int32
}

// LineEntry maps the instruction at PC and later ones to a source line.
type LineEntry struct {
	PC   uint32
	Line uint32
}

// Method is a compiled function.
type Method struct {
	Name      string
	Desc      string
	Flags     MethodFlags
	Params    []Param
	MaxLocals uint16
	MaxStack  uint16
	Code      []Instruction
	Lines     []LineEntry
}

// LineAt returns the source line of the instruction at pc, or 0.
func (m *Method) LineAt(pc int) int {
	line := 0
	for _, e := range m.Lines {
		if int(e.PC) > pc {
			break
		}
		line = int(e.Line)
	}
	return line
}

// File is one artifact: a module or a class.
type File struct {
	Name       string
	SourceFile string
	Flags      uint16
	Supers     []string
	Interfaces []string
	Pool       Pool
	Methods    []*Method
}

// AddMethod appends m, replacing an earlier method with the same name and
// descriptor so the last definition wins.
func (f *File) AddMethod(m *Method) {
	for i, existing := range f.Methods {
		if existing.Name == m.Name && existing.Desc == m.Desc {
			f.Methods = append(f.Methods[:i], f.Methods[i+1:]...)
			break
		}
	}
	f.Methods = append(f.Methods, m)
}

// Method returns the last method called name, or nil.
func (f *File) Method(name string) *Method {
	for i := len(f.Methods) - 1; i >= 0; i-- {
		if f.Methods[i].Name == name {
			return f.Methods[i]
		}
	}
	return nil
}
