package classfile

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a textual disassembly of f.
func Dump(w io.Writer, f *File) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "class %s\n", f.Name)
	if f.SourceFile != "" {
		fmt.Fprintf(&sb, "  source: %s\n", f.SourceFile)
	}
	if f.Flags != 0 {
		fmt.Fprintf(&sb, "  flags: %#x\n", f.Flags)
	}
	if len(f.Supers) > 0 {
		fmt.Fprintf(&sb, "  extends: %s\n", strings.Join(f.Supers, ", "))
	}
	if len(f.Interfaces) > 0 {
		fmt.Fprintf(&sb, "  implements: %s\n", strings.Join(f.Interfaces, ", "))
	}

	sb.WriteString("  constants:\n")
	for i, c := range f.Pool.Entries() {
		fmt.Fprintf(&sb, "    #%d %s %s\n", i, c.Kind, c)
	}

	for _, m := range f.Methods {
		sb.WriteString("\n")
		dumpMethod(&sb, f, m)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// DumpString is Dump into a string.
func DumpString(f *File) string {
	var sb strings.Builder
	_ = Dump(&sb, f)
	return sb.String()
}

func dumpMethod(sb *strings.Builder, f *File, m *Method) {
	fmt.Fprintf(sb, "  method %s %s", m.Name, m.Desc)
	if m.Flags != 0 {
		fmt.Fprintf(sb, " [%s]", m.Flags)
	}
	sb.WriteString("\n")

	for _, p := range m.Params {
		fmt.Fprintf(sb, "    param %s %s %s", p.Name, p.Desc, p.Kind)
		if p.Default >= 0 && p.Kind.HasDefault() {
			if c, err := f.Pool.Get(p.Default); err == nil {
				fmt.Fprintf(sb, " = %s", c)
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "    locals=%d stack=%d\n", m.MaxLocals, m.MaxStack)

	for pc, in := range m.Code {
		fmt.Fprintf(sb, "    %4d: %s\n", pc, FormatInstruction(&f.Pool, in))
	}
}

// FormatInstruction renders one instruction with its constants resolved.
func FormatInstruction(pool *Pool, in Instruction) string {
	constant := func(i int32) string {
		c, err := pool.Get(i)
		if err != nil {
			return fmt.Sprintf("#%d?", i)
		}
		return c.String()
	}

	switch in.Op {
	case OpConst:
		return fmt.Sprintf("%s %s", in.Op, constant(in.A))
	case OpLoad, OpUnbind:
		if in.B > 0 {
			return fmt.Sprintf("%s %d %s", in.Op, in.A, constant(in.B-1))
		}
		return fmt.Sprintf("%s %d", in.Op, in.A)
	case OpStore, OpBuildArray, OpBuildList, OpBuildTuple, OpBuildKwargs, OpBuildDict:
		return fmt.Sprintf("%s %d", in.Op, in.A)
	case OpGoto, OpIfTrue, OpIfFalse, OpIfICmpEQ, OpIfICmpNE:
		return fmt.Sprintf("%s -> %d", in.Op, in.A)
	case OpInvokeStatic:
		name, _ := pool.StringAt(in.A)
		desc, _ := pool.StringAt(in.B)
		return fmt.Sprintf("%s %s %s", in.Op, name, desc)
	case OpInvokeDyn, OpLoadClass, OpCheckCast:
		name, _ := pool.StringAt(in.A)
		return fmt.Sprintf("%s %s", in.Op, name)
	}
	return in.Op.String()
}
