package classfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type binWriter struct {
	w   *bufio.Writer
	err error
}

func (bw *binWriter) put(v any) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.BigEndian, v)
}

func (bw *binWriter) str(s string) {
	bw.put(uint32(len(s)))
	if bw.err == nil {
		_, bw.err = bw.w.WriteString(s)
	}
}

func (bw *binWriter) strs(list []string) {
	bw.put(uint16(len(list)))
	for _, s := range list {
		bw.str(s)
	}
}

// Write encodes f.
func Write(w io.Writer, f *File) error {
	bw := &binWriter{w: bufio.NewWriter(w)}

	bw.put([]byte(Magic))
	bw.put(Version)
	bw.str(f.Name)
	bw.str(f.SourceFile)
	bw.put(f.Flags)
	bw.strs(f.Supers)
	bw.strs(f.Interfaces)

	bw.put(uint16(f.Pool.Len()))
	for _, c := range f.Pool.Entries() {
		bw.put(uint8(c.Kind))
		writeConstant(bw, c)
	}

	bw.put(uint16(len(f.Methods)))
	for _, m := range f.Methods {
		bw.str(m.Name)
		bw.str(m.Desc)
		bw.put(uint16(m.Flags))
		bw.put(uint16(len(m.Params)))
		for _, p := range m.Params {
			bw.str(p.Name)
			bw.str(p.Desc)
			bw.put(uint8(p.Kind))
			bw.put(p.Default)
		}
		bw.put(m.MaxLocals)
		bw.put(m.MaxStack)
		bw.put(uint32(len(m.Code)))
		for _, in := range m.Code {
			bw.put(uint8(in.Op))
			bw.put(in.A)
			bw.put(in.B)
		}
		bw.put(uint32(len(m.Lines)))
		for _, l := range m.Lines {
			bw.put(l.PC)
			bw.put(l.Line)
		}
	}

	if bw.err != nil {
		return errors.Wrapf(bw.err, "encode %s", f.Name)
	}
	return errors.Wrapf(bw.w.Flush(), "encode %s", f.Name)
}

func writeConstant(bw *binWriter, c Constant) {
	switch c.Kind {
	case ConstString, ConstClass:
		bw.str(c.Value.(string))
	case ConstInt8:
		bw.put(c.Value.(int8))
	case ConstInt16:
		bw.put(c.Value.(int16))
	case ConstInt32:
		bw.put(c.Value.(int32))
	case ConstInt64:
		bw.put(c.Value.(int64))
	case ConstFloat32:
		bw.put(math.Float32bits(c.Value.(float32)))
	case ConstFloat64:
		bw.put(math.Float64bits(c.Value.(float64)))
	case ConstBool:
		var b uint8
		if c.Value.(bool) {
			b = 1
		}
		bw.put(b)
	case ConstChar:
		bw.put(int32(c.Value.(rune)))
	default:
		if bw.err == nil {
			bw.err = errors.Errorf("unknown constant kind %d", c.Kind)
		}
	}
}

type binReader struct {
	r   io.Reader
	err error
}

func (br *binReader) get(v any) {
	if br.err != nil {
		return
	}
	br.err = binary.Read(br.r, binary.BigEndian, v)
}

func (br *binReader) u8() uint8 {
	var v uint8
	br.get(&v)
	return v
}

func (br *binReader) u16() uint16 {
	var v uint16
	br.get(&v)
	return v
}

func (br *binReader) u32() uint32 {
	var v uint32
	br.get(&v)
	return v
}

func (br *binReader) i32() int32 {
	var v int32
	br.get(&v)
	return v
}

func (br *binReader) str() string {
	n := br.u32()
	if br.err != nil {
		return ""
	}
	buf := make([]byte, n)
	_, br.err = io.ReadFull(br.r, buf)
	return string(buf)
}

func (br *binReader) strs() []string {
	n := int(br.u16())
	var out []string
	for i := 0; i < n && br.err == nil; i++ {
		out = append(out, br.str())
	}
	return out
}

// Read decodes an artifact.
func Read(r io.Reader) (*File, error) {
	br := &binReader{r: bufio.NewReader(r)}

	magic := make([]byte, len(Magic))
	br.get(magic)
	if br.err != nil {
		return nil, errors.Wrap(br.err, "read header")
	}
	if string(magic) != Magic {
		return nil, errors.Errorf("bad magic %q", magic)
	}
	if v := br.u16(); br.err == nil && v != Version {
		return nil, errors.Errorf("unsupported artifact version %d", v)
	}

	f := &File{}
	f.Name = br.str()
	f.SourceFile = br.str()
	f.Flags = br.u16()
	f.Supers = br.strs()
	f.Interfaces = br.strs()

	for i, n := 0, int(br.u16()); i < n && br.err == nil; i++ {
		kind := ConstKind(br.u8())
		c, err := readConstant(br, kind)
		if err != nil {
			return nil, err
		}
		f.Pool.Add(c)
	}

	for i, n := 0, int(br.u16()); i < n && br.err == nil; i++ {
		m := &Method{}
		m.Name = br.str()
		m.Desc = br.str()
		m.Flags = MethodFlags(br.u16())
		for j, np := 0, int(br.u16()); j < np && br.err == nil; j++ {
			m.Params = append(m.Params, Param{
				Name:    br.str(),
				Desc:    br.str(),
				Kind:    ParamKind(br.u8()),
				Default: br.i32(),
			})
		}
		m.MaxLocals = br.u16()
		m.MaxStack = br.u16()
		for j, nc := 0, int(br.u32()); j < nc && br.err == nil; j++ {
			in := Instruction{Op: Opcode(br.u8()), A: br.i32(), B: br.i32()}
			if br.err == nil && !in.Op.Valid() {
				return nil, errors.Errorf("%s.%s: invalid opcode %d at pc %d", f.Name, m.Name, in.Op, j)
			}
			m.Code = append(m.Code, in)
		}
		for j, nl := 0, int(br.u32()); j < nl && br.err == nil; j++ {
			m.Lines = append(m.Lines, LineEntry{PC: br.u32(), Line: br.u32()})
		}
		f.Methods = append(f.Methods, m)
	}

	if br.err != nil {
		return nil, errors.Wrapf(br.err, "decode %s", f.Name)
	}
	return f, nil
}

func readConstant(br *binReader, kind ConstKind) (Constant, error) {
	c := Constant{Kind: kind}
	switch kind {
	case ConstString, ConstClass:
		c.Value = br.str()
	case ConstInt8:
		var v int8
		br.get(&v)
		c.Value = v
	case ConstInt16:
		var v int16
		br.get(&v)
		c.Value = v
	case ConstInt32:
		c.Value = br.i32()
	case ConstInt64:
		var v int64
		br.get(&v)
		c.Value = v
	case ConstFloat32:
		c.Value = math.Float32frombits(br.u32())
	case ConstFloat64:
		var v uint64
		br.get(&v)
		c.Value = math.Float64frombits(v)
	case ConstBool:
		c.Value = br.u8() != 0
	case ConstChar:
		c.Value = rune(br.i32())
	default:
		return c, errors.Errorf("unknown constant kind %d", kind)
	}
	return c, errors.Wrap(br.err, "read constant")
}

// PathFor returns where WriteFile stores f under dir.
func PathFor(dir string, f *File) string {
	return filepath.Join(dir, filepath.FromSlash(f.Name)+Ext)
}

// WriteFile stores f under dir at a path mirroring its binary name. The
// artifact is written to a temporary file and renamed into place, so a
// failure never leaves a partial artifact behind.
func WriteFile(dir string, f *File) (string, error) {
	path := PathFor(dir, f)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "create directory for %s", f.Name)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sclass-*")
	if err != nil {
		return "", errors.Wrapf(err, "create temporary artifact for %s", f.Name)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, f); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "close artifact %s", f.Name)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrapf(err, "install artifact %s", path)
	}
	return path, nil
}

// ReadFile loads the artifact at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open artifact")
	}
	defer fh.Close()

	f, err := Read(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return f, nil
}
