package classes

import (
	"fmt"
	"strings"
)

// Type is a field or value type descriptor: a primitive letter, "V", an
// object descriptor "L<binary name>;" or an array "[<elem>".
type Type string

const (
	Void    Type = "V"
	Boolean Type = "Z"
	Char    Type = "C"
	Byte    Type = "B"
	Short   Type = "S"
	Int     Type = "I"
	Long    Type = "J"
	Float   Type = "F"
	Double  Type = "D"

	// Object is the universal dynamic type.
	Object   Type = "Lpy/object;"
	Str      Type = "Lpy/str;"
	PyInt    Type = "Lpy/int;"
	PyFloat  Type = "Lpy/float;"
	PyBool   Type = "Lpy/bool;"
	List     Type = "Lpy/list;"
	Tuple    Type = "Lpy/tuple;"
	Dict     Type = "Lpy/dict;"
	NoneType Type = "Lpy/NoneType;"
)

// ObjectType returns the descriptor of the class with the given binary name.
func ObjectType(binaryName string) Type {
	return Type("L" + binaryName + ";")
}

// ArrayOf returns the descriptor of an array of elem.
func ArrayOf(elem Type) Type {
	return "[" + elem
}

// IsPrimitive reports whether t is a single-letter primitive other than V.
func (t Type) IsPrimitive() bool {
	if len(t) != 1 {
		return false
	}
	return strings.ContainsRune("ZCBSIJFD", rune(t[0]))
}

// IsObject reports whether t is a reference type.
func (t Type) IsObject() bool {
	return strings.HasPrefix(string(t), "L") || t.IsArray()
}

// IsArray reports whether t is an array descriptor.
func (t Type) IsArray() bool {
	return strings.HasPrefix(string(t), "[")
}

// BinaryName returns the class name inside an object descriptor, or "".
func (t Type) BinaryName() string {
	if strings.HasPrefix(string(t), "L") && strings.HasSuffix(string(t), ";") {
		return string(t[1 : len(t)-1])
	}
	return ""
}

// MethodDescriptor renders "(params)ret".
func MethodDescriptor(params []Type, ret Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(string(p))
	}
	sb.WriteByte(')')
	sb.WriteString(string(ret))
	return sb.String()
}

// ParseMethodDescriptor splits "(params)ret" back into its parts.
func ParseMethodDescriptor(desc string) ([]Type, Type, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("method descriptor %q must start with '('", desc)
	}

	var params []Type
	rest := desc[1:]
	for {
		if rest == "" {
			return nil, "", fmt.Errorf("method descriptor %q is missing ')'", desc)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		t, n, err := readType(rest)
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		params = append(params, t)
		rest = rest[n:]
	}

	if rest == string(Void) {
		return params, Void, nil
	}
	ret, n, err := readType(rest)
	if err != nil || n != len(rest) {
		return nil, "", fmt.Errorf("method descriptor %q has a malformed return type", desc)
	}
	return params, ret, nil
}

func readType(s string) (Type, int, error) {
	switch s[0] {
	case 'Z', 'C', 'B', 'S', 'I', 'J', 'F', 'D':
		return Type(s[:1]), 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated object type %q", s)
		}
		return Type(s[:end+1]), end + 1, nil
	case '[':
		if len(s) < 2 {
			return "", 0, fmt.Errorf("array type without element")
		}
		elem, n, err := readType(s[1:])
		if err != nil {
			return "", 0, err
		}
		return ArrayOf(elem), n + 1, nil
	}
	return "", 0, fmt.Errorf("unknown type letter %q", s[0])
}
