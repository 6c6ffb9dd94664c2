package classfile

import (
	"fmt"
	"strconv"
)

// ConstKind tags a constant pool entry.
type ConstKind uint8

const (
	ConstString ConstKind = iota + 1
	ConstInt8
	ConstInt16
	ConstInt32
	ConstInt64
	ConstFloat32
	ConstFloat64
	ConstBool
	ConstChar
	ConstClass
)

var constKindNames = map[ConstKind]string{
	ConstString:  "string",
	ConstInt8:    "int8",
	ConstInt16:   "int16",
	ConstInt32:   "int32",
	ConstInt64:   "int64",
	ConstFloat32: "float32",
	ConstFloat64: "float64",
	ConstBool:    "bool",
	ConstChar:    "char",
	ConstClass:   "class",
}

func (k ConstKind) String() string {
	if name, ok := constKindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Constant is a pool entry. Value holds string, int8, int16, int32, int64,
// float32, float64, bool, rune (char) or string (class binary name).
type Constant struct {
	Kind  ConstKind
	Value any
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstString:
		return strconv.Quote(c.Value.(string))
	case ConstChar:
		return strconv.QuoteRune(c.Value.(rune))
	case ConstClass:
		return c.Value.(string)
	}
	return fmt.Sprint(c.Value)
}

// Pool is a deduplicating constant pool.
type Pool struct {
	entries []Constant
	index   map[Constant]int
}

// Add interns c and returns its index.
func (p *Pool) Add(c Constant) int32 {
	if p.index == nil {
		p.index = make(map[Constant]int)
		for i, e := range p.entries {
			p.index[e] = i
		}
	}
	if i, ok := p.index[c]; ok {
		return int32(i)
	}
	p.entries = append(p.entries, c)
	p.index[c] = len(p.entries) - 1
	return int32(len(p.entries) - 1)
}

// String interns a string constant.
func (p *Pool) String(s string) int32 {
	return p.Add(Constant{Kind: ConstString, Value: s})
}

// Class interns a class reference by binary name.
func (p *Pool) Class(binaryName string) int32 {
	return p.Add(Constant{Kind: ConstClass, Value: binaryName})
}

// Get returns entry i.
func (p *Pool) Get(i int32) (Constant, error) {
	if i < 0 || int(i) >= len(p.entries) {
		return Constant{}, fmt.Errorf("constant index %d out of range (pool has %d entries)", i, len(p.entries))
	}
	return p.entries[i], nil
}

// StringAt returns entry i, which must be a string or class constant.
func (p *Pool) StringAt(i int32) (string, error) {
	c, err := p.Get(i)
	if err != nil {
		return "", err
	}
	s, ok := c.Value.(string)
	if !ok {
		return "", fmt.Errorf("constant %d is %s, not a string", i, c.Kind)
	}
	return s, nil
}

// Entries returns the pool in index order.
func (p *Pool) Entries() []Constant {
	return p.entries
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	return len(p.entries)
}
