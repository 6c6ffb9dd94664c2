// Package classes models every type the compiler can reference: host Go
// types, the predefined builtins, and classes and modules defined in source.
package classes

import "strings"

// Flags describe the kind of a class.
type Flags uint16

const (
	FlagInterface Flags = 1 << iota
	FlagAbstract
	FlagEnum
	FlagAnnotation
	FlagRecord
	FlagSealed
	FlagModule
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagInterface, "interface"},
	{FlagAbstract, "abstract"},
	{FlagEnum, "enum"},
	{FlagAnnotation, "annotation"},
	{FlagRecord, "record"},
	{FlagSealed, "sealed"},
	{FlagModule, "module"},
}

// Has reports whether every bit of want is set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Class is a type entity. Name is the binary name (a/b/C).
type Class interface {
	Name() string
	DisplayName() string
	Descriptor() Type
	Flags() Flags
	Superclasses() []Class
	Interfaces() []Class
}

// DoesInherit reports whether a is b or reaches b through its supertypes.
// The search is depth-first over superclasses, then interfaces, and visits
// each class once so a malformed cyclic graph still terminates.
func DoesInherit(a, b Class) bool {
	if a == nil || b == nil {
		return false
	}

	target := b.Name()
	visited := make(map[string]bool)

	var visit func(c Class) bool
	visit = func(c Class) bool {
		if c.Name() == target {
			return true
		}
		if visited[c.Name()] {
			return false
		}
		visited[c.Name()] = true

		for _, super := range c.Superclasses() {
			if visit(super) {
				return true
			}
		}
		for _, iface := range c.Interfaces() {
			if visit(iface) {
				return true
			}
		}
		return false
	}

	return visit(a)
}
