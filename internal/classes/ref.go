package classes

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/serpent-lang/serpent/internal/diag"
)

// UnresolvedTypeError reports a type name that maps to no known class.
type UnresolvedTypeError struct {
	Name string
	Span diag.Span
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("unresolved type %q", e.Name)
}

// ClassRef names a class by dotted path and resolves it on first use.
// A successful resolution is kept and never repeated.
type ClassRef struct {
	Path string
	Span diag.Span

	resolved Class
}

// NewClassRef creates an unresolved reference.
func NewClassRef(path string, span diag.Span) *ClassRef {
	return &ClassRef{Path: path, Span: span}
}

// Resolve returns the referenced class, consulting cache only until the
// first success.
func (r *ClassRef) Resolve(cache *Cache) (Class, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}

	cls, err := cache.Resolve(r.Path, r.Span)
	if err != nil {
		return nil, err
	}
	r.resolved = cls
	return cls, nil
}

// Resolved returns the memoized class, or nil.
func (r *ClassRef) Resolved() Class { return r.resolved }

// ModulePath is the dotted name of a source module, e.g. "example.to_load".
type ModulePath string

// ModulePathFromFile derives the module path of file relative to root.
func ModulePathFromFile(root, file string) (ModulePath, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside of source root %s", file, root)
	}

	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	return ModulePath(strings.ReplaceAll(rel, "/", ".")), nil
}

// Segments splits the path on dots.
func (m ModulePath) Segments() []string {
	return strings.Split(string(m), ".")
}

// Package returns the binary package prefix ("example" for example.to_load).
func (m ModulePath) Package() string {
	segs := m.Segments()
	return strings.Join(segs[:len(segs)-1], "/")
}

// AsType returns the binary name of the module's own class: the last
// segment in UpperCamel case with a "Py" suffix.
func (m ModulePath) AsType() string {
	segs := m.Segments()
	name := upperCamel(segs[len(segs)-1]) + "Py"
	if pkg := m.Package(); pkg != "" {
		return pkg + "/" + name
	}
	return name
}

// ClassName returns the binary name of class name defined in the module.
func (m ModulePath) ClassName(name string) string {
	return strings.ReplaceAll(string(m), ".", "/") + "/" + name
}

func upperCamel(s string) string {
	var sb strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	return sb.String()
}
