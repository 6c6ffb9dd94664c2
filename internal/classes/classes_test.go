package classes

import (
	"errors"
	"reflect"
	"testing"

	"github.com/serpent-lang/serpent/internal/diag"
)

type shape interface {
	Area() float64
}

type sealedShape interface {
	Area() float64
	isShape()
}

type base struct{ id int }

func (b *base) Area() float64 { return 0 }

type square struct {
	base
	Side float64
}

type point struct {
	X, Y int
}

type color int

func (c color) String() string { return "color" }

func newTestCache() *Cache {
	return NewCache(HostRegistry{
		"geo.Shape":  reflect.TypeOf((*shape)(nil)).Elem(),
		"geo.Sealed": reflect.TypeOf((*sealedShape)(nil)).Elem(),
		"geo.Square": reflect.TypeOf(square{}),
		"geo.Point":  reflect.TypeOf(point{}),
		"geo.Color":  reflect.TypeOf(color(0)),
	})
}

func resolve(t *testing.T, c *Cache, name string) Class {
	t.Helper()
	cls, err := c.Resolve(name, diag.Span{})
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}
	return cls
}

func TestDoesInheritIsReflexive(t *testing.T) {
	c := newTestCache()
	for _, name := range []string{"str", "geo.Shape", "geo.Square"} {
		cls := resolve(t, c, name)
		if !DoesInherit(cls, cls) {
			t.Fatalf("%s must inherit from itself", name)
		}
	}
}

func TestDoesInheritSourceChain(t *testing.T) {
	c := NewCache(nil)
	mod := ModulePath("pkg.shapes")

	cc := NewSourceClass(mod, "C", nil, diag.Span{})
	b := NewSourceClass(mod, "B", []*ClassRef{NewClassRef("pkg.shapes.C", diag.Span{})}, diag.Span{})
	a := NewSourceClass(mod, "A", []*ClassRef{NewClassRef("pkg/shapes/B", diag.Span{})}, diag.Span{})
	d := NewSourceClass(mod, "D", nil, diag.Span{})
	for _, cls := range []*SourceClass{cc, b, a, d} {
		if err := c.Define(cls); err != nil {
			t.Fatalf("define: %v", err)
		}
	}
	for _, cls := range []*SourceClass{cc, b, a, d} {
		if _, _, err := cls.Split(c); err != nil {
			t.Fatalf("split %s: %v", cls.Name(), err)
		}
	}

	if !DoesInherit(a, cc) {
		t.Fatalf("A extends B extends C, so A must inherit C")
	}
	if DoesInherit(a, d) {
		t.Fatalf("A must not inherit unrelated D")
	}
	if DoesInherit(cc, a) {
		t.Fatalf("inheritance is not symmetric")
	}
}

func TestDoesInheritTerminatesOnCycle(t *testing.T) {
	c := NewCache(nil)
	mod := ModulePath("loop")

	x := NewSourceClass(mod, "X", []*ClassRef{NewClassRef("loop.Y", diag.Span{})}, diag.Span{})
	y := NewSourceClass(mod, "Y", []*ClassRef{NewClassRef("loop.X", diag.Span{})}, diag.Span{})
	z := NewSourceClass(mod, "Z", nil, diag.Span{})
	for _, cls := range []*SourceClass{x, y, z} {
		if err := c.Define(cls); err != nil {
			t.Fatalf("define: %v", err)
		}
	}
	for _, cls := range []*SourceClass{x, y} {
		if _, _, err := cls.Split(c); err != nil {
			t.Fatalf("split: %v", err)
		}
	}

	if DoesInherit(x, z) {
		t.Fatalf("cyclic graph must answer false for an unreachable target")
	}
	if !DoesInherit(x, y) {
		t.Fatalf("X reaches Y directly")
	}
}

func TestHostFlags(t *testing.T) {
	c := newTestCache()

	tests := []struct {
		name string
		want Flags
	}{
		{"geo.Shape", FlagInterface | FlagAbstract},
		{"geo.Sealed", FlagInterface | FlagAbstract | FlagSealed},
		{"geo.Color", FlagEnum},
		{"geo.Point", FlagRecord},
		{"geo.Square", 0},
	}

	for _, tt := range tests {
		got := resolve(t, c, tt.name).Flags()
		if got != tt.want {
			t.Fatalf("%s: expected flags %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestHostSupertypes(t *testing.T) {
	c := newTestCache()

	sq := resolve(t, c, "geo.Square")
	shapeCls := resolve(t, c, "geo.Shape")

	supers := sq.Superclasses()
	if len(supers) != 1 || supers[0].DisplayName() != "base" {
		t.Fatalf("expected embedded base as superclass, got %v", supers)
	}
	if !DoesInherit(sq, shapeCls) {
		t.Fatalf("square promotes Area from *base and must implement geo.Shape")
	}
	if DoesInherit(resolve(t, c, "geo.Point"), shapeCls) {
		t.Fatalf("point does not implement geo.Shape")
	}
	if sq.Name() != "geo/Square" || sq.Descriptor() != "Lgeo/Square;" {
		t.Fatalf("unexpected host naming %s %s", sq.Name(), sq.Descriptor())
	}
}

func TestResolveUnknownType(t *testing.T) {
	c := NewCache(nil)
	_, err := c.Resolve("nope.Missing", diag.Span{Line: 3})

	var unresolved *UnresolvedTypeError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected *UnresolvedTypeError, got %v", err)
	}
	if unresolved.Name != "nope.Missing" || unresolved.Span.Line != 3 {
		t.Fatalf("unexpected error contents: %+v", unresolved)
	}
}

func TestClassRefMemoizesSuccess(t *testing.T) {
	c := NewCache(nil)
	first := NewSourceClass("m", "K", nil, diag.Span{})
	if err := c.Define(first); err != nil {
		t.Fatalf("define: %v", err)
	}

	ref := NewClassRef("m.K", diag.Span{})
	got, err := ref.Resolve(c)
	if err != nil || got != Class(first) {
		t.Fatalf("expected first definition, got %v (%v)", got, err)
	}

	c.Replace(NewSourceClass("m", "K", nil, diag.Span{}))
	again, _ := ref.Resolve(c)
	if again != Class(first) {
		t.Fatalf("a resolved reference must not be resolved again")
	}
}

func TestClassRefRetriesAfterFailure(t *testing.T) {
	c := NewCache(nil)
	ref := NewClassRef("later.L", diag.Span{})

	if _, err := ref.Resolve(c); err == nil {
		t.Fatalf("expected failure before definition")
	}
	if err := c.Define(NewSourceClass("later", "L", nil, diag.Span{})); err != nil {
		t.Fatalf("define: %v", err)
	}
	if _, err := ref.Resolve(c); err != nil {
		t.Fatalf("expected success after definition: %v", err)
	}
}

func TestDefineTwiceFails(t *testing.T) {
	c := NewCache(nil)
	if err := c.Define(NewModuleClass("app", "app.py")); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := c.Define(NewModuleClass("app", "app.py")); err == nil {
		t.Fatalf("expected redefinition error")
	}
}

func TestModulePath(t *testing.T) {
	tests := []struct {
		path      ModulePath
		asType    string
		className string
	}{
		{"example.to_load", "example/ToLoadPy", "example/to_load/Greeter"},
		{"main", "MainPy", "main/Greeter"},
		{"a.b.c_d_e", "a/b/CDEPy", "a/b/c_d_e/Greeter"},
	}

	for _, tt := range tests {
		if got := tt.path.AsType(); got != tt.asType {
			t.Fatalf("%s.AsType() = %s, want %s", tt.path, got, tt.asType)
		}
		if got := tt.path.ClassName("Greeter"); got != tt.className {
			t.Fatalf("%s.ClassName() = %s, want %s", tt.path, got, tt.className)
		}
	}

	mp, err := ModulePathFromFile("/src", "/src/example/to_load.py")
	if err != nil || mp != "example.to_load" {
		t.Fatalf("unexpected module path %q (%v)", mp, err)
	}
	if _, err := ModulePathFromFile("/src", "/elsewhere/x.py"); err == nil {
		t.Fatalf("expected error for file outside root")
	}
}

func TestMethodDescriptorRoundTrip(t *testing.T) {
	desc := MethodDescriptor([]Type{Object, Int, ArrayOf(Object), Tuple}, Void)
	if desc != "(Lpy/object;I[Lpy/object;Lpy/tuple;)V" {
		t.Fatalf("unexpected descriptor %s", desc)
	}

	params, ret, err := ParseMethodDescriptor(desc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(params) != 4 || params[2] != ArrayOf(Object) || ret != Void {
		t.Fatalf("unexpected parse result %v %v", params, ret)
	}

	for _, bad := range []string{"V", "(Lpy/object", "(Q)V", "()Lpy/str"} {
		if _, _, err := ParseMethodDescriptor(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestTypePredicates(t *testing.T) {
	if !Int.IsPrimitive() || Void.IsPrimitive() || Object.IsPrimitive() {
		t.Fatalf("primitive classification is wrong")
	}
	if !Object.IsObject() || !ArrayOf(Int).IsObject() || Int.IsObject() {
		t.Fatalf("object classification is wrong")
	}
	if Str.BinaryName() != "py/str" {
		t.Fatalf("unexpected binary name %s", Str.BinaryName())
	}
}
