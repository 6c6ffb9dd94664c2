package runtime

import (
	"errors"
	"testing"
)

type accessorAndField struct {
	X int
}

func (a *accessorAndField) GetX() int { return 42 }

type fieldOnly struct {
	X     int
	Label string
}

type readiness struct{}

func (readiness) IsReady() bool { return true }

type greeter struct{}

func (greeter) Greeting() string { return "hello" }

func (greeter) Hello(name string) string { return "hello " + name }

type store struct {
	attrs map[string]any
}

func (s *store) AttrDict() map[string]any { return s.attrs }

type catchAll struct {
	store
}

func (c *catchAll) GetAttr(name string) (any, error) {
	if name == "y" {
		return nil, ErrNoAttribute
	}
	return "dyn-" + name, nil
}

// guarded manages only the attribute "owned" itself and leaves everything
// else to its backing store.
type guarded struct {
	store
	owned any
}

func (g *guarded) SetAttr(name string, value any) error {
	switch name {
	case "owned":
		g.owned = value
		return nil
	case "frozen":
		return errors.New("frozen is read-only")
	}
	return ErrNoAttribute
}

func (g *guarded) DelAttr(name string) error {
	if name == "owned" {
		g.owned = nil
		return nil
	}
	return ErrNoAttribute
}

type setterOnly struct {
	got any
}

func (s *setterOnly) SetX(v int64) { s.got = v }

func assertAttributeError(t *testing.T, err error) {
	t.Helper()
	var attrErr *AttributeError
	if !errors.As(err, &attrErr) {
		t.Fatalf("expected AttributeError, got %v", err)
	}
}

func TestGetAttrPrefersAccessorOverField(t *testing.T) {
	v, err := GetAttr(&accessorAndField{X: 1}, "x")
	if err != nil {
		t.Fatalf("getattr: %v", err)
	}
	if v != int64(42) {
		t.Fatalf("expected the accessor result 42, got %#v", v)
	}
}

func TestGetAttrSteps(t *testing.T) {
	tests := []struct {
		name string
		obj  any
		attr string
		want any
	}{
		{"is accessor", readiness{}, "ready", true},
		{"field", &fieldOnly{X: 7}, "x", int64(7)},
		{"string field", &fieldOnly{Label: "lbl"}, "label", "lbl"},
		{"backing store", &store{attrs: map[string]any{"y": int64(3)}}, "y", int64(3)},
		{"catch-all", &catchAll{}, "z", "dyn-z"},
		{"catch-all falls through", &catchAll{store{attrs: map[string]any{"y": "stored"}}}, "y", "stored"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetAttr(tt.obj, tt.attr)
			if err != nil {
				t.Fatalf("getattr: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestGetAttrMethodIsReturnedBound(t *testing.T) {
	m, err := GetAttr(greeter{}, "greeting")
	if err != nil {
		t.Fatalf("getattr: %v", err)
	}
	got, err := Call(m, nil, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "hello" {
		t.Fatalf("unexpected result %#v", got)
	}

	// Only zero-argument methods are attributes.
	_, err = GetAttr(greeter{}, "hello")
	assertAttributeError(t, err)
}

func TestGetAttrMissing(t *testing.T) {
	_, err := GetAttr(&store{attrs: map[string]any{}}, "nope")
	assertAttributeError(t, err)

	_, err = GetAttr(nil, "x")
	assertAttributeError(t, err)

	_, err = GetAttr(&catchAll{store{attrs: map[string]any{}}}, "y")
	assertAttributeError(t, err)
}

func TestGetAttrBuiltinMethods(t *testing.T) {
	l := NewList(int64(1))
	push, err := GetAttr(l, "append")
	if err != nil {
		t.Fatalf("getattr: %v", err)
	}
	if _, err := Call(push, []any{int64(2)}, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if Repr(l) != "[1, 2]" {
		t.Fatalf("unexpected list %s", Repr(l))
	}

	upper, err := CallMember("abc", "upper", nil, nil)
	if err != nil || upper != "ABC" {
		t.Fatalf("upper: %#v %v", upper, err)
	}
}

func TestSetAttrOrder(t *testing.T) {
	s := &setterOnly{}
	if err := SetAttr(s, "x", int64(5)); err != nil {
		t.Fatalf("setattr: %v", err)
	}
	if s.got != int64(5) {
		t.Fatalf("setter not used, got %#v", s.got)
	}

	// A setter that cannot accept the value's type is skipped.
	assertAttributeError(t, SetAttr(&setterOnly{}, "x", "text"))

	f := &fieldOnly{}
	if err := SetAttr(f, "x", int64(9)); err != nil {
		t.Fatalf("setattr field: %v", err)
	}
	if f.X != 9 {
		t.Fatalf("field not set: %d", f.X)
	}

	st := &store{attrs: map[string]any{}}
	if err := SetAttr(st, "fresh", "v"); err != nil {
		t.Fatalf("setattr store: %v", err)
	}
	if st.attrs["fresh"] != "v" {
		t.Fatalf("backing store not updated: %v", st.attrs)
	}

	g := &guarded{store: store{attrs: map[string]any{}}}
	if err := SetAttr(g, "owned", int64(1)); err != nil {
		t.Fatalf("setattr catch-all: %v", err)
	}
	if g.owned != int64(1) || len(g.attrs) != 0 {
		t.Fatalf("catch-all not used: owned=%#v attrs=%v", g.owned, g.attrs)
	}
	if err := SetAttr(g, "y", int64(2)); err != nil {
		t.Fatalf("setattr after catch-all declined: %v", err)
	}
	if g.attrs["y"] != int64(2) {
		t.Fatalf("declined catch-all must fall through to the store: %v", g.attrs)
	}
	if err := SetAttr(g, "frozen", int64(3)); err == nil || g.attrs["frozen"] != nil {
		t.Fatalf("catch-all errors must be returned, got %v attrs=%v", err, g.attrs)
	}
}

func TestHasAndDelAttr(t *testing.T) {
	st := &store{attrs: map[string]any{"k": int64(1)}}

	if ok, err := HasAttr(st, "k"); err != nil || !ok {
		t.Fatalf("expected hasattr true, got %v %v", ok, err)
	}
	if err := DelAttr(st, "k"); err != nil {
		t.Fatalf("delattr: %v", err)
	}
	if ok, _ := HasAttr(st, "k"); ok {
		t.Fatalf("attribute still present after delete")
	}
	assertAttributeError(t, DelAttr(st, "k"))
	assertAttributeError(t, DelAttr(nil, "k"))

	g := &guarded{store: store{attrs: map[string]any{"k": int64(1)}}, owned: "x"}
	if err := DelAttr(g, "owned"); err != nil || g.owned != nil {
		t.Fatalf("delattr catch-all: %v owned=%#v", err, g.owned)
	}
	if err := DelAttr(g, "k"); err != nil {
		t.Fatalf("delattr after catch-all declined: %v", err)
	}
	if _, ok := g.attrs["k"]; ok {
		t.Fatalf("declined catch-all must fall through to the store: %v", g.attrs)
	}
	assertAttributeError(t, DelAttr(g, "k"))
}

func TestStrategyIsCachedPerType(t *testing.T) {
	a, _ := GetAttr(&fieldOnly{X: 1}, "x")
	b, _ := GetAttr(&fieldOnly{X: 2}, "x")
	if a != int64(1) || b != int64(2) {
		t.Fatalf("cached strategy must read each instance, got %v and %v", a, b)
	}
}
