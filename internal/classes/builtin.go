package classes

// BuiltinClass is one of the predefined runtime types (str, list, ...).
// Builtins report no supertypes.
type BuiltinClass struct {
	display string
}

// BuiltinNames lists the predefined classes in load order.
var BuiltinNames = []string{"object", "str", "int", "float", "bool", "list", "tuple", "dict", "NoneType", "range"}

func newBuiltin(display string) *BuiltinClass {
	return &BuiltinClass{display: display}
}

func (b *BuiltinClass) Name() string          { return "py/" + b.display }
func (b *BuiltinClass) DisplayName() string   { return b.display }
func (b *BuiltinClass) Descriptor() Type      { return ObjectType(b.Name()) }
func (b *BuiltinClass) Flags() Flags          { return 0 }
func (b *BuiltinClass) Superclasses() []Class { return nil }
func (b *BuiltinClass) Interfaces() []Class   { return nil }
