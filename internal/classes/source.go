package classes

import "github.com/serpent-lang/serpent/internal/diag"

// SourceClass is a class defined by a class statement in source code.
// Its member list grows while the body is compiled.
type SourceClass struct {
	name    string
	display string
	module  ModulePath
	flags   Flags
	Span    diag.Span

	// Bases are the declared base classes, resolved lazily by Split.
	Bases []*ClassRef

	members []string

	split  bool
	supers []Class
	ifaces []Class
}

// NewSourceClass creates the class display defined in module.
func NewSourceClass(module ModulePath, display string, bases []*ClassRef, span diag.Span) *SourceClass {
	return &SourceClass{
		name:    module.ClassName(display),
		display: display,
		module:  module,
		Bases:   bases,
		Span:    span,
	}
}

func (s *SourceClass) Name() string        { return s.name }
func (s *SourceClass) DisplayName() string { return s.display }
func (s *SourceClass) Descriptor() Type    { return ObjectType(s.name) }
func (s *SourceClass) Flags() Flags        { return s.flags }

// Module returns the module that defines the class.
func (s *SourceClass) Module() ModulePath { return s.module }

// AddMember records a member name once.
func (s *SourceClass) AddMember(name string) {
	for _, m := range s.members {
		if m == name {
			return
		}
	}
	s.members = append(s.members, name)
}

// Members returns member names in definition order.
func (s *SourceClass) Members() []string {
	return s.members
}

// Split resolves the bases and partitions them into superclasses and
// interfaces. The result is memoized once every base resolved.
func (s *SourceClass) Split(cache *Cache) (supers, ifaces []Class, err error) {
	if s.split {
		return s.supers, s.ifaces, nil
	}

	for _, ref := range s.Bases {
		cls, err := ref.Resolve(cache)
		if err != nil {
			return nil, nil, err
		}
		if cls.Flags().Has(FlagInterface) {
			ifaces = append(ifaces, cls)
		} else {
			supers = append(supers, cls)
		}
	}

	s.supers, s.ifaces, s.split = supers, ifaces, true
	return supers, ifaces, nil
}

// Superclasses returns the split superclasses, or nil before Split succeeded.
func (s *SourceClass) Superclasses() []Class { return s.supers }

// Interfaces returns the split interfaces, or nil before Split succeeded.
func (s *SourceClass) Interfaces() []Class { return s.ifaces }

// ModuleClass represents a source file. Module-level statements run in its
// static initializer and module functions are its static methods.
type ModuleClass struct {
	Path       ModulePath
	SourceFile string
}

// NewModuleClass creates the class for the module at path.
func NewModuleClass(path ModulePath, sourceFile string) *ModuleClass {
	return &ModuleClass{Path: path, SourceFile: sourceFile}
}

func (m *ModuleClass) Name() string          { return m.Path.AsType() }
func (m *ModuleClass) DisplayName() string   { return string(m.Path) }
func (m *ModuleClass) Descriptor() Type      { return ObjectType(m.Name()) }
func (m *ModuleClass) Flags() Flags          { return FlagModule }
func (m *ModuleClass) Superclasses() []Class { return nil }
func (m *ModuleClass) Interfaces() []Class   { return nil }
