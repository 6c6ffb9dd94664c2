package classes

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/serpent-lang/serpent/internal/diag"
)

// HostRegistry maps dotted names visible to source code (e.g.
// "go.strings.Builder") to Go types.
type HostRegistry map[string]reflect.Type

// Cache holds the one canonical Class per binary name for a compilation.
// It is append-only except through Replace.
type Cache struct {
	mu sync.Mutex

	classes  map[string]Class
	byType   map[reflect.Type]*HostClass
	builtins map[string]*BuiltinClass
	hosts    HostRegistry
	hostName map[reflect.Type]string
}

// NewCache creates a cache with the builtins preloaded and hosts registered.
func NewCache(hosts HostRegistry) *Cache {
	c := &Cache{
		classes:  make(map[string]Class),
		byType:   make(map[reflect.Type]*HostClass),
		builtins: make(map[string]*BuiltinClass),
		hosts:    make(HostRegistry),
		hostName: make(map[reflect.Type]string),
	}

	for _, name := range BuiltinNames {
		b := newBuiltin(name)
		c.builtins[name] = b
		c.classes[b.Name()] = b
	}

	for name, t := range hosts {
		c.hosts[name] = t
		c.hostName[t] = strings.ReplaceAll(name, ".", "/")
	}

	return c
}

// Builtin returns the predefined class with the given display name.
func (c *Cache) Builtin(name string) (*BuiltinClass, bool) {
	b, ok := c.builtins[name]
	return b, ok
}

// Host returns the canonical HostClass for t.
func (c *Cache) Host(t reflect.Type) *HostClass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostLocked(t)
}

func (c *Cache) hostLocked(t reflect.Type) *HostClass {
	if h, ok := c.byType[t]; ok {
		return h
	}

	name, ok := c.hostName[t]
	if !ok {
		name = hostBinaryName(t)
	}

	h := &HostClass{typ: t, name: name, cache: c}
	c.byType[t] = h
	c.classes[name] = h
	return h
}

// HostNames returns the registered dotted host names, sorted.
func (c *Cache) HostNames() []string {
	names := make([]string, 0, len(c.hosts))
	for name := range c.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HostType returns the Go type registered under a dotted name.
func (c *Cache) HostType(dotted string) (reflect.Type, bool) {
	t, ok := c.hosts[dotted]
	return t, ok
}

func (c *Cache) hostInterfaces() []reflect.Type {
	var out []reflect.Type
	for _, name := range c.HostNames() {
		t := c.hosts[name]
		if t.Kind() == reflect.Interface {
			out = append(out, t)
		}
	}
	return out
}

// Define registers a source or module class. Defining a binary name twice
// is an error.
func (c *Cache) Define(cls Class) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.classes[cls.Name()]; exists {
		return fmt.Errorf("class %s is already defined", cls.Name())
	}
	c.classes[cls.Name()] = cls
	return nil
}

// Replace registers cls, overwriting any previous definition.
func (c *Cache) Replace(cls Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[cls.Name()] = cls
}

// Forget drops a definition; used to roll back a failed unit.
func (c *Cache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.classes, name)
}

// Lookup finds a class by binary name.
func (c *Cache) Lookup(name string) (Class, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cls, ok := c.classes[name]
	return cls, ok
}

// Resolve maps a name to a class: a binary name, a builtin display name, a
// registered dotted host name, or a dotted source class name.
func (c *Cache) Resolve(name string, span diag.Span) (Class, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cls, ok := c.classes[name]; ok {
		return cls, nil
	}
	if b, ok := c.builtins[name]; ok {
		return b, nil
	}
	if t, ok := c.hosts[name]; ok {
		return c.hostLocked(t), nil
	}
	if cls, ok := c.classes[strings.ReplaceAll(name, ".", "/")]; ok {
		return cls, nil
	}

	return nil, &UnresolvedTypeError{Name: name, Span: span}
}
