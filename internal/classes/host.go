package classes

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// HostClass wraps a Go type so source code can name it, inherit checks can
// reach it and the runtime can call into it.
type HostClass struct {
	typ   reflect.Type
	name  string
	cache *Cache

	once   sync.Once
	supers []Class
	ifaces []Class
}

// Type returns the wrapped Go type as registered.
func (h *HostClass) Type() reflect.Type { return h.typ }

func (h *HostClass) Name() string { return h.name }

func (h *HostClass) DisplayName() string {
	if i := strings.LastIndexByte(h.name, '/'); i >= 0 {
		return h.name[i+1:]
	}
	return h.name
}

func (h *HostClass) Descriptor() Type { return ObjectType(h.name) }

// base strips one level of pointer so *T and T share naming and flags.
func (h *HostClass) base() reflect.Type {
	if h.typ.Kind() == reflect.Pointer {
		return h.typ.Elem()
	}
	return h.typ
}

func (h *HostClass) Flags() Flags {
	t := h.base()
	var flags Flags

	switch t.Kind() {
	case reflect.Interface:
		flags |= FlagInterface | FlagAbstract
		for i := 0; i < t.NumMethod(); i++ {
			if t.Method(i).PkgPath != "" {
				flags |= FlagSealed
				break
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if t.Name() != "" && (t.Implements(stringerType) || reflect.PointerTo(t).Implements(stringerType)) {
			flags |= FlagEnum
		}
	case reflect.Struct:
		if isRecord(t) {
			flags |= FlagRecord
		}
	}

	return flags
}

// isRecord holds for plain data structs: every field exported, no methods.
func isRecord(t reflect.Type) bool {
	if t.NumMethod() != 0 || reflect.PointerTo(t).NumMethod() != 0 {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return false
		}
	}
	return true
}

// Superclasses are the types of embedded struct fields.
func (h *HostClass) Superclasses() []Class {
	h.resolveSupers()
	return h.supers
}

// Interfaces are the registered host interfaces the type implements.
func (h *HostClass) Interfaces() []Class {
	h.resolveSupers()
	return h.ifaces
}

func (h *HostClass) resolveSupers() {
	h.once.Do(func() {
		t := h.base()
		if t.Kind() == reflect.Struct {
			for i := 0; i < t.NumField(); i++ {
				field := t.Field(i)
				if field.Anonymous {
					h.supers = append(h.supers, h.cache.Host(field.Type))
				}
			}
		}

		for _, iface := range h.cache.hostInterfaces() {
			if iface == h.typ || iface == t {
				continue
			}
			if h.typ.Implements(iface) || (t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(iface)) {
				h.ifaces = append(h.ifaces, h.cache.Host(iface))
			}
		}
	})
}

// hostBinaryName names an unregistered Go type by its package path.
func hostBinaryName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "go/" + t.String()
	}
	if t.PkgPath() == "" {
		return "go/" + t.Name()
	}
	return t.PkgPath() + "/" + t.Name()
}
