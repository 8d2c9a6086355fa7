package serial

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry maps type names to struct types so that values can be
// allocated by name. Collection element inference and persistence
// contexts both resolve types through it.
type Registry struct {
	types map[string]reflect.Type
	mu    sync.RWMutex
}

// NewRegistry creates a new type registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]reflect.Type),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry used by the default codec
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register registers the type of prototype in the default registry
func Register(prototype any) error {
	return defaultRegistry.Register(prototype)
}

// Register registers the struct type of prototype under its entity name,
// or its Go type name when it is not an Entity.
func (r *Registry) Register(prototype any) error {
	t, err := structType(reflect.TypeOf(prototype))
	if err != nil {
		return err
	}
	return r.RegisterName(TypeName(t), prototype)
}

// RegisterName registers the struct type of prototype under name
func (r *Registry) RegisterName(name string, prototype any) error {
	t, err := structType(reflect.TypeOf(prototype))
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("cannot register %s without a name", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.types[name]; exists {
		if existing == t {
			return nil
		}
		return fmt.Errorf("%w: %s is already bound to %s", ErrAlreadyRegistered, name, existing)
	}
	r.types[name] = t
	return nil
}

// Lookup returns the struct type registered under name
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.types[name]
	return t, exists
}

// New allocates a zero value of the type registered under name and
// applies its defaults. The result is a pointer to the struct.
func (r *Registry) New(name string) (any, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return newInstance(t).Interface(), nil
}

// List returns the registered names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered types
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types)
}

// Clear removes all registered types (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = make(map[string]reflect.Type)
}

// TypeName returns the registry name of a struct type: the result of
// EntityName when the type is an Entity, otherwise the Go type name.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if reflect.PointerTo(t).Implements(entityType) {
		if e, ok := reflect.New(t).Interface().(Entity); ok {
			if name := e.EntityName(); name != "" {
				return name
			}
		}
	}
	return t.Name()
}

// newInstance allocates a *T for struct type t and applies SetDefaults.
func newInstance(t reflect.Type) reflect.Value {
	ptr := reflect.New(t)
	if d, ok := ptr.Interface().(Defaulter); ok {
		d.SetDefaults()
	}
	return ptr
}

func structType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil", ErrNotStruct)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	return t, nil
}
