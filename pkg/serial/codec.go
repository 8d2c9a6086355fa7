package serial

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Codec converts between Go values and JSON value trees. A Codec is safe
// for concurrent use; it holds no per-call state.
type Codec struct {
	config       *Configuration
	introspector *Introspector
	registry     *Registry
	logger       *zap.Logger
	strict       bool
	references   bool
}

// Option configures a Codec
type Option func(*Codec)

// WithConfiguration sets the naming configuration. The default is Shared().
func WithConfiguration(cfg *Configuration) Option {
	return func(c *Codec) { c.config = cfg }
}

// WithRegistry sets the type registry used for element inference and
// ConstructNamed. The default is DefaultRegistry().
func WithRegistry(reg *Registry) Option {
	return func(c *Codec) { c.registry = reg }
}

// WithIntrospector sets the schema cache
func WithIntrospector(in *Introspector) Option {
	return func(c *Codec) { c.introspector = in }
}

// WithLogger sets the logger for attribute diagnostics. The default is the
// global zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// WithStrict makes populate calls return every skipped attribute as an
// error once population completes. Skipped attributes are still skipped.
func WithStrict(strict bool) Option {
	return func(c *Codec) { c.strict = strict }
}

// WithReferences writes every identifiable entity below the top-level
// value as a reference holding only its identity attribute. Persistence
// contexts store nodes this way so that each stored body stays shallow.
func WithReferences(references bool) Option {
	return func(c *Codec) { c.references = references }
}

// NewCodec creates a codec
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		config:       Shared(),
		introspector: defaultIntrospector,
		registry:     defaultRegistry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = NewCodec()

// Configuration returns the codec's naming configuration
func (c *Codec) Configuration() *Configuration { return c.config }

// Registry returns the codec's type registry
func (c *Codec) Registry() *Registry { return c.registry }

func (c *Codec) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return zap.L()
}

func zapType(name string) zap.Field      { return zap.String("type", name) }
func zapAttribute(name string) zap.Field { return zap.String("attribute", name) }
func zapKey(key string) zap.Field        { return zap.String("key", key) }

// wireKey resolves the wire key for an attribute of schema, letting a
// SerializedKeyer hook on ptr override the configuration.
func (c *Codec) wireKey(schema *Schema, ptr reflect.Value, name string) (string, bool) {
	key, ok := c.config.SerializedKey(name)
	if schema.serializedKeyer {
		if !ptr.IsValid() {
			ptr = reflect.New(schema.Type)
		}
		key, ok = ptr.Interface().(SerializedKeyer).SerializedKey(name, key)
	}
	return key, ok && key != ""
}

// attributeName resolves the attribute name for a wire key, letting a
// PropertyNamer hook on ptr override the configuration.
func (c *Codec) attributeName(schema *Schema, ptr reflect.Value, key string) (string, bool) {
	name, ok := c.config.PropertyName(key)
	if schema.propertyNamer {
		name, ok = ptr.Interface().(PropertyNamer).PropertyName(key, name)
	}
	return name, ok && name != ""
}

// ValueTree serializes obj with the default codec
func ValueTree(obj any) Value { return defaultCodec.ValueTree(obj) }

// Marshal serializes obj to compact JSON bytes with the default codec
func Marshal(obj any) ([]byte, error) { return defaultCodec.Marshal(obj) }

// MarshalText serializes obj to compact JSON text with the default codec
func MarshalText(obj any) (string, error) { return defaultCodec.MarshalText(obj) }

// MarshalIndent serializes obj to indented JSON bytes with the default codec
func MarshalIndent(obj any, prefix, indent string) ([]byte, error) {
	return defaultCodec.MarshalIndent(obj, prefix, indent)
}

// Populate fills obj from v with the default codec
func Populate(obj any, v Value) error { return defaultCodec.Populate(obj, v) }

// Unmarshal parses data and populates obj with the default codec
func Unmarshal(data []byte, obj any) error { return defaultCodec.Unmarshal(data, obj) }

// UnmarshalText parses text and populates obj with the default codec
func UnmarshalText(text string, obj any) error { return defaultCodec.UnmarshalText(text, obj) }

// ConstructNamed allocates the type registered under name and populates it
// from v with the default codec
func ConstructNamed(name string, v Value) (any, error) { return defaultCodec.ConstructNamed(name, v) }

// Construct allocates a T and populates it from v with the default codec
func Construct[T any](v Value) (*T, error) { return ConstructWith[T](defaultCodec, v) }

// ConstructWith allocates a T and populates it from v
func ConstructWith[T any](c *Codec, v Value) (*T, error) {
	obj, err := c.Construct(reflect.TypeOf((*T)(nil)).Elem(), v)
	if obj == nil {
		return nil, err
	}
	return obj.(*T), err
}

// Decode parses data and constructs a T from it with the default codec
func Decode[T any](data []byte) (*T, error) { return DecodeWith[T](defaultCodec, data) }

// DecodeWith parses data and constructs a T from it
func DecodeWith[T any](c *Codec, data []byte) (*T, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return ConstructWith[T](c, v)
}

// DecodeSlice parses a JSON array of objects into a slice of *T with the
// default codec. A single object decodes to a one-element slice.
func DecodeSlice[T any](data []byte) ([]*T, error) {
	return DecodeSliceWith[T](defaultCodec, data)
}

// DecodeSliceWith parses a JSON array of objects into a slice of *T
func DecodeSliceWith[T any](c *Codec, data []byte) ([]*T, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}

	var elems []Value
	switch v.Kind() {
	case ArrayKind:
		elems, _ = v.AsArray()
	case ObjectKind:
		elems = []Value{v}
	default:
		return nil, nil
	}

	out := make([]*T, 0, len(elems))
	var skipped error
	for _, elem := range elems {
		obj, err := ConstructWith[T](c, elem)
		if err != nil && !IsAttributeSkipped(err) {
			return nil, err
		}
		if err != nil && skipped == nil {
			skipped = err
		}
		out = append(out, obj)
	}
	return out, skipped
}

// Construct allocates a value of struct type t, applies its defaults and
// populates it from v. The result is a pointer to the struct. In strict
// mode the object is returned together with the skipped-attribute error.
func (c *Codec) Construct(t reflect.Type, v Value) (any, error) {
	st, err := structType(t)
	if err != nil {
		return nil, err
	}
	ptr := newInstance(st)
	return ptr.Interface(), c.Populate(ptr.Interface(), v)
}

// ConstructNamed allocates the type registered under name and populates it from v
func (c *Codec) ConstructNamed(name string, v Value) (any, error) {
	t, ok := c.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return c.Construct(t, v)
}
