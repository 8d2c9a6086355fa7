package serial

import (
	"context"
	"fmt"
	"reflect"
)

// Entity is a node of a persisted object graph. Pointers to entity structs
// are classified as relationships and are subject to cycle suppression.
type Entity interface {
	EntityName() string
}

// Identifiable is an entity with an identity attribute. The identity's
// wire value is the key passed to Context.Obtain and the only attribute
// written in a cycle placeholder.
type Identifiable interface {
	Entity
	IdentityAttribute() string
}

// Context creates or locates graph nodes during ConstructInto.
// Obtain returns a pointer to the node for entity and key, allocating a
// new node when none exists. key is empty for nodes without an identity.
type Context interface {
	Obtain(ctx context.Context, entity string, key string) (Entity, error)
}

// ConstructInto builds the entity of type T from v, obtaining every entity
// node through gctx, using the default codec.
func ConstructInto[T any](ctx context.Context, gctx Context, v Value) (*T, error) {
	return ConstructIntoWith[T](defaultCodec, ctx, gctx, v)
}

// ConstructIntoWith is ConstructInto with an explicit codec. In strict mode
// a fully built node is returned together with ErrAttributeSkipped.
func ConstructIntoWith[T any](c *Codec, ctx context.Context, gctx Context, v Value) (*T, error) {
	entity, err := c.ConstructInto(ctx, gctx, reflect.TypeOf((*T)(nil)).Elem(), v)
	if err != nil && !IsAttributeSkipped(err) {
		return nil, err
	}
	if entity == nil {
		return nil, err
	}
	node, ok := any(entity).(*T)
	if !ok {
		return nil, &GraphError{Entity: TypeName(reflect.TypeOf((*T)(nil))), Err: fmt.Errorf("context returned %T", entity)}
	}
	return node, err
}

// ConstructInto builds an entity of type t from v. The root and every
// relationship target are obtained through gctx instead of being allocated.
// A non-object v yields a nil entity. On failure the nodes built so far are
// left as constructed.
func (c *Codec) ConstructInto(ctx context.Context, gctx Context, t reflect.Type, v Value) (Entity, error) {
	st, err := structType(t)
	if err != nil {
		return nil, err
	}
	if !reflect.PointerTo(st).Implements(entityType) {
		return nil, fmt.Errorf("%w: %s is not an entity", ErrInvalidTarget, st)
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, nil
	}
	if gctx == nil {
		return nil, fmt.Errorf("%w: nil persistence context", ErrInvalidTarget)
	}

	d := c.newDecoder(ctx, gctx)
	node, err := d.obtain(st, obj)
	if err != nil {
		return nil, err
	}
	if err := d.populateStruct(node, obj, ""); err != nil {
		return nil, err
	}
	return node.Interface().(Entity), d.result()
}

// PopulateInto fills an existing node from v, obtaining relationship
// targets through gctx. Persistence contexts use it to load stored nodes.
func (c *Codec) PopulateInto(ctx context.Context, gctx Context, node Entity, v Value) error {
	rv := reflect.ValueOf(node)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", ErrInvalidTarget, node)
	}
	if gctx == nil {
		return fmt.Errorf("%w: nil persistence context", ErrInvalidTarget)
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil
	}

	d := c.newDecoder(ctx, gctx)
	if err := d.populateStruct(rv, obj, ""); err != nil {
		return err
	}
	return d.result()
}

// Identity returns the identity attribute of e rendered as a string.
// It reports false when e is not Identifiable or the attribute is empty.
func (c *Codec) Identity(e Entity) (string, bool) {
	attr, fv, err := c.identityField(e)
	if err != nil {
		return "", false
	}
	enc := &encoder{c: c, visits: newVisitSet()}
	v, ok := enc.encode(fv, attr.Name, "")
	if !ok {
		return "", false
	}
	if s, ok := v.AsString(); ok && s != "" {
		return s, true
	}
	if lit, ok := v.Literal(); ok {
		return lit, true
	}
	return "", false
}

// SetIdentity stores key in the identity attribute of e, coercing it to
// the attribute's type.
func (c *Codec) SetIdentity(e Entity, key string) error {
	attr, fv, err := c.identityField(e)
	if err != nil {
		return err
	}

	raw := String(key)
	if attr.Kind == KindInteger || attr.Kind == KindFloat {
		if raw, err = Number(key); err != nil {
			return fmt.Errorf("%w: identity %q for %s", ErrTypeMismatch, key, attr.Name)
		}
	}
	d := c.newDecoder(context.Background(), nil)
	return d.decodeInto(fv, raw, nil, attr.Name)
}

func (c *Codec) identityField(e Entity) (*Attribute, reflect.Value, error) {
	rv := reflect.ValueOf(e)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, reflect.Value{}, fmt.Errorf("%w: %T", ErrInvalidTarget, e)
	}
	schema, err := c.introspector.SchemaFor(rv.Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	if schema.Identity == "" {
		return nil, reflect.Value{}, fmt.Errorf("%w: %s has no identity attribute", ErrInvalidTarget, schema.Name)
	}
	attr, ok := schema.Attribute(schema.Identity)
	if !ok {
		return nil, reflect.Value{}, fmt.Errorf("%w: %s has no attribute %s", ErrInvalidTarget, schema.Name, schema.Identity)
	}
	fv, ok := fieldByIndexAlloc(rv.Elem(), attr.index)
	if !ok {
		return nil, reflect.Value{}, fmt.Errorf("%w: %s.%s is not settable", ErrInvalidTarget, schema.Name, attr.Name)
	}
	return attr, fv, nil
}

// obtain asks the persistence context for the node matching obj.
func (d *decoder) obtain(t reflect.Type, obj *Object) (reflect.Value, error) {
	schema, err := d.c.introspector.SchemaFor(t)
	if err != nil {
		return reflect.Value{}, err
	}

	key := d.identityKey(schema, obj)
	node, err := d.graph.Obtain(d.ctx, schema.Name, key)
	if err != nil {
		return reflect.Value{}, &GraphError{Entity: schema.Name, Key: key, Err: err}
	}
	rv := reflect.ValueOf(node)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Type().Elem() != t {
		return reflect.Value{}, &GraphError{
			Entity: schema.Name,
			Key:    key,
			Err:    fmt.Errorf("context returned %T, want *%s", node, t),
		}
	}
	return rv, nil
}

// identityKey returns the wire value of the identity attribute as a string.
func (d *decoder) identityKey(schema *Schema, obj *Object) string {
	if schema.Identity == "" {
		return ""
	}
	key, ok := d.c.wireKey(schema, reflect.Value{}, schema.Identity)
	if !ok {
		return ""
	}
	raw, ok := obj.Get(key)
	if !ok {
		return ""
	}
	if s, ok := raw.AsString(); ok {
		return s
	}
	if lit, ok := raw.Literal(); ok {
		return lit
	}
	return ""
}

// linkInverse points the inverse attribute of each target in fv back at
// parent. Pointer attributes are set; slice attributes get parent appended
// unless already present.
func (d *decoder) linkInverse(fv reflect.Value, inverse string, parent reflect.Value) {
	switch fv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < fv.Len(); i++ {
			d.linkInverse(fv.Index(i), inverse, parent)
		}
		return
	case reflect.Interface:
		if !fv.IsNil() {
			d.linkInverse(fv.Elem(), inverse, parent)
		}
		return
	case reflect.Pointer:
		if fv.IsNil() {
			return
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Struct {
		return
	}

	schema, err := d.c.introspector.SchemaFor(fv.Type())
	if err != nil {
		return
	}
	attr, ok := schema.Attribute(inverse)
	if !ok {
		d.c.log().Warn("inverse attribute not found",
			zapType(schema.Name), zapAttribute(inverse))
		return
	}
	target, ok := fieldByIndexAlloc(fv, attr.index)
	if !ok {
		return
	}

	switch {
	case parent.Type().AssignableTo(target.Type()):
		target.Set(parent)
	case target.Kind() == reflect.Slice && parent.Type().AssignableTo(target.Type().Elem()):
		for i := 0; i < target.Len(); i++ {
			if target.Index(i).Interface() == parent.Interface() {
				return
			}
		}
		target.Set(reflect.Append(target, parent))
	default:
		d.c.log().Warn("inverse attribute cannot hold parent",
			zapType(schema.Name), zapAttribute(inverse))
	}
}
