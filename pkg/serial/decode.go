package serial

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hengadev/errsx"
	"go.uber.org/zap"
)

// Populate fills the struct pointed to by obj from v. Only object values
// populate; any other shape is a no-op. Keys are matched to attributes by
// name and unknown keys are ignored. An attribute whose wire value does
// not fit is skipped and logged; the rest of the object still populates.
// obj may also point to a slice or map, which is replaced from v.
func (c *Codec) Populate(obj any, v Value) error {
	rv := reflect.ValueOf(obj)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: %T", ErrInvalidTarget, obj)
	}

	d := c.newDecoder(context.Background(), nil)
	if rv.Elem().Kind() == reflect.Struct {
		o, ok := v.AsObject()
		if !ok {
			return nil
		}
		if err := d.populateStruct(rv, o, ""); err != nil {
			return err
		}
		return d.result()
	}

	if v.IsNull() {
		return nil
	}
	if err := d.decodeInto(rv.Elem(), v, nil, ""); err != nil {
		return err
	}
	return d.result()
}

// Unmarshal parses data and populates obj from it. Empty input is a no-op;
// malformed input fails with a *DecodingError.
func (c *Codec) Unmarshal(data []byte, obj any) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	return c.Populate(obj, v)
}

// UnmarshalText parses text and populates obj from it
func (c *Codec) UnmarshalText(text string, obj any) error {
	return c.Unmarshal([]byte(text), obj)
}

// decoder holds the state of one populate or construct call.
type decoder struct {
	c     *Codec
	ctx   context.Context
	graph Context
	errs  errsx.Map
	depth int
}

func (c *Codec) newDecoder(ctx context.Context, graph Context) *decoder {
	if ctx == nil {
		ctx = context.Background()
	}
	return &decoder{c: c, ctx: ctx, graph: graph}
}

// result returns the aggregated skips in strict mode.
func (d *decoder) result() error {
	if d.errs.IsEmpty() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAttributeSkipped, d.errs.AsError())
}

func (d *decoder) populateStruct(ptr reflect.Value, obj *Object, path string) error {
	schema, err := d.c.introspector.SchemaFor(ptr.Type())
	if err != nil {
		return err
	}
	if d.depth >= d.c.config.MaxDepth() {
		d.c.log().Warn("maximum depth exceeded, object not populated",
			zapType(schema.Name), zap.String("path", path))
		return nil
	}
	d.depth++
	defer func() { d.depth-- }()

	for _, key := range obj.Keys() {
		raw, _ := obj.Get(key)

		name, ok := d.c.attributeName(schema, ptr, key)
		if !ok {
			continue
		}
		attr, ok := schema.Attribute(name)
		if !ok {
			continue
		}
		target, ok := fieldByIndexAlloc(ptr.Elem(), attr.index)
		if !ok {
			continue
		}
		attrPath := joinPath(path, key)

		if schema.readCoercer {
			if val, ok := ptr.Interface().(ReadCoercer).CoerceOnRead(name, raw); ok {
				if err := assign(target, val); err != nil {
					d.skip(schema, attr, key, attrPath, err)
				}
				continue
			}
		}

		if err := d.decodeInto(target, raw, attr.elementType(d.c.registry), attrPath); err != nil {
			if errors.Is(err, ErrGraph) {
				return err
			}
			d.skip(schema, attr, key, attrPath, err)
			continue
		}
		if attr.Inverse != "" {
			d.linkInverse(target, attr.Inverse, ptr)
		}
	}
	return nil
}

func (d *decoder) skip(schema *Schema, attr *Attribute, key, path string, err error) {
	cerr := &CoercionError{Type: schema.Name, Attribute: attr.Name, Key: key, Err: err}
	d.c.log().Warn("attribute skipped",
		zapType(schema.Name), zapAttribute(attr.Name), zapKey(key), zap.Error(err))
	if d.c.strict {
		d.errs.Set(path, cerr)
	}
}

// decodeInto coerces raw into target. hint is the struct type to
// allocate for interface-typed slots. target is only modified when the
// whole value fits.
func (d *decoder) decodeInto(target reflect.Value, raw Value, hint reflect.Type, path string) error {
	t := target.Type()
	if raw.IsNull() {
		target.Set(reflect.Zero(t))
		return nil
	}

	switch t {
	case timeType:
		s, ok := raw.AsString()
		if !ok {
			return mismatch("date string", raw)
		}
		tm, err := d.parseTime(s)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		target.Set(reflect.ValueOf(tm))
		return nil
	case uuidType:
		s, ok := raw.AsString()
		if !ok {
			return mismatch("uuid string", raw)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		target.Set(reflect.ValueOf(id))
		return nil
	case urlType:
		s, ok := raw.AsString()
		if !ok {
			return mismatch("url string", raw)
		}
		u, err := url.Parse(s)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		target.Set(reflect.ValueOf(*u))
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		return d.decodePointer(target, raw, hint, path)
	case reflect.Interface:
		return d.decodeInterface(target, raw, hint, path)
	case reflect.Bool:
		b, ok := raw.AsBool()
		if !ok {
			return mismatch("bool", raw)
		}
		target.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := raw.AsInt64()
		if !ok {
			return mismatch("integer", raw)
		}
		if target.OverflowInt(i) {
			return fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, i, t)
		}
		target.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, ok := raw.AsUint64()
		if !ok {
			return mismatch("unsigned integer", raw)
		}
		if target.OverflowUint(u) {
			return fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, u, t)
		}
		target.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, ok := raw.AsFloat64()
		if !ok {
			return mismatch("number", raw)
		}
		if target.OverflowFloat(f) {
			return fmt.Errorf("%w: %g overflows %s", ErrTypeMismatch, f, t)
		}
		target.SetFloat(f)
	case reflect.String:
		s, ok := raw.AsString()
		if !ok {
			return mismatch("string", raw)
		}
		target.SetString(s)
	case reflect.Slice:
		arr, ok := raw.AsArray()
		if !ok {
			return mismatch("array", raw)
		}
		out := reflect.MakeSlice(t, len(arr), len(arr))
		for i, elem := range arr {
			if err := d.decodeInto(out.Index(i), elem, hint, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		target.Set(out)
	case reflect.Array:
		arr, ok := raw.AsArray()
		if !ok {
			return mismatch("array", raw)
		}
		if len(arr) > t.Len() {
			return fmt.Errorf("%w: %d elements do not fit %s", ErrTypeMismatch, len(arr), t)
		}
		out := reflect.New(t).Elem()
		for i, elem := range arr {
			if err := d.decodeInto(out.Index(i), elem, hint, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		target.Set(out)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map key %s", ErrUnrepresentable, t.Key())
		}
		o, ok := raw.AsObject()
		if !ok {
			return mismatch("object", raw)
		}
		out := reflect.MakeMapWithSize(t, o.Len())
		var err error
		o.Range(func(key string, val Value) bool {
			elem := reflect.New(t.Elem()).Elem()
			if err = d.decodeInto(elem, val, hint, joinPath(path, key)); err != nil {
				return false
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), elem)
			return true
		})
		if err != nil {
			return err
		}
		target.Set(out)
	case reflect.Struct:
		o, ok := raw.AsObject()
		if !ok {
			return mismatch("object", raw)
		}
		return d.populateStruct(target.Addr(), o, path)
	default:
		return fmt.Errorf("%w: %s", ErrUnrepresentable, t)
	}
	return nil
}

func (d *decoder) decodePointer(target reflect.Value, raw Value, hint reflect.Type, path string) error {
	t := target.Type()
	elem := t.Elem()
	isStruct := elem.Kind() == reflect.Struct && !isScalarStruct(elem)

	if d.graph != nil && isStruct && t.Implements(entityType) {
		o, ok := raw.AsObject()
		if !ok {
			return mismatch("object", raw)
		}
		node, err := d.obtain(elem, o)
		if err != nil {
			return err
		}
		if err := d.populateStruct(node, o, path); err != nil {
			return err
		}
		target.Set(node)
		return nil
	}

	var ptr reflect.Value
	switch {
	case isStruct && !target.IsNil():
		ptr = target
	case isStruct:
		ptr = newInstance(elem)
	default:
		ptr = reflect.New(elem)
	}
	if err := d.decodeInto(ptr.Elem(), raw, hint, path); err != nil {
		return err
	}
	target.Set(ptr)
	return nil
}

func (d *decoder) decodeInterface(target reflect.Value, raw Value, hint reflect.Type, path string) error {
	t := target.Type()
	dynamic := t.NumMethod() == 0

	if hint != nil && !(dynamic && raw.Kind() != ObjectKind && hint.Kind() == reflect.Struct) {
		holderType := hint
		if hint.Kind() == reflect.Struct && !isScalarStruct(hint) {
			holderType = reflect.PointerTo(hint)
		}
		if !holderType.AssignableTo(t) {
			return fmt.Errorf("%w: %s does not implement %s", ErrTypeMismatch, holderType, t)
		}
		holder := reflect.New(holderType).Elem()
		if err := d.decodeInto(holder, raw, nil, path); err != nil {
			return err
		}
		target.Set(holder)
		return nil
	}

	if !dynamic {
		return fmt.Errorf("%w: no element type for %s", ErrUnrepresentable, t)
	}
	target.Set(reflect.ValueOf(raw.Interface()))
	return nil
}

func (d *decoder) parseTime(s string) (time.Time, error) {
	layout := d.c.config.DateLayout()
	tm, err := time.Parse(layout, s)
	if err != nil && layout != time.RFC3339Nano {
		if fallback, ferr := time.Parse(time.RFC3339Nano, s); ferr == nil {
			return fallback.UTC(), nil
		}
	}
	if err != nil {
		return time.Time{}, err
	}
	return tm.UTC(), nil
}

// assign stores a hook-provided value in target.
func assign(target reflect.Value, val any) error {
	if val == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	rv := reflect.ValueOf(val)
	switch {
	case rv.Type().AssignableTo(target.Type()):
		target.Set(rv)
	case rv.Type().ConvertibleTo(target.Type()) &&
		(rv.Kind() == target.Kind() || (isNumeric(rv.Kind()) && isNumeric(target.Kind()))):
		target.Set(rv.Convert(target.Type()))
	default:
		return fmt.Errorf("%w: hook returned %s for %s", ErrTypeMismatch, rv.Type(), target.Type())
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// fieldByIndexAlloc walks index from v, allocating nil embedded pointers.
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, v.CanSet()
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
