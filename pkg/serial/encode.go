package serial

import (
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValueTree serializes obj into a JSON value tree. Structs become objects,
// slices and arrays become arrays. Values with no JSON form are omitted;
// a top-level value with no JSON form yields null.
func (c *Codec) ValueTree(obj any) Value {
	e := &encoder{c: c, visits: newVisitSet()}
	v, ok := e.encode(reflect.ValueOf(obj), "", "")
	if !ok {
		return Null()
	}
	return v
}

// Marshal serializes obj to compact JSON bytes
func (c *Codec) Marshal(obj any) ([]byte, error) {
	data, err := gojson.Marshal(c.ValueTree(obj))
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

// MarshalText serializes obj to compact JSON text
func (c *Codec) MarshalText(obj any) (string, error) {
	data, err := c.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalIndent serializes obj to indented JSON bytes
func (c *Codec) MarshalIndent(obj any, prefix, indent string) ([]byte, error) {
	data, err := gojson.MarshalIndent(c.ValueTree(obj), prefix, indent)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

// encoder holds the state of one top-level serialization call.
type encoder struct {
	c      *Codec
	visits *visitSet
	depth  int
}

// encode converts rv to a Value. The boolean is false when rv must be
// omitted. path names the attribute for diagnostics; omit names an
// attribute to leave out of the next struct reached.
func (e *encoder) encode(rv reflect.Value, path, omit string) (Value, bool) {
	if !rv.IsValid() {
		return Null(), false
	}

	switch rv.Type() {
	case timeType:
		t := rv.Interface().(time.Time)
		return String(t.UTC().Format(e.c.config.DateLayout())), true
	case uuidType:
		return String(rv.Interface().(uuid.UUID).String()), true
	case urlType:
		u := rv.Interface().(url.URL)
		return String(u.String()), true
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), false
		}
		return e.encode(rv.Elem(), path, omit)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), false
		}
		return e.encodePointer(rv, path, omit)
	case reflect.Bool:
		return Bool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			e.unrepresentable(path, "non-finite number")
			return Null(), false
		}
		if rv.Kind() == reflect.Float32 {
			return Value{kind: NumberKind, s: formatFloat32(f)}, true
		}
		return Float(f), true
	case reflect.String:
		return String(rv.String()), true
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), false
		}
		return e.encodeList(rv, path, omit)
	case reflect.Array:
		return e.encodeList(rv, path, omit)
	case reflect.Map:
		if rv.IsNil() {
			return Null(), false
		}
		return e.encodeMap(rv, path)
	case reflect.Struct:
		return e.encodeStruct(rv, path, omit)
	default:
		e.unrepresentable(path, rv.Kind().String())
		return Null(), false
	}
}

func (e *encoder) encodePointer(rv reflect.Value, path, omit string) (Value, bool) {
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct || isScalarStruct(elem.Type()) {
		return e.encode(elem, path, omit)
	}

	entity := rv.Type().Implements(entityType)
	id := visitKey{ptr: rv.Pointer(), typ: elem.Type()}
	if e.visits.seen(id) {
		return e.revisit(rv)
	}
	if entity && e.c.references && e.depth > 0 {
		if v, ok := e.reference(rv); ok {
			return v, true
		}
	}
	e.visits.enter(id)
	defer e.visits.leave(id, entity)

	return e.encodeStruct(elem, path, omit)
}

// revisit renders a node that is already being, or has been, serialized
// in this call. Under CyclePlaceholder it becomes a reference; otherwise
// it is omitted.
func (e *encoder) revisit(rv reflect.Value) (Value, bool) {
	if e.c.config.CyclePolicy() != CyclePlaceholder {
		return Null(), false
	}
	return e.reference(rv)
}

// reference renders an identifiable node as an object holding only its
// identity attribute.
func (e *encoder) reference(rv reflect.Value) (Value, bool) {
	schema, err := e.c.introspector.SchemaFor(rv.Type())
	if err != nil || schema.Identity == "" {
		return Null(), false
	}
	attr, ok := schema.Attribute(schema.Identity)
	if !ok {
		return Null(), false
	}
	key, ok := e.c.wireKey(schema, rv, attr.Name)
	if !ok {
		return Null(), false
	}
	fv, err := rv.Elem().FieldByIndexErr(attr.index)
	if err != nil {
		return Null(), false
	}
	idValue, ok := e.encode(fv, schema.Name+"."+attr.Name, "")
	if !ok {
		return Null(), false
	}
	obj := NewObject()
	obj.Set(key, idValue)
	return ObjectValue(obj), true
}

// encodeList drops elements that have no JSON form.
func (e *encoder) encodeList(rv reflect.Value, path, omit string) (Value, bool) {
	if !e.descend(path) {
		return Null(), false
	}
	defer e.ascend()

	elems := make([]Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if v, ok := e.encode(rv.Index(i), path, omit); ok {
			elems = append(elems, v)
		}
	}
	return Array(elems...), true
}

func (e *encoder) encodeMap(rv reflect.Value, path string) (Value, bool) {
	if rv.Type().Key().Kind() != reflect.String {
		e.unrepresentable(path, "map key "+rv.Type().Key().String())
		return Null(), false
	}
	if !e.descend(path) {
		return Null(), false
	}
	defer e.ascend()

	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	obj := NewObject()
	for _, k := range keys {
		if v, ok := e.encode(rv.MapIndex(k), path, ""); ok {
			obj.Set(k.String(), v)
		}
	}
	return ObjectValue(obj), true
}

func (e *encoder) encodeStruct(rv reflect.Value, path, omit string) (Value, bool) {
	schema, err := e.c.introspector.SchemaFor(rv.Type())
	if err != nil {
		e.unrepresentable(path, err.Error())
		return Null(), false
	}
	if !e.descend(path) {
		return Null(), false
	}
	defer e.ascend()

	ptr := addressable(rv)
	obj := NewObject()
	for _, attr := range schema.Attributes {
		if attr.Name == omit {
			continue
		}
		key, ok := e.c.wireKey(schema, ptr, attr.Name)
		if !ok {
			continue
		}
		fv, err := ptr.Elem().FieldByIndexErr(attr.index)
		if err != nil {
			continue
		}

		if schema.writeCoercer {
			if v, ok := ptr.Interface().(WriteCoercer).CoerceOnWrite(attr.Name, fv.Interface()); ok {
				obj.Set(key, v)
				continue
			}
		}
		if attr.OmitEmpty && fv.IsZero() {
			continue
		}

		if v, ok := e.encode(fv, schema.Name+"."+attr.Name, attr.Inverse); ok {
			obj.Set(key, v)
		}
	}
	return ObjectValue(obj), true
}

func (e *encoder) descend(path string) bool {
	if e.depth >= e.c.config.MaxDepth() {
		e.c.log().Warn("maximum depth exceeded, value omitted",
			zap.String("path", path), zap.Int("max_depth", e.c.config.MaxDepth()))
		return false
	}
	e.depth++
	return true
}

func (e *encoder) ascend() { e.depth-- }

func (e *encoder) unrepresentable(path, reason string) {
	e.c.log().Warn("attribute not representable as JSON, omitted",
		zap.String("path", path), zap.String("reason", reason))
}

// addressable returns a pointer to rv, copying rv when it is not addressable.
func addressable(rv reflect.Value) reflect.Value {
	if rv.CanAddr() {
		return rv.Addr()
	}
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	return ptr
}

func formatFloat32(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 32)
}
