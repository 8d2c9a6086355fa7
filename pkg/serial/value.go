package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// ValueKind identifies the shape of a Value.
type ValueKind int

const (
	NullKind ValueKind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	ObjectKind
)

// String returns the string representation of the value kind
func (k ValueKind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case ObjectKind:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON-compatible value tree node. The zero Value is null.
// Numbers keep their literal text so integers wider than a float64
// mantissa survive a round trip.
type Value struct {
	kind ValueKind
	b    bool
	s    string
	arr  []Value
	obj  *Object
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// String wraps a string
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Int wraps a signed integer
func Int(i int64) Value { return Value{kind: NumberKind, s: strconv.FormatInt(i, 10)} }

// Uint wraps an unsigned integer
func Uint(u uint64) Value { return Value{kind: NumberKind, s: strconv.FormatUint(u, 10)} }

// Float wraps a floating point number. Non-finite numbers have no JSON
// form and become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: NumberKind, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Number wraps a JSON number literal. The literal is validated.
func Number(literal string) (Value, error) {
	if !isNumberLiteral(literal) {
		return Null(), fmt.Errorf("invalid number literal %q", literal)
	}
	return Value{kind: NumberKind, s: literal}, nil
}

// Array wraps a list of values
func Array(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{kind: ArrayKind, arr: values}
}

// ObjectValue wraps an object. A nil object yields an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: ObjectKind, obj: o}
}

// Kind returns the shape of the value
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.kind == NullKind }

// AsBool returns the boolean held by the value
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == BoolKind
}

// AsString returns the string held by the value
func (v Value) AsString() (string, bool) {
	if v.kind != StringKind {
		return "", false
	}
	return v.s, true
}

// Literal returns the number literal held by the value
func (v Value) Literal() (string, bool) {
	if v.kind != NumberKind {
		return "", false
	}
	return v.s, true
}

// AsInt64 returns the value as a signed integer. Integral float literals
// (1.0, 2e3) are accepted; fractions and out of range numbers are not.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != NumberKind {
		return 0, false
	}
	if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// AsUint64 returns the value as an unsigned integer
func (v Value) AsUint64() (uint64, bool) {
	if v.kind != NumberKind {
		return 0, false
	}
	if u, err := strconv.ParseUint(v.s, 10, 64); err == nil {
		return u, true
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}

// AsFloat64 returns the value as a float
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != NumberKind {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AsArray returns the elements held by the value
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != ArrayKind {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the object held by the value
func (v Value) AsObject() (*Object, bool) {
	if v.kind != ObjectKind {
		return nil, false
	}
	return v.obj, true
}

// Interface converts the value to plain Go values: nil, bool, float64,
// string, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case BoolKind:
		return v.b
	case NumberKind:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	case StringKind:
		return v.s
	case ArrayKind:
		out := make([]any, len(v.arr))
		for i, elem := range v.arr {
			out[i] = elem.Interface()
		}
		return out
	case ObjectKind:
		out := make(map[string]any, v.obj.Len())
		v.obj.Range(func(key string, val Value) bool {
			out[key] = val.Interface()
			return true
		})
		return out
	default:
		return nil
	}
}

// Equal reports whether two value trees are structurally equal.
// Object key order is not significant.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case BoolKind:
		return v.b == other.b
	case StringKind:
		return v.s == other.s
	case NumberKind:
		if v.s == other.s {
			return true
		}
		a, errA := strconv.ParseFloat(v.s, 64)
		b, errB := strconv.ParseFloat(other.s, 64)
		return errA == nil && errB == nil && a == b
	case ArrayKind:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case ObjectKind:
		if v.obj.Len() != other.obj.Len() {
			return false
		}
		equal := true
		v.obj.Range(func(key string, val Value) bool {
			o, ok := other.obj.Get(key)
			equal = ok && val.Equal(o)
			return equal
		})
		return equal
	}
	return false
}

// MarshalJSON renders the value as compact JSON, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case NullKind:
		buf.WriteString("null")
	case BoolKind:
		buf.WriteString(strconv.FormatBool(v.b))
	case NumberKind:
		buf.WriteString(v.s)
	case StringKind:
		quoted, err := gojson.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(quoted)
	case ArrayKind:
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := elem.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectKind:
		buf.WriteByte('{')
		for i, key := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			quoted, err := gojson.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(quoted)
			buf.WriteByte(':')
			if err := v.obj.values[key].appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: value kind %d", ErrUnrepresentable, v.kind)
	}
	return nil
}

// Object is a JSON object that remembers key insertion order.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set stores a value under key. Replacing an existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key, reporting whether it was present
func (o *Object) Delete(key string) bool {
	if _, exists := o.values[key]; !exists {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of keys
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for each key in insertion order until fn returns false
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, key := range o.keys {
		if !fn(key, o.values[key]) {
			return
		}
	}
}

// Parse reads one JSON document into a value tree. Empty or
// whitespace-only input yields null. Anything that is not exactly one
// well-formed JSON value fails with a *DecodingError.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null(), nil
	}

	if !gojson.Valid(data) {
		var discard any
		err := gojson.Unmarshal(data, &discard)
		if err == nil {
			err = errors.New("invalid JSON document")
		}
		var offset int64
		var syntaxErr *gojson.SyntaxError
		if errors.As(err, &syntaxErr) {
			offset = syntaxErr.Offset
		}
		return Null(), &DecodingError{Offset: offset, Err: err}
	}

	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Null(), &DecodingError{Offset: dec.InputOffset(), Err: err}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Null(), &DecodingError{Offset: dec.InputOffset(), Err: err}
	}
	return v, nil
}

// ParseString is Parse for text input
func ParseString(text string) (Value, error) {
	return Parse([]byte(text))
}

func parseValue(dec *gojson.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Null(), io.ErrUnexpectedEOF
		}
		return Null(), err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case gojson.Number:
		return Value{kind: NumberKind, s: t.String()}, nil
	case gojson.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return Null(), err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return ObjectValue(obj), nil
		case '[':
			elems := []Value{}
			for dec.More() {
				val, err := parseValue(dec)
				if err != nil {
					return Null(), err
				}
				elems = append(elems, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Array(elems...), nil
		}
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}

func isNumberLiteral(s string) bool {
	if s == "" {
		return false
	}
	return gojson.Valid([]byte(s)) && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '-' && r != '+' && r != '.' && r != 'e' && r != 'E'
	}) < 0
}

// RestyleKeys returns a copy of v with every object key translated to style.
// Array elements are restyled recursively; scalar values are untouched.
func RestyleKeys(v Value, style KeyStyle) Value {
	switch v.kind {
	case ArrayKind:
		out := make([]Value, len(v.arr))
		for i, elem := range v.arr {
			out[i] = RestyleKeys(elem, style)
		}
		return Array(out...)
	case ObjectKind:
		obj := NewObject()
		v.obj.Range(func(key string, val Value) bool {
			obj.Set(Translate(key, style), RestyleKeys(val, style))
			return true
		})
		return ObjectValue(obj)
	default:
		return v
	}
}
