package serial

import "reflect"

// Customization hooks. A type opts in by implementing any of these on its
// pointer receiver; a type implementing none of them gets default behavior.
// Which hooks a type implements is recorded once in its Schema.

// PropertyNamer overrides the attribute name resolved for a wire key.
// def is the name the configuration would use. Returning false skips the
// key while populating.
type PropertyNamer interface {
	PropertyName(key, def string) (string, bool)
}

// SerializedKeyer overrides the wire key resolved for an attribute.
// def is the key the configuration would use. Returning false leaves the
// attribute out of the serialized object.
type SerializedKeyer interface {
	SerializedKey(name, def string) (string, bool)
}

// ReadCoercer converts a raw wire value for an attribute while populating.
// The returned value must be assignable or convertible to the attribute's
// field type. Returning false falls back to default coercion.
type ReadCoercer interface {
	CoerceOnRead(name string, raw Value) (any, bool)
}

// WriteCoercer converts an attribute value to its wire form while
// serializing. Returning false falls back to default coercion.
type WriteCoercer interface {
	CoerceOnWrite(name string, v any) (Value, bool)
}

// ElementTyper names the element type of a collection attribute whose
// static element type is an interface. It is consulted once, when the
// schema is built. Returning nil leaves the element type to inference.
type ElementTyper interface {
	ElementType(name string) reflect.Type
}

// Defaulter is called on every freshly allocated object before it is
// populated.
type Defaulter interface {
	SetDefaults()
}

var (
	propertyNamerType   = reflect.TypeOf((*PropertyNamer)(nil)).Elem()
	serializedKeyerType = reflect.TypeOf((*SerializedKeyer)(nil)).Elem()
	readCoercerType     = reflect.TypeOf((*ReadCoercer)(nil)).Elem()
	writeCoercerType    = reflect.TypeOf((*WriteCoercer)(nil)).Elem()
	elementTyperType    = reflect.TypeOf((*ElementTyper)(nil)).Elem()
	entityType          = reflect.TypeOf((*Entity)(nil)).Elem()
	identifiableType    = reflect.TypeOf((*Identifiable)(nil)).Elem()
)
