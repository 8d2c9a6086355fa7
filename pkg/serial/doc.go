// Package serial converts Go structs to and from JSON value trees.
//
// Schemas are discovered by reflection on first use and cached per type.
// Attribute names default to the camel-cased field name and can be set with
// a struct tag:
//
//	type Order struct {
//		ID     string     `serial:"id"`
//		Lines  []*Line    `serial:"lines,inverse=order"`
//		Notes  string     `serial:",omitempty"`
//		Secret string     `serial:"-"`
//		Items  []any      `serial:"items,elem=Item"`
//	}
//
// Wire keys are derived from attribute names through a Configuration:
// a redirect table first, then a KeyStyle. Types customize naming and
// coercion by implementing the hook interfaces in hooks.go.
//
// Entities (types implementing Entity) form object graphs. Serializing a
// graph visits each entity once per call; revisits are omitted or written
// as identity placeholders depending on the CyclePolicy. ConstructInto
// builds a graph through a persistence Context.
package serial
