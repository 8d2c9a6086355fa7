package serial

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	casing "github.com/conduit-lang/serialkit/internal/util/strings"
)

// AttributeKind classifies an attribute by its static Go type.
type AttributeKind int

const (
	KindUnknown AttributeKind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindDate
	KindUUID
	KindURL
	KindNested
	KindRelationship
)

// String returns the string representation of the attribute kind
func (k AttributeKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindUUID:
		return "uuid"
	case KindURL:
		return "url"
	case KindNested:
		return "nested"
	case KindRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	urlType  = reflect.TypeOf(url.URL{})
)

// Attribute describes one serializable attribute of a struct type.
//
// For collections Kind is the kind of the elements. ElementType is the
// element type of a collection, or the target struct type of a nested or
// relationship attribute.
type Attribute struct {
	Name         string
	Field        string
	Kind         AttributeKind
	IsCollection bool
	ElementType  reflect.Type
	Type         reflect.Type
	Inverse      string
	OmitEmpty    bool

	index     []int
	elemNames []string // registry names tried when ElementType is unresolved
}

// Schema is the ordered attribute list of one struct type.
// Schemas are immutable once published by an Introspector.
type Schema struct {
	Type       reflect.Type
	Name       string
	Attributes []*Attribute
	Identity   string

	byName map[string]*Attribute

	propertyNamer   bool
	serializedKeyer bool
	readCoercer     bool
	writeCoercer    bool
	entity          bool
}

// Attribute returns the attribute with the given name
func (s *Schema) Attribute(name string) (*Attribute, bool) {
	attr, ok := s.byName[name]
	return attr, ok
}

// IsEntity reports whether the type is a graph entity
func (s *Schema) IsEntity() bool { return s.entity }

// Introspector discovers and caches struct schemas. Each type's schema is
// computed once by the first caller and shared by every later caller.
type Introspector struct {
	mu      sync.Mutex
	entries map[reflect.Type]*schemaEntry
}

type schemaEntry struct {
	once   sync.Once
	schema *Schema
	err    error
}

// NewIntrospector creates an empty schema cache
func NewIntrospector() *Introspector {
	return &Introspector{entries: make(map[reflect.Type]*schemaEntry)}
}

var defaultIntrospector = NewIntrospector()

// SchemaFor returns the schema of a struct type or a pointer to one, using
// the default introspector.
func SchemaFor(t reflect.Type) (*Schema, error) {
	return defaultIntrospector.SchemaFor(t)
}

// SchemaFor returns the schema of a struct type or a pointer to one
func (in *Introspector) SchemaFor(t reflect.Type) (*Schema, error) {
	st, err := structType(t)
	if err != nil {
		return nil, err
	}

	in.mu.Lock()
	entry, ok := in.entries[st]
	if !ok {
		entry = &schemaEntry{}
		in.entries[st] = entry
	}
	in.mu.Unlock()

	entry.once.Do(func() {
		entry.schema, entry.err = buildSchema(st)
	})
	return entry.schema, entry.err
}

// Len returns the number of cached schemas
func (in *Introspector) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries)
}

type fieldCandidate struct {
	attr  *Attribute
	depth int
}

func buildSchema(t reflect.Type) (*Schema, error) {
	ptr := reflect.PointerTo(t)
	s := &Schema{
		Type:            t,
		Name:            TypeName(t),
		byName:          make(map[string]*Attribute),
		propertyNamer:   ptr.Implements(propertyNamerType),
		serializedKeyer: ptr.Implements(serializedKeyerType),
		readCoercer:     ptr.Implements(readCoercerType),
		writeCoercer:    ptr.Implements(writeCoercerType),
		entity:          ptr.Implements(entityType),
	}

	var candidates []fieldCandidate
	if err := collectFields(t, nil, 0, map[reflect.Type]bool{t: true}, &candidates); err != nil {
		return nil, err
	}

	// a shallower field hides deeper promoted fields of the same name
	best := make(map[string]int)
	for _, c := range candidates {
		if depth, ok := best[c.attr.Name]; !ok || c.depth < depth {
			best[c.attr.Name] = c.depth
		}
	}
	for _, c := range candidates {
		if c.depth != best[c.attr.Name] {
			continue
		}
		if _, dup := s.byName[c.attr.Name]; dup {
			continue
		}
		s.byName[c.attr.Name] = c.attr
		s.Attributes = append(s.Attributes, c.attr)
	}

	var typer ElementTyper
	if ptr.Implements(elementTyperType) {
		typer = reflect.New(t).Interface().(ElementTyper)
	}
	for _, attr := range s.Attributes {
		if attr.IsCollection && attr.ElementType == nil {
			resolveElement(attr, typer)
		}
		if attr.Inverse != "" && attr.Kind != KindRelationship && attr.Kind != KindNested && len(attr.elemNames) == 0 {
			return nil, fmt.Errorf("%s.%s: inverse requires a struct-typed attribute", t, attr.Field)
		}
	}

	if ptr.Implements(identifiableType) {
		s.Identity = reflect.New(t).Interface().(Identifiable).IdentityAttribute()
	}
	return s, nil
}

func collectFields(t reflect.Type, index []int, depth int, seen map[reflect.Type]bool, out *[]fieldCandidate) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, hasTag := f.Tag.Lookup("serial")
		opts := parseTag(tag)
		if opts.name == "-" {
			continue
		}

		fieldIndex := make([]int, len(index)+1)
		copy(fieldIndex, index)
		fieldIndex[len(index)] = i

		if f.Anonymous && (!hasTag || opts.name == "") {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
				if !f.IsExported() {
					continue
				}
			}
			if ft.Kind() == reflect.Struct && !isScalarStruct(ft) {
				if seen[ft] {
					continue
				}
				seen[ft] = true
				if err := collectFields(ft, fieldIndex, depth+1, seen, out); err != nil {
					return err
				}
				delete(seen, ft)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name := opts.name
		if name == "" {
			name = casing.ToCamelCase(f.Name)
		}

		attr := &Attribute{
			Name:      name,
			Field:     f.Name,
			Type:      f.Type,
			Inverse:   opts.inverse,
			OmitEmpty: opts.omitEmpty,
			index:     fieldIndex,
		}
		classifyAttribute(attr, f.Type)
		if opts.elem != "" {
			attr.elemNames = []string{opts.elem}
		}
		*out = append(*out, fieldCandidate{attr: attr, depth: depth})
	}
	return nil
}

type tagOptions struct {
	name      string
	omitEmpty bool
	inverse   string
	elem      string
}

func parseTag(tag string) tagOptions {
	parts := strings.Split(tag, ",")
	opts := tagOptions{name: strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "omitempty":
			opts.omitEmpty = true
		case strings.HasPrefix(part, "inverse="):
			opts.inverse = strings.TrimPrefix(part, "inverse=")
		case strings.HasPrefix(part, "elem="):
			opts.elem = strings.TrimPrefix(part, "elem=")
		}
	}
	return opts
}

func classifyAttribute(attr *Attribute, t reflect.Type) {
	if (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t != uuidType {
		attr.IsCollection = true
		elem := t.Elem()
		attr.Kind, attr.ElementType = classify(elem)
		if attr.ElementType == nil && elem.Kind() != reflect.Interface {
			attr.ElementType = elem
		}
		return
	}
	attr.Kind, attr.ElementType = classify(t)
}

// classify applies the fixed precedence list to a single static type.
// The returned type is the struct type for nested and relationship kinds.
func classify(t reflect.Type) (AttributeKind, reflect.Type) {
	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.Kind() == reflect.Struct && !isScalarStruct(elem) {
			if t.Implements(entityType) {
				return KindRelationship, elem
			}
			return KindNested, elem
		}
		return classify(elem)
	}

	switch t.Kind() {
	case reflect.Bool:
		return KindBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInteger, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.String:
		return KindString, nil
	}

	switch t {
	case timeType:
		return KindDate, nil
	case uuidType:
		return KindUUID, nil
	case urlType:
		return KindURL, nil
	}

	if t.Kind() == reflect.Struct {
		return KindNested, t
	}
	return KindUnknown, nil
}

func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t == urlType
}

// resolveElement fills in the element type of an interface-typed
// collection from the ElementTyper hook, or records the registry names to
// try at decode time. Singularizing the attribute name is best effort:
// irregular plurals and compound words may not resolve.
func resolveElement(attr *Attribute, typer ElementTyper) {
	if len(attr.elemNames) > 0 {
		return
	}
	if typer != nil {
		if et := typer.ElementType(attr.Name); et != nil {
			attr.Kind, attr.ElementType = classify(et)
			if attr.ElementType == nil {
				attr.ElementType = et
			}
			return
		}
	}
	singular := casing.Singularize(attr.Name)
	names := []string{casing.UpperFirst(singular)}
	if pascal := casing.ToPascalCase(singular); pascal != names[0] {
		names = append(names, pascal)
	}
	attr.elemNames = names
}

// elementType returns the element struct type of a collection attribute,
// consulting the registry for interface-typed collections.
func (a *Attribute) elementType(reg *Registry) reflect.Type {
	if a.ElementType != nil {
		return a.ElementType
	}
	for _, name := range a.elemNames {
		if t, ok := reg.Lookup(name); ok {
			return t
		}
	}
	return nil
}
