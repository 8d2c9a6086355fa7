package serial

import (
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hengadev/errsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func samplePerson() Person {
	return Person{
		Name:    "Ann",
		Age:     30,
		Tags:    []string{"a", "b"},
		Born:    time.Date(1990, 1, 2, 3, 4, 5, 0, time.UTC),
		Address: &Address{Street: "Main", City: "Oslo"},
		Score:   1.5,
		Active:  true,
	}
}

func TestMarshalPerson(t *testing.T) {
	c := newTestCodec()

	text, err := c.MarshalText(samplePerson())
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"Ann","age":30,"tags":["a","b"],"born":"1990-01-02T03:04:05Z","address":{"street":"Main","city":"Oslo"},"score":1.5,"active":true}`,
		text)

	indented, err := c.MarshalIndent(samplePerson(), "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"name\": \"Ann\"")
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec()
	original := samplePerson()
	original.Email = "ann@example.com"

	data, err := c.Marshal(&original)
	require.NoError(t, err)

	decoded, err := DecodeWith[Person](c, data)
	require.NoError(t, err)
	assert.Equal(t, original, *decoded)
}

func TestRoundTripSpecialKinds(t *testing.T) {
	c := newTestCodec()
	homepage, err := url.Parse("https://example.com/a?b=c")
	require.NoError(t, err)
	avatar, err := url.Parse("https://cdn.example.com/avatar.png")
	require.NoError(t, err)

	original := Profile{
		ID:       uuid.MustParse("5f0c2a4e-1b1d-4c8e-9a51-3d0e9e8f6b21"),
		Homepage: *homepage,
		Avatar:   avatar,
		Meta:     map[string]any{"k": "v", "n": 1.0},
		Extra:    "free",
		Ratio:    0.25,
		Small:    8,
		Counts:   []uint16{1, 2},
		Pair:     [2]string{"a", "b"},
	}

	tree := c.ValueTree(original)
	obj, ok := tree.AsObject()
	require.True(t, ok)
	id, _ := obj.Get("id")
	s, _ := id.AsString()
	assert.Equal(t, "5f0c2a4e-1b1d-4c8e-9a51-3d0e9e8f6b21", s)

	decoded, err := ConstructWith[Profile](c, tree)
	require.NoError(t, err)
	assert.Equal(t, original, *decoded)
}

func TestCollectionOrderPreserved(t *testing.T) {
	c := newTestCodec()

	data, err := c.Marshal(Person{Tags: []string{"a", "b"}})
	require.NoError(t, err)

	var p Person
	require.NoError(t, c.Unmarshal(data, &p))
	assert.Equal(t, []string{"a", "b"}, p.Tags)
}

func TestUnmarshalIgnoresUnknownKeys(t *testing.T) {
	c := newTestCodec()

	var p Person
	err := c.UnmarshalText(`{"unknownField": 1, "name": "Ann"}`, &p)
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Name)
}

func TestUnmarshalTypeMismatchSkipsAttribute(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestCodec(WithLogger(zap.New(core)))

	p := Person{Name: "Old", Age: 41}
	err := c.UnmarshalText(`{"age": "not-a-number", "name": "Ann", "active": true}`, &p)
	require.NoError(t, err)

	assert.Equal(t, 41, p.Age)
	assert.Equal(t, "Ann", p.Name)
	assert.True(t, p.Active)

	skipped := logs.FilterMessage("attribute skipped").All()
	require.Len(t, skipped, 1)
	fields := skipped[0].ContextMap()
	assert.Equal(t, "Person", fields["type"])
	assert.Equal(t, "age", fields["attribute"])
	assert.Equal(t, "age", fields["key"])
}

func TestUnmarshalStrictReportsSkips(t *testing.T) {
	c := newTestCodec(WithStrict(true))

	var p Person
	err := c.UnmarshalText(`{"age": "x", "name": "Ann", "address": {"city": 5, "street": "Main"}}`, &p)
	require.Error(t, err)
	assert.True(t, IsAttributeSkipped(err))

	var skipped errsx.Map
	require.True(t, errors.As(err, &skipped))
	_, hasAge := skipped["age"]
	_, hasCity := skipped["address.city"]
	assert.True(t, hasAge)
	assert.True(t, hasCity)

	assert.Equal(t, "Ann", p.Name, "valid attributes still populate")
	assert.Equal(t, "Main", p.Address.Street)
}

func TestUnmarshalNumericBounds(t *testing.T) {
	c := newTestCodec()

	p := Profile{Small: 1, Counts: []uint16{9}}
	require.NoError(t, c.UnmarshalText(`{"small": 300, "counts": [-1]}`, &p))
	assert.Equal(t, int8(1), p.Small)
	assert.Equal(t, []uint16{9}, p.Counts)

	require.NoError(t, c.UnmarshalText(`{"small": 12.0, "ratio": 1.5}`, &p))
	assert.Equal(t, int8(12), p.Small)
	assert.Equal(t, float32(1.5), p.Ratio)

	var person Person
	require.NoError(t, c.UnmarshalText(`{"age": 1.5}`, &person))
	assert.Equal(t, 0, person.Age)
}

func TestUnmarshalNullResets(t *testing.T) {
	c := newTestCodec()

	p := samplePerson()
	require.NoError(t, c.UnmarshalText(`{"name": null, "address": null, "tags": null}`, &p))
	assert.Empty(t, p.Name)
	assert.Nil(t, p.Address)
	assert.Nil(t, p.Tags)
	assert.Equal(t, 30, p.Age)
}

func TestUnmarshalInputShapes(t *testing.T) {
	c := newTestCodec()
	p := Person{Name: "Keep"}

	require.NoError(t, c.UnmarshalText("   ", &p))
	require.NoError(t, c.UnmarshalText(`[1, 2]`, &p))
	require.NoError(t, c.UnmarshalText(`"text"`, &p))
	assert.Equal(t, "Keep", p.Name)

	err := c.UnmarshalText(`{"name": `, &p)
	assert.True(t, IsDecodingError(err))
	assert.Equal(t, "Keep", p.Name)

	err = c.Populate(Person{}, ObjectValue(NewObject()))
	assert.ErrorIs(t, err, ErrInvalidTarget)
	err = c.Populate(nil, ObjectValue(NewObject()))
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestUnmarshalIntoSlice(t *testing.T) {
	c := newTestCodec()

	var addresses []Address
	require.NoError(t, c.UnmarshalText(`[{"street": "a"}, {"street": "b", "city": "c"}]`, &addresses))
	assert.Equal(t, []Address{{Street: "a"}, {Street: "b", City: "c"}}, addresses)

	decoded, err := DecodeSliceWith[Address](c, []byte(`[{"street": "x"}, {"street": "y"}]`))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "y", decoded[1].Street)

	single, err := DecodeSliceWith[Address](c, []byte(`{"street": "z"}`))
	require.NoError(t, err)
	require.Len(t, single, 1)

	tree := c.ValueTree([]Address{{Street: "a"}})
	assert.Equal(t, ArrayKind, tree.Kind())
}

func TestRedirectAndStyles(t *testing.T) {
	cfg := NewConfiguration()
	cfg.SetSerializedKeyStyle(TitleCase)
	cfg.SetPropertyKeyStyle(CamelCase)
	require.NoError(t, cfg.AddRedirect("id", "uuid"))
	c := newTestCodec(WithConfiguration(cfg))

	text, err := c.MarshalText(Base{ID: "1", Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, `{"uuid":"1","Name":"n"}`, text)

	var b Base
	require.NoError(t, c.UnmarshalText(text, &b))
	assert.Equal(t, Base{ID: "1", Name: "n"}, b)

	cfg.SetSerializedKeyStyle(SnakeCase)
	text, err = c.MarshalText(Timestamps{})
	require.NoError(t, err)
	assert.Contains(t, text, `"created_at"`)
}

func TestHooks(t *testing.T) {
	c := newTestCodec()

	text, err := c.MarshalText(&Account{ID: 7, Password: "pw", Balance: 1234, Status: "ok"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"balance":"12.34","status":"ok"}`, text)

	var a Account
	require.NoError(t, c.UnmarshalText(`{"id": 7, "password": "x", "balance": "99.05", "legacy_status": "old"}`, &a))
	assert.Equal(t, Account{ID: 7, Balance: 9905, Status: "old"}, a)

	require.NoError(t, c.UnmarshalText(`{"balance": "abc"}`, &a))
	assert.Equal(t, int64(9905), a.Balance, "hook value of the wrong type is skipped")

	require.NoError(t, c.UnmarshalText(`{"balance": 5}`, &a))
	assert.Equal(t, int64(5), a.Balance, "declined hook falls back to default coercion")
}

func TestConstructAppliesDefaults(t *testing.T) {
	c := newTestCodec()
	v, err := ParseString(`{"theme": "light"}`)
	require.NoError(t, err)

	s, err := ConstructWith[Settings](c, v)
	require.NoError(t, err)
	assert.Equal(t, Settings{Theme: "light", Retries: 3}, *s)

	require.NoError(t, c.Registry().Register(Settings{}))
	obj, err := c.ConstructNamed("Settings", v)
	require.NoError(t, err)
	assert.Equal(t, &Settings{Theme: "light", Retries: 3}, obj)

	_, err = c.ConstructNamed("Nope", v)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestInterfaceCollections(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Item{}))
	c := newTestCodec(WithRegistry(reg))

	var b Basket
	err := c.UnmarshalText(`{
		"items": [{"sku": "a", "price": 2}],
		"gifts": [{"sku": "g"}],
		"entries": [1, "x"],
		"lines": [{"sku": "l"}]
	}`, &b)
	require.NoError(t, err)

	require.Len(t, b.Items, 1)
	assert.Equal(t, &Item{SKU: "a", Price: 2}, b.Items[0])
	assert.Equal(t, &Item{SKU: "g"}, b.Gifts[0])
	assert.Equal(t, []any{1.0, "x"}, b.Entries)
	require.Len(t, b.Lines, 1)
	assert.Equal(t, "l", b.Lines[0].LineSKU())

	text, err := c.MarshalText(&b)
	require.NoError(t, err)
	assert.Equal(t,
		`{"items":[{"sku":"a","price":2}],"gifts":[{"sku":"g","price":0}],"entries":[1,"x"],"lines":[{"sku":"l","price":0}]}`,
		text)
}

func TestEncodeOmitsUnrepresentable(t *testing.T) {
	type odd struct {
		Name  string
		Ch    chan int
		Fn    func()
		Cx    complex128
		ByInt map[int]string
		Ratio float64
	}

	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestCodec(WithLogger(zap.New(core)))

	text, err := c.MarshalText(odd{
		Name:  "x",
		Ch:    make(chan int),
		Fn:    func() {},
		Cx:    1 + 2i,
		ByInt: map[int]string{1: "a"},
		Ratio: math.NaN(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, text)
	assert.Equal(t, 5, logs.FilterMessage("attribute not representable as JSON, omitted").Len())
}

func TestEncodeNilValuesOmitted(t *testing.T) {
	c := newTestCodec()

	text, err := c.MarshalText(&Profile{})
	require.NoError(t, err)
	assert.NotContains(t, text, "avatar")
	assert.NotContains(t, text, "meta")
	assert.NotContains(t, text, "extra")
	assert.Contains(t, text, `"pair":["",""]`)

	assert.True(t, c.ValueTree(nil).IsNull())
	assert.True(t, c.ValueTree((*Person)(nil)).IsNull())
}

func TestDateLayout(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.SetDateLayout("2006-01-02"))
	c := newTestCodec(WithConfiguration(cfg))

	text, err := c.MarshalText(Person{Born: time.Date(1990, 1, 2, 23, 0, 0, 0, time.FixedZone("X", -3600))})
	require.NoError(t, err)
	assert.Contains(t, text, `"born":"1990-01-03"`, "dates are written in UTC")

	var p Person
	require.NoError(t, c.UnmarshalText(`{"born": "2001-02-03T04:05:06Z"}`, &p))
	assert.Equal(t, time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC), p.Born, "RFC 3339 is accepted as a fallback")

	require.NoError(t, c.UnmarshalText(`{"born": "yesterday"}`, &p))
	assert.Equal(t, 2001, p.Born.Year())
}

func TestMaxDepth(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.SetMaxDepth(2))
	c := newTestCodec(WithConfiguration(cfg))

	chain := &Loop{Name: "1", Next: &Loop{Name: "2", Next: &Loop{Name: "3", Next: &Loop{Name: "4"}}}}
	text, err := c.MarshalText(chain)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"1","next":{"name":"2"}}`, text)
}

func TestPackageLevelDefaults(t *testing.T) {
	Shared().Reset()
	defer Shared().Reset()

	data, err := Marshal(Address{Street: "s", City: "c"})
	require.NoError(t, err)
	assert.Equal(t, `{"street":"s","city":"c"}`, string(data))

	a, err := Decode[Address](data)
	require.NoError(t, err)
	assert.Equal(t, "s", a.Street)

	var b Address
	require.NoError(t, Unmarshal(data, &b))
	assert.Equal(t, *a, b)
}
