package serial

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestCodec(opts ...Option) *Codec {
	base := []Option{
		WithConfiguration(NewConfiguration()),
		WithRegistry(NewRegistry()),
		WithIntrospector(NewIntrospector()),
		WithLogger(zap.NewNop()),
	}
	return NewCodec(append(base, opts...)...)
}

type Address struct {
	Street string
	City   string
}

type Person struct {
	Name    string
	Age     int
	Tags    []string
	Email   string `serial:"email,omitempty"`
	Born    time.Time
	Address *Address
	Score   float64
	Active  bool
	Secret  string `serial:"-"`
	private string
}

type Profile struct {
	ID       uuid.UUID
	Homepage url.URL
	Avatar   *url.URL
	Meta     map[string]any
	Extra    any
	Ratio    float32
	Small    int8
	Counts   []uint16
	Pair     [2]string
}

type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Base struct {
	ID   string `serial:"id"`
	Name string
}

type Article struct {
	Base
	*Timestamps
	Name  string `serial:"name"`
	Title string
}

type Item struct {
	SKU   string `serial:"sku"`
	Price float64
}

type Basket struct {
	Items   []any   `serial:"items"`
	Gifts   []any   `serial:"gifts,elem=Item"`
	Entries []any   `serial:"entries"`
	Lines   []Lined `serial:"lines"`
}

type Movie struct {
	Title string
}

type Status struct {
	Code string
}

type Shelf struct {
	Movies   []any
	Statuses []any
	People   []any
}

type Lined interface {
	LineSKU() string
}

func (i *Item) LineSKU() string { return i.SKU }

func (b *Basket) ElementType(name string) reflect.Type {
	if name == "lines" {
		return reflect.TypeOf(Item{})
	}
	return nil
}

type Account struct {
	ID       int
	Password string
	Balance  int64
	Status   string
}

func (a *Account) SerializedKey(name, def string) (string, bool) {
	if name == "password" {
		return "", false
	}
	return def, true
}

func (a *Account) PropertyName(key, def string) (string, bool) {
	switch key {
	case "legacy_status":
		return "status", true
	case "password":
		return "", false
	}
	return def, true
}

func (a *Account) CoerceOnWrite(name string, v any) (Value, bool) {
	if name != "balance" {
		return Null(), false
	}
	cents := v.(int64)
	return String(fmt.Sprintf("%d.%02d", cents/100, cents%100)), true
}

func (a *Account) CoerceOnRead(name string, raw Value) (any, bool) {
	if name != "balance" {
		return nil, false
	}
	s, ok := raw.AsString()
	if !ok {
		return nil, false
	}
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "bad", true
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	return w*100 + f, true
}

type Settings struct {
	Theme   string
	Retries int
}

func (s *Settings) SetDefaults() {
	s.Theme = "dark"
	s.Retries = 3
}

type Author struct {
	ID    string  `serial:"id"`
	Name  string
	Books []*Book `serial:"books,inverse=author"`
}

func (*Author) EntityName() string        { return "Author" }
func (*Author) IdentityAttribute() string { return "id" }

type Book struct {
	ID     string `serial:"id"`
	Title  string
	Author *Author
}

func (*Book) EntityName() string        { return "Book" }
func (*Book) IdentityAttribute() string { return "id" }

type Node struct {
	ID   string `serial:"id"`
	Peer *Node
}

func (*Node) EntityName() string        { return "Node" }
func (*Node) IdentityAttribute() string { return "id" }

type Loop struct {
	Name string
	Next *Loop
}

type Tag struct {
	Label string
}

func (*Tag) EntityName() string { return "Tag" }

// graphContext is an identity-mapped Context for tests.
type graphContext struct {
	nodes map[string]Entity
	calls []string
	fail  string
}

func newGraphContext() *graphContext {
	return &graphContext{nodes: make(map[string]Entity)}
}

func (g *graphContext) Obtain(_ context.Context, entity, key string) (Entity, error) {
	g.calls = append(g.calls, entity+"/"+key)
	if entity == g.fail {
		return nil, errors.New("refused")
	}
	id := entity + "/" + key
	if node, ok := g.nodes[id]; ok && key != "" {
		return node, nil
	}
	var node Entity
	switch entity {
	case "Author":
		node = &Author{}
	case "Book":
		node = &Book{}
	case "Node":
		node = &Node{}
	case "Tag":
		node = &Tag{}
	default:
		return nil, fmt.Errorf("unknown entity %s", entity)
	}
	g.nodes[id] = node
	return node, nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
