package store

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/serialkit/pkg/serial"
)

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

type Counter struct {
	ID    int `serial:"id"`
	Value int
}

func (*Counter) EntityName() string        { return "Counter" }
func (*Counter) IdentityAttribute() string { return "id" }

type Note struct {
	Text string
}

func (*Note) EntityName() string { return "Note" }

type plain struct {
	Name string
}

func newTestRegistry() *serial.Registry {
	reg := serial.NewRegistry()
	for _, v := range []any{&Author{}, &Book{}, &Counter{}, &Note{}} {
		if err := reg.Register(v); err != nil {
			panic(err)
		}
	}
	if err := reg.RegisterName("Plain", plain{}); err != nil {
		panic(err)
	}
	return reg
}

// testOptions returns session options sharing one registry and configuration
func testOptions(reg *serial.Registry, cfg *serial.Configuration) []Option {
	return []Option{WithRegistry(reg), WithConfiguration(cfg), WithLogger(zap.NewNop())}
}

func newTestCodec(reg *serial.Registry, cfg *serial.Configuration) *serial.Codec {
	return serial.NewCodec(
		serial.WithRegistry(reg),
		serial.WithConfiguration(cfg),
		serial.WithIntrospector(serial.NewIntrospector()),
		serial.WithLogger(zap.NewNop()),
	)
}

const authorDocument = `{"id": "a1", "name": "Ann", "books": [{"id": "b1", "title": "Go"}, {"id": "b2", "title": "Rust"}]}`
