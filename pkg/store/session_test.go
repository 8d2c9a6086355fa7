package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/serialkit/pkg/serial"
)

func TestSessionCommitWritesReferences(t *testing.T) {
	ctx := context.Background()
	reg, cfg := newTestRegistry(), serial.NewConfiguration()
	mem := NewMemory()
	session := NewSession(mem, testOptions(reg, cfg)...)

	v, err := serial.ParseString(authorDocument)
	require.NoError(t, err)
	author, err := serial.ConstructIntoWith[Author](newTestCodec(reg, cfg), ctx, session, v)
	require.NoError(t, err)
	assert.Len(t, author.Books, 2)
	assert.Equal(t, 3, session.Tracker().Len())

	require.NoError(t, session.Commit(ctx))
	assert.Equal(t, []string{"a1"}, mem.Keys("Author"))
	assert.Equal(t, []string{"b1", "b2"}, mem.Keys("Book"))

	body, err := mem.Load(ctx, "Author", "a1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","name":"Ann","books":[{"id":"b1"},{"id":"b2"}]}`, string(body))

	body, err = mem.Load(ctx, "Book", "b2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"b2","title":"Rust","author":{"id":"a1"}}`, string(body))
}

func TestSessionLoadsGraph(t *testing.T) {
	ctx := context.Background()
	reg, cfg := newTestRegistry(), serial.NewConfiguration()
	mem := NewMemory()

	first := NewSession(mem, testOptions(reg, cfg)...)
	v, err := serial.ParseString(authorDocument)
	require.NoError(t, err)
	_, err = serial.ConstructIntoWith[Author](newTestCodec(reg, cfg), ctx, first, v)
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx))

	second := NewSession(mem, testOptions(reg, cfg)...)
	node, err := second.Get(ctx, "Book", "b1")
	require.NoError(t, err)

	book := node.(*Book)
	assert.Equal(t, "Go", book.Title)
	require.NotNil(t, book.Author)
	assert.Equal(t, "Ann", book.Author.Name)
	require.Len(t, book.Author.Books, 2)
	assert.Same(t, book, book.Author.Books[0], "references resolve through the identity map")
	assert.Same(t, book.Author, book.Author.Books[1].Author)
	assert.Equal(t, "Rust", book.Author.Books[1].Title)
}

type countingBackend struct {
	*Memory
	loads map[string]int
}

func (c *countingBackend) Load(ctx context.Context, entity, key string) ([]byte, error) {
	c.loads[entity+"/"+key]++
	return c.Memory.Load(ctx, entity, key)
}

func TestSessionGetLoadsEachNodeOnce(t *testing.T) {
	ctx := context.Background()
	reg, cfg := newTestRegistry(), serial.NewConfiguration()
	mem := NewMemory()

	first := NewSession(mem, testOptions(reg, cfg)...)
	v, err := serial.ParseString(authorDocument)
	require.NoError(t, err)
	_, err = serial.ConstructIntoWith[Author](newTestCodec(reg, cfg), ctx, first, v)
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx))

	backend := &countingBackend{Memory: mem, loads: make(map[string]int)}
	second := NewSession(backend, testOptions(reg, cfg)...)
	node, err := second.Get(ctx, "Book", "b1")
	require.NoError(t, err)
	assert.Equal(t, "Go", node.(*Book).Title)

	again, err := second.Get(ctx, "Book", "b1")
	require.NoError(t, err)
	assert.Same(t, node, again)
	assert.Equal(t, map[string]int{"Book/b1": 1, "Author/a1": 1, "Book/b2": 1}, backend.loads)
}

func TestSessionMergesInputOverStoredState(t *testing.T) {
	ctx := context.Background()
	reg, cfg := newTestRegistry(), serial.NewConfiguration()
	mem := NewMemory()
	require.NoError(t, mem.Save(ctx, []Record{
		{Entity: "Book", Key: "b1", Body: []byte(`{"id":"b1","title":"Stored"}`)},
	}))

	session := NewSession(mem, testOptions(reg, cfg)...)
	v, err := serial.ParseString(`{"id": "a1", "books": [{"id": "b1"}, {"id": "b9", "title": "New"}]}`)
	require.NoError(t, err)
	author, err := serial.ConstructIntoWith[Author](newTestCodec(reg, cfg), ctx, session, v)
	require.NoError(t, err)

	require.Len(t, author.Books, 2)
	assert.Equal(t, "Stored", author.Books[0].Title)
	assert.Equal(t, "New", author.Books[1].Title)
}

func TestSessionGetMissing(t *testing.T) {
	session := NewSession(NewMemory(), testOptions(newTestRegistry(), serial.NewConfiguration())...)

	_, err := session.Get(context.Background(), "Book", "nope")
	assert.True(t, IsNotFound(err))
}

type failingBackend struct{ err error }

func (f failingBackend) Load(context.Context, string, string) ([]byte, error) { return nil, f.err }
func (f failingBackend) Save(context.Context, []Record) error                 { return f.err }

func TestSessionBackendErrors(t *testing.T) {
	ctx := context.Background()
	reg, cfg := newTestRegistry(), serial.NewConfiguration()
	boom := errors.New("boom")
	session := NewSession(failingBackend{err: boom}, testOptions(reg, cfg)...)

	v, err := serial.ParseString(`{"id": "b1"}`)
	require.NoError(t, err)
	_, err = serial.ConstructIntoWith[Book](newTestCodec(reg, cfg), ctx, session, v)
	require.Error(t, err)
	assert.True(t, serial.IsGraphError(err))
	assert.ErrorIs(t, err, boom)

	require.NoError(t, session.Tracker().Track("Book", "b2", &Book{ID: "b2"}))
	assert.ErrorIs(t, session.Commit(ctx), boom)
}

func TestSessionCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := NewSession(NewMemory(), testOptions(newTestRegistry(), serial.NewConfiguration())...)
	_, err := session.Obtain(ctx, "Book", "b1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionCommitEmpty(t *testing.T) {
	session := NewSession(failingBackend{err: errors.New("unused")}, testOptions(newTestRegistry(), serial.NewConfiguration())...)
	assert.NoError(t, session.Commit(context.Background()))
}
