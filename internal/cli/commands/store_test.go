package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfigDir(t *testing.T) string {
	dir := t.TempDir()
	content := fmt.Sprintf("store:\n  driver: sqlite3\n  dsn: %s\n", filepath.Join(dir, "nodes.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "serialkit.yaml"), []byte(content), 0644))
	return dir
}

func TestStoreCommandsSQLite(t *testing.T) {
	dir := sqliteConfigDir(t)

	out, _, err := run(t, `{"id": "b1", "title": "Go"}`, "-C", dir, "store", "put", "Book")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored Book b1")

	_, _, err = run(t, `{"title": "Rust"}`, "-C", dir, "store", "put", "Book", "--key", "b2")
	require.NoError(t, err)

	out, _, err = run(t, "", "-C", dir, "store", "keys", "Book")
	require.NoError(t, err)
	assert.Equal(t, "b1\nb2\n", out)

	out, _, err = run(t, "", "-C", dir, "store", "get", "Book", "b1")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"id\": \"b1\",\n  \"title\": \"Go\"\n}\n", out)

	_, _, err = run(t, "", "-C", dir, "store", "get", "Book", "b9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStoreCommandsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	dir := t.TempDir()
	content := fmt.Sprintf("store:\n  redis_addr: %s\n  redis_prefix: \"test:\"\n", mr.Addr())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "serialkit.yaml"), []byte(content), 0644))

	_, _, err = run(t, `{"id": 7}`, "-C", dir, "store", "put", "Counter")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:Counter:7"))

	out, _, err := run(t, "", "-C", dir, "store", "keys", "Counter")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestStorePutErrors(t *testing.T) {
	dir := sqliteConfigDir(t)

	_, _, err := run(t, `{"title": "x"}`, "-C", dir, "store", "put", "Book")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")

	_, _, err = run(t, `[1]`, "-C", dir, "store", "put", "Book")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a JSON object")
}

func TestStoreNotConfigured(t *testing.T) {
	_, _, err := run(t, "", "-C", t.TempDir(), "store", "keys", "Book")
	assert.ErrorIs(t, err, ErrNoStore)
}
