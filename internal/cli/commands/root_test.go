package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout and stderr
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "serialkit", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	// Check subcommands are registered
	expected := []string{"version", "translate", "styles", "restyle", "inspect", "init", "store"}
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, name := range expected {
		assert.Contains(t, names, name)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	GoVersion = "go1.23"

	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "serialkit version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go1.23")
}

func TestVerboseLogger(t *testing.T) {
	opts := &globalOptions{}
	assert.NotNil(t, opts.logger())

	opts.verbose = true
	assert.NotNil(t, opts.logger())
}
