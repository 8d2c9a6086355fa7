package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/serialkit/internal/cli/ui"
	"github.com/conduit-lang/serialkit/pkg/serial"
)

// readDocument parses the JSON document named by args, or stdin when args
// is empty or "-". It returns the source name for messages.
func (o *globalOptions) readDocument(cmd *cobra.Command, args []string) (serial.Value, string, error) {
	source := "stdin"
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		source = args[0]
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return serial.Null(), source, fmt.Errorf("failed to read %s: %w", source, err)
	}

	v, err := serial.Parse(data)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.InputError(source, err, o.noColor))
		return serial.Null(), source, err
	}
	return v, source, nil
}
