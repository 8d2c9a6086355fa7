package commands

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/serialkit/internal/cli/ui"
	"github.com/conduit-lang/serialkit/pkg/serial"
)

// NewRestyleCommand creates the restyle command
func NewRestyleCommand(opts *globalOptions) *cobra.Command {
	var style string
	var indent bool

	cmd := &cobra.Command{
		Use:   "restyle [file]",
		Short: "Rewrite the object keys of a JSON document",
		Long: `Rewrite every object key of a JSON document into the given key style.
Key order and values are preserved. Reads stdin when no file is given.`,
		Example: `  serialkit restyle user.json --style snake
  cat user.json | serialkit restyle -s camel --indent`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := opts.resolveStyle(cmd, style)
			if err != nil {
				return err
			}
			v, _, err := opts.readDocument(cmd, args)
			if err != nil {
				return err
			}

			restyled := serial.RestyleKeys(v, target)
			var out []byte
			if indent {
				out, err = gojson.MarshalIndent(restyled, "", "  ")
			} else {
				out, err = gojson.Marshal(restyled)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", "", "Target key style")
	cmd.Flags().BoolVar(&indent, "indent", false, "Indent the output")
	return cmd
}

// NewInspectCommand creates the inspect command
func NewInspectCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show how document keys map onto attribute names",
		Long: `List the keys of a JSON object, or of the first object of an array,
with their value kind and the attribute name the configuration resolves
each key to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, _, err := opts.codec(cmd)
			if err != nil {
				return err
			}
			v, source, err := opts.readDocument(cmd, args)
			if err != nil {
				return err
			}

			obj, ok := v.AsObject()
			if !ok {
				if items, isArray := v.AsArray(); isArray && len(items) > 0 {
					obj, ok = items[0].AsObject()
				}
			}
			if !ok {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(source+" holds no object to inspect", opts.noColor))
				return nil
			}

			cfg := codec.Configuration()
			table := ui.NewTable(cmd.OutOrStdout(), opts.noColor, "KEY", "KIND", "ATTRIBUTE")
			obj.Range(func(key string, value serial.Value) bool {
				name, _ := cfg.PropertyName(key)
				table.AddRow(key, value.Kind().String(), name)
				return true
			})
			table.Render()
			return nil
		},
	}
}
