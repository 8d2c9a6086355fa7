package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/serialkit/internal/cli/ui"
	"github.com/conduit-lang/serialkit/pkg/serial"
)

// NewTranslateCommand creates the translate command
func NewTranslateCommand(opts *globalOptions) *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "translate <identifier>...",
		Short: "Translate identifiers into a key style",
		Long: `Translate each identifier into the given key style, one per line.
Without --style the serialized key style from serialkit.yaml is used.`,
		Example: `  serialkit translate firstName user_id --style kebab`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := opts.resolveStyle(cmd, style)
			if err != nil {
				return err
			}
			for _, id := range args {
				fmt.Fprintln(cmd.OutOrStdout(), serial.Translate(id, target))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", "", "Target key style")
	return cmd
}

// NewStylesCommand creates the styles command
func NewStylesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the supported key styles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			table := ui.NewTable(cmd.OutOrStdout(), opts.noColor, "STYLE", "firstName", "user_id")
			for _, s := range serial.AllKeyStyles() {
				table.AddRow(s.String(), serial.Translate("firstName", s), serial.Translate("user_id", s))
			}
			table.Render()
		},
	}
}

// resolveStyle parses name, falling back to the configured serialized style
func (o *globalOptions) resolveStyle(cmd *cobra.Command, name string) (serial.KeyStyle, error) {
	if name != "" {
		return o.parseStyle(cmd, name)
	}
	cfg, err := o.load(cmd)
	if err != nil {
		return serial.MatchCase, err
	}
	return o.parseStyle(cmd, cfg.Naming.SerializedKeyStyle)
}
