package commands

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/serialkit/internal/cli/config"
	"github.com/conduit-lang/serialkit/internal/cli/ui"
	"github.com/conduit-lang/serialkit/pkg/serial"
)

// NewInitCommand creates the init command
func NewInitCommand(opts *globalOptions) *cobra.Command {
	var (
		yes             bool
		force           bool
		propertyStyle   string
		serializedStyle string
		cyclePolicy     string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a serialkit.yaml configuration file",
		Long: `Create serialkit.yaml in the config directory. Settings not given as
flags are asked for interactively unless --yes is set.`,
		Example: `  serialkit init
  serialkit init --yes --serialized-style snake`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(opts.configDir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}

			cfg := config.Default()
			styles := styleNames()
			policies := []string{serial.CycleOmit.String(), serial.CyclePlaceholder.String()}

			if err := opts.choose(cmd, "Attribute name style:", styles, yes, &propertyStyle, cfg.Naming.PropertyKeyStyle); err != nil {
				return err
			}
			if err := opts.choose(cmd, "Wire key style:", styles, yes, &serializedStyle, cfg.Naming.SerializedKeyStyle); err != nil {
				return err
			}
			if err := opts.choose(cmd, "Cycle policy:", policies, yes, &cyclePolicy, cfg.Encoding.CyclePolicy); err != nil {
				return err
			}

			cfg.Naming.PropertyKeyStyle = propertyStyle
			cfg.Naming.SerializedKeyStyle = serializedStyle
			cfg.Encoding.CyclePolicy = cyclePolicy
			if err := cfg.Validate(); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, opts.noColor))
				return err
			}

			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Created "+path, opts.noColor))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Use defaults for settings not given as flags")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&propertyStyle, "property-style", "", "Key style of attribute names")
	cmd.Flags().StringVar(&serializedStyle, "serialized-style", "", "Key style of wire keys")
	cmd.Flags().StringVar(&cyclePolicy, "cycle-policy", "", "Cycle policy (omit or placeholder)")
	return cmd
}

// choose fills value from a prompt unless it is already set. With yes the
// default is taken instead of prompting.
func (o *globalOptions) choose(cmd *cobra.Command, message string, options []string, yes bool, value *string, def string) error {
	if *value != "" {
		return nil
	}
	if yes {
		*value = def
		return nil
	}

	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: def,
	}
	return survey.AskOne(prompt, value)
}
