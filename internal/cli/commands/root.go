package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/serialkit/internal/cli/config"
	"github.com/conduit-lang/serialkit/internal/cli/ui"
	"github.com/conduit-lang/serialkit/pkg/serial"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configDir string
	verbose   bool
	noColor   bool
}

// logger returns a development logger with --verbose, otherwise a no-op
func (o *globalOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// load reads the configuration in the config directory
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, o.noColor))
		return nil, err
	}
	return cfg, nil
}

// codec builds a codec from the loaded configuration
func (o *globalOptions) codec(cmd *cobra.Command) (*serial.Codec, *config.Config, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	codec, err := cfg.Codec(serial.NewConfiguration(), serial.WithLogger(o.logger()))
	if err != nil {
		return nil, nil, err
	}
	return codec, cfg, nil
}

// parseStyle resolves a style flag, printing suggestions for unknown names
func (o *globalOptions) parseStyle(cmd *cobra.Command, name string) (serial.KeyStyle, error) {
	style, err := serial.ParseKeyStyle(name)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.UnknownStyleError(name, styleNames(), o.noColor))
		return serial.MatchCase, err
	}
	return style, nil
}

func styleNames() []string {
	styles := serial.AllKeyStyles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = s.String()
	}
	return names
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "serialkit",
		Short: "JSON key-style and object graph tooling",
		Long: color.CyanString(`serialkit - reflection-driven JSON serialization

Tools for the serialkit naming configuration:
  • Translate identifiers between key styles
  • Restyle the keys of JSON documents
  • Inspect how document keys map onto attribute names
  • Read and write stored graph nodes`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configDir, "config-dir", "C", ".", "Directory containing serialkit.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log attribute diagnostics")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewTranslateCommand(opts))
	rootCmd.AddCommand(NewStylesCommand(opts))
	rootCmd.AddCommand(NewRestyleCommand(opts))
	rootCmd.AddCommand(NewInspectCommand(opts))
	rootCmd.AddCommand(NewInitCommand(opts))
	rootCmd.AddCommand(NewStoreCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the serialkit version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "serialkit version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
