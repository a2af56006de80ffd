package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/lithic/pkg/config"
	"github.com/agentstation/lithic/pkg/logging"
	pkgsync "github.com/agentstation/lithic/pkg/sync"
)

// Execute runs the lithic CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command.
func (a *App) createRootCommand() *cobra.Command {
	c := a.config
	rootCmd := &cobra.Command{
		Use:     "lithic <config.yaml>",
		Short:   "Keep generated schema modules in sync with their sources",
		Version: a.version,
		Long: `Lithic clones each configured schema source, generates a module from it
and formats the result.

By default the generated modules are compared with the local tree and any
drift, missing file or extra file fails the run. With --generate the local
output locations are replaced with the freshly generated modules.`,
		Example: `  lithic lithic.yaml
  lithic lithic.yaml --generate --jobs 4`,
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: a.setupCommand,
		RunE:              a.run,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&c.Generate, "generate", false, "publish generated modules instead of verifying them (same as --mode publish)")
	flags.StringVar(&c.Mode, "mode", c.Mode, "run mode: verify or publish")
	flags.StringVar(&c.Root, "root", c.Root, "module root output locations are relative to")
	flags.IntVarP(&c.Jobs, "jobs", "j", c.Jobs, "number of sources processed in parallel")
	flags.StringVar(&c.Generator, "generator", c.Generator, "schema generator command")
	flags.StringVar(&c.Formatter, "formatter", c.Formatter, "formatter command; the output path is appended")
	flags.DurationVar(&c.CloneTimeout, "clone-timeout", c.CloneTimeout, "timeout for each clone (0 for none)")
	flags.DurationVar(&c.GenerateTimeout, "generate-timeout", c.GenerateTimeout, "timeout for each generator run (0 for none)")
	flags.DurationVar(&c.FormatTimeout, "format-timeout", c.FormatTimeout, "timeout for each formatter run (0 for none)")
	flags.DurationVar(&c.Timeout, "timeout", c.Timeout, "timeout for the whole run (0 for none)")

	persistent := rootCmd.PersistentFlags()
	persistent.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "verbose output (shortcut for --log-level=debug)")
	persistent.BoolVarP(&c.Quiet, "quiet", "q", c.Quiet, "minimal output (shortcut for --log-level=warn)")
	persistent.BoolVar(&c.NoColor, "no-color", c.NoColor, "disable colored output")
	persistent.StringVar(&c.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.AddCommand(a.newDepsCommand())

	rootCmd.SetVersionTemplate("lithic {{.Version}}\n")
	return rootCmd
}

// setupCommand is called before the command runs.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	// Flags are bound to a.config directly; rebuild the logger from them.
	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

// run loads the source configuration and runs one sync.
func (a *App) run(cmd *cobra.Command, args []string) error {
	ctx := logging.WithLogger(cmd.Context(), a.logger)

	mode, err := pkgsync.ParseMode(a.config.Mode)
	if err != nil {
		return err
	}
	if a.config.Generate {
		mode = pkgsync.ModePublish
	}

	cfg, err := config.Load(args[0])
	if err != nil {
		a.logger.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	l, err := a.Lithic()
	if err != nil {
		return err
	}

	_, err = l.Sync(ctx, cfg,
		pkgsync.WithMode(mode),
		pkgsync.WithJobs(a.config.Jobs),
		pkgsync.WithTimeout(a.config.Timeout),
	)
	return err
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
