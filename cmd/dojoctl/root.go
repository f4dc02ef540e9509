package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/bootstrap"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// cli carries state shared by the subcommands.
type cli struct {
	verbose bool

	// loadConfig is swapped in tests.
	loadConfig func() (*config.Config, error)
}

func newRootCmd() *cobra.Command {
	c := &cli{loadConfig: config.Load}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dojoctl",
		Short: "Operate a Dojo Community Hub installation",
		Long: `dojoctl manages a Dojo Community Hub installation.

Configuration comes from the same environment variables, .env file and
DOJO_CONFIG_FILE as the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr at debug level")

	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.importCmd())
	root.AddCommand(c.templateCmd())
	return root
}

func (c *cli) logger(cmd *cobra.Command) *logger.Logger {
	if !c.verbose {
		return logger.Nop()
	}
	opts := logger.DefaultOptions()
	opts.Output = cmd.ErrOrStderr()
	opts.Level = logger.LevelDebug
	opts.Format = "console"
	opts.AddCaller = false
	return logger.New(opts)
}

// app loads configuration and wires the application for one command.
func (c *cli) app(ctx context.Context, cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return bootstrap.Build(ctx, cfg, c.logger(cmd), bootstrap.Options{SkipMigrations: true})
}
