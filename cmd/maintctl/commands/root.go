// Package commands implements the maintctl commands.
package commands

import (
	"context"
	"encoding/json"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/car-maintenance/internal/app"
	"github.com/ukydev/car-maintenance/internal/config"
)

// Opener builds the application for a single command run.
type Opener func(ctx context.Context) (*app.App, error)

// Option configures a CLI.
type Option func(*CLI)

// WithOpener replaces the default application constructor.
func WithOpener(open Opener) Option {
	return func(c *CLI) { c.open = open }
}

// CLI represents the command line interface for maintctl.
type CLI struct {
	cfg     config.Config
	open    Opener
	rootCmd *cobra.Command
}

// New creates a CLI that builds its application from cfg.
func New(cfg config.Config, logger log.FieldLogger, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "maintctl",
		Short:         "Operate the car maintenance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{
		cfg:     cfg,
		rootCmd: rootCmd,
		open: func(ctx context.Context) (*app.App, error) {
			return app.New(ctx, cfg, logger)
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.AddCommand(c.newPredictCmd())
	rootCmd.AddCommand(c.newClassifyCmd())
	rootCmd.AddCommand(c.newCompleteCmd())
	rootCmd.AddCommand(c.newTokenCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOut redirects command output. Used for testing.
func (c *CLI) SetOut(w io.Writer) {
	c.rootCmd.SetOut(w)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
