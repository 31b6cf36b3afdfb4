// Package cli implements the flowx command line client.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/goliatone/go-flowx/config"
	"github.com/goliatone/go-flowx/pkg/di"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the flowx CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowx",
		Short: "FlowX collaboration client",
		Long: `Work with FlowX projects, members, tasks, files and notifications from
the terminal. Settings come from --config and FLOWX_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMembersCommand(opts))
	cmd.AddCommand(NewProjectsCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewNotificationsCommand(opts))

	return cmd
}

// session opens the container for one command run, restoring persisted
// snapshots. The returned close func persists and releases it.
func session(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*di.Container, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	c, err := di.NewContainer(ctx, cfg, di.WithLogOutput(cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to start session", err)
	}
	if _, err := c.RestoreAll(ctx); err != nil {
		c.Logger().Warn("snapshot restore failed", "error", err)
	}

	closeFn := func() {
		if err := c.PersistAll(context.WithoutCancel(ctx)); err != nil {
			c.Logger().Warn("snapshot persist failed", "error", err)
		}
		_ = c.Close()
	}
	return c, closeFn, nil
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
