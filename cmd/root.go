// Package cmd implements the link-health command-line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// configPath holds the --config flag. Empty means CONFIG_PATH or config.yml.
var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "link-health",
		Short:         "External link discovery, health tracking and archiving",
		Long:          `link-health finds external links in saved content, tracks whether they still resolve and keeps archived copies of the ones that died.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")

	root.AddCommand(
		newServeCommand(),
		newProcessQueueCommand(),
		newEnqueueRechecksCommand(),
		newStatusCommand(),
		newScheduleCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCommand().ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("link-health version %s\n", Version)
		},
	}
}
