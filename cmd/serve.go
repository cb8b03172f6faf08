package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-health/internal/bootstrap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Run the HTTP API. The periodic jobs run in the same process when scheduler.enabled is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Serve(cmd.Context(), configPath)
		},
	}
}

func newScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the periodic jobs without the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.RunScheduler(cmd.Context(), configPath)
		},
	}
}
