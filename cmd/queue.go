package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-health/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-health/internal/service"
)

func newProcessQueueCommand() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "process-queue",
		Short: "Drain the discovery queue into the link archive once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			processor := app.Processor
			if batch > 0 {
				processor = service.NewQueueProcessor(
					app.Queue,
					app.ArchiveRepo,
					batch,
					app.Config.Checker.ClaimTTL,
					app.Log,
					app.Metrics,
				).WithRateLimit(app.Config.Checker.ProcessRate).WithGuard(app.Guard)
			}

			report, err := processor.Drain(cmd.Context())
			if err != nil {
				return fmt.Errorf("process queue: %w", err)
			}

			cmd.Printf("claimed=%d created=%d merged=%d rechecks=%d discarded=%d failed=%d\n",
				report.Claimed, report.Created, report.Merged, report.Rechecks, report.Discarded, report.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "entries claimed per batch (default checker.queue_batch)")
	return cmd
}

func newEnqueueRechecksCommand() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "enqueue-rechecks",
		Short: "Queue rechecks for links not checked within the recheck interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			rechecks := app.Rechecks
			if batch > 0 {
				rechecks = service.NewRecheckService(
					app.ArchiveRepo,
					app.Queue,
					app.Config.Checker.RecheckInterval,
					batch,
					app.Log,
				)
			}

			n, err := rechecks.EnqueueDue(cmd.Context())
			if err != nil {
				return fmt.Errorf("enqueue rechecks: %w", err)
			}
			cmd.Printf("enqueued=%d\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "maximum links per run (default checker.recheck_batch)")
	return cmd
}
