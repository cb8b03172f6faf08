package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-health/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

const statusDomainRows = 15

func newStatusCommand() *cobra.Command {
	var domains int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print archive totals and the worst domains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			dash, err := app.Dashboard.Dashboard(cmd.Context())
			if errors.Is(err, domain.ErrSchemaMissing) {
				cmd.Println("link-health is not initialized: run `migrate up` first")
				return nil
			}
			if err != nil {
				return fmt.Errorf("load dashboard: %w", err)
			}

			NewStatusRenderer(cmd.OutOrStdout()).Render(dash, domains)
			return nil
		},
	}

	cmd.Flags().IntVar(&domains, "domains", statusDomainRows, "number of domains to list")
	return cmd
}

// StatusRenderer prints dashboard data as tables.
type StatusRenderer struct {
	out io.Writer
}

// NewStatusRenderer creates a renderer writing to out.
func NewStatusRenderer(out io.Writer) *StatusRenderer {
	return &StatusRenderer{out: out}
}

// Render writes the summary table followed by at most maxDomains domain rows.
func (r *StatusRenderer) Render(dash *domain.Dashboard, maxDomains int) {
	if dash.State == domain.DashboardEmpty {
		fmt.Fprintln(r.out, "No links discovered yet.")
		return
	}

	s := dash.Summary
	summary := r.newTable()
	summary.SetTitle("Link health")
	summary.AppendHeader(table.Row{"Total", "Dead", "Dead %", "Archived", "Snapshotted", "Remediated", "Domains", "Queued"})
	summary.AppendRow(table.Row{
		s.Total, s.Dead, percent(s.Dead, s.Total), s.Archived, s.Snapshotted, s.Remediated, s.Domains, s.Queued,
	})
	summary.Render()

	rows := dash.Domains
	if maxDomains >= 0 && len(rows) > maxDomains {
		rows = rows[:maxDomains]
	}
	if len(rows) == 0 {
		return
	}

	fmt.Fprintln(r.out)
	byDomain := r.newTable()
	byDomain.SetTitle("Domains")
	byDomain.AppendHeader(table.Row{"Domain", "Total", "Healthy", "Dead", "Dead %"})
	for _, d := range rows {
		byDomain.AppendRow(table.Row{d.Domain, d.Total, d.Healthy, d.Dead, percent(d.Dead, d.Total)})
	}
	byDomain.Render()
}

func (r *StatusRenderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
	})
	return t
}

func percent(part, total int64) string {
	if total == 0 {
		return "0.0%"
	}
	const hundred = 100
	return fmt.Sprintf("%.1f%%", float64(part)*hundred/float64(total))
}
