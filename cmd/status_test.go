package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

func TestStatusRenderer_Ready(t *testing.T) {
	var buf bytes.Buffer
	NewStatusRenderer(&buf).Render(&domain.Dashboard{
		State:   domain.DashboardReady,
		Summary: domain.Summary{Total: 10, Dead: 3, Domains: 3},
		Domains: []domain.DomainHealth{
			{Domain: "a.org", Total: 5, Healthy: 3, Dead: 2},
			{Domain: "b.org", Total: 3, Healthy: 2, Dead: 1},
			{Domain: "c.org", Total: 2, Healthy: 1, Dead: 1},
		},
	}, 2)

	out := buf.String()
	for _, want := range []string{"30.0%", "a.org", "b.org", "40.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "c.org") {
		t.Errorf("expected domain rows to be capped:\n%s", out)
	}
}

func TestStatusRenderer_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewStatusRenderer(&buf).Render(&domain.Dashboard{State: domain.DashboardEmpty}, statusDomainRows)

	if got := strings.TrimSpace(buf.String()); got != "No links discovered yet." {
		t.Errorf("unexpected output %q", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total int64
		want        string
	}{
		{0, 0, "0.0%"},
		{1, 3, "33.3%"},
		{3, 10, "30.0%"},
	}
	for _, tt := range tests {
		if got := percent(tt.part, tt.total); got != tt.want {
			t.Errorf("percent(%d, %d) = %q, want %q", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "process-queue", "enqueue-rechecks", "status", "schedule", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(buf.String(), "link-health version "+Version) {
		t.Errorf("unexpected output %q", buf.String())
	}
}
