package domain_test

import (
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

func TestAction_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action domain.Action
		want   bool
	}{
		{domain.ActionDiscover, true},
		{domain.ActionRecheck, true},
		{domain.Action(""), false},
		{domain.Action("delete"), false},
	}

	for _, tt := range tests {
		if got := tt.action.IsValid(); got != tt.want {
			t.Errorf("Action(%q).IsValid() = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestTransition(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	alive := domain.HealthState{}
	dead := domain.HealthState{IsDead: true, DeadSince: &since, ConsecutiveFailures: 3}

	if !(domain.Transition{Before: alive, After: dead}).BecameDead() {
		t.Error("alive to dead should report BecameDead")
	}
	if !(domain.Transition{Before: dead, After: alive}).Recovered() {
		t.Error("dead to alive should report Recovered")
	}
	steady := domain.Transition{Before: dead, After: dead}
	if steady.BecameDead() || steady.Recovered() {
		t.Error("dead to dead is not a transition")
	}
}

func TestNewDiscovery(t *testing.T) {
	t.Parallel()

	seen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d, err := domain.NewDiscovery("HTTPS://www.Example.org:443/a#x", "page-42", seen)
	if err != nil {
		t.Fatalf("NewDiscovery() error = %v", err)
	}

	if d.URL != "https://www.example.org/a" {
		t.Errorf("URL = %q", d.URL)
	}
	if d.Domain != "example.org" {
		t.Errorf("Domain = %q", d.Domain)
	}
	if d.URLHash != domain.URLHash(d.URL) {
		t.Errorf("URLHash = %q, want hash of normalized URL", d.URLHash)
	}
	if d.SourceID != "page-42" || !d.SeenAt.Equal(seen) {
		t.Errorf("unexpected discovery %+v", d)
	}
}
