// Package health decides how a probe result moves a link between the healthy
// and dead states.
package health

import "github.com/jonesrussell/north-cloud/link-health/internal/domain"

// DefaultFailureThreshold is the number of consecutive failures that marks a link dead.
const DefaultFailureThreshold = 3

// Policy computes the next health state from the current one and a probe.
// Implementations must be pure.
type Policy interface {
	Evaluate(current domain.HealthState, probe domain.ProbeResult) domain.HealthState
}

// ThresholdPolicy marks a link dead after FailureThreshold consecutive failures
// and healthy again after one success.
type ThresholdPolicy struct {
	FailureThreshold int
}

// NewThresholdPolicy returns a policy, falling back to DefaultFailureThreshold
// for non-positive thresholds.
func NewThresholdPolicy(threshold int) ThresholdPolicy {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	return ThresholdPolicy{FailureThreshold: threshold}
}

// Evaluate implements Policy.
func (p ThresholdPolicy) Evaluate(current domain.HealthState, probe domain.ProbeResult) domain.HealthState {
	next := domain.HealthState{HTTPStatus: probe.HTTPStatus}

	if probe.Alive {
		return next
	}

	next.ConsecutiveFailures = current.ConsecutiveFailures + 1
	threshold := p.FailureThreshold
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	if next.ConsecutiveFailures < threshold {
		return next
	}

	next.IsDead = true
	if current.IsDead && current.DeadSince != nil {
		next.DeadSince = current.DeadSince
	} else {
		checkedAt := probe.CheckedAt
		next.DeadSince = &checkedAt
	}
	return next
}
