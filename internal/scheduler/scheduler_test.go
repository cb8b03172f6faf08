package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-health/internal/scheduler"
)

func TestAdd_RejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := scheduler.New(logger.NewNop(), nil)
	noop := func(context.Context) error { return nil }

	require.Error(t, s.Add(scheduler.Job{Name: "bad", Spec: "every minute", Run: noop}))
	require.Error(t, s.Add(scheduler.Job{Name: "seconds", Spec: "0 */5 * * * *", Run: noop}), "six-field specs are not accepted")
	require.Error(t, s.Add(scheduler.Job{Name: "nil", Spec: "* * * * *"}))

	require.NoError(t, s.Add(scheduler.Job{Name: "ok", Spec: "*/5 * * * *", Run: noop}))
	require.Error(t, s.Add(scheduler.Job{Name: "ok", Spec: "0 3 * * *", Run: noop}), "duplicate names are rejected")
}

func TestTrigger_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := scheduler.New(logger.NewNop(), m)

	calls := 0
	require.NoError(t, s.Add(scheduler.Job{
		Name: scheduler.JobProcessQueue,
		Spec: "*/5 * * * *",
		Run: func(context.Context) error {
			calls++
			return nil
		},
	}))
	boom := errors.New("claim batch: connection refused")
	require.NoError(t, s.Add(scheduler.Job{
		Name: scheduler.JobEnqueueRechecks,
		Spec: "0 3 * * *",
		Run:  func(context.Context) error { return boom },
	}))

	require.NoError(t, s.Trigger(context.Background(), scheduler.JobProcessQueue))
	require.ErrorIs(t, s.Trigger(context.Background(), scheduler.JobEnqueueRechecks), boom)
	require.ErrorIs(t, s.Trigger(context.Background(), "missing"), scheduler.ErrUnknownJob)

	assert.Equal(t, 1, calls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobRuns.WithLabelValues(scheduler.JobProcessQueue, "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobRuns.WithLabelValues(scheduler.JobEnqueueRechecks, "error")), 0)
}

func TestTrigger_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	s := scheduler.New(logger.NewNop(), nil)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Add(scheduler.Job{
		Name: "slow",
		Spec: "* * * * *",
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "slow") }()
	<-started

	require.ErrorIs(t, s.Trigger(context.Background(), "slow"), scheduler.ErrJobRunning)
	close(release)
	require.NoError(t, <-done)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := scheduler.New(logger.NewNop(), nil)
	require.NoError(t, s.Add(scheduler.Job{
		Name: "daily",
		Spec: "0 3 * * *",
		Run:  func(context.Context) error { return nil },
	}))

	assert.True(t, s.NextRun("daily").IsZero())
	s.Start()
	next := s.NextRun("daily")
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())
	assert.True(t, next.After(time.Now()))
	s.Stop()
}
