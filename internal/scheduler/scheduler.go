// Package scheduler runs the periodic link-health jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

// Job names.
const (
	JobProcessQueue    = "process-queue"
	JobEnqueueRechecks = "enqueue-rechecks"
)

// ErrUnknownJob is returned by Trigger for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// ErrJobRunning is returned by Trigger while the previous run is still going.
var ErrJobRunning = errors.New("job already running")

// Job is a named unit of periodic work.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type entry struct {
	job     Job
	id      cron.EntryID
	running atomic.Bool
}

// Scheduler wraps a cron instance. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	entries map[string]*entry
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	log     logger.Logger
	metrics *metrics.Metrics
}

// New creates a scheduler using standard 5-field cron expressions.
func New(log logger.Logger, m *metrics.Metrics) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		parser:  parser,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		metrics: m,
	}
}

// Add registers job. An invalid spec or duplicate name is an error.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s: missing run function", job.Name)
	}
	schedule, err := s.parser.Parse(job.Spec)
	if err != nil {
		return fmt.Errorf("parse schedule for %s: %w", job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.Name]; exists {
		return fmt.Errorf("job %s already scheduled", job.Name)
	}

	e := &entry{job: job}
	e.id = s.cron.Schedule(schedule, cron.FuncJob(func() {
		if runErr := s.run(s.ctx, e); runErr != nil && !errors.Is(runErr, ErrJobRunning) {
			s.log.Error("Scheduled job failed", logger.String("job", job.Name), logger.Error(runErr))
		}
	}))
	s.entries[job.Name] = e

	s.log.Info("Job scheduled",
		logger.String("job", job.Name),
		logger.String("schedule", job.Spec),
		logger.String("next_run", schedule.Next(time.Now()).Format(time.RFC3339)),
	)
	return nil
}

// Trigger runs the named job immediately in the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

// NextRun returns the next scheduled time of the named job. It is zero until
// the scheduler is started.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", logger.Int("jobs", len(s.entries)))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	if !e.running.CompareAndSwap(false, true) {
		s.log.Warn("Skipping overlapping job run", logger.String("job", e.job.Name))
		return ErrJobRunning
	}
	defer e.running.Store(false)

	start := time.Now()
	err := e.job.Run(ctx)
	elapsed := time.Since(start)
	s.metrics.ObserveJob(e.job.Name, err, elapsed)

	if err != nil {
		return fmt.Errorf("run %s: %w", e.job.Name, err)
	}
	s.log.Info("Job completed", logger.String("job", e.job.Name), logger.Duration("elapsed", elapsed))
	return nil
}
