package service

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

// Dispatcher moves discovery off the save path. Events go into a bounded
// buffer and are handled by background workers; a full buffer drops the event.
type Dispatcher struct {
	handler ContentHandler
	events  chan domain.ContentChange
	closed  chan struct{}
	once    sync.Once
	workers int
	log     logger.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given buffer capacity and worker count.
func NewDispatcher(handler ContentHandler, capacity, workers int, log logger.Logger, m *metrics.Metrics) *Dispatcher {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		handler: handler,
		events:  make(chan domain.ContentChange, capacity),
		closed:  make(chan struct{}),
		workers: workers,
		log:     log,
		metrics: m,
	}
}

// HandleContentChange performs a non-blocking send. The returned result only
// says whether the event was deferred or dropped.
func (d *Dispatcher) HandleContentChange(_ context.Context, change domain.ContentChange) domain.DiscoveryResult {
	select {
	case d.events <- change:
		return domain.DiscoveryResult{Deferred: true}
	default:
		d.metrics.ObserveDrop()
		d.log.Warn("Discovery buffer full, dropping content change",
			logger.String("source_id", change.SourceID),
			logger.Int("capacity", cap(d.events)),
		)
		return domain.DiscoveryResult{Dropped: true}
	}
}

// Len returns the number of buffered events.
func (d *Dispatcher) Len() int {
	return len(d.events)
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for range d.workers {
		d.wg.Add(1)
		go d.work()
	}
}

// Stop stops accepting work, drains the buffer and waits for the workers.
// It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.closed) })
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for {
		select {
		case change := <-d.events:
			d.handler.HandleContentChange(context.Background(), change)
		case <-d.closed:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case change := <-d.events:
			d.handler.HandleContentChange(context.Background(), change)
		default:
			return
		}
	}
}
