package events

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/taskboard/internal/logger"
)

// Sink consumes dispatched batches. Errors are logged by the dispatcher and
// never reach the operation that produced the events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, batch []Event) error
}

// Publisher hands committed events to delivery.
type Publisher interface {
	Publish(batch []Event) bool
}

type Options struct {
	Workers        int
	Buffer         int
	HandoffTimeout time.Duration
	SinkTimeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		Workers:        4,
		Buffer:         256,
		HandoffTimeout: 15 * time.Millisecond,
		SinkTimeout:    5 * time.Second,
	}
}

// Dispatcher is a fixed worker pool fanning each batch out to every sink.
type Dispatcher struct {
	sinks []Sink
	opts  Options

	mu      sync.RWMutex
	closed  bool
	queue   chan []Event
	workers sync.WaitGroup
	pending sync.WaitGroup
}

func NewDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = def.Buffer
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = def.SinkTimeout
	}

	d := &Dispatcher{
		sinks: sinks,
		opts:  opts,
		queue: make(chan []Event, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		d.workers.Add(1)
		go d.worker(i)
	}
	logger.Events().Debugf("dispatcher started, workers: %d, buffer: %d, sinks: %d", opts.Workers, opts.Buffer, len(sinks))
	return d
}

// Publish enqueues a batch without blocking longer than the handoff
// timeout. A full queue or a closed dispatcher drops the batch.
func (d *Dispatcher) Publish(batch []Event) bool {
	if len(batch) == 0 {
		return true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.Events().WithField("events", len(batch)).Warn("dispatcher closed, dropping events")
		return false
	}

	d.pending.Add(1)
	select {
	case d.queue <- batch:
		return true
	default:
	}

	if d.opts.HandoffTimeout > 0 {
		timer := time.NewTimer(d.opts.HandoffTimeout)
		defer timer.Stop()
		select {
		case d.queue <- batch:
			return true
		case <-timer.C:
		}
	}

	d.pending.Done()
	logger.Events().WithField("events", len(batch)).Warn("event queue full, dropping events")
	return false
}

func (d *Dispatcher) worker(id int) {
	defer d.workers.Done()
	for batch := range d.queue {
		d.deliver(id, batch)
		d.pending.Done()
	}
}

func (d *Dispatcher) deliver(worker int, batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SinkTimeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Handle(ctx, batch); err != nil {
				logger.Events().WithError(err).WithFields(map[string]interface{}{
					"sink":   sink.Name(),
					"events": len(batch),
					"worker": worker,
				}).Error("sink failed")
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Flush waits until every accepted batch has been delivered. It must not
// run concurrently with Publish.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting batches and waits for the workers to drain the queue.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
