// internal/publisher/dispatcher.go
package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// Dispatcher fans batches out to sinks off the main loop.
//
// Submit never blocks: the queue holds one batch and a second submit while
// the first is still queued is dropped. Sinks never see reporter state.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	in      chan status.Batch
	logger  *zap.Logger
}

// NewDispatcher builds a dispatcher. timeout bounds one delivery across all sinks.
func NewDispatcher(sinks []Sink, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		in:      make(chan status.Batch, 1),
		logger:  logger,
	}
}

// Submit queues b for delivery. It returns false when the queue is full.
func (d *Dispatcher) Submit(b status.Batch) bool {
	select {
	case d.in <- b:
		return true
	default:
		return false
	}
}

// Run delivers queued batches until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-d.in:
			if err := d.Deliver(ctx, b); err != nil {
				d.logger.Warn("publish failed", zap.Error(err))
			}
		}
	}
}

// Deliver publishes b to every sink concurrently and waits for all of them.
// Sink failures are aggregated; one failing sink does not stop the others.
func (d *Dispatcher) Deliver(ctx context.Context, b status.Batch) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, s := range d.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()

			if err := s.Publish(ctx, b); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
				return
			}
			d.logger.Debug("published", zap.String("sink", s.Name()))
		}(s)
	}

	wg.Wait()
	return errs
}
