// internal/netwatch/watcher.go
package netwatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// LinkEvent is one observed change of the network link.
type LinkEvent struct {
	Up   bool
	Addr string // dotted quad; empty when down
}

// AddrFunc reports the current link state. An error counts as link down.
type AddrFunc func() (addr string, up bool, err error)

// Config is the minimal runtime config the watcher needs.
type Config struct {
	Interval time.Duration
}

// Watcher is a dumb, clock-driven link observer.
type Watcher struct {
	cfg    Config
	lookup AddrFunc
	logger *zap.Logger

	seen bool
	last LinkEvent
}

// New creates a watcher with immutable config.
func New(cfg Config, lookup AddrFunc, logger *zap.Logger) (*Watcher, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("netwatch: interval must be > 0")
	}
	if lookup == nil {
		return nil, errors.New("netwatch: lookup required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{cfg: cfg, lookup: lookup, logger: logger}, nil
}

// PollOnce observes the link once. It reports true when the observation
// differs from the previous one, and always on the first call.
func (w *Watcher) PollOnce() (LinkEvent, bool) {
	addr, up, err := w.lookup()
	if err != nil {
		w.logger.Debug("link lookup failed", zap.Error(err))
		addr, up = "", false
	}
	if !up {
		addr = ""
	}

	ev := LinkEvent{Up: up, Addr: addr}
	if w.seen && ev == w.last {
		return ev, false
	}

	w.seen = true
	w.last = ev
	return ev, true
}

// Run polls immediately, then on every tick, and emits changes on out.
// One goroutine. No overlap.
func (w *Watcher) Run(ctx context.Context, out chan<- LinkEvent) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if ev, changed := w.PollOnce(); changed {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
