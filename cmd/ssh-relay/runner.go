// cmd/ssh-relay/runner.go
package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/netwatch"
	"github.com/tamzrod/ssh-relay/internal/relay"
	"github.com/tamzrod/ssh-relay/internal/status"
)

// ipSource is the pending public-IP slot.
type ipSource interface {
	Take() (string, bool)
}

// runner is the main-loop state. It is the only mutator of the reporter
// and is driven from a single goroutine.
type runner struct {
	reporter *status.Reporter
	pending  ipSource
	logger   *zap.Logger

	// requestIP asks for a fresh public IP; called on link up.
	requestIP func()
	// endSession closes the live relay session; called on link down.
	endSession func() bool

	period      time.Duration
	lastPublish time.Time
	published   bool
}

func (r *runner) onRelay(ev relay.Event) {
	switch ev.Kind {
	case relay.Attempt:
		r.reporter.RecordAttempt()
	case relay.Accepted:
		r.reporter.RecordAccepted()
	case relay.Rejected:
		r.reporter.RecordRejected()
	case relay.SessionEnded:
		r.reporter.SessionEnded()
	}
	r.logger.Debug("relay event",
		zap.Stringer("kind", ev.Kind),
		zap.String("peer", ev.Peer),
	)
}

func (r *runner) onLink(ev netwatch.LinkEvent) {
	if !ev.Up {
		r.reporter.SetLocalIP(status.UnsetIP)
		r.reporter.LinkDown()
		// link loss ends the session; SessionEnded follows from the relay
		if r.endSession != nil && r.endSession() {
			r.logger.Info("session closed on link loss")
		}
		return
	}

	r.reporter.SetLocalIP(ev.Addr)
	r.reporter.LinkUp()
	if r.requestIP != nil {
		r.requestIP()
	}
}

// onTick drains the pending public IP and publishes when due.
// A dropped publish is retried on the next tick.
func (r *runner) onTick(now time.Time) {
	if ip, ok := r.pending.Take(); ok {
		r.reporter.SetPublicIP(ip)
	}

	if r.published && now.Sub(r.lastPublish) < r.period {
		return
	}
	if r.reporter.PublishUpdates() {
		r.published = true
		r.lastPublish = now
	}
}
