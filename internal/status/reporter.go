// internal/status/reporter.go
package status

import "go.uber.org/zap"

// Emitter accepts a batch for delivery.
// Submit MUST NOT block; it returns false when the batch was dropped.
type Emitter interface {
	Submit(b Batch) bool
}

// Reporter owns the device state and emits it as telemetry.
// It is not safe for concurrent use: exactly one goroutine (the main loop) mutates it.
type Reporter struct {
	state  Snapshot
	out    Emitter
	logger *zap.Logger

	// session is true from an accepted connection until SessionEnded,
	// independent of link state.
	session bool
}

// NewReporter returns a Reporter in the Init state.
func NewReporter(out Emitter, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		state: Snapshot{
			Status:   Init,
			LocalIP:  UnsetIP,
			PublicIP: UnsetIP,
		},
		out:    out,
		logger: logger,
	}
}

// Snapshot returns a copy of the current state.
func (r *Reporter) Snapshot() Snapshot {
	return r.state
}

// Status returns the current connection phase.
func (r *Reporter) Status() Code {
	return r.state.Status
}

// ---- counters ----

// RecordAttempt counts one incoming connection attempt.
func (r *Reporter) RecordAttempt() {
	r.state.Attempts++
}

// RecordAccepted counts an accepted connection and starts a session.
func (r *Reporter) RecordAccepted() {
	r.resolveAttempt()
	r.state.Accepted++
	r.session = true

	if r.state.Status == Connected {
		r.transition(SSHSession)
	}
}

// RecordRejected counts a rejected connection.
func (r *Reporter) RecordRejected() {
	r.resolveAttempt()
	r.state.Rejected++
}

// resolveAttempt keeps accepted+rejected <= attempts.
// An outcome without a recorded attempt counts the attempt first.
func (r *Reporter) resolveAttempt() {
	if r.state.Accepted+r.state.Rejected >= r.state.Attempts {
		r.state.Attempts++
	}
}

// ---- link / session transitions ----

// LinkUp moves the device to Connected.
// From Init the device passes through Disconnected first.
// A session that survived the outage puts the device back in SSHSession.
func (r *Reporter) LinkUp() {
	switch r.state.Status {
	case Init:
		r.transition(Disconnected)
		r.transition(Connected)
	case Disconnected:
		r.transition(Connected)
	}

	if r.session && r.state.Status == Connected {
		r.transition(SSHSession)
	}
}

// LinkDown moves the device to Disconnected.
func (r *Reporter) LinkDown() {
	switch r.state.Status {
	case Init, Connected, SSHSession:
		r.transition(Disconnected)
	}
}

// SessionEnded returns from SSHSession to Connected.
func (r *Reporter) SessionEnded() {
	r.session = false
	if r.state.Status == SSHSession {
		r.transition(Connected)
	}
}

func (r *Reporter) transition(to Code) {
	from := r.state.Status
	if from == to {
		return
	}
	r.state.Status = to
	r.logger.Info("status changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

// ---- addresses ----

// SetLocalIP stores the local interface address.
func (r *Reporter) SetLocalIP(addr string) {
	if addr == "" {
		addr = UnsetIP
	}
	r.state.LocalIP = addr
}

// SetPublicIP stores the externally resolved address.
func (r *Reporter) SetPublicIP(addr string) {
	if addr == "" {
		addr = UnsetIP
	}
	if addr != r.state.PublicIP {
		r.logger.Info("public ip updated", zap.String("addr", addr))
	}
	r.state.PublicIP = addr
}

// ---- publish ----

// PublishUpdates emits the current state as one telemetry batch.
// Read-only on state. Never blocks; a dropped batch is retried on the next period.
func (r *Reporter) PublishUpdates() bool {
	if r.out == nil {
		return false
	}
	ok := r.out.Submit(Encode(r.state))
	if !ok {
		r.logger.Warn("publish dropped: previous batch still in flight")
	}
	return ok
}
