// internal/relay/types.go
package relay

import "time"

// EventKind classifies one relay observation.
type EventKind uint8

const (
	// Attempt is emitted for every inbound TCP connection, before the decision.
	Attempt EventKind = iota
	// Accepted means the connection now owns the serial port.
	Accepted
	// Rejected means the connection was closed without a session.
	Rejected
	// SessionEnded follows every Accepted once the session is torn down.
	SessionEnded
)

func (k EventKind) String() string {
	switch k {
	case Attempt:
		return "attempt"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case SessionEnded:
		return "session_ended"
	default:
		return "unknown"
	}
}

// Reason explains a rejection.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonBusy      Reason = "busy"
	ReasonNotAllow  Reason = "not_allowed"
	ReasonPortError Reason = "port_error"
)

// Event is one relay observation delivered to the main loop.
// For a given connection the order is Attempt, then Accepted or Rejected,
// then SessionEnded if it was accepted.
type Event struct {
	Kind   EventKind
	Peer   string
	At     time.Time
	Reason Reason
	Err    error
}
