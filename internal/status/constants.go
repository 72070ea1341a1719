// internal/status/constants.go
package status

// Status codes and telemetry names.
// These values are the wire contract with the cloud side and MUST NOT be configurable.

// Code is the current connection phase of the device.
type Code uint16

// ---- STATUS CODES ----

// Init is the boot state before the first link observation.
const Init Code = 0

// Disconnected means no network link.
const Disconnected Code = 1

// Connected means the link is up and no relay session is active.
const Connected Code = 2

// SSHSession means a relay session is active.
const SSHSession Code = 3

func (c Code) String() string {
	switch c {
	case Init:
		return "init"
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case SSHSession:
		return "ssh_session"
	default:
		return "unknown"
	}
}

// ---- TELEMETRY FIELD NAMES ----

const (
	NameStatus   = "status"
	NameAttempts = "attempts"
	NameAccepted = "accepted"
	NameRejected = "rejected"
	NameLocalIP  = "local_ip"
	NamePublicIP = "public_ip"
)

// ---- CLOUD NAMES ----

// NamePublicIPTopic is the cloud topic carrying public IP lookups.
const NamePublicIPTopic = "spark/device/ip"

// NameGetPublicIP is the remote-invocable function that triggers a lookup.
const NameGetPublicIP = "get_ip"

// ---- TIMING ----

// DefaultPublishPeriodMs is the publish period in milliseconds (one minute).
const DefaultPublishPeriodMs = 60000

// UnsetIP is reported for addresses that were never set.
const UnsetIP = "0.0.0.0"
