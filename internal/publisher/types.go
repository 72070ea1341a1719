// internal/publisher/types.go
package publisher

import (
	"context"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// Sink is the delivery-only contract for one telemetry destination.
// It receives a batch and delivers it verbatim.
// No reporter logic, no interpretation of state transitions.
type Sink interface {
	Name() string
	Publish(ctx context.Context, b status.Batch) error
}

// EventPublisher is the cloud capability the cloud sink needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, name, data string) error
}
