// internal/publisher/cloud.go
package publisher

import (
	"context"

	"go.uber.org/multierr"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// cloudSink publishes each field as its own named cloud event, in batch order.
type cloudSink struct {
	pub EventPublisher
}

// NewCloudSink returns a sink that publishes through pub.
func NewCloudSink(pub EventPublisher) Sink {
	return &cloudSink{pub: pub}
}

func (c *cloudSink) Name() string { return "cloud" }

func (c *cloudSink) Publish(ctx context.Context, b status.Batch) error {
	var errs error
	for _, f := range b.Fields {
		errs = multierr.Append(errs, c.pub.PublishEvent(ctx, f.Name, f.Value))
	}
	return errs
}
