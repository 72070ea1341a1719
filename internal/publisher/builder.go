// internal/publisher/builder.go
package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/ssh-relay/internal/config"
	pmodbus "github.com/tamzrod/ssh-relay/internal/publisher/modbus"
)

// Set is the built sink list plus the pieces main must drive.
type Set struct {
	Sinks []Sink

	// Metrics is non-nil when the metrics sink is enabled; main serves it.
	Metrics *MetricsSink

	closers []func() error
}

// Close releases sink resources. The last error wins.
func (s *Set) Close() error {
	var last error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			last = err
		}
	}
	return last
}

// BuildSinks creates every enabled sink.
// Assumes config has already passed Validate and Normalize.
// cloud may be nil when the cloud sink is disabled.
func BuildSinks(ctx context.Context, c *config.Config, cloud EventPublisher) (*Set, error) {
	set := &Set{}

	if c.Sinks.Cloud {
		if cloud == nil {
			return nil, errors.New("publisher: cloud sink enabled without a cloud client")
		}
		set.Sinks = append(set.Sinks, NewCloudSink(cloud))
	}

	if m := c.Sinks.Modbus; m != nil {
		cli, err := pmodbus.NewEndpointClient(pmodbus.Config{
			Endpoint: m.Endpoint,
			Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.closers = append(set.closers, cli.Close)

		set.Sinks = append(set.Sinks, NewModbusSink(ModbusPlan{
			Endpoint:   m.Endpoint,
			UnitID:     m.UnitID,
			BaseSlot:   m.BaseSlot,
			DeviceName: c.Device.Name,
		}, cli))
	}

	if d := c.Sinks.DynamoDB; d != nil {
		sink, err := NewDynamoSink(ctx, DynamoConfig{
			Table:    d.Table,
			Region:   d.Region,
			DeviceID: c.Device.ID,
			TTL:      time.Duration(d.TTLDays) * 24 * time.Hour,
		})
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.Sinks = append(set.Sinks, sink)
	}

	if c.Sinks.Metrics != nil {
		set.Metrics = NewMetricsSink(c.Device.ID)
		set.Sinks = append(set.Sinks, set.Metrics)
	}

	return set, nil
}
