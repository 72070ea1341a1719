// internal/publisher/metrics.go
package publisher

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// MetricsSink mirrors the last published batch into Prometheus gauges.
type MetricsSink struct {
	registry *prometheus.Registry

	status    prometheus.Gauge
	attempts  prometheus.Gauge
	accepted  prometheus.Gauge
	rejected  prometheus.Gauge
	addresses *prometheus.GaugeVec
	publishes prometheus.Counter
}

// NewMetricsSink registers the relay gauges on a private registry.
func NewMetricsSink(deviceID string) *MetricsSink {
	labels := prometheus.Labels{"device": deviceID}

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ssh_relay",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &MetricsSink{
		registry: prometheus.NewRegistry(),
		status:   gauge("status", "Connection phase: 0 init, 1 disconnected, 2 connected, 3 ssh session."),
		attempts: gauge("attempts", "Relay connection attempts since boot."),
		accepted: gauge("accepted", "Relay connections accepted since boot."),
		rejected: gauge("rejected", "Relay connections rejected since boot."),
		addresses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "ssh_relay",
			Name:        "address_info",
			Help:        "Current device addresses; value is always 1.",
			ConstLabels: labels,
		}, []string{"kind", "ip"}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ssh_relay",
			Name:        "publishes_total",
			Help:        "Telemetry batches published.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(
		m.status,
		m.attempts,
		m.accepted,
		m.rejected,
		m.addresses,
		m.publishes,
	)
	return m
}

func (m *MetricsSink) Name() string { return "metrics" }

func (m *MetricsSink) Publish(ctx context.Context, b status.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := b.Source

	m.status.Set(float64(s.Status))
	m.attempts.Set(float64(s.Attempts))
	m.accepted.Set(float64(s.Accepted))
	m.rejected.Set(float64(s.Rejected))

	m.addresses.Reset()
	m.addresses.WithLabelValues(status.NameLocalIP, s.LocalIP).Set(1)
	m.addresses.WithLabelValues(status.NamePublicIP, s.PublicIP).Set(1)

	m.publishes.Inc()
	return nil
}

// Registry exposes the private registry.
func (m *MetricsSink) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *MetricsSink) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes Handler on listen+path until ctx is done.
func (m *MetricsSink) Serve(ctx context.Context, listen, path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", listen), zap.String("path", path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
