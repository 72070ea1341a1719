// internal/config/validate.go
package config

import (
	"fmt"
	"net/netip"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if err := validateCommon(cfg); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// TIMING (zero means default)
	// ------------------------------------------------------------

	r := cfg.Reporter
	if r.PublishPeriodMs < 0 || r.LoopIntervalMs < 0 {
		return fmt.Errorf("reporter: periods must be >= 0")
	}
	if r.PublishPeriodMs > 0 && r.LoopIntervalMs > 0 && r.LoopIntervalMs > r.PublishPeriodMs {
		return fmt.Errorf(
			"reporter: loop_interval_ms (%d) must not exceed publish_period_ms (%d)",
			r.LoopIntervalMs,
			r.PublishPeriodMs,
		)
	}
	if cfg.Network.PollIntervalMs < 0 {
		return fmt.Errorf("network.poll_interval_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// RELAY / SERIAL
	// ------------------------------------------------------------

	if err := validateRelay(cfg.Relay); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// CLOUD
	// ------------------------------------------------------------

	if cfg.Sinks.Cloud && cfg.Cloud.Broker == "" {
		return fmt.Errorf("sinks.cloud is set but cloud.broker is empty")
	}
	if cfg.Cloud.QoS > 2 {
		return fmt.Errorf("cloud.qos must be 0, 1 or 2")
	}

	// ------------------------------------------------------------
	// SINKS
	// ------------------------------------------------------------

	if m := cfg.Sinks.Modbus; m != nil {
		if m.Endpoint == "" {
			return fmt.Errorf("sinks.modbus.endpoint is required")
		}
		// base_slot * 20 registers must stay inside the 16-bit address space
		if int(m.BaseSlot)*20+20 > 0x10000 {
			return fmt.Errorf("sinks.modbus.base_slot %d out of range", m.BaseSlot)
		}
	}
	if d := cfg.Sinks.DynamoDB; d != nil && d.Table == "" {
		return fmt.Errorf("sinks.dynamodb.table is required")
	}
	if m := cfg.Sinks.Metrics; m != nil && m.Listen == "" {
		return fmt.Errorf("sinks.metrics.listen is required")
	}

	return nil
}

// ValidateBridge checks the subset of configuration the event-stream bridge uses.
// It MUST NOT mutate configuration.
func ValidateBridge(cfg *Config) error {
	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.Bridge.StreamURL == "" {
		return fmt.Errorf("bridge.stream_url is required")
	}
	if cfg.Cloud.Broker == "" {
		return fmt.Errorf("cloud.broker is required")
	}
	if cfg.Cloud.QoS > 2 {
		return fmt.Errorf("cloud.qos must be 0, 1 or 2")
	}
	if cfg.Bridge.RetryInitialMs < 0 || cfg.Bridge.RetryMaxMs < 0 {
		return fmt.Errorf("bridge: retry periods must be >= 0")
	}
	return nil
}

// validateCommon checks device identity and logging.
func validateCommon(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE IDENTITY
	// ------------------------------------------------------------

	if cfg.Device.ID == "" {
		return fmt.Errorf("device.id is required")
	}
	if err := asciiOnly("device.id", cfg.Device.ID); err != nil {
		return err
	}
	if err := asciiOnly("device.name", cfg.Device.Name); err != nil {
		return err
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be debug, info, warn or error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", cfg.Log.Format)
	}

	return nil
}

func validateRelay(r RelayConfig) error {
	if r.Serial.Address == "" {
		return fmt.Errorf("relay.serial.address is required")
	}

	for _, cidr := range r.Allow {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("relay.allow: invalid prefix %q: %w", cidr, err)
		}
	}

	s := r.Serial
	switch s.Parity {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("relay.serial.parity %q must be N, E or O", s.Parity)
	}
	if s.DataBits != 0 && (s.DataBits < 5 || s.DataBits > 8) {
		return fmt.Errorf("relay.serial.data_bits %d must be 5..8", s.DataBits)
	}
	if s.StopBits != 0 && s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("relay.serial.stop_bits %d must be 1 or 2", s.StopBits)
	}
	if s.BaudRate < 0 || s.TimeoutMs < 0 {
		return fmt.Errorf("relay.serial: baud_rate and timeout_ms must be >= 0")
	}

	return nil
}

func asciiOnly(field, v string) error {
	for i := 0; i < len(v); i++ {
		if v[i] > 0x7F {
			return fmt.Errorf("%s must contain ASCII characters only", field)
		}
	}
	return nil
}
