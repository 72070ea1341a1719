// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
device:
  id: relay-01
  name: RELAY-SERIAL-GATEWAY-01
relay:
  listen: ":2200"
  allow: ["10.0.0.0/8"]
  serial:
    address: /dev/ttyUSB0
    baud_rate: 9600
cloud:
  broker: tcp://broker:1883
sinks:
  cloud: true
  modbus:
    endpoint: 127.0.0.1:502
    unit_id: 1
    base_slot: 2
`

func TestLoad_NormalizeDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
	Normalize(cfg)

	if cfg.Device.Name != "RELAY-SERIAL-GAT" {
		t.Fatalf("device name not truncated: %q", cfg.Device.Name)
	}
	if cfg.Reporter.PublishPeriodMs != DefaultPublishPeriodMs {
		t.Fatalf("publish period default: got %d", cfg.Reporter.PublishPeriodMs)
	}
	if cfg.Relay.Serial.BaudRate != 9600 {
		t.Fatalf("baud rate overridden: got %d", cfg.Relay.Serial.BaudRate)
	}
	if cfg.Relay.Serial.Parity != DefaultParity {
		t.Fatalf("parity default: got %q", cfg.Relay.Serial.Parity)
	}
	if cfg.Cloud.ClientID != "relay-01" {
		t.Fatalf("client id should default to device id, got %q", cfg.Cloud.ClientID)
	}
	if cfg.Sinks.Modbus.TimeoutMs != DefaultModbusTimeoutMs {
		t.Fatalf("modbus timeout default: got %d", cfg.Sinks.Modbus.TimeoutMs)
	}
	if cfg.Sinks.DynamoDB != nil {
		t.Fatalf("dynamodb sink must stay disabled")
	}
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("device:\n  id: x\n  colour: red\n"))
	if err == nil {
		t.Fatalf("expected unknown field error, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
