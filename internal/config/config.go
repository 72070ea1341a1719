// internal/config/config.go
package config

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Log      LogConfig      `yaml:"log"`
	Reporter ReporterConfig `yaml:"reporter"`
	Relay    RelayConfig    `yaml:"relay"`
	Network  NetworkConfig  `yaml:"network"`
	Cloud    CloudConfig    `yaml:"cloud"`
	PublicIP PublicIPConfig `yaml:"public_ip"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Bridge   BridgeConfig   `yaml:"bridge"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"` // ASCII, truncated to 16 chars
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// ---- REPORTER ----

type ReporterConfig struct {
	PublishPeriodMs int `yaml:"publish_period_ms"`
	LoopIntervalMs  int `yaml:"loop_interval_ms"`
}

// ---- RELAY ----

type RelayConfig struct {
	Listen string       `yaml:"listen"`
	Allow  []string     `yaml:"allow"` // CIDRs; empty => allow all
	Serial SerialConfig `yaml:"serial"`
}

type SerialConfig struct {
	Address   string `yaml:"address"`
	BaudRate  int    `yaml:"baud_rate"`
	DataBits  int    `yaml:"data_bits"`
	StopBits  int    `yaml:"stop_bits"`
	Parity    string `yaml:"parity"` // N | E | O
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- NETWORK ----

type NetworkConfig struct {
	Interface      string `yaml:"interface"` // empty => first non-loopback
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// ---- CLOUD ----

type CloudConfig struct {
	Broker           string `yaml:"broker"`
	ClientID         string `yaml:"client_id"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	TopicPrefix      string `yaml:"topic_prefix"`
	QoS              byte   `yaml:"qos"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	KeepAliveSec     int    `yaml:"keep_alive_sec"`
	RetryInitialMs   int    `yaml:"retry_initial_ms"`
	RetryMaxMs       int    `yaml:"retry_max_ms"`
}

// ---- PUBLIC IP ----

type PublicIPConfig struct {
	LookupURL string `yaml:"lookup_url"` // optional HTTP fallback
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- SINKS ----

// SinksConfig enables publish destinations. All sinks are opt-in.
type SinksConfig struct {
	Cloud     bool          `yaml:"cloud"`
	Modbus    *ModbusSink   `yaml:"modbus"`
	DynamoDB  *DynamoDBSink `yaml:"dynamodb"`
	Metrics   *MetricsSink  `yaml:"metrics"`
	TimeoutMs int           `yaml:"timeout_ms"`
}

type ModbusSink struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	BaseSlot  uint16 `yaml:"base_slot"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type DynamoDBSink struct {
	Table   string `yaml:"table"`
	Region  string `yaml:"region"`
	TTLDays int    `yaml:"ttl_days"`
}

type MetricsSink struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// ---- BRIDGE ----

type BridgeConfig struct {
	StreamURL      string `yaml:"stream_url"`
	AccessToken    string `yaml:"access_token"`
	TopicPrefix    string `yaml:"topic_prefix"`
	RetryInitialMs int    `yaml:"retry_initial_ms"`
	RetryMaxMs     int    `yaml:"retry_max_ms"`
}
