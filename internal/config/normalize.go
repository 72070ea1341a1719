// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultPublishPeriodMs = 60000
	DefaultLoopIntervalMs  = 250
	DefaultListen          = ":2222"
	DefaultBaudRate        = 115200
	DefaultDataBits        = 8
	DefaultStopBits        = 1
	DefaultParity          = "N"
	DefaultSerialTimeoutMs = 100
	DefaultNetPollMs       = 5000
	DefaultTopicPrefix     = "particle"
	DefaultConnectTimeout  = 10000
	DefaultKeepAliveSec    = 60
	DefaultRetryInitialMs  = 1000
	DefaultRetryMaxMs      = 60000
	DefaultLookupTimeoutMs = 5000
	DefaultSinkTimeoutMs   = 5000
	DefaultModbusTimeoutMs = 2000
	DefaultTTLDays         = 30
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"

	deviceNameMax = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	// ASCII already validated; truncate to the status block width.
	if len(cfg.Device.Name) > deviceNameMax {
		cfg.Device.Name = cfg.Device.Name[:deviceNameMax]
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = truncate(cfg.Device.ID, deviceNameMax)
	}

	// ------------------------------------------------------------
	// TIMING / LOG
	// ------------------------------------------------------------

	setInt(&cfg.Reporter.PublishPeriodMs, DefaultPublishPeriodMs)
	setInt(&cfg.Reporter.LoopIntervalMs, DefaultLoopIntervalMs)
	setString(&cfg.Log.Level, DefaultLogLevel)
	setString(&cfg.Log.Format, DefaultLogFormat)

	// ------------------------------------------------------------
	// RELAY
	// ------------------------------------------------------------

	setString(&cfg.Relay.Listen, DefaultListen)
	s := &cfg.Relay.Serial
	setInt(&s.BaudRate, DefaultBaudRate)
	setInt(&s.DataBits, DefaultDataBits)
	setInt(&s.StopBits, DefaultStopBits)
	setString(&s.Parity, DefaultParity)
	setInt(&s.TimeoutMs, DefaultSerialTimeoutMs)

	setInt(&cfg.Network.PollIntervalMs, DefaultNetPollMs)

	// ------------------------------------------------------------
	// CLOUD
	// ------------------------------------------------------------

	c := &cfg.Cloud
	setString(&c.ClientID, cfg.Device.ID)
	setString(&c.TopicPrefix, DefaultTopicPrefix)
	setInt(&c.ConnectTimeoutMs, DefaultConnectTimeout)
	setInt(&c.KeepAliveSec, DefaultKeepAliveSec)
	setInt(&c.RetryInitialMs, DefaultRetryInitialMs)
	setInt(&c.RetryMaxMs, DefaultRetryMaxMs)

	setInt(&cfg.PublicIP.TimeoutMs, DefaultLookupTimeoutMs)

	// ------------------------------------------------------------
	// SINKS (opt-in; only defaults for enabled ones)
	// ------------------------------------------------------------

	setInt(&cfg.Sinks.TimeoutMs, DefaultSinkTimeoutMs)
	if m := cfg.Sinks.Modbus; m != nil {
		setInt(&m.TimeoutMs, DefaultModbusTimeoutMs)
	}
	if d := cfg.Sinks.DynamoDB; d != nil {
		setInt(&d.TTLDays, DefaultTTLDays)
	}
	if m := cfg.Sinks.Metrics; m != nil {
		setString(&m.Path, DefaultMetricsPath)
	}

	// ------------------------------------------------------------
	// BRIDGE
	// ------------------------------------------------------------

	setString(&cfg.Bridge.TopicPrefix, DefaultTopicPrefix)
	setInt(&cfg.Bridge.RetryInitialMs, DefaultRetryInitialMs)
	setInt(&cfg.Bridge.RetryMaxMs, DefaultRetryMaxMs)
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
