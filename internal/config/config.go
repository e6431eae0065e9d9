// internal/config/config.go
package config

type Config struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Poll     PollConfig      `yaml:"poll"`
	Channels []ChannelConfig `yaml:"channels"`
	Targets  []TargetConfig  `yaml:"targets"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stderr, stdout
}

// ---- POLL ----

type PollConfig struct {
	StandardIntervalMs int `yaml:"standard_interval_ms"` // unchanged value
	ShortIntervalMs    int `yaml:"short_interval_ms"`    // after a change
	IOTimeoutMs        int `yaml:"io_timeout_ms"`        // per bus call; -1 disables
	QueueSize          int `yaml:"queue_size"`           // pending transactions per bus
}

// ---- CHANNEL ----

// ChannelConfig is one watched encoder. Bus, Device and Encoder accept
// numbers or strings and fall back to defaults when unusable.
type ChannelConfig struct {
	ID      string `yaml:"id"`
	Bus     Int    `yaml:"bus"`
	Device  Int    `yaml:"device"`
	Encoder Int    `yaml:"encoder"`

	// Register mirror slot (optional, opt-in)
	Slot *uint16 `yaml:"slot"`
	// Device name written into the status block (ASCII, max 16 chars)
	DeviceName string `yaml:"device_name"`
}

// ---- TARGET ----

// TargetConfig is a register mirror endpoint.
// endpoint: "tcp://host:502", "host:502", "rtu:///dev/ttyUSB0?baud=19200", "ingest://host:9000"
type TargetConfig struct {
	ID           uint32 `yaml:"id"`
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`        // position registers
	StatusUnitID *uint8 `yaml:"status_unit_id"` // per-channel status blocks (optional)
	BaseAddress  uint16 `yaml:"base_address"`
	TimeoutMs    int    `yaml:"timeout_ms"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	Retained    bool             `yaml:"retained"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"` // empty: generated at startup
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}
