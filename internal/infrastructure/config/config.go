package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for PulseBridge.
// All configuration is loaded from YAML and can be overridden by environment
// variables and command-line flags.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	OSC       OSCConfig       `yaml:"osc"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains the device-session server connection settings.
type ServerConfig struct {
	// URL is the Intiface/Buttplug server websocket endpoint.
	// Scheme must be "ws" or "wss".
	URL string `yaml:"url"`

	// ClientName is the client identity announced during the
	// protocol handshake.
	ClientName string `yaml:"client_name"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains session reconnection settings.
// Delays are in seconds.
type ReconnectConfig struct {
	// InitialDelay is the delay before the first reconnect attempt.
	InitialDelay int `yaml:"initial_delay"`

	// MaxDelay caps the exponential backoff between attempts.
	MaxDelay int `yaml:"max_delay"`

	// EstablishedAfter is how long a session must survive before the
	// backoff delay resets to InitialDelay.
	EstablishedAfter int `yaml:"established_after"`
}

// OSCConfig contains the OSC listener settings.
type OSCConfig struct {
	// Listen is the local OSC endpoint URL. Scheme must be "udp";
	// any other scheme is a fatal configuration error at startup.
	Listen string `yaml:"listen"`
}

// DispatchConfig contains command dispatch settings.
type DispatchConfig struct {
	// Workers is the number of concurrent command invocation workers.
	Workers int `yaml:"workers"`

	// QueueSize bounds the pending invocation queue. Invocations
	// arriving on a full queue are dropped with a warning.
	QueueSize int `yaml:"queue_size"`
}

// MQTTConfig contains optional MQTT status publishing settings.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`

	// HealthInterval is how often bridge status is published, in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TelemetryConfig contains optional InfluxDB telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PULSEBRIDGE_SECTION_KEY
// For example: PULSEBRIDGE_SERVER_URL, PULSEBRIDGE_OSC_LISTEN
//
// An empty path skips the file entirely and loads defaults plus environment
// overrides, so the bridge can run from flags alone.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The server and OSC endpoints default to the conventional local
// Intiface and OSC ports.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:        "ws://127.0.0.1:12345",
			ClientName: "PulseBridge",
			Reconnect: ReconnectConfig{
				InitialDelay:     1,
				MaxDelay:         30,
				EstablishedAfter: 30,
			},
		},
		OSC: OSCConfig{
			Listen: "udp://0.0.0.0:9000",
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 64,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pulsebridge",
			},
			QoS:            1,
			HealthInterval: 30,
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PULSEBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSEBRIDGE_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("PULSEBRIDGE_OSC_LISTEN"); v != "" {
		cfg.OSC.Listen = v
	}
	if v := os.Getenv("PULSEBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PULSEBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PULSEBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("PULSEBRIDGE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	if v := os.Getenv("PULSEBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// A bad OSC listen scheme is deliberately fatal here: the bridge must not
// start half-configured and silently receive nothing.
func (c *Config) Validate() error {
	var errs []string

	u, err := url.Parse(c.Server.URL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Sprintf("server.url is not a valid URL: %v", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Sprintf("server.url scheme must be ws or wss, got %q", u.Scheme))
	}

	if _, err := c.OSCListenAddr(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Server.ClientName == "" {
		errs = append(errs, "server.client_name is required")
	}
	if c.Dispatch.Workers < 1 {
		errs = append(errs, "dispatch.workers must be at least 1")
	}
	if c.Dispatch.QueueSize < 1 {
		errs = append(errs, "dispatch.queue_size must be at least 1")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		errs = append(errs, "telemetry.url is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// OSCListenAddr parses the OSC listen URL and returns the host:port address
// suitable for binding a UDP socket. The scheme must be "udp".
func (c *Config) OSCListenAddr() (string, error) {
	u, err := url.Parse(c.OSC.Listen)
	if err != nil {
		return "", fmt.Errorf("osc.listen is not a valid URL: %w", err)
	}
	if u.Scheme != "udp" {
		return "", fmt.Errorf("osc.listen scheme must be udp, got %q", u.Scheme)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("osc.listen has no port")
	}
	if _, err := strconv.Atoi(u.Port()); err != nil {
		return "", fmt.Errorf("osc.listen port is not numeric: %w", err)
	}
	return u.Host, nil
}

// GetInitialReconnectDelay returns the initial reconnect delay as a Duration.
func (c *Config) GetInitialReconnectDelay() time.Duration {
	return time.Duration(c.Server.Reconnect.InitialDelay) * time.Second
}

// GetMaxReconnectDelay returns the maximum reconnect delay as a Duration.
func (c *Config) GetMaxReconnectDelay() time.Duration {
	return time.Duration(c.Server.Reconnect.MaxDelay) * time.Second
}

// GetEstablishedAfter returns the backoff reset threshold as a Duration.
func (c *Config) GetEstablishedAfter() time.Duration {
	return time.Duration(c.Server.Reconnect.EstablishedAfter) * time.Second
}

// GetHealthInterval returns the MQTT health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.MQTT.HealthInterval) * time.Second
}
