package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if cfg.Server.URL != "ws://127.0.0.1:12345" {
		t.Errorf("default server URL = %q", cfg.Server.URL)
	}
	if cfg.OSC.Listen != "udp://0.0.0.0:9000" {
		t.Errorf("default OSC listen = %q", cfg.OSC.Listen)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should be disabled by default")
	}
	if cfg.Dispatch.Workers < 1 {
		t.Errorf("default workers = %d", cfg.Dispatch.Workers)
	}
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
server:
  url: "wss://haptics.local:443"
  client_name: "TestBridge"
osc:
  listen: "udp://127.0.0.1:9001"
dispatch:
  workers: 8
  queue_size: 128
logging:
  level: debug
  format: text
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.URL != "wss://haptics.local:443" {
		t.Errorf("server URL = %q", cfg.Server.URL)
	}
	if cfg.Server.ClientName != "TestBridge" {
		t.Errorf("client name = %q", cfg.Server.ClientName)
	}
	if cfg.Dispatch.Workers != 8 {
		t.Errorf("workers = %d", cfg.Dispatch.Workers)
	}

	addr, err := cfg.OSCListenAddr()
	if err != nil {
		t.Fatalf("OSCListenAddr failed: %v", err)
	}
	if addr != "127.0.0.1:9001" {
		t.Errorf("listen addr = %q", addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PULSEBRIDGE_SERVER_URL", "ws://example.com:6789")
	t.Setenv("PULSEBRIDGE_OSC_LISTEN", "udp://0.0.0.0:9100")
	t.Setenv("PULSEBRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.URL != "ws://example.com:6789" {
		t.Errorf("server URL = %q", cfg.Server.URL)
	}
	if cfg.OSC.Listen != "udp://0.0.0.0:9100" {
		t.Errorf("OSC listen = %q", cfg.OSC.Listen)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadSchemes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "tcp OSC listen",
			mutate: func(c *Config) { c.OSC.Listen = "tcp://0.0.0.0:9000" },
			want:   "scheme must be udp",
		},
		{
			name:   "http server URL",
			mutate: func(c *Config) { c.Server.URL = "http://127.0.0.1:12345" },
			want:   "scheme must be ws or wss",
		},
		{
			name:   "missing OSC port",
			mutate: func(c *Config) { c.OSC.Listen = "udp://0.0.0.0" },
			want:   "no port",
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Dispatch.Workers = 0 },
			want:   "dispatch.workers",
		},
		{
			name:   "invalid qos",
			mutate: func(c *Config) { c.MQTT.QoS = 3 },
			want:   "mqtt.qos",
		},
		{
			name:   "telemetry without URL",
			mutate: func(c *Config) { c.Telemetry.Enabled = true },
			want:   "telemetry.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
