// PulseBridge - OSC to Intiface haptic device bridge
//
// PulseBridge listens for OSC control messages over UDP and forwards
// them as device commands to an Intiface Central (Buttplug) server.
// Pattern generators, show controllers, and DAWs that speak OSC can
// drive haptic devices without knowing anything about the device
// protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/hypebeast/go-osc/osc"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/pulsebridge/pulsebridge/internal/buttplug"
	"github.com/pulsebridge/pulsebridge/internal/dispatch"
	"github.com/pulsebridge/pulsebridge/internal/health"
	"github.com/pulsebridge/pulsebridge/internal/infrastructure/config"
	"github.com/pulsebridge/pulsebridge/internal/infrastructure/logging"
	"github.com/pulsebridge/pulsebridge/internal/infrastructure/mqtt"
	"github.com/pulsebridge/pulsebridge/internal/infrastructure/telemetry"
	"github.com/pulsebridge/pulsebridge/internal/registry"
	"github.com/pulsebridge/pulsebridge/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// flags holds command-line overrides. Flags beat config file and
// environment values.
type flags struct {
	configPath string
	serverURL  string
	oscListen  string
	logLevel   string
	version    bool
}

func main() {
	f := parseFlags(os.Args[1:])
	if f.version {
		fmt.Printf("pulsebridge %s (%s)\n", version, commit)
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) flags {
	var f flags
	fs := pflag.NewFlagSet("pulsebridge", pflag.ExitOnError)
	fs.StringVarP(&f.configPath, "config", "c", "", "path to config file")
	fs.StringVar(&f.serverURL, "server-url", "", "Intiface server websocket URL (overrides config)")
	fs.StringVar(&f.oscListen, "osc-listen", "", "OSC listen URL, e.g. udp://0.0.0.0:9000 (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	fs.BoolVarP(&f.version, "version", "v", false, "print version and exit")
	fs.Parse(args) //nolint:errcheck // ExitOnError handles failures
	return f
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, f flags) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting pulsebridge", "version", version, "commit", commit)

	configPath := resolveConfigPath(f.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := applyFlagOverrides(cfg, f); err != nil {
		return err
	}
	if configPath != "" {
		log.Info("configuration loaded", "path", configPath)
	} else {
		log.Info("no config file, using defaults and environment")
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB telemetry (optional)
	var influxClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		influxClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
	} else {
		log.Info("telemetry disabled")
	}

	reg := registry.New()

	// Session supervisor: keeps one device session alive, reconnecting
	// forever with backoff.
	supervisor := session.NewSupervisor(
		newManagerFactory(cfg, reg, log, mqttClient, influxClient),
		session.Backoff{
			InitialDelay:     cfg.GetInitialReconnectDelay(),
			MaxDelay:         cfg.GetMaxReconnectDelay(),
			EstablishedAfter: cfg.GetEstablishedAfter(),
		},
		log,
	)

	// Dispatcher: OSC packets in, device invocations out.
	var dispatchOpts []dispatch.Option
	if influxClient != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithRecorder(influxClient))
	}
	dispatcher := dispatch.New(reg, cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, log, dispatchOpts...)

	oscAddr, err := cfg.OSCListenAddr()
	if err != nil {
		return fmt.Errorf("resolving OSC listen address: %w", err)
	}
	packetConn, err := net.ListenPacket("udp", oscAddr)
	if err != nil {
		return fmt.Errorf("binding OSC socket: %w", err)
	}
	oscServer := &osc.Server{Addr: oscAddr, Dispatcher: dispatcher}
	log.Info("OSC listener bound", "addr", oscAddr)

	// Health reporter (only meaningful with MQTT)
	var reporter *health.Reporter
	if mqttClient != nil {
		reporter = health.NewReporter(health.Config{
			BridgeID:    cfg.MQTT.Broker.ClientID,
			Version:     version,
			Topic:       mqtt.Topics{}.Status(),
			Interval:    cfg.GetHealthInterval(),
			Publisher:   mqttClient,
			SessionUp:   supervisor.Connected,
			DeviceCount: reg.Len,
		})
		reporter.PublishStarting() //nolint:errcheck // best-effort during startup
	}

	g, gctx := errgroup.WithContext(ctx)

	dispatcher.Start(gctx)
	defer dispatcher.Stop()

	if reporter != nil {
		reporter.Start(gctx)
		defer reporter.Stop()
	}

	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	g.Go(func() error {
		err := oscServer.Serve(packetConn)
		if gctx.Err() != nil {
			return gctx.Err()
		}
		return fmt.Errorf("OSC server: %w", err)
	})

	// Unblock Serve when the group context ends.
	g.Go(func() error {
		<-gctx.Done()
		packetConn.Close()
		return gctx.Err()
	})

	log.Info("initialisation complete, bridging OSC to device server")

	err = g.Wait()
	if err != nil && !isShutdown(err) {
		return err
	}

	log.Info("pulsebridge stopped")
	return nil
}

// newManagerFactory builds a fresh session manager per connection
// attempt, wiring status publishing and telemetry hooks when those
// clients exist.
func newManagerFactory(
	cfg *config.Config,
	reg *registry.Registry,
	log *logging.Logger,
	mqttClient *mqtt.Client,
	influxClient *telemetry.Client,
) func() *session.Manager {
	return func() *session.Manager {
		client := buttplug.New(buttplug.Config{
			URL:        cfg.Server.URL,
			ClientName: cfg.Server.ClientName,
		})
		client.SetLogger(log)

		mgr := session.NewManager(client, reg, log)
		mgr.OnSessionUp = func() {
			if influxClient != nil {
				influxClient.RecordSessionEvent("connected", "")
			}
		}
		mgr.OnDeviceAdded = func(name string) {
			if mqttClient != nil {
				topic := mqtt.Topics{}.DeviceStatus(name)
				//nolint:errcheck // status publishing is best-effort
				mqttClient.PublishRetained(topic, []byte(`{"status":"connected"}`))
			}
			if influxClient != nil {
				influxClient.RecordSessionEvent("device_added", name)
			}
		}
		mgr.OnDeviceRemoved = func(name string) {
			if mqttClient != nil {
				topic := mqtt.Topics{}.DeviceStatus(name)
				//nolint:errcheck // status publishing is best-effort
				mqttClient.PublishRetained(topic, []byte(`{"status":"disconnected"}`))
			}
			if influxClient != nil {
				influxClient.RecordSessionEvent("device_removed", name)
			}
		}
		return mgr
	}
}

// applyFlagOverrides lays command-line values over the loaded config
// and re-validates.
func applyFlagOverrides(cfg *config.Config, f flags) error {
	if f.serverURL != "" {
		cfg.Server.URL = f.serverURL
	}
	if f.oscListen != "" {
		cfg.OSC.Listen = f.oscListen
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// resolveConfigPath picks the config file: flag, then environment, then
// the default path if it exists. An empty result runs on defaults.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("PULSEBRIDGE_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// isShutdown reports whether err is the normal signal-driven exit.
func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
