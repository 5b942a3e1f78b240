package session

import (
	"context"
	"fmt"

	"github.com/pulsebridge/pulsebridge/internal/buttplug"
	"github.com/pulsebridge/pulsebridge/internal/infrastructure/logging"
	"github.com/pulsebridge/pulsebridge/internal/registry"
)

// Client is the slice of the device session API the manager drives.
// Satisfied by *buttplug.Client; narrowed for testing.
type Client interface {
	Connect(ctx context.Context) error
	Events() <-chan buttplug.Event
	StartScanning(ctx context.Context) error
	StopScanning(ctx context.Context) error
	Close() error
}

// Manager runs one device session: it connects, scans, and folds the
// server's device events into the registry. Run returns when the
// session ends, and the manager is spent; the supervisor builds a fresh
// one per attempt.
type Manager struct {
	client Client
	reg    *registry.Registry
	logger *logging.Logger

	// OnSessionUp is invoked once the session is connected and
	// scanning. Optional.
	OnSessionUp func()

	// OnDeviceAdded and OnDeviceRemoved fire after the registry has
	// been updated, with the device's registry name. Optional hooks for
	// status publishing and telemetry.
	OnDeviceAdded   func(name string)
	OnDeviceRemoved func(name string)
}

// NewManager creates a session manager around an unconnected client.
func NewManager(client Client, reg *registry.Registry, logger *logging.Logger) *Manager {
	return &Manager{client: client, reg: reg, logger: logger}
}

// Run drives the session until it ends. The event stream is taken
// before Connect so device announcements replayed during connection
// setup are never missed. Returns ErrServerDisconnect when the server
// drops the session, ctx.Err() on shutdown.
func (m *Manager) Run(ctx context.Context) error {
	events := m.client.Events()

	if err := m.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer m.client.Close()

	// The registry writer is held for the whole session. Readers keep
	// resolving against the last published snapshot throughout.
	w := m.reg.AcquireWriter()
	defer w.Release()

	if err := m.client.StartScanning(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	m.logger.Info("session established, scanning for devices")

	if m.OnSessionUp != nil {
		m.OnSessionUp()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrServerDisconnect
			}
			switch ev.Kind {
			case buttplug.EventDeviceAdded:
				m.handleAdded(w, ev.Device)
			case buttplug.EventDeviceRemoved:
				if err := m.handleRemoved(ctx, ev.Device); err != nil {
					return err
				}
			case buttplug.EventScanningFinished:
				m.logger.Debug("scanning pass finished")
			case buttplug.EventDisconnected:
				m.logger.Warn("device server dropped the session", "error", ev.Err)
				return ErrServerDisconnect
			}
		}
	}
}

// handleAdded registers a device under its normalised name, points the
// last-device alias at it, and publishes both in one step.
func (m *Manager) handleAdded(w *registry.Writer, dev *buttplug.Device) {
	name := registry.Normalize(dev.Name())
	w.Update(name, dev)
	w.Update(registry.LastAlias, dev)
	w.Publish()

	m.logger.Info("device connected",
		"device", name,
		"reported_name", dev.Name(),
		"motors", dev.FeatureCount(),
	)
	if m.OnDeviceAdded != nil {
		m.OnDeviceAdded(name)
	}
}

// handleRemoved logs the departure and restarts scanning so the device
// is re-announced if it comes back. The registry entry stays; commands
// against a gone device fail at the server and are logged by the
// dispatcher.
func (m *Manager) handleRemoved(ctx context.Context, dev *buttplug.Device) error {
	name := "unknown"
	if dev != nil {
		name = registry.Normalize(dev.Name())
	}
	m.logger.Info("device disconnected", "device", name)

	if err := m.client.StopScanning(ctx); err != nil {
		m.logger.Warn("stop scanning before rescan failed", "error", err)
	}
	if err := m.client.StartScanning(ctx); err != nil {
		return fmt.Errorf("%w: rescan after removal: %w", ErrScanFailed, err)
	}

	if m.OnDeviceRemoved != nil {
		m.OnDeviceRemoved(name)
	}
	return nil
}
