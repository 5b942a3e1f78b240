package health

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// defaultInterval is used when the config leaves the interval zero.
const defaultInterval = 30 * time.Second

// Status is the bridge's coarse health state.
type Status string

// Health status values published to the status topic.
const (
	StatusStarting Status = "starting"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusStopping Status = "stopping"
)

// Publisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type Publisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// Message is the JSON body published to the status topic.
type Message struct {
	BridgeID      string `json:"bridge_id"`
	Version       string `json:"version"`
	Status        Status `json:"status"`
	Reason        string `json:"reason,omitempty"`
	SessionUp     bool   `json:"session_up"`
	Devices       int    `json:"devices"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// Config holds configuration for the health reporter.
type Config struct {
	// BridgeID identifies this bridge in health messages.
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Topic is the status topic to publish to.
	Topic string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher Publisher

	// SessionUp reports whether a device session is currently
	// established. Typically Supervisor.Connected.
	SessionUp func() bool

	// DeviceCount reports the current registry population.
	// Typically Registry.Len.
	DeviceCount func() int
}

// Reporter publishes periodic health status to MQTT.
type Reporter struct {
	cfg       Config
	startTime time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewReporter creates a health reporter. Call Start to begin reporting.
func NewReporter(cfg Config) *Reporter {
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	return &Reporter{
		cfg:       cfg,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting. Call Stop to shut down.
func (r *Reporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reportLoop(ctx)
}

// Stop gracefully stops reporting and publishes a final "stopping"
// status. Safe to call multiple times.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		//nolint:errcheck // best-effort during shutdown
		r.publishStatus(StatusStopping, "bridge stopping")
	})
}

// PublishStarting publishes a "starting" status during initialisation.
func (r *Reporter) PublishStarting() error {
	return r.publishStatus(StatusStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately.
// Useful after a significant event such as a device change.
func (r *Reporter) PublishNow() error {
	status, reason := r.determineStatus()
	return r.publishStatus(status, reason)
}

// reportLoop runs the periodic health reporting.
func (r *Reporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Initial status straight away, not one interval later.
	r.PublishNow() //nolint:errcheck // broker may still be connecting

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.PublishNow() //nolint:errcheck // transient publish failures are expected
		}
	}
}

// determineStatus evaluates the current bridge status.
func (r *Reporter) determineStatus() (Status, string) {
	if r.cfg.Publisher == nil || !r.cfg.Publisher.IsConnected() {
		return StatusDegraded, "MQTT disconnected"
	}
	if r.cfg.SessionUp == nil || !r.cfg.SessionUp() {
		return StatusDegraded, "device server disconnected"
	}
	return StatusHealthy, ""
}

// publishStatus publishes one health status message (QoS 1, retained).
func (r *Reporter) publishStatus(status Status, reason string) error {
	if r.cfg.Publisher == nil {
		return nil
	}

	var devices int
	if r.cfg.DeviceCount != nil {
		devices = r.cfg.DeviceCount()
	}
	sessionUp := r.cfg.SessionUp != nil && r.cfg.SessionUp()

	msg := Message{
		BridgeID:      r.cfg.BridgeID,
		Version:       r.cfg.Version,
		Status:        status,
		Reason:        reason,
		SessionUp:     sessionUp,
		Devices:       devices,
		UptimeSeconds: int64(time.Since(r.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return r.cfg.Publisher.Publish(r.cfg.Topic, payload, 1, true)
}
