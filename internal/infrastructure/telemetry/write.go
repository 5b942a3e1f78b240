package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordCommand writes one device invocation to the command measurement.
//
// The write is non-blocking; data is batched and sent asynchronously.
// This satisfies the dispatcher's Recorder interface.
//
// Parameters:
//   - device: The registry name of the target device
//   - kind: The command kind ("stop", "vibrate", "vibrateMap")
//   - speed: The commanded speed (0 for stop)
func (c *Client) RecordCommand(device, kind string, speed float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"commands",
		map[string]string{
			"device": device,
			"kind":   kind,
		},
		map[string]interface{}{
			"speed": speed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordSessionEvent writes one session lifecycle event.
//
// Parameters:
//   - event: The event name (e.g., "connected", "disconnected",
//     "device_added", "device_removed")
//   - device: The device name, or "" for bridge-level events
func (c *Client) RecordSessionEvent(event, device string) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{"event": event}
	if device != "" {
		tags["device"] = device
	}

	point := write.NewPoint(
		"session_events",
		tags,
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordDeviceCount writes the current registry population, sampled by
// the health reporter.
func (c *Client) RecordDeviceCount(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"registry",
		nil,
		map[string]interface{}{
			"devices": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
