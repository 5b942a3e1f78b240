package buttplug

import (
	"context"
	"fmt"
	"sync"
)

// Device is a handle onto one server-managed device. Handles stay valid
// for their whole session; commands against a device the server no
// longer has come back as server errors.
//
// Each handle remembers the last speed set per motor, so single-motor
// updates resubmit the full speed map and never zero untouched motors.
//
// Thread Safety: all methods are safe for concurrent use.
type Device struct {
	client *Client
	index  uint32
	name   string

	// features is the motor count. Zero means the device cannot vibrate.
	features uint32

	mu     sync.Mutex
	speeds []float64
}

// newDevice builds a handle from the server's device description.
func newDevice(c *Client, info deviceInfo) *Device {
	var features uint32
	if attrs, ok := info.DeviceMessages["VibrateCmd"]; ok {
		features = attrs.FeatureCount
		if features == 0 {
			// Some servers omit the count; one motor is the safe read.
			features = 1
		}
	}
	return &Device{
		client:   c,
		index:    info.DeviceIndex,
		name:     info.DeviceName,
		features: features,
		speeds:   make([]float64, features),
	}
}

// Name returns the device name as reported by the server.
func (d *Device) Name() string {
	return d.name
}

// Index returns the server-assigned device index.
func (d *Device) Index() uint32 {
	return d.index
}

// FeatureCount returns the number of vibration motors.
func (d *Device) FeatureCount() uint32 {
	return d.features
}

// Vibrate sets every motor to the given speed. Speed is clamped to
// [0.0, 1.0].
func (d *Device) Vibrate(ctx context.Context, speed float64) error {
	if d.features == 0 {
		return fmt.Errorf("%w: %s has no vibration motors", ErrNotSupported, d.name)
	}
	speed = clampSpeed(speed)

	d.mu.Lock()
	for i := range d.speeds {
		d.speeds[i] = speed
	}
	cmd := d.buildVibrateLocked()
	d.mu.Unlock()

	return d.sendVibrate(ctx, cmd)
}

// VibrateMotor sets one motor's speed, leaving the others at their last
// set value. Speed is clamped to [0.0, 1.0].
func (d *Device) VibrateMotor(ctx context.Context, motor uint32, speed float64) error {
	if d.features == 0 {
		return fmt.Errorf("%w: %s has no vibration motors", ErrNotSupported, d.name)
	}
	if motor >= d.features {
		return fmt.Errorf("%w: motor %d on %s (device has %d)", ErrNoSuchMotor, motor, d.name, d.features)
	}
	speed = clampSpeed(speed)

	d.mu.Lock()
	d.speeds[motor] = speed
	cmd := d.buildVibrateLocked()
	d.mu.Unlock()

	return d.sendVibrate(ctx, cmd)
}

// Stop halts the device and resets the remembered motor speeds.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	for i := range d.speeds {
		d.speeds[i] = 0
	}
	d.mu.Unlock()

	_, err := d.client.sendRequest(ctx, func(id uint32) envelope {
		return envelope{StopDeviceCmd: &stopDeviceCmd{ID: id, DeviceIndex: d.index}}
	})
	if err != nil {
		return fmt.Errorf("stop %s: %w", d.name, err)
	}
	return nil
}

// buildVibrateLocked snapshots the speed map into a command. Caller
// holds d.mu.
func (d *Device) buildVibrateLocked() []motorSpeed {
	speeds := make([]motorSpeed, len(d.speeds))
	for i, s := range d.speeds {
		speeds[i] = motorSpeed{Index: uint32(i), Speed: s}
	}
	return speeds
}

func (d *Device) sendVibrate(ctx context.Context, speeds []motorSpeed) error {
	_, err := d.client.sendRequest(ctx, func(id uint32) envelope {
		return envelope{VibrateCmd: &vibrateCmd{ID: id, DeviceIndex: d.index, Speeds: speeds}}
	})
	if err != nil {
		return fmt.Errorf("vibrate %s: %w", d.name, err)
	}
	return nil
}

func clampSpeed(speed float64) float64 {
	switch {
	case speed < 0:
		return 0
	case speed > 1:
		return 1
	default:
		return speed
	}
}
