package buttplug

import "fmt"

// EventKind discriminates session events.
type EventKind int

const (
	// EventDeviceAdded reports a newly connected device.
	EventDeviceAdded EventKind = iota

	// EventDeviceRemoved reports a device leaving the server.
	// Event.Device may be nil if the server removed a device this
	// client never saw added.
	EventDeviceRemoved

	// EventScanningFinished reports the server finishing a scan pass.
	EventScanningFinished

	// EventDisconnected reports the session ending. The events channel
	// is closed after this event.
	EventDisconnected
)

// String returns the event kind for logging.
func (k EventKind) String() string {
	switch k {
	case EventDeviceAdded:
		return "device_added"
	case EventDeviceRemoved:
		return "device_removed"
	case EventScanningFinished:
		return "scanning_finished"
	case EventDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one occurrence on the session's event stream.
type Event struct {
	Kind   EventKind
	Device *Device // set for device events
	Err    error   // set for EventDisconnected
}
