package command

import "fmt"

// Kind discriminates the command variants.
type Kind int

const (
	// KindStop halts all motors on the matched devices.
	KindStop Kind = iota

	// KindVibrate sets a uniform vibration speed.
	KindVibrate

	// KindVibrateMap sets one motor's speed.
	KindVibrateMap
)

// String returns the command kind as it appears in logs and telemetry.
func (k Kind) String() string {
	switch k {
	case KindStop:
		return "stop"
	case KindVibrate:
		return "vibrate"
	case KindVibrateMap:
		return "vibrateMap"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Command is one validated device command.
//
// Speed is nominally in [0,1] but deliberately unchecked: the device
// session clamps or rejects out-of-range values itself.
type Command struct {
	Kind  Kind
	Speed float64

	// Motor is the motor index, meaningful only for KindVibrateMap.
	Motor uint32
}

// Broadcast pairs a command with the device-set expression naming its
// targets. The expression is carried through uninterpreted; the registry
// resolver gives it meaning.
type Broadcast struct {
	Set     string
	Command Command
}
