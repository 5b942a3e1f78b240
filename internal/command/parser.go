package command

import (
	"fmt"
	"math"
	"strings"
)

// Parse validates an addressed OSC message against the command grammar and
// returns the broadcast it describes.
//
// Recognised address shapes:
//
//	/devices/<set>/stop
//	/devices/<set>/vibrate/speed        args: [speed float]
//	/devices/<set>/vibrateMap/speedMap  args: [motor numeric, speed float]
//
// <set> is carried through uninterpreted. Any other shape, argument count,
// or argument type is a validation error; callers log it and drop the
// message, nothing in the parse path is fatal.
func Parse(address string, args []any) (Broadcast, error) {
	segs := strings.Split(address, "/")
	// A well-formed address starts with "/", leaving an empty leading
	// segment: ["", "devices", <set>, <op>, ...].
	if len(segs) < 4 || segs[0] != "" || segs[1] != "devices" {
		return Broadcast{}, fmt.Errorf("%w: %q", ErrInvalidMessage, address)
	}

	set := segs[2]
	if set == "" {
		return Broadcast{}, fmt.Errorf("%w: empty device set in %q", ErrInvalidMessage, address)
	}

	switch segs[3] {
	case "stop":
		if len(segs) != 4 {
			return Broadcast{}, fmt.Errorf("%w: %q", ErrInvalidCommand, address)
		}
		if err := exactArity(args, 0); err != nil {
			return Broadcast{}, err
		}
		return Broadcast{Set: set, Command: Command{Kind: KindStop}}, nil

	case "vibrate":
		if len(segs) != 5 || segs[4] != "speed" {
			return Broadcast{}, fmt.Errorf("%w: %q", ErrInvalidCommand, address)
		}
		if err := exactArity(args, 1); err != nil {
			return Broadcast{}, err
		}
		speed, err := floatArg(args, 0)
		if err != nil {
			return Broadcast{}, err
		}
		return Broadcast{Set: set, Command: Command{Kind: KindVibrate, Speed: speed}}, nil

	case "vibrateMap":
		if len(segs) != 5 || segs[4] != "speedMap" {
			return Broadcast{}, fmt.Errorf("%w: %q", ErrInvalidCommand, address)
		}
		if err := exactArity(args, 2); err != nil {
			return Broadcast{}, err
		}
		motor, err := motorArg(args, 0)
		if err != nil {
			return Broadcast{}, err
		}
		speed, err := floatArg(args, 1)
		if err != nil {
			return Broadcast{}, err
		}
		return Broadcast{Set: set, Command: Command{Kind: KindVibrateMap, Motor: motor, Speed: speed}}, nil

	default:
		return Broadcast{}, fmt.Errorf("%w: %q", ErrInvalidCommand, address)
	}
}

// exactArity rejects argument lists that are not exactly the operation's
// arity. Surplus arguments fail validation the same as missing ones.
func exactArity(args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: expected %d argument(s), got %d", ErrBadArgument, want, len(args))
	}
	return nil
}

// floatArg extracts a float-like argument: single or double precision,
// coerced to float64. Any other type fails validation.
func floatArg(args []any, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing argument %d", ErrBadArgument, i)
	}
	switch v := args[i].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: argument %d: expected float, got %T (%v)",
			ErrBadArgument, i, args[i], args[i])
	}
}

// motorArg extracts a motor index: any numeric type coerced to an unsigned
// integer. Negative or fractional-overflow values fail validation.
func motorArg(args []any, i int) (uint32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing argument %d", ErrBadArgument, i)
	}

	var n int64
	switch v := args[i].(type) {
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float32:
		n = int64(v)
	case float64:
		n = int64(v)
	default:
		return 0, fmt.Errorf("%w: argument %d: expected numeric motor index, got %T (%v)",
			ErrBadArgument, i, args[i], args[i])
	}

	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: argument %d: motor index %d out of range",
			ErrBadArgument, i, n)
	}
	return uint32(n), nil
}
