package command

import "errors"

// Validation errors for inbound messages.
// Use errors.Is() to classify a parse failure; all of them are
// diagnostics, never fatal to the dispatch loop.
var (
	// ErrInvalidMessage is returned when the address does not have the
	// /devices/<set>/... shape at all.
	ErrInvalidMessage = errors.New("command: invalid message")

	// ErrInvalidCommand is returned when the address names an unknown
	// or malformed operation.
	ErrInvalidCommand = errors.New("command: invalid command")

	// ErrBadArgument is returned when an argument is missing or has the
	// wrong type for the operation.
	ErrBadArgument = errors.New("command: bad argument")
)
