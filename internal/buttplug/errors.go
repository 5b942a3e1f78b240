package buttplug

import "errors"

// Domain-specific errors for device session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the websocket dial fails.
	ErrConnectionFailed = errors.New("buttplug: connection failed")

	// ErrHandshakeFailed is returned when the protocol handshake is
	// rejected or times out.
	ErrHandshakeFailed = errors.New("buttplug: handshake failed")

	// ErrConnectionClosed is returned for operations on a closed session.
	ErrConnectionClosed = errors.New("buttplug: connection closed")

	// ErrWriteFailed is returned when a message cannot be written to the
	// connection.
	ErrWriteFailed = errors.New("buttplug: write failed")

	// ErrTimeout is returned when the server does not answer a request
	// within the request timeout.
	ErrTimeout = errors.New("buttplug: request timed out")

	// ErrServerError is returned when the server answers a request with
	// a protocol error message.
	ErrServerError = errors.New("buttplug: server error")

	// ErrNotSupported is returned for commands a device cannot perform.
	ErrNotSupported = errors.New("buttplug: command not supported")

	// ErrNoSuchMotor is returned when a motor index exceeds the device's
	// feature count.
	ErrNoSuchMotor = errors.New("buttplug: no such motor")
)
