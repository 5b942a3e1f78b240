package session

import "errors"

// Domain-specific errors for session management.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrServerDisconnect is returned when the device server drops the
	// session. The supervisor treats it as a signal to reconnect.
	ErrServerDisconnect = errors.New("session: server disconnected")

	// ErrScanFailed is returned when the server rejects a scan request.
	ErrScanFailed = errors.New("session: scan request failed")
)
