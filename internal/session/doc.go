// Package session manages the lifecycle of device server sessions.
//
// This package manages:
//   - One session at a time: connect, scan, fold device events into the
//     registry (Manager)
//   - Reconnection for the life of the process, with capped exponential
//     backoff (Supervisor)
//
// # Architecture
//
// A Manager drives exactly one session and is discarded when it ends.
// It subscribes to the client's event stream before connecting, so the
// device announcements a server replays for already-paired devices are
// never lost. Each added device is published to the registry under its
// normalised name and as the "last" alias; removals are logged and
// trigger a rescan, but never evict registry entries. Commands sent to
// a gone device fail at the server and surface in dispatcher logs.
//
// The Supervisor wraps the Manager in an infinite reconnect loop:
//
//	Supervisor.Run → Manager.Run → (session ends) → backoff → repeat
//
// Backoff doubles per failure up to a cap, and resets once a session
// has stayed up past the established threshold.
package session
