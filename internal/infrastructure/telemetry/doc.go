// Package telemetry provides optional InfluxDB metrics for the bridge.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking batched writes (commands, session events, registry size)
//   - Health monitoring via ping
//
// # Measurements
//
//	commands        - one point per device invocation (tags: device, kind)
//	session_events  - session lifecycle (tags: event, device)
//	registry        - device count samples from the health reporter
//
// Writes are fire-and-forget: the batched WriteAPI buffers points and
// flushes on its own schedule, so recording a command never blocks a
// dispatch worker. Async write failures surface through SetOnError.
//
// The whole package is optional; with telemetry.enabled=false Connect
// returns ErrDisabled and the bridge runs without it.
package telemetry
