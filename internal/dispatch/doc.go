// Package dispatch fans incoming OSC control messages out to devices.
//
// The Dispatcher implements osc.Dispatcher, so the UDP server hands it
// every packet it receives. Each message is parsed into a command,
// matched against the registry's current snapshot, and queued as one
// invocation per resolved device.
//
// # Flow Control
//
// Invocations run on a bounded worker pool. The pool absorbs bursts
// from pattern generators sending on every frame; when the queue fills,
// the newest invocations are dropped and counted rather than blocking
// the receive path. Dropping is acceptable here: the traffic is a
// stream of absolute speed levels, so the next packet supersedes the
// lost one.
//
// # Error Handling
//
// Malformed messages and failed device commands are logged and dropped.
// Nothing from the network may take the bridge down.
package dispatch
