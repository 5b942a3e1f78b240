// Package registry provides the concurrent device registry for PulseBridge.
//
// The registry is the sole shared state between the two long-running
// activities of the bridge: the session event loop (the single writer,
// adding devices as the server reports them) and the OSC dispatch loop
// (many readers, resolving device-set expressions against the current
// snapshot).
//
// # Concurrency model
//
// Readers never lock. The visible state is an immutable Snapshot swapped
// atomically by the writer's Publish; a reader holding a snapshot sees a
// consistent view regardless of concurrent staging. The writer handle is
// exclusive and blocking to acquire, which hands it off cleanly from a
// dead session instance to its replacement during reconnects.
//
// # Lifecycle
//
// Entries are created on device-added events and never deleted. A removed
// device's entry goes stale rather than being evicted (invoking its
// handle fails harmlessly), and the "last" alias may briefly point at a
// disconnected device until the next addition. See Resolve for how set
// expressions (exact name, prefix, "all", "last") map to devices.
package registry
