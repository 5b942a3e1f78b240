// Package command parses OSC-addressed device commands for PulseBridge.
//
// The parser is a pure function over an address string and its typed
// argument list: no shared state, no side effects. It accepts the three
// command shapes carried on the wire (stop, uniform vibrate, single-motor
// vibrate) and rejects everything else with sentinel errors the dispatcher
// logs and drops.
package command
