// Package buttplug implements a Buttplug-protocol client for talking to
// an Intiface Central (or compatible) device server over a websocket.
//
// This package manages:
//   - Websocket connection and protocol handshake (spec message version 2)
//   - Request/response correlation by message ID
//   - Device discovery (scanning plus the server's existing device list)
//   - Device handles with per-motor speed tracking
//   - Keepalive pings honouring the server's MaxPingTime
//
// # Architecture
//
// One Client is one session. The event channel exists from construction
// so callers subscribe before Connect and never miss the device-added
// events replayed for devices the server already holds. When the
// connection dies, the client emits EventDisconnected, closes the event
// stream, and is spent; reconnection means a fresh Client.
//
//	OSC commands → Registry → Device handles → Client → Intiface server
//
// # Usage
//
//	client := buttplug.New(buttplug.Config{
//	    URL:        "ws://127.0.0.1:12345",
//	    ClientName: "pulsebridge",
//	})
//	events := client.Events()
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	for ev := range events {
//	    switch ev.Kind {
//	    case buttplug.EventDeviceAdded:
//	        ev.Device.Vibrate(ctx, 0.5)
//	    }
//	}
package buttplug
