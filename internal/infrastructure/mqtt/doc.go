// Package mqtt provides optional MQTT status publishing for the bridge.
//
// This package manages:
//   - Connection to a broker with auto-reconnect
//   - Bridge and per-device status publishing (retained)
//   - Last Will and Testament (LWT) for crash detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is an integration surface, not a control path: commands only
// ever arrive over OSC. When enabled, the bridge publishes its own
// status, per-device connect/disconnect status, and transient session
// events, so home-automation dashboards can observe it.
//
//	pulsebridge → MQTT Broker → dashboards / automations
//
// The whole package is optional; with mqtt.enabled=false the bridge
// never touches a broker.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceStatus("LovenseEdge")
//	client.PublishRetained(topic, []byte(`{"status":"connected"}`))
package mqtt
