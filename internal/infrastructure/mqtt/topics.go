package mqtt

import "fmt"

// topicPrefix roots every topic the bridge publishes.
const topicPrefix = "pulsebridge"

// Topics builds the bridge's MQTT topic names.
//
// Topic structure:
//
//	pulsebridge/status                      - bridge online/offline/health (retained)
//	pulsebridge/device/{name}/status        - per-device connected/disconnected (retained)
//	pulsebridge/event/{kind}                - transient session events
//
// Device names in topics are the registry's normalised names, so they
// are already free of MQTT-hostile characters.
type Topics struct{}

// Status returns the bridge status topic.
func (Topics) Status() string {
	return topicPrefix + "/status"
}

// DeviceStatus returns the status topic for one device.
func (Topics) DeviceStatus(name string) string {
	return fmt.Sprintf("%s/device/%s/status", topicPrefix, name)
}

// Event returns the topic for a transient session event kind.
func (Topics) Event(kind string) string {
	return fmt.Sprintf("%s/event/%s", topicPrefix, kind)
}
