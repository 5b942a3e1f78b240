// Package health publishes periodic bridge health status over MQTT.
//
// The Reporter samples the device session state and the registry
// population on an interval and publishes a retained JSON status
// message, so dashboards always see the bridge's latest state. Status
// degrades when the broker or the device server connection is down; a
// final "stopping" status is published on shutdown.
//
// Only used when MQTT publishing is enabled.
package health
