// Package config provides configuration loading for PulseBridge.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then
// PULSEBRIDGE_* environment variables, then command-line flags applied by
// the caller. Validation runs after all layers; a bad OSC listen scheme or
// websocket URL is a fatal startup error, matching the rule that only
// configuration errors may stop the bridge from starting.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	addr, _ := cfg.OSCListenAddr() // validated host:port for the UDP socket
package config
