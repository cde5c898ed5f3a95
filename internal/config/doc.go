// Package config manages gamepadctl's user preferences.
//
// Preferences live in a YAML file at $XDG_CONFIG_HOME/gamepadctl/config.yaml
// (or $HOME/.config/gamepadctl/config.yaml). The file is optional; a
// missing file yields the defaults.
//
// No device data is stored here. The Bluetooth daemon is the only source of
// truth for which controllers exist, their names and their pairing state.
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	refresh := cfg.Preferences.RefreshInterval()
//
// # File Format
//
//	version: 1
//	preferences:
//	    refresh_interval_seconds: 10
//	    tick_interval_seconds: 1
//	    reconnect_window_seconds: 60
//	    discovery_timeout_seconds: 60
//	    power_supply_dir: /sys/class/power_supply
//	    status_listen: 127.0.0.1:7321
//	    log_level: ""
package config
