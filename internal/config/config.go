package config

import (
	"fmt"
	"time"

	"github.com/keewee/gamepadctl/internal/battery"
)

// CurrentVersion is the only supported file version.
const CurrentVersion = 1

// Default preference values.
const (
	DefaultRefreshSeconds   = 10
	DefaultTickSeconds      = 1
	DefaultReconnectWindow  = 60
	DefaultDiscoverySeconds = 60
	DefaultStatusListen     = "127.0.0.1:7321"
)

// Config is the whole configuration file.
type Config struct {
	Version     int          `yaml:"version"`
	Preferences *Preferences `yaml:"preferences,omitempty"`
}

// Preferences are the tunables of the control loop and collaborators.
type Preferences struct {
	RefreshIntervalSeconds  int    `yaml:"refresh_interval_seconds"`  // Periodic device refresh
	TickIntervalSeconds     int    `yaml:"tick_interval_seconds"`     // Reconnect countdown tick
	ReconnectWindowSeconds  int    `yaml:"reconnect_window_seconds"`  // Countdown shown per attempt
	DiscoveryTimeoutSeconds int    `yaml:"discovery_timeout_seconds"` // Scan budget during reconnect
	PowerSupplyDir          string `yaml:"power_supply_dir"`          // Battery report directory
	StatusListen            string `yaml:"status_listen"`             // Address for `gamepadctl serve`
	LogLevel                string `yaml:"log_level,omitempty"`       // debug, info, warn, error
}

// New returns a configuration with default values.
func New() *Config {
	return &Config{
		Version:     CurrentVersion,
		Preferences: DefaultPreferences(),
	}
}

// DefaultPreferences returns the default preferences.
func DefaultPreferences() *Preferences {
	return &Preferences{
		RefreshIntervalSeconds:  DefaultRefreshSeconds,
		TickIntervalSeconds:     DefaultTickSeconds,
		ReconnectWindowSeconds:  DefaultReconnectWindow,
		DiscoveryTimeoutSeconds: DefaultDiscoverySeconds,
		PowerSupplyDir:          battery.DefaultDir,
		StatusListen:            DefaultStatusListen,
	}
}

// applyDefaults fills zero values left out of a partial file.
func (p *Preferences) applyDefaults() {
	d := DefaultPreferences()
	if p.RefreshIntervalSeconds == 0 {
		p.RefreshIntervalSeconds = d.RefreshIntervalSeconds
	}
	if p.TickIntervalSeconds == 0 {
		p.TickIntervalSeconds = d.TickIntervalSeconds
	}
	if p.ReconnectWindowSeconds == 0 {
		p.ReconnectWindowSeconds = d.ReconnectWindowSeconds
	}
	if p.DiscoveryTimeoutSeconds == 0 {
		p.DiscoveryTimeoutSeconds = d.DiscoveryTimeoutSeconds
	}
	if p.PowerSupplyDir == "" {
		p.PowerSupplyDir = d.PowerSupplyDir
	}
	if p.StatusListen == "" {
		p.StatusListen = d.StatusListen
	}
}

// Validate checks that all intervals are positive and the log level is known.
func (p *Preferences) Validate() error {
	intervals := []struct {
		name  string
		value int
	}{
		{"refresh_interval_seconds", p.RefreshIntervalSeconds},
		{"tick_interval_seconds", p.TickIntervalSeconds},
		{"reconnect_window_seconds", p.ReconnectWindowSeconds},
		{"discovery_timeout_seconds", p.DiscoveryTimeoutSeconds},
	}
	for _, iv := range intervals {
		if iv.value <= 0 {
			return fmt.Errorf("%s must be greater than 0 (got %d)", iv.name, iv.value)
		}
	}

	switch p.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", p.LogLevel)
	}
	return nil
}

// RefreshInterval returns the periodic refresh interval.
func (p *Preferences) RefreshInterval() time.Duration {
	return time.Duration(p.RefreshIntervalSeconds) * time.Second
}

// TickInterval returns the countdown tick interval.
func (p *Preferences) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalSeconds) * time.Second
}

// DiscoveryTimeout returns the reconnect scan budget.
func (p *Preferences) DiscoveryTimeout() time.Duration {
	return time.Duration(p.DiscoveryTimeoutSeconds) * time.Second
}
