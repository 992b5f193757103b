// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDSN is the MySQL DSN for the punch store. Empty selects the
	// in-memory store.
	DBDSN string `koanf:"db_dsn"`

	// Timezone names the location used for calendar dates and
	// offset-less timestamps.
	Timezone string `koanf:"timezone"`

	// QueueSize bounds the in-memory notification queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of notification workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxRangeDays caps the from/to span of listing queries.
	MaxRangeDays int `koanf:"max_range_days"`

	// EarlyEntryThresholdMinutes documents how far before the shift an
	// entrada is flagged upstream. Informational; the flag itself
	// arrives on the punch.
	EarlyEntryThresholdMinutes int `koanf:"early_entry_threshold_minutes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		Addr:                       ":9080",
		DBDSN:                      "",
		Timezone:                   "Europe/Madrid",
		QueueSize:                  10_000,
		WorkerCount:                runtime.NumCPU() * 2,
		MaxRangeDays:               92,
		EarlyEntryThresholdMinutes: 15,
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
