// Package config assembles runtime settings for the capture agent from
// defaults, an optional JSON file and command-line flags, in that order of
// precedence.
package config

import "time"

// Config holds runtime settings for the capture agent.
//
// Fields:
//   - ListenAddr: host:port the local intake API binds to.
//   - BackendURL: base URL of the collection backend.
//   - DatabasePath: path of the local SQLite database.
//   - SweepInterval: how often the retry/eviction sweep runs.
//   - DeliveryTimeout: per-request bound on backend delivery attempts.
//   - MaxQueueAge: retention age for unsynced queue entries.
//   - OnlineCheckInterval: how often the agent probes backend reachability.
type Config struct {
	ListenAddr          string
	BackendURL          string
	DatabasePath        string
	SweepInterval       time.Duration
	DeliveryTimeout     time.Duration
	MaxQueueAge         time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "127.0.0.1:8765"
	c.BackendURL = "http://127.0.0.1:8000"
	c.DatabasePath = "webtrail.db"
	c.SweepInterval = 3 * time.Minute
	c.DeliveryTimeout = 10 * time.Second
	c.MaxQueueAge = 7 * 24 * time.Hour
	c.OnlineCheckInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
