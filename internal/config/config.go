// Package config handles loading and validating unitd configuration.
package config

// Config is the top-level unitd configuration.
type Config struct {
	Runtime Runtime         `toml:"runtime"`
	Roles   map[string]Role `toml:"roles"`
	Metrics Metrics         `toml:"metrics"`
	Include []string        `toml:"include"`
}

// Runtime holds daemon-level settings.
type Runtime struct {
	Engine           string `toml:"engine"`
	Batch            int    `toml:"batch"`
	AuxiliaryThreads int    `toml:"auxiliary_threads"`
	Pidfile          string `toml:"pidfile"`
	Daemonize        *bool  `toml:"daemonize"`
	User             string `toml:"user"`
	Group            string `toml:"group"`
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
	Logfile          string `toml:"logfile"`
	LogMaxbytes      string `toml:"log_maxbytes"`
	LogBackups       int    `toml:"log_backups"`
}

// Role holds per-role settings. Fork roles run in-image under a role
// type; exec roles launch an external binary.
type Role struct {
	Type    string            `toml:"type"`
	Spawn   string            `toml:"spawn"`
	User    string            `toml:"user"`
	Group   string            `toml:"group"`
	Stream  uint32            `toml:"stream"`
	Count   int               `toml:"count"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// Metrics holds the Prometheus endpoint settings.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}
