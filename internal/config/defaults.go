package config

// ApplyDefaults fills in zero-value fields with their default values.
func ApplyDefaults(cfg *Config) {
	// Runtime defaults.
	if cfg.Runtime.Engine == "" {
		cfg.Runtime.Engine = "poll"
	}
	if cfg.Runtime.Batch == 0 {
		cfg.Runtime.Batch = 32
	}
	if cfg.Runtime.AuxiliaryThreads == 0 {
		cfg.Runtime.AuxiliaryThreads = 2
	}
	if cfg.Runtime.Daemonize == nil {
		f := false
		cfg.Runtime.Daemonize = &f
	}
	if cfg.Runtime.LogLevel == "" {
		cfg.Runtime.LogLevel = "info"
	}
	if cfg.Runtime.LogFormat == "" {
		cfg.Runtime.LogFormat = "json"
	}
	if cfg.Runtime.LogMaxbytes == "" {
		cfg.Runtime.LogMaxbytes = "50MB"
	}
	if cfg.Runtime.LogBackups == 0 {
		cfg.Runtime.LogBackups = 5
	}

	// Metrics defaults.
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "127.0.0.1:9090"
	}

	// Role defaults.
	for name, r := range cfg.Roles {
		if r.Type == "" {
			r.Type = "worker"
		}
		if r.Spawn == "" {
			if r.Command != "" {
				r.Spawn = "exec"
			} else {
				r.Spawn = "fork"
			}
		}
		if r.Count == 0 {
			r.Count = 1
		}
		cfg.Roles[name] = r
	}
}
