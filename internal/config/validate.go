package config

import (
	"fmt"
	"strings"
)

// validEngines lists the supported event-engine backends.
var validEngines = map[string]bool{
	"poll": true,
}

// validRoleTypes lists the allowed role type tags.
var validRoleTypes = map[string]bool{
	"controller": true, "router": true, "worker": true, "aux": true,
}

// validSpawnModes lists the allowed spawn paths.
var validSpawnModes = map[string]bool{
	"fork": true, "exec": true,
}

// Validate checks the config for semantic errors and returns all of
// them.
func Validate(cfg *Config) []error {
	var errs []error

	if !validEngines[cfg.Runtime.Engine] {
		errs = append(errs, fmt.Errorf("runtime: unknown engine %q", cfg.Runtime.Engine))
	}
	if cfg.Runtime.Batch < 1 {
		errs = append(errs, fmt.Errorf("runtime: batch must be >= 1, got %d", cfg.Runtime.Batch))
	}
	if cfg.Runtime.AuxiliaryThreads < 1 {
		errs = append(errs, fmt.Errorf("runtime: auxiliary_threads must be >= 1, got %d", cfg.Runtime.AuxiliaryThreads))
	}
	if cfg.Runtime.Group != "" && cfg.Runtime.User == "" {
		errs = append(errs, fmt.Errorf("runtime: group requires user"))
	}

	for name, r := range cfg.Roles {
		prefix := fmt.Sprintf("roles.%s", name)

		if !validRoleTypes[r.Type] {
			errs = append(errs, fmt.Errorf("%s: type must be controller, router, worker, or aux, got %q", prefix, r.Type))
		}
		if !validSpawnModes[r.Spawn] {
			errs = append(errs, fmt.Errorf("%s: spawn must be fork or exec, got %q", prefix, r.Spawn))
		}
		if r.Spawn == "exec" && strings.TrimSpace(r.Command) == "" {
			errs = append(errs, fmt.Errorf("%s: command is required for exec roles", prefix))
		}
		if r.Spawn == "fork" && r.Command != "" {
			errs = append(errs, fmt.Errorf("%s: command is only valid for exec roles", prefix))
		}
		if r.Group != "" && r.User == "" {
			errs = append(errs, fmt.Errorf("%s: group requires user", prefix))
		}
		if r.Count < 1 {
			errs = append(errs, fmt.Errorf("%s: count must be >= 1, got %d", prefix, r.Count))
		}
	}

	return errs
}
