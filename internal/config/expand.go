package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandContext holds variables available for expansion.
type ExpandContext struct {
	Here        string // directory of the config file
	RoleName    string
	InstanceNum int
	Count       int
}

// ExpandVariables expands template variables and environment references
// in all string fields of a config, given the config file path.
func ExpandVariables(cfg *Config, configPath string) error {
	ctx := ExpandContext{
		Here: filepath.Dir(configPath),
	}

	var err error
	cfg.Runtime.Pidfile, err = expandString(cfg.Runtime.Pidfile, ctx)
	if err != nil {
		return fmt.Errorf("runtime.pidfile: %w", err)
	}
	cfg.Runtime.Logfile, err = expandString(cfg.Runtime.Logfile, ctx)
	if err != nil {
		return fmt.Errorf("runtime.logfile: %w", err)
	}

	for name, r := range cfg.Roles {
		rCtx := ctx
		rCtx.RoleName = name
		rCtx.Count = r.Count

		r.Command, err = expandString(r.Command, rCtx)
		if err != nil {
			return fmt.Errorf("roles.%s.command: %w", name, err)
		}
		for i, a := range r.Args {
			r.Args[i], err = expandString(a, rCtx)
			if err != nil {
				return fmt.Errorf("roles.%s.args[%d]: %w", name, i, err)
			}
		}
		r.User, err = expandString(r.User, rCtx)
		if err != nil {
			return fmt.Errorf("roles.%s.user: %w", name, err)
		}

		for k, v := range r.Env {
			expanded, err := expandString(v, rCtx)
			if err != nil {
				return fmt.Errorf("roles.%s.env.%s: %w", name, k, err)
			}
			r.Env[k] = expanded
		}

		cfg.Roles[name] = r
	}

	return nil
}

// expandString expands all template variables and env references in a
// single string.
func expandString(s string, ctx ExpandContext) (string, error) {
	if s == "" {
		return s, nil
	}

	// Phase 1: expand %(variable)s and %(variable)d patterns.
	result, err := expandTemplateVars(s, ctx)
	if err != nil {
		return "", err
	}

	// Phase 2: expand ${ENV_VAR} references.
	result, err = expandEnvVars(result)
	if err != nil {
		return "", err
	}

	// Phase 3: unescape %% -> % and $$ -> $.
	result = strings.ReplaceAll(result, "%%", "%")
	result = strings.ReplaceAll(result, "$$", "$")

	return result, nil
}

func expandTemplateVars(s string, ctx ExpandContext) (string, error) {
	var result strings.Builder
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '%' && s[i+1] == '%' {
			// Escaped percent, preserved for later unescaping.
			result.WriteString("%%")
			i += 2
			continue
		}

		if i+1 < len(s) && s[i] == '%' && s[i+1] == '(' {
			// Find closing )s or )d.
			end := strings.Index(s[i:], ")s")
			endD := strings.Index(s[i:], ")d")
			if end < 0 && endD < 0 {
				return "", fmt.Errorf("unclosed template variable at position %d in %q", i, s)
			}

			var varName string
			var advance int
			if end >= 0 && (endD < 0 || end < endD) {
				varName = s[i+2 : i+end]
				advance = end + 2
			} else {
				varName = s[i+2 : i+endD]
				advance = endD + 2
			}

			val, err := resolveTemplateVar(varName, ctx)
			if err != nil {
				return "", err
			}
			result.WriteString(val)
			i += advance
			continue
		}

		result.WriteByte(s[i])
		i++
	}

	return result.String(), nil
}

func resolveTemplateVar(name string, ctx ExpandContext) (string, error) {
	switch name {
	case "here":
		return ctx.Here, nil
	case "role_name":
		return ctx.RoleName, nil
	case "instance_num":
		return fmt.Sprintf("%d", ctx.InstanceNum), nil
	case "count":
		return fmt.Sprintf("%d", ctx.Count), nil
	default:
		return "", fmt.Errorf("unknown template variable: %%(%.0s)s", name)
	}
}

func expandEnvVars(s string) (string, error) {
	var result strings.Builder
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '$' && s[i+1] == '$' {
			// Escaped dollar, preserved for later unescaping.
			result.WriteString("$$")
			i += 2
			continue
		}

		if i+1 < len(s) && s[i] == '$' && s[i+1] == '{' {
			end := strings.Index(s[i:], "}")
			if end < 0 {
				return "", fmt.Errorf("unclosed environment variable reference at position %d in %q", i, s)
			}

			varName := s[i+2 : i+end]
			val, ok := os.LookupEnv(varName)
			if !ok {
				return "", fmt.Errorf("undefined environment variable: ${%s}", varName)
			}
			result.WriteString(val)
			i += end + 1
			continue
		}

		result.WriteByte(s[i])
		i++
	}

	return result.String(), nil
}

// ExpandString is exported for use by other packages needing
// single-value expansion.
func ExpandString(s string, ctx ExpandContext) (string, error) {
	return expandString(s, ctx)
}
