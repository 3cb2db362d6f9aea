package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithIncludes(t *testing.T) {
	dir := t.TempDir()
	main := writeConfig(t, dir, "unitd.toml", `
include = ["roles.d/*.toml"]

[roles.router]
type = "router"
`)
	rolesDir := filepath.Join(dir, "roles.d")
	if err := os.Mkdir(rolesDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, rolesDir, "app.toml", `
[roles.app]
type = "worker"
command = "/usr/bin/app"
`)

	cfg, warnings, err := LoadWithIncludes(main)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(cfg.Roles) != 2 {
		t.Fatalf("roles = %v, want router and app", cfg.Roles)
	}
	if cfg.Include != nil {
		t.Fatal("include list not cleared after resolution")
	}
}

func TestLoadWithIncludesNoMatch(t *testing.T) {
	dir := t.TempDir()
	main := writeConfig(t, dir, "unitd.toml", `
include = ["missing.d/*.toml"]
`)

	_, warnings, err := LoadWithIncludes(main)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "matched no files") {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestLoadWithIncludesDuplicateRole(t *testing.T) {
	dir := t.TempDir()
	main := writeConfig(t, dir, "unitd.toml", `
include = ["extra.toml"]

[roles.app]
type = "worker"
`)
	writeConfig(t, dir, "extra.toml", `
[roles.app]
type = "worker"
`)

	_, _, err := LoadWithIncludes(main)
	if err == nil || !strings.Contains(err.Error(), "duplicate role") {
		t.Fatalf("err = %v, want duplicate role error", err)
	}
}
