package config

import (
	"strings"
	"testing"
)

func TestExpandTemplateVars(t *testing.T) {
	ctx := ExpandContext{Here: "/etc/unitd", RoleName: "router", Count: 4}

	cases := []struct {
		in, want string
	}{
		{"%(here)s/run.pid", "/etc/unitd/run.pid"},
		{"worker-%(role_name)s", "worker-router"},
		{"%(instance_num)d of %(count)d", "0 of 4"},
		{"100%% done", "100% done"},
		{"no vars", "no vars"},
	}
	for _, c := range cases {
		got, err := ExpandString(c.in, ctx)
		if err != nil {
			t.Fatalf("ExpandString(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ExpandString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExpandUnknownTemplateVar(t *testing.T) {
	if _, err := ExpandString("%(bogus)s", ExpandContext{}); err == nil {
		t.Fatal("expected error for unknown variable")
	}
}

func TestExpandUnclosedTemplateVar(t *testing.T) {
	_, err := ExpandString("%(here", ExpandContext{})
	if err == nil || !strings.Contains(err.Error(), "unclosed") {
		t.Fatalf("err = %v, want unclosed error", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("UNITD_TEST_HOME", "/srv/app")

	got, err := ExpandString("${UNITD_TEST_HOME}/bin", ExpandContext{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/srv/app/bin" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandUndefinedEnvVar(t *testing.T) {
	_, err := ExpandString("${UNITD_TEST_UNDEFINED_VAR}", ExpandContext{})
	if err == nil || !strings.Contains(err.Error(), "undefined environment variable") {
		t.Fatalf("err = %v", err)
	}
}

func TestExpandEscapedDollar(t *testing.T) {
	got, err := ExpandString("cost: $$5", ExpandContext{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "cost: $5" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandVariablesConfig(t *testing.T) {
	t.Setenv("UNITD_TEST_BIN", "/opt/bin")

	cfg := &Config{
		Runtime: Runtime{Pidfile: "%(here)s/unitd.pid"},
		Roles: map[string]Role{
			"app": {
				Command: "${UNITD_TEST_BIN}/app",
				Args:    []string{"--name", "%(role_name)s"},
				Env:     map[string]string{"HOME": "${UNITD_TEST_BIN}"},
			},
		},
	}
	if err := ExpandVariables(cfg, "/etc/unitd/unitd.toml"); err != nil {
		t.Fatal(err)
	}

	if cfg.Runtime.Pidfile != "/etc/unitd/unitd.pid" {
		t.Fatalf("pidfile = %q", cfg.Runtime.Pidfile)
	}
	app := cfg.Roles["app"]
	if app.Command != "/opt/bin/app" {
		t.Fatalf("command = %q", app.Command)
	}
	if app.Args[1] != "app" {
		t.Fatalf("args = %v", app.Args)
	}
	if app.Env["HOME"] != "/opt/bin" {
		t.Fatalf("env = %v", app.Env)
	}
}
