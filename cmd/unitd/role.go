package main

import (
	"os"

	"github.com/nginx-gists/unit/internal/process"
)

var roleTypes = map[string]process.Type{
	"controller": process.TypeController,
	"router":     process.TypeRouter,
	"worker":     process.TypeWorker,
	"aux":        process.TypeAux,
}

// roleType maps a validated config type tag to its runtime tag.
func roleType(s string) process.Type {
	if t, ok := roleTypes[s]; ok {
		return t
	}
	return process.TypeWorker
}

// buildEnv merges role-specific variables over the daemon environment.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}
