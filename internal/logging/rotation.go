package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RotationConfig configures size-based rotation of the daemon log file.
type RotationConfig struct {
	Maxbytes string // e.g. "50MB", "0" means unlimited
	Backups  int    // number of backup files to keep
}

// RotateIfNeeded checks the file size and rotates if necessary. Called
// before the daemon reopens its log file.
func RotateIfNeeded(path string, cfg RotationConfig) error {
	maxBytes := ParseSize(cfg.Maxbytes)
	if maxBytes == 0 {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil // file doesn't exist yet
	}
	if info.Size() < maxBytes {
		return nil
	}

	return rotateFile(path, cfg.Backups)
}

func rotateFile(path string, backups int) error {
	if backups == 0 {
		return os.Truncate(path, 0)
	}

	// Rotate: .N-1 -> .N, ... , .1 -> .2, file -> .1
	oldest := fmt.Sprintf("%s.%d", path, backups)
	os.Remove(oldest)

	// Shift existing backups (missing intermediates are expected).
	for i := backups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", path, i)
		dst := fmt.Sprintf("%s.%d", path, i+1)
		_ = os.Rename(src, dst)
	}

	return os.Rename(path, path+".1")
}

// ParseSize parses a human-readable size string to bytes. Supports B,
// KB, MB, GB suffixes; bare numbers are bytes.
func ParseSize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0
	}

	s = strings.ToUpper(s)
	var multiplier int64 = 1

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	s = strings.TrimSpace(s)
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}
