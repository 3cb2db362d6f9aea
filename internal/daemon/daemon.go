// Package daemon detaches the top-level process from its controlling
// terminal for background operation and manages the pid file.
package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"syscall"
)

// Seams, overridden in tests.
var (
	forkDetach = sysFork
	setsid     = func() error { _, err := syscall.Setsid(); return err }
	umask      = syscall.Umask
	dup2       = sysDup2
	openNull   = func() (*os.File, error) {
		return os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
)

// Detach forks the process into the background. It returns parent=true
// in the original process, which should exit without further work. In
// the child it detaches from the controlling session, resets the
// file-creation mask, and redirects stdin and stdout to the null
// device; stderr stays attached so late startup errors remain visible.
//
// A failing step is reported with its name and does not roll back the
// steps before it. The caller decides whether a partial detach is
// fatal.
func Detach(logger *slog.Logger) (parent bool, err error) {
	pid, child, err := forkDetach()
	if err != nil {
		return false, fmt.Errorf("fork: %w", err)
	}
	if !child {
		logger.Debug("detached", "pid", pid)
		return true, nil
	}

	if err := setsid(); err != nil {
		return false, fmt.Errorf("setsid: %w", err)
	}

	umask(0)

	devNull, err := openNull()
	if err != nil {
		return false, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	fd := int(devNull.Fd())
	if err := dup2(fd, int(os.Stdin.Fd())); err != nil {
		return false, fmt.Errorf("dup2 stdin: %w", err)
	}
	if err := dup2(fd, int(os.Stdout.Fd())); err != nil {
		return false, fmt.Errorf("dup2 stdout: %w", err)
	}
	if fd != int(os.Stderr.Fd()) {
		devNull.Close()
	}

	logger.Info("daemonized", "pid", os.Getpid())
	return false, nil
}

// WritePIDFile writes the current pid to path. An empty path is a
// no-op.
func WritePIDFile(path string) error {
	if path == "" {
		return nil
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write PID file: %s: %w", path, err)
	}
	return nil
}

// RemovePIDFile removes the pid file if it exists.
func RemovePIDFile(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
