//go:build !linux

package process

import "os"

// No portable thread-id query; the pid is the best stand-in.
func gettid() int {
	return os.Getpid()
}
