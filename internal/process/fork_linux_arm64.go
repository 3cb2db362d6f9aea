//go:build linux && arm64

package process

import "syscall"

// arm64 has no fork syscall; clone with SIGCHLD is the equivalent.
func sysFork() (pid int, child bool, err error) {
	p, _, errno := syscall.RawSyscall(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0)
	if errno != 0 {
		return 0, false, errno
	}
	if p == 0 {
		return 0, true, nil
	}
	return int(p), false, nil
}
