//go:build linux && arm64

package daemon

import "syscall"

// arm64 has no fork or dup2 syscalls; clone with SIGCHLD and dup3 are
// the equivalents.
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

func sysDup2(oldfd, newfd int) error {
	return syscall.Dup3(oldfd, newfd, 0)
}
