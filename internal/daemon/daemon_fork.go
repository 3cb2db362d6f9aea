//go:build unix && (!linux || !arm64)

package daemon

import "syscall"

func sysFork() (pid int, child bool, err error) {
	p, _, errno := syscall.RawSyscall(syscall.SYS_FORK, 0, 0, 0)
	if errno != 0 {
		return 0, false, errno
	}
	if p == 0 {
		return 0, true, nil
	}
	return int(p), false, nil
}

func sysDup2(oldfd, newfd int) error {
	return syscall.Dup2(oldfd, newfd)
}
