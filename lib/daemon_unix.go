//go:build !windows

package login

import "syscall"

// detachedProcAttr puts the worker in its own session so it survives the
// terminal and the parent process.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
