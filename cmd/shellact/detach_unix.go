//go:build !windows

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// configureDetachAttrs starts the child in a new session so it has no
// controlling terminal and outlives the invoker.
func configureDetachAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session
	}
}

// decoupleFromParent finishes the detachment inside the re-exec child.
func decoupleFromParent() {
	_ = os.Chdir("/")
	syscall.Umask(0)
}
