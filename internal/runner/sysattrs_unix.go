//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the action in its own process group so signals
// aimed at the harness never reach the command.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
