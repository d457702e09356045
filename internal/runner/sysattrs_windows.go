//go:build windows

package runner

import "os/exec"

func configureSysProcAttr(_ *exec.Cmd) {}
