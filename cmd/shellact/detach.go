package main

import (
	"fmt"
	"os"
	"os/exec"
)

// detachSpec carries everything the detached re-exec child needs on its
// command line; it cannot re-read the original stdin.
type detachSpec struct {
	ID         string
	RunDir     string
	ConfigPath string
	Argv       []string
}

// buildDetachedArgs builds the argument vector for the re-exec child. The
// resolved run dir is passed explicitly so the child needs no uid lookup.
func buildDetachedArgs(s detachSpec) []string {
	args := []string{"run", "--detached", "--id", s.ID, "--run-dir", s.RunDir}
	if s.ConfigPath != "" {
		args = append(args, "--config", s.ConfigPath)
	}
	args = append(args, "--")
	return append(args, s.Argv...)
}

// spawnDetached re-execs the current binary in a new session with all
// standard streams on the null device. The caller exits right after, so the
// child is reparented to init and survives the invoker. This replaces the
// classic double fork, which Go cannot express directly.
func spawnDetached(args []string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	// #nosec 204
	cmd := exec.Command(executable, args...)
	configureDetachAttrs(cmd)
	cmd.Dir = "/"
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start detached runner: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// daemonize restarts the serve command in the background, detached the same
// way actions are.
func daemonize(logFile string) error {
	// Already running as daemon (child process)
	if os.Getppid() == 1 {
		return nil
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	newArgs := stripDaemonFlags(os.Args[1:])
	if logFile != "" {
		newArgs = append(newArgs, "--logfile", logFile)
	}

	// #nosec 204
	cmd := exec.Command(executable, newArgs...)
	configureDetachAttrs(cmd)
	cmd.Stdin = nil

	if logFile != "" {
		// #nosec 304
		logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cmd.Stdout = logF
		cmd.Stderr = logF
	} else {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	fmt.Printf("Daemon started with PID %d\n", cmd.Process.Pid)

	// Parent process exits
	os.Exit(0)
	return nil
}

// stripDaemonFlags removes --daemonize and --logfile (with value) so the
// re-exec child runs in the foreground.
func stripDaemonFlags(args []string) []string {
	var out []string
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if arg == "--daemonize" {
			continue
		}
		if arg == "--logfile" {
			skipNext = true
			continue
		}
		out = append(out, arg)
	}
	return out
}
