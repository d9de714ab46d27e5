// ABOUTME: Shared subprocess runner for the exec tools: process groups, timeouts, graceful kill.
// ABOUTME: Timeout sends SIGTERM to the group, then SIGKILL after a short grace period.

package tools

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
	"time"
)

const killGracePeriod = 2 * time.Second

type execOutcome struct {
	stdout   string
	stderr   string
	exitCode int
	duration time.Duration
	timedOut bool
	err      error
}

// runCommand executes name+args in dir with a hard timeout. The child runs
// in its own process group so the whole tree dies together.
func runCommand(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) execOutcome {
	var out execOutcome

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		out.err = err
		out.exitCode = -1
		return out
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		killProcessGroup(cmd.Process.Pid)
		waitErr = <-done
		out.timedOut = true
	case <-timer.C:
		killProcessGroup(cmd.Process.Pid)
		waitErr = <-done
		out.timedOut = true
	}

	out.duration = time.Since(start)
	out.stdout = stdout.String()
	out.stderr = stderr.String()
	out.exitCode = exitCodeOf(waitErr)
	if waitErr != nil && out.exitCode == -1 && !out.timedOut {
		out.err = waitErr
	}
	return out
}

// killProcessGroup terminates the group politely, then forcefully.
func killProcessGroup(pid int) {
	syscall.Kill(-pid, syscall.SIGTERM)
	go func() {
		time.Sleep(killGracePeriod)
		syscall.Kill(-pid, syscall.SIGKILL)
	}()
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
