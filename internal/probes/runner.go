package probes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner abstracts command execution so probes can be unit-tested
// without spawning real system tools.
type CommandRunner interface {
	// Output runs name with args and returns its stdout. A non-nil error
	// may still come with usable output (e.g. a non-zero exit status).
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner executes commands on the host via os/exec.
type ExecRunner struct{}

// Output runs the command bound to ctx; the process is killed when ctx ends.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// isExitError reports whether err only says the process exited non-zero.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
