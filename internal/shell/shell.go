// Package shell runs package manager commands in child processes.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string
}

// Runner runs an external command in dir and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// Error reports a command that failed to start, exited with a non-zero
// status, or was terminated by a signal.
type Error struct {
	Command string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("command failed: %s: %v", e.Command, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the exit status of the child, or -1 when it never exited
// normally (failed to start or was killed by a signal).
func (e *Error) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Exec is the os/exec backed Runner.
//
// Commands are never cancelled and have no timeout: a hung package manager
// blocks the caller until it exits.
type Exec struct{}

// Run starts name with args, captures both output streams and waits.
func (Exec) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	line := Line(name, args...)
	clog.FromContext(ctx).Debug("running command", "cmd", line, "dir", dir)

	cmd := exec.Command(name, args...) //nolint:gosec // arguments are assembled by the patch environments
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return res, &Error{Command: line, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}

// Line renders a command for logs and error messages.
func Line(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(name))
	for _, arg := range args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'") {
		return strconv.Quote(s)
	}
	return s
}
