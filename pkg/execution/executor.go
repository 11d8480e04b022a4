/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor.go
Description: External process execution for mvt-android and adb. Captures stdout,
stderr, exit code and duration, enforces a timeout and maps failures onto the
command error codes of the API taxonomy.
*/

package execution

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/sirupsen/logrus"
)

const (
	maxStderrPayload = 2048
	// bounds the wait for pipes held open by grandchildren after a kill
	waitDelay = 2 * time.Second
)

// Command describes one process invocation
type Command struct {
	Name    string
	Args    []string
	Env     []string // appended to the current environment
	Dir     string
	Timeout time.Duration
	// LogArgs replaces Args in log output when secrets are passed on the command line
	LogArgs []string
}

// String renders the command line for logs
func (c Command) String() string {
	args := c.Args
	if c.LogArgs != nil {
		args = c.LogArgs
	}
	return strings.Join(append([]string{c.Name}, args...), " ")
}

// Output is what a finished process left behind
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Text joins stdout and stderr. mvt-android logs to both depending on version.
func (o *Output) Text() string {
	if o == nil {
		return ""
	}
	switch {
	case o.Stderr == "":
		return o.Stdout
	case o.Stdout == "":
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}

// CommandRunner runs external commands
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ProcessExecutor runs commands with os/exec
type ProcessExecutor struct {
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewProcessExecutor creates an executor. timeout applies when a Command has none.
func NewProcessExecutor(timeout time.Duration, logger logrus.FieldLogger) *ProcessExecutor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProcessExecutor{timeout: timeout, logger: logger}
}

// Run executes cmd. The Output is returned even on failure when the process started.
func (e *ProcessExecutor) Run(ctx context.Context, cmd Command) (*Output, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	runErr := c.Run()
	out := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(c, runErr),
		Duration: time.Since(start),
	}

	fields := logrus.Fields{
		"command":   cmd.String(),
		"exit_code": out.ExitCode,
		"duration":  out.Duration,
	}
	if runErr != nil {
		err := classifyFailure(ctx, cmd, out, runErr)
		e.logger.WithFields(fields).WithFields(err.Fields()).Warn("Command failed")
		return out, err
	}

	e.logger.WithFields(fields).Debug("Command finished")
	return out, nil
}

func exitCode(c *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// classifyFailure maps a run error onto the taxonomy. Binary lookup failures and
// deadlines are recognized first; otherwise stderr decides between not-found,
// permission and a generic non-zero exit.
func classifyFailure(ctx context.Context, cmd Command, out *Output, err error) *apperr.Error {
	payload := map[string]interface{}{
		"command":   cmd.String(),
		"exit_code": out.ExitCode,
		"stderr":    truncate(out.Stderr, maxStderrPayload),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CommandTimeout, err, payload)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(apperr.CommandNotFound, err, payload)
	}
	if errors.Is(err, fs.ErrPermission) {
		return apperr.Wrap(apperr.CommandPermissionDenied, err, payload)
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return apperr.Wrap(apperr.CommandError, err, payload)
	}

	stderr := strings.ToLower(out.Stderr)
	switch {
	case strings.Contains(stderr, "not found"):
		return apperr.Wrap(apperr.CommandNotFound, err, payload)
	case strings.Contains(stderr, "permission denied"):
		return apperr.Wrap(apperr.CommandPermissionDenied, err, payload)
	default:
		return apperr.Wrap(apperr.CommandExecutionFailed, err, payload)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
