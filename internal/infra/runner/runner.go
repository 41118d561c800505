package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var ErrTimeout = errors.New("command timed out")

type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError is returned for a command that ran and exited non-zero.
type ExitError struct {
	Cmd    string
	Result Result
}

func (e *ExitError) Error() string {
	output := strings.TrimSpace(e.Result.Stderr)
	if output == "" {
		output = strings.TrimSpace(e.Result.Stdout)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Cmd, e.Result.ExitCode, output)
}

// Executor runs external tools. Implementations must honour ctx and cmd.Timeout.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

type OSExecutor struct {
	defaultTimeout time.Duration
	// redact is stripped from logged command lines, e.g. tokens passed as flags
	redact []string
}

func NewOSExecutor(defaultTimeout time.Duration, redact ...string) *OSExecutor {
	return &OSExecutor{defaultTimeout: defaultTimeout, redact: redact}
}

func (e *OSExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	process := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	process.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		process.Env = append(os.Environ(), cmd.Env...)
	}
	var stdout, stderr bytes.Buffer
	process.Stdout = &stdout
	process.Stderr = &stderr

	started := time.Now()
	err := process.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}
	if process.ProcessState != nil {
		result.ExitCode = process.ProcessState.ExitCode()
	}

	line := e.sanitize(cmd.String())
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		slog.Error("command timed out", "cmd", line, "timeout", timeout)
		return result, fmt.Errorf("%s: %w", line, ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Error("command failed", "cmd", line, "code", result.ExitCode, "stderr", strings.TrimSpace(result.Stderr))
			return result, &ExitError{Cmd: line, Result: result}
		}
		return result, fmt.Errorf("failed to start %s, %v", cmd.Name, err)
	}

	slog.Debug("command finished", "cmd", line, "took", result.Duration)
	return result, nil
}

func (e *OSExecutor) sanitize(line string) string {
	for _, secret := range e.redact {
		if secret != "" {
			line = strings.ReplaceAll(line, secret, "***")
		}
	}
	return line
}
