package testutil

import (
	"context"
	"sync"

	"github.com/Builder-Lawyers/store-builder/internal/infra/runner"
)

// FakeExecutor records commands. Handler, when set, decides the outcome of each one.
type FakeExecutor struct {
	mu      sync.Mutex
	Calls   []runner.Command
	Handler func(cmd runner.Command) (runner.Result, error)
}

func (f *FakeExecutor) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	handler := f.Handler
	f.mu.Unlock()
	if handler == nil {
		return runner.Result{}, nil
	}
	return handler(cmd)
}

// Lines returns every recorded command as "name arg1 arg2".
func (f *FakeExecutor) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.String())
	}
	return lines
}

func Fail(code int, stderr string) (runner.Result, error) {
	result := runner.Result{ExitCode: code, Stderr: stderr}
	return result, &runner.ExitError{Cmd: "fake", Result: result}
}
