// Package local implements run.Environment for the machine the tool runs on.
//
// It is a thin wrapper around os/exec, adapting it to the unified run
// interfaces. The push step of a deployment runs here; everything else runs
// on the remote host.
package local

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/glacio/deploy/internal/run"
)

var _ run.Environment = (*Environment)(nil)

// Environment implements run.Environment for the local operating system.
// Thread-safe wrapper around os/exec.
type Environment struct {
	mu     sync.RWMutex
	active int
	closed bool
}

// New creates a new local environment.
func New() (*Environment, error) {
	return &Environment{}, nil
}

// Run executes a command synchronously on the local machine.
func (e *Environment) Run(ctx context.Context, cmd *run.Command) (*run.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	process, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = process.Close() }()

	waitErr := process.Wait()
	// Always return the result if available, even if Wait failed (e.g. non-zero exit code)
	if res := process.Result(); res != nil {
		return res, waitErr
	}

	return nil, waitErr
}

// Start begins command execution asynchronously.
// Caller must close/wait on the returned Process.
func (e *Environment) Start(ctx context.Context, cmd *run.Command) (run.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()

		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), run.ErrEnvironmentClosed)
	}

	e.active++
	e.mu.Unlock()

	process := &Process{
		env: e,
		cmd: cmd,
	}

	if err := process.start(ctx); err != nil {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()

		return nil, err
	}

	return process, nil
}

// ShellCommand wraps the script in the host's shell: "sh -c" on unix,
// powershell on Windows.
func (e *Environment) ShellCommand(script string) *run.Command {
	if runtime.GOOS == "windows" {
		return &run.Command{
			Cmd:  "powershell",
			Args: []string{"-NoProfile", "-NonInteractive", "-Command", script},
		}
	}

	return &run.Command{
		Cmd:  "sh",
		Args: []string{"-c", script},
	}
}

// ActiveProcesses returns the number of currently running commands.
func (e *Environment) ActiveProcesses() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.active
}

// Close shuts down the environment.
// New Start calls will fail; running processes are left to finish.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true

	return nil
}

func (e *Environment) decrementActive() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

func (e *Environment) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.closed
}
