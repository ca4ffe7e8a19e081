// Package mock provides a controllable implementation of run.Environment for
// testing purposes.
//
// It allows defining expectations for command execution and file operations,
// enabling deterministic unit tests for the deployment tasks without a live
// host.
package mock

import (
	"context"
	"io"
	"os"

	"github.com/glacio/deploy/internal/run"
	"github.com/stretchr/testify/mock"
)

// Environment implements a mock run.Environment using testify/mock.
type Environment struct {
	mock.Mock
}

var _ run.Environment = (*Environment)(nil)

// New creates a new mock environment.
func New() *Environment {
	return &Environment{}
}

// Run mocks running a command to completion.
func (m *Environment) Run(ctx context.Context, cmd *run.Command) (*run.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*run.Result), args.Error(1)
}

// Start mocks starting a command asynchronously.
func (m *Environment) Start(ctx context.Context, cmd *run.Command) (run.Process, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(run.Process), args.Error(1)
}

// ShellCommand wraps the script in a POSIX shell invocation, matching the
// behavior of the real providers on unix targets.
func (m *Environment) ShellCommand(script string) *run.Command {
	return &run.Command{
		Cmd:  "sh",
		Args: []string{"-c", script},
	}
}

// Upload mocks uploading a file to the remote environment.
func (m *Environment) Upload(ctx context.Context, localPath, remotePath string, opts ...run.FileOption) error {
	// Variadic capture fix for testify
	args := m.Called(ctx, localPath, remotePath, opts)

	return args.Error(0)
}

// Download mocks downloading a file from the remote environment.
func (m *Environment) Download(ctx context.Context, remotePath, localPath string, opts ...run.FileOption) error {
	args := m.Called(ctx, remotePath, localPath, opts)

	return args.Error(0)
}

// Close mocks closing the environment.
func (m *Environment) Close() error {
	args := m.Called()

	return args.Error(0)
}

// Process implements a mock run.Process using testify/mock.
type Process struct {
	mock.Mock
}

var _ run.Process = (*Process)(nil)

// Wait mocks waiting for the process to complete.
func (m *Process) Wait() error {
	args := m.Called()

	return args.Error(0)
}

// Result mocks returning the process result.
func (m *Process) Result() *run.Result {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(*run.Result)
}

// Signal mocks sending a signal to the process.
func (m *Process) Signal(sig os.Signal) error {
	args := m.Called(sig)

	return args.Error(0)
}

// Close mocks closing the process.
func (m *Process) Close() error {
	args := m.Called()

	return args.Error(0)
}

// WriteOutput is a helper to simulate output writing for mocked processes.
// Usage: mockProcess.On("Wait").Run(WriteOutput(cmd.Stdout, "output")).Return(nil).
func WriteOutput(w io.Writer, content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		if w != nil {
			_, _ = io.WriteString(w, content)
		}
	}
}
