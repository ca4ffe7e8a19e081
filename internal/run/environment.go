// Package run provides a unified interface for command execution on the
// local machine or a remote host.
//
// # Core interfaces
//
// - Environment: the connection to a system (local or SSH).
// - Process: a running command handle (allows Wait, Signal, Close).
//
// # Streaming
//
// run is streaming-first. Output is not buffered by default; attach an
// io.Writer to your Command to capture stdout/stderr, or use the Executor
// wrapper for the common "just give me the output" cases.
//
// # Sudo
//
// Privilege escalation is supported via run.WithSudo(). This uses `sudo -n`
// for non-interactive execution.
package run

import (
	"context"
	"io"
	"os"
)

// Environment abstracts the underlying system where commands are executed.
type Environment interface {
	io.Closer

	// Run executes a command synchronously.
	// Returns the result (exit code, duration). Output is not captured by
	// default; use Command.Stdout/Stderr.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Start initiates a command asynchronously.
	// The caller manages the returned Process (Wait/Signal) and must ensure
	// resources are released via either Wait() or Close().
	Start(ctx context.Context, cmd *Command) (Process, error)

	// ShellCommand wraps a script string in the environment's shell.
	ShellCommand(script string) *Command

	// Upload copies a local file or directory to the remote destination,
	// creating missing parent directories.
	Upload(ctx context.Context, localPath, remotePath string, opts ...FileOption) error

	// Download copies a remote file or directory to the local destination,
	// creating missing parent directories.
	Download(ctx context.Context, remotePath, localPath string, opts ...FileOption) error
}

// Process represents a command that has been started but not yet completed.
type Process interface {
	io.Closer

	// Wait blocks until the process exits.
	// Returns an error if the exit code is non-zero.
	Wait() error

	// Result returns metadata (exit code, duration) (only valid after Wait).
	Result() *Result

	// Signal sends an OS signal to the process.
	// Support for specific signals depends on the underlying provider.
	Signal(sig os.Signal) error
}
