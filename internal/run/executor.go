package run

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// Executor handles command execution with sudo support and output buffering.
type Executor struct {
	env Environment
}

// NewExecutor creates a new Executor with the given environment.
func NewExecutor(env Environment) *Executor {
	return &Executor{env: env}
}

// Run executes a command, respecting context cancellation.
// A non-zero exit code is reported as *ExitError.
func (e *Executor) Run(ctx context.Context, cmd *Command, opts ...ExecOption) (*Result, error) {
	var cfg ExecConfig
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.Sudo != nil {
		cmd = applySudo(cmd, cfg.Sudo)
	}

	res, err := e.env.Run(ctx, cmd)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return res, err
		}

		return res, fmt.Errorf("command execution failed: %w", err)
	}

	if res != nil && res.ExitCode != 0 {
		return res, &ExitError{
			Command:  cmd,
			ExitCode: res.ExitCode,
		}
	}

	return res, nil
}

// RunBuffered executes a command and captures both stdout and stderr.
func (e *Executor) RunBuffered(ctx context.Context, cmd *Command, opts ...ExecOption) (*BufferedResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmdCopy := *cmd // copy
	cmdCopy.Stdout = &stdoutBuf
	cmdCopy.Stderr = &stderrBuf

	result, err := e.Run(ctx, &cmdCopy, opts...)

	bufResult := &BufferedResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
	}
	if result != nil {
		bufResult.Result = *result
	}

	// Attach stderr to ExitError for context
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = bufResult.Stderr
		}
	}

	return bufResult, err
}

// RunShell executes a shell command string using the environment's shell.
func (e *Executor) RunShell(ctx context.Context, cmdStr string, opts ...ExecOption) (*BufferedResult, error) {
	return e.RunBuffered(ctx, e.env.ShellCommand(cmdStr), opts...)
}

// Start initiates a command asynchronously.
// Caller is responsible for Process.Wait().
func (e *Executor) Start(ctx context.Context, cmd *Command) (Process, error) {
	return e.env.Start(ctx, cmd)
}

// RunLineStream streams stdout line-by-line to onLine.
// Useful for live logging. Overrides Command.Stdout.
func (e *Executor) RunLineStream(ctx context.Context, cmd *Command, onLine func(string), opts ...ExecOption) error {
	var cfg ExecConfig
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.Sudo != nil {
		cmd = applySudo(cmd, cfg.Sudo)
	}

	pr, pw := io.Pipe()

	// Clone the command to avoid mutating the original
	cmdCopy := *cmd
	cmdCopy.Stdout = pw
	cmd = &cmdCopy

	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return err
	}

	defer func() { _ = proc.Close() }()

	// Scan the stream in a separate goroutine to prevent blocking.
	scanErrCh := make(chan error, 1)

	go func() {
		defer func() { _ = pr.Close() }()

		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			onLine(scanner.Text())
		}

		scanErrCh <- scanner.Err()
	}()

	if err := proc.Wait(); err != nil {
		return err
	}

	_ = pw.Close() // Close the write end to signal the scanner to stop

	scanErr := <-scanErrCh
	if scanErr != nil {
		return fmt.Errorf("scan error: %w", scanErr)
	}

	return nil
}

// Upload copies a local file or directory to the remote destination.
// It delegates directly to the underlying Environment.
func (e *Executor) Upload(ctx context.Context, localPath, remotePath string, opts ...FileOption) error {
	return e.env.Upload(ctx, localPath, remotePath, opts...)
}

// Download copies a remote file or directory to the local destination.
// It delegates directly to the underlying Environment.
func (e *Executor) Download(ctx context.Context, remotePath, localPath string, opts ...FileOption) error {
	return e.env.Download(ctx, remotePath, localPath, opts...)
}

// applySudo rewrites cmd as "sudo -n [-u user] [-E] -- cmd args...".
func applySudo(cmd *Command, sudo *SudoConfig) *Command {
	args := []string{"-n"}

	if sudo.User != "" {
		args = append(args, "-u", sudo.User)
	}

	if sudo.PreserveEnv {
		args = append(args, "-E")
	}

	args = append(args, "--", cmd.Cmd)
	args = append(args, cmd.Args...)

	newCmd := *cmd
	newCmd.Cmd = "sudo"
	newCmd.Args = args

	return &newCmd
}
