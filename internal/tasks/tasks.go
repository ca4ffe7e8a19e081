// Package tasks implements the deployment tasks for the glacio project:
// push local commits, update the remote checkout, and restart the supervised
// service. Tasks run against the run.Environment interfaces, so they are
// testable without a live host.
package tasks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/glacio/deploy/internal/config"
	"github.com/glacio/deploy/internal/run"
	"github.com/rs/zerolog"
)

// RemoteFunc opens a connection to the deployment target. It is called
// lazily so tasks that fail before touching the remote (e.g. a failed push)
// never open a connection.
type RemoteFunc func(ctx context.Context) (run.Environment, error)

// Runner exposes the deployment tasks. It holds one remote connection for
// the duration of a run; each remote command gets its own session.
type Runner struct {
	cfg    config.Config
	local  run.Environment
	dial   RemoteFunc
	remote run.Environment

	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput redirects task output streams (default os.Stdout/os.Stderr).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the structured logger (default: disabled).
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// New creates a Runner for the given configuration.
func New(cfg config.Config, local run.Environment, dial RemoteFunc, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		local:  local,
		dial:   dial,
		log:    zerolog.Nop(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

// Close releases the remote connection if one was opened.
func (r *Runner) Close() error {
	if r.remote == nil {
		return nil
	}

	return r.remote.Close()
}

// Push uploads local commits by running the configured push command in the
// caller's working directory.
func (r *Runner) Push(ctx context.Context) error {
	cmd, err := run.ParseCommand(r.cfg.Commands.Push)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	if err := r.runStreaming(ctx, r.local, cmd); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	return nil
}

// Update refreshes the remote checkout: pull, build, test, in that order,
// every step inside the configured remote directory. The first failing step
// aborts the rest.
func (r *Runner) Update(ctx context.Context) error {
	remote, err := r.remoteEnv(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	steps := []struct {
		name string
		cmd  string
	}{
		{"pull", r.cfg.Commands.Pull},
		{"build", r.cfg.Commands.Build},
		{"test", r.cfg.Commands.Test},
	}

	for _, step := range steps {
		cmd, err := run.ParseCommand(step.cmd)
		if err != nil {
			return fmt.Errorf("update %s: %w", step.name, err)
		}

		cmd.Dir = r.cfg.RemoteDir

		if err := r.runStreaming(ctx, remote, cmd); err != nil {
			return fmt.Errorf("update %s: %w", step.name, err)
		}
	}

	return nil
}

// Restart restarts the supervised service on the remote host.
func (r *Runner) Restart(ctx context.Context) error {
	remote, err := r.remoteEnv(ctx)
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	cmd := run.NewCommand("supervisorctl", "restart", r.cfg.Service)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := r.execute(ctx, remote, cmd, run.WithSudo()); err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	return nil
}

// Deploy runs push, update, and restart strictly in sequence, stopping at
// the first failure.
func (r *Runner) Deploy(ctx context.Context) error {
	if err := r.Push(ctx); err != nil {
		return err
	}

	if err := r.Update(ctx); err != nil {
		return err
	}

	return r.Restart(ctx)
}

// Status prints the supervisor status line for the service.
func (r *Runner) Status(ctx context.Context) error {
	remote, err := r.remoteEnv(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	exec := run.NewExecutor(remote)

	res, err := exec.RunBuffered(ctx, run.NewCommand("supervisorctl", "status", r.cfg.Service), run.WithSudo())
	if res != nil {
		_, _ = r.stdout.Write(res.Stdout)
		_, _ = r.stderr.Write(res.Stderr)
	}

	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	return nil
}

// Logs streams the last n lines of the service log file.
func (r *Runner) Logs(ctx context.Context, n int) error {
	remote, err := r.remoteEnv(ctx)
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}

	exec := run.NewExecutor(remote)
	cmd := run.NewCommand("tail", "-n", fmt.Sprintf("%d", n), r.cfg.LogFile)

	err = exec.RunLineStream(ctx, cmd, func(line string) {
		_, _ = fmt.Fprintln(r.stdout, line)
	}, run.WithSudo())
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}

	return nil
}

// Put uploads a local file or directory to the remote host over SFTP.
func (r *Runner) Put(ctx context.Context, localPath, remotePath string, opts ...run.FileOption) error {
	remote, err := r.remoteEnv(ctx)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}

	if err := remote.Upload(ctx, localPath, remotePath, opts...); err != nil {
		return fmt.Errorf("put: %w", err)
	}

	return nil
}

// Get downloads a remote file or directory to the local machine over SFTP.
func (r *Runner) Get(ctx context.Context, remotePath, localPath string, opts ...run.FileOption) error {
	remote, err := r.remoteEnv(ctx)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	if err := remote.Download(ctx, remotePath, localPath, opts...); err != nil {
		return fmt.Errorf("get: %w", err)
	}

	return nil
}

// remoteEnv returns the shared remote environment, dialing on first use.
func (r *Runner) remoteEnv(ctx context.Context) (run.Environment, error) {
	if r.remote != nil {
		return r.remote, nil
	}

	r.log.Debug().Str("host", r.cfg.Host).Msg("connecting to remote host")

	remote, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}

	r.remote = remote

	return remote, nil
}

// runStreaming executes cmd with output wired to the runner's streams.
func (r *Runner) runStreaming(ctx context.Context, env run.Environment, cmd *run.Command) error {
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	return r.execute(ctx, env, cmd)
}

func (r *Runner) execute(ctx context.Context, env run.Environment, cmd *run.Command, opts ...run.ExecOption) error {
	r.log.Debug().Str("cmd", cmd.String()).Str("dir", cmd.Dir).Msg("running command")

	res, err := run.NewExecutor(env).Run(ctx, cmd, opts...)
	if res != nil {
		r.log.Debug().
			Str("cmd", cmd.String()).
			Int("exit_code", res.ExitCode).
			Dur("duration", res.Duration).
			Msg("command finished")
	}

	return err
}
