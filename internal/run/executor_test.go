package run_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/glacio/deploy/internal/run"
	"github.com/glacio/deploy/internal/run/mock"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Run_Success(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.MatchedBy(func(c *run.Command) bool {
		return c.Cmd == "git" && len(c.Args) == 1 && c.Args[0] == "pull"
	})).Return(&run.Result{ExitCode: 0}, nil)

	res, err := exec.Run(context.Background(), run.NewCommand("git", "pull"))
	require.NoError(t, err)
	assert.True(t, res.Success())

	env.AssertExpectations(t)
}

func TestExecutor_Run_NonZeroExit(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.Anything).Return(&run.Result{ExitCode: 101}, nil)

	res, err := exec.Run(context.Background(), run.NewCommand("cargo", "test", "--all"))
	require.Error(t, err)
	assert.Equal(t, 101, res.ExitCode)

	var exitErr *run.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 101, exitErr.ExitCode)
}

func TestExecutor_Run_SudoWrapping(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.MatchedBy(func(c *run.Command) bool {
		return c.Cmd == "sudo" &&
			assert.ObjectsAreEqual([]string{"-n", "--", "supervisorctl", "restart", "glacio-api"}, c.Args)
	})).Return(&run.Result{ExitCode: 0}, nil)

	_, err := exec.Run(context.Background(),
		run.NewCommand("supervisorctl", "restart", "glacio-api"), run.WithSudo())
	require.NoError(t, err)

	env.AssertExpectations(t)
}

func TestExecutor_Run_SudoUser(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.MatchedBy(func(c *run.Command) bool {
		return c.Cmd == "sudo" &&
			assert.ObjectsAreEqual([]string{"-n", "-u", "deploy", "-E", "--", "whoami"}, c.Args)
	})).Return(&run.Result{ExitCode: 0}, nil)

	_, err := exec.Run(context.Background(), run.NewCommand("whoami"),
		run.WithSudo(run.WithSudoUser("deploy"), run.WithSudoPreserveEnv()))
	require.NoError(t, err)
}

func TestExecutor_RunBuffered(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.Anything).Run(func(args testifymock.Arguments) {
		cmd := args.Get(1).(*run.Command)
		_, _ = io.WriteString(cmd.Stdout, "on branch main\n")
		_, _ = io.WriteString(cmd.Stderr, "warning: something\n")
	}).Return(&run.Result{ExitCode: 0}, nil)

	res, err := exec.RunBuffered(context.Background(), run.NewCommand("git", "status"))
	require.NoError(t, err)
	assert.Equal(t, "on branch main\n", string(res.Stdout))
	assert.Equal(t, "warning: something\n", string(res.Stderr))
}

func TestExecutor_RunBuffered_AttachesStderrToExitError(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.Anything).Run(func(args testifymock.Arguments) {
		cmd := args.Get(1).(*run.Command)
		_, _ = io.WriteString(cmd.Stderr, "error[E0308]: mismatched types\n")
	}).Return(&run.Result{ExitCode: 101}, nil)

	_, err := exec.RunBuffered(context.Background(), run.NewCommand("cargo", "build"))
	require.Error(t, err)

	var exitErr *run.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, string(exitErr.Stderr), "mismatched types")
}

func TestExecutor_RunShell(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.MatchedBy(func(c *run.Command) bool {
		return c.Cmd == "sh" && len(c.Args) == 2 && c.Args[1] == "echo hello"
	})).Return(&run.Result{ExitCode: 0}, nil)

	_, err := exec.RunShell(context.Background(), "echo hello")
	assert.NoError(t, err)
}

func TestExecutor_Run_TransportError(t *testing.T) {
	t.Parallel()

	env := mock.New()
	exec := run.NewExecutor(env)

	env.On("Run", testifymock.Anything, testifymock.Anything).
		Return(nil, errors.New("connection lost"))

	_, err := exec.Run(context.Background(), run.NewCommand("git", "pull"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")
}

func TestExecutor_RunLineStream(t *testing.T) {
	t.Parallel()

	env := mock.New()
	proc := new(mock.Process)
	exec := run.NewExecutor(env)

	var started *run.Command

	env.On("Start", testifymock.Anything, testifymock.Anything).Run(func(args testifymock.Arguments) {
		started = args.Get(1).(*run.Command)
	}).Return(proc, nil)

	proc.On("Wait").Run(func(testifymock.Arguments) {
		_, _ = io.WriteString(started.Stdout, "line one\nline two\n")
	}).Return(nil)
	proc.On("Close").Return(nil)

	var lines []string

	err := exec.RunLineStream(context.Background(), run.NewCommand("tail", "-n", "2", "app.log"),
		func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	assert.Equal(t, []string{"line one", "line two"}, lines)
}
