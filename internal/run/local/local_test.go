//go:build !windows

package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glacio/deploy/internal/run"
	"github.com/glacio/deploy/internal/run/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_Run_CapturesOutput(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	var out bytes.Buffer

	cmd := run.NewCommand("echo", "hello")
	cmd.Stdout = &out

	res, err := env.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", strings.TrimSpace(out.String()))
	assert.Equal(t, 0, env.ActiveProcesses())
}

func TestEnvironment_Run_NonZeroExit(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	res, err := env.Run(context.Background(), run.NewCommand("false"))
	require.Error(t, err)

	var exitErr *run.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.ExitCode)
}

func TestEnvironment_Run_WorkingDirectory(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	dir := t.TempDir()

	var out bytes.Buffer

	cmd := run.NewCommand("pwd")
	cmd.Dir = dir
	cmd.Stdout = &out

	_, err = env.Run(context.Background(), cmd)
	require.NoError(t, err)

	// Resolve symlinks: on darwin TempDir lives under /var -> /private/var
	got, err := filepath.EvalSymlinks(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEnvironment_Run_Environment(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	var out bytes.Buffer

	cmd := env.ShellCommand("echo $DEPLOY_TEST_VAR")
	cmd.Env = []string{"DEPLOY_TEST_VAR=glacio"}
	cmd.Stdout = &out

	_, err = env.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "glacio", strings.TrimSpace(out.String()))
}

func TestEnvironment_Run_ContextCancellation(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = env.Run(ctx, run.NewCommand("sleep", "10"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEnvironment_Start_AfterCloseFails(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)
	require.NoError(t, env.Close())

	_, err = env.Start(context.Background(), run.NewCommand("echo", "hi"))
	require.ErrorIs(t, err, run.ErrEnvironmentClosed)
}

func TestEnvironment_ShellCommand(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	cmd := env.ShellCommand("echo hello && echo world")
	assert.Equal(t, "sh", cmd.Cmd)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, "-c", cmd.Args[0])
}

func TestEnvironment_FileTransfer(t *testing.T) {
	t.Parallel()

	env, err := local.New()
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	src := filepath.Join(t.TempDir(), "src.txt")
	dst := filepath.Join(t.TempDir(), "nested", "dst.txt")

	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	var lastCurrent, lastTotal int64

	err = env.Upload(context.Background(), src, dst, run.WithProgress(func(current, total int64) {
		lastCurrent, lastTotal = current, total
	}))
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int64(len("payload")), lastCurrent)
	assert.Equal(t, int64(len("payload")), lastTotal)
}
