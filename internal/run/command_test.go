package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantCmd  string
		wantArgs []string
		wantErr  bool
	}{
		{
			name:     "simple",
			input:    "git push",
			wantCmd:  "git",
			wantArgs: []string{"push"},
		},
		{
			name:     "cargo build flags",
			input:    "cargo build --release --all",
			wantCmd:  "cargo",
			wantArgs: []string{"build", "--release", "--all"},
		},
		{
			name:     "quoted argument",
			input:    `git commit -m "fix the thing"`,
			wantCmd:  "git",
			wantArgs: []string{"commit", "-m", "fix the thing"},
		},
		{
			name:     "single quotes",
			input:    "echo 'hello world'",
			wantCmd:  "echo",
			wantArgs: []string{"hello world"},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "unterminated quote",
			input:   `echo "oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd, err := ParseCommand(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd.Cmd)
			assert.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestCommand_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "git", NewCommand("git").String())
	assert.Equal(t, "git pull", NewCommand("git", "pull").String())

	// Arguments containing spaces are quoted
	assert.Equal(t, `echo "hello world"`, NewCommand("echo", "hello world").String())
}

func TestCommand_Validate(t *testing.T) {
	t.Parallel()

	var nilCmd *Command
	require.Error(t, nilCmd.Validate())

	require.Error(t, (&Command{}).Validate())
	require.Error(t, (&Command{Cmd: "  "}).Validate())
	require.NoError(t, NewCommand("true").Validate())
}

func TestResult_Success(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Result{ExitCode: 0}).Success())
	assert.False(t, (&Result{ExitCode: 1}).Success())
	assert.True(t, (&Result{ExitCode: 1}).Failed())
	assert.False(t, (&Result{ExitCode: 0}).Failed())

	res := &Result{ExitCode: 0, Error: assert.AnError}
	assert.False(t, res.Success())
}
