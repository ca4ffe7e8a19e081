package run

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Command configures a process execution.
type Command struct {
	Cmd  string   // Binary name or path to executable
	Args []string // Arguments to pass to the binary
	Env  []string // Environment variables in "KEY=VALUE" format
	Dir  string   // Working directory for execution

	// Standard streams. If nil, defaults to empty/discard.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommand creates a new Command with the given binary and arguments.
func NewCommand(binary string, args ...string) *Command {
	return &Command{
		Cmd:  binary,
		Args: args,
	}
}

// ParseCommand parses a shell command string into a Command using shlex,
// so quoted arguments behave the way a shell would treat them.
func ParseCommand(cmdStr string) (*Command, error) {
	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}

	return &Command{
		Cmd:  parts[0],
		Args: parts[1:],
	}, nil
}

// Validate checks that the command is well-formed.
func (c *Command) Validate() error {
	if c == nil {
		return errors.New("command cannot be nil")
	}

	if strings.TrimSpace(c.Cmd) == "" {
		return errors.New("command binary cannot be empty")
	}

	return nil
}

// String returns a simplified, shell-quoted string representation of the command.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}

	var b strings.Builder
	b.WriteString(c.Cmd)

	for _, arg := range c.Args {
		b.WriteString(" ")

		if strings.Contains(arg, " ") {
			fmt.Fprintf(&b, "%q", arg)
		} else {
			b.WriteString(arg)
		}
	}

	return b.String()
}

// Result contains metadata about a completed command execution.
type Result struct {
	ExitCode int           // Process exit code (0 indicates success)
	Duration time.Duration // Time taken for execution
	Error    error         // Launch/transport error (distinct from non-zero exit code)
}

// Success returns true if the command completed with exit code 0 and no transport error.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Failed returns true if the command failed (non-zero exit code or transport error).
func (r *Result) Failed() bool {
	return !r.Success()
}

// BufferedResult extends Result to include captured stdout/stderr content.
// Returned by Executor.RunBuffered.
type BufferedResult struct {
	Result

	Stdout []byte
	Stderr []byte
}
