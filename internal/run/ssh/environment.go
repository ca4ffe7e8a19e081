// Package ssh implements run.Environment for remote servers over SSH.
//
// It uses golang.org/x/crypto/ssh for session management, opening a new
// session per command over a single shared connection, and pkg/sftp for file
// transfers. Host resolution can come from the user's ~/.ssh/config via
// kevinburke/ssh_config.
//
// OpenSSH defaults to PermitUserEnvironment=no, so environment variables and
// working directories are injected by prefixing the remote command string
// ("export K='v'; cd '/dir' && cmd").
package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/glacio/deploy/internal/run"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var _ run.Environment = (*Environment)(nil)

// Environment implements run.Environment for SSH execution.
type Environment struct {
	config Config
	client *ssh.Client
	mu     sync.Mutex
	active int
	closed bool
}

// New establishes a new SSH connection.
func New(c Config) (*Environment, error) {
	c, err := c.WithDefaults()
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	clientConfig, err := c.toClientConfig()
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)

	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh at %s: %w", addr, err)
	}

	return NewFromClient(client, c), nil
}

// NewFromClient creates a new SSH environment from an existing client.
func NewFromClient(client *ssh.Client, config Config) *Environment {
	return &Environment{
		config: config,
		client: client,
	}
}

// Run executes a command synchronously on the remote server.
func (e *Environment) Run(ctx context.Context, cmd *run.Command) (*run.Result, error) {
	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = proc.Close() }()

	if err := proc.Wait(); err != nil {
		return proc.Result(), err
	}

	return proc.Result(), nil
}

// Start opens a NEW SSH session for the command.
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

	session, err := e.client.NewSession()
	if err != nil {
		e.decrementActive()

		return nil, &run.TransportError{Command: cmd, Err: fmt.Errorf("failed to create ssh session: %w", err)}
	}

	process := &Process{
		env:     e,
		session: session,
		cmd:     cmd,
		done:    make(chan struct{}),
	}

	if err := process.start(ctx); err != nil {
		_ = session.Close()

		e.decrementActive()

		return nil, err
	}

	return process, nil
}

// ShellCommand wraps the script in a POSIX shell; remote targets are assumed
// to be unix-like.
func (e *Environment) ShellCommand(script string) *run.Command {
	return &run.Command{
		Cmd:  "sh",
		Args: []string{"-c", script},
	}
}

// Close closes the underlying SSH connection.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	if e.client != nil {
		return e.client.Close()
	}

	return nil
}

func (e *Environment) decrementActive() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

// loadPrivateKeyAuth loads a private key from a file and returns an ssh.AuthMethod.
// Returns nil if the path is empty.
func loadPrivateKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	if keyPath == "" {
		return nil, nil //nolint:nilnil // Valid state: no key path provided, so no auth method returned
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key file: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// loadAgentAuth connects to the SSH agent and returns an ssh.AuthMethod.
// Returns nil if useAgent is false or the agent socket is unavailable.
func loadAgentAuth(useAgent bool) ssh.AuthMethod {
	if !useAgent {
		return nil
	}

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		return nil
	}

	return ssh.PublicKeys(signers...)
}
