package ssh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config holds all parameters required to establish an SSH connection.
type Config struct {
	// Connection details
	Host string // Hostname or IP address
	Port int    // Port number (default 22)
	User string // Username to authenticate as

	// Authentication methods (tried in order)
	PrivateKeyPath string // Path to private key file (e.g. "~/.ssh/id_rsa")
	Password       string // Password for authentication (use sparingly)
	UseAgent       bool   // If true, attempt to connect to SSH_AUTH_SOCK

	// Connection settings
	Timeout            time.Duration       // Connection timeout (default 10s)
	HostKeyCheck       ssh.HostKeyCallback // Callback to verify host key, normally built from known_hosts
	KnownHostsPath     string              // known_hosts file (default ~/.ssh/known_hosts)
	InsecureSkipVerify bool                // If true, disables strict host key checking. Use ONLY for testing.
}

// NewConfig creates a Config with safe defaults.
// It does NOT set a HostKeyCheck; WithDefaults resolves one from known_hosts
// unless InsecureSkipVerify is set.
func NewConfig(host, username string) Config {
	return Config{
		Host:     host,
		User:     username,
		Port:     22,
		UseAgent: true,
		Timeout:  10 * time.Second,
	}
}

// FromSSHConfig loads configuration from an SSH config file.
// An empty path means ~/.ssh/config, mirroring OpenSSH.
func FromSSHConfig(alias, path string) (Config, error) {
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".ssh", "config")
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return FromSSHConfigReader(alias, f)
}

// FromSSHConfigReader parses ssh client configuration data.
// It resolves the alias to the actual HostName, User, Port, and IdentityFile.
func FromSSHConfigReader(alias string, r io.Reader) (Config, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	hostName, err := cfg.Get(alias, "HostName")
	if err != nil || hostName == "" {
		hostName = alias // Fallback if no HostName defined
	}

	username, _ := cfg.Get(alias, "User")
	if username == "" {
		// Use current system user if not specified in config
		u, _ := user.Current()
		if u != nil {
			username = u.Username
		}
	}

	portStr, _ := cfg.Get(alias, "Port")

	port := 22
	if portStr != "" {
		_, _ = fmt.Sscanf(portStr, "%d", &port)
	}

	identityFile, _ := cfg.Get(alias, "IdentityFile")
	if strings.HasPrefix(identityFile, "~/") {
		identityFile = filepath.Join(os.Getenv("HOME"), identityFile[2:])
	}

	c := NewConfig(hostName, username)
	c.Port = port
	c.PrivateKeyPath = identityFile

	strict, _ := cfg.Get(alias, "StrictHostKeyChecking")
	if strict == "no" {
		c.InsecureSkipVerify = true
	}

	return c, nil
}

// WithDefaults sets default values for zero-valued fields and resolves the
// host key callback.
func (c Config) WithDefaults() (Config, error) {
	if c.Port == 0 {
		c.Port = 22
	}

	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}

	if c.HostKeyCheck == nil {
		if c.InsecureSkipVerify {
			c.HostKeyCheck = ssh.InsecureIgnoreHostKey() //nolint:gosec // explicit opt-in
		} else {
			path := c.KnownHostsPath
			if path == "" {
				path = filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts")
			}

			check, err := knownhosts.New(path)
			if err != nil {
				return c, fmt.Errorf("failed to load known_hosts %q: %w", path, err)
			}

			c.HostKeyCheck = check
		}
	}

	return c, nil
}

// Validate ensures all required fields are present.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("configuration error: host address cannot be empty")
	}

	if c.User == "" {
		return errors.New("configuration error: user cannot be empty")
	}

	if c.HostKeyCheck == nil {
		return errors.New("configuration error: HostKeyCheck is missing; provide a known_hosts file or set InsecureSkipVerify (testing only)")
	}

	return nil
}

// toClientConfig converts the Config to the underlying ssh.ClientConfig,
// assembling the authentication methods.
func (c Config) toClientConfig() (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{},
		HostKeyCallback: c.HostKeyCheck,
		Timeout:         c.Timeout,
	}

	if c.Password != "" {
		config.Auth = append(config.Auth, ssh.Password(c.Password))
	}

	if keyAuth, err := loadPrivateKeyAuth(c.PrivateKeyPath); err != nil {
		return nil, err
	} else if keyAuth != nil {
		config.Auth = append(config.Auth, keyAuth)
	}

	if agentAuth := loadAgentAuth(c.UseAgent); agentAuth != nil {
		config.Auth = append(config.Auth, agentAuth)
	}

	if len(config.Auth) == 0 {
		return nil, errors.New("no usable authentication method (key, password, or agent)")
	}

	return config, nil
}
