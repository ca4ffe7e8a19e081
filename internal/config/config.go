// Package config defines the deployment configuration: the remote host, how
// to reach it, and the commands each task runs. Values are read once at
// startup and never mutated.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when no
// --config flag is given.
const DefaultFile = "glacio-deploy.yml"

// Config is the top-level deployment configuration.
type Config struct {
	// Host is the remote host name, or an alias resolved through
	// ~/.ssh/config when UseSSHConfig is set.
	Host         string `yaml:"host"`
	UseSSHConfig bool   `yaml:"use_ssh_config"`

	// User/Port/IdentityFile override whatever ssh config resolution found.
	User         string `yaml:"user"`
	Port         int    `yaml:"port"`
	IdentityFile string `yaml:"identity_file"`

	KnownHosts         string `yaml:"known_hosts"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`

	// RemoteDir is the project checkout on the remote host; every update
	// step runs inside it.
	RemoteDir string `yaml:"remote_dir"`

	// Service is the supervisor program name restarted after an update.
	Service string `yaml:"service"`

	// LogFile is the service log tailed by the logs task.
	LogFile string `yaml:"log_file"`

	Commands Commands `yaml:"commands"`
}

// Commands holds the shell command strings the tasks execute. Each string is
// parsed with shell quoting rules.
type Commands struct {
	Push  string `yaml:"push"`
	Pull  string `yaml:"pull"`
	Build string `yaml:"build"`
	Test  string `yaml:"test"`
}

// Default returns the stock glacio deployment configuration.
func Default() Config {
	return Config{
		Host:         "lidar.io",
		UseSSHConfig: true,
		Port:         22,
		RemoteDir:    "/var/www/glacio",
		Service:      "glacio-api",
		LogFile:      "/var/log/supervisor/glacio-api.log",
		Commands: Commands{
			Push:  "git push",
			Pull:  "git pull",
			Build: "cargo build --release --all",
			Test:  "cargo test --all",
		},
	}
}

// Load reads the config file at path on top of the defaults.
// A missing file yields pure defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration names everything the tasks need.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("config: host cannot be empty")
	}

	if c.RemoteDir == "" {
		return errors.New("config: remote_dir cannot be empty")
	}

	if c.Service == "" {
		return errors.New("config: service cannot be empty")
	}

	if c.Commands.Push == "" || c.Commands.Pull == "" || c.Commands.Build == "" || c.Commands.Test == "" {
		return errors.New("config: all task commands must be set")
	}

	return nil
}
