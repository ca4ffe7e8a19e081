package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	assert.Equal(t, "lidar.io", cfg.Host)
	assert.True(t, cfg.UseSSHConfig)
	assert.Equal(t, "/var/www/glacio", cfg.RemoteDir)
	assert.Equal(t, "glacio-api", cfg.Service)
	assert.Equal(t, "git push", cfg.Commands.Push)
	assert.Equal(t, "cargo build --release --all", cfg.Commands.Build)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "glacio-deploy.yml")
	content := `
host: staging.lidar.io
use_ssh_config: false
user: deploy
remote_dir: /srv/glacio
commands:
  build: cargo build --release -p glacio-api
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging.lidar.io", cfg.Host)
	assert.False(t, cfg.UseSSHConfig)
	assert.Equal(t, "deploy", cfg.User)
	assert.Equal(t, "/srv/glacio", cfg.RemoteDir)

	// Untouched fields keep their defaults
	assert.Equal(t, "glacio-api", cfg.Service)
	assert.Equal(t, "git pull", cfg.Commands.Pull)
	assert.Equal(t, "cargo build --release -p glacio-api", cfg.Commands.Build)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("host: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"empty remote dir", func(c *Config) { c.RemoteDir = "" }},
		{"empty service", func(c *Config) { c.Service = "" }},
		{"empty push command", func(c *Config) { c.Commands.Push = "" }},
		{"empty test command", func(c *Config) { c.Commands.Test = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
