package cli

import (
	"bytes"
	"testing"

	"github.com/glacio/deploy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSSHConfig_ExplicitValuesWin(t *testing.T) {
	cfg := config.Default()
	cfg.UseSSHConfig = false
	cfg.User = "deploy"
	cfg.Port = 2200
	cfg.IdentityFile = "/keys/id_ed25519"
	cfg.KnownHosts = "/keys/known_hosts"
	cfg.InsecureSkipVerify = true

	sshCfg, err := resolveSSHConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "lidar.io", sshCfg.Host)
	assert.Equal(t, "deploy", sshCfg.User)
	assert.Equal(t, 2200, sshCfg.Port)
	assert.Equal(t, "/keys/id_ed25519", sshCfg.PrivateKeyPath)
	assert.Equal(t, "/keys/known_hosts", sshCfg.KnownHostsPath)
	assert.True(t, sshCfg.InsecureSkipVerify)
}

func TestResolveSSHConfig_DefaultsToCurrentUser(t *testing.T) {
	cfg := config.Default()
	cfg.UseSSHConfig = false

	sshCfg, err := resolveSSHConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "lidar.io", sshCfg.Host)
	assert.NotEmpty(t, sshCfg.User)
	assert.Equal(t, 22, sshCfg.Port)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "glacio-deploy")
}
