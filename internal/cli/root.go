// Package cli wires the deployment tasks into a cobra command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/glacio/deploy/internal/config"
	"github.com/glacio/deploy/internal/logging"
	"github.com/glacio/deploy/internal/run"
	"github.com/glacio/deploy/internal/run/local"
	"github.com/glacio/deploy/internal/run/ssh"
	"github.com/glacio/deploy/internal/tasks"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgFile  string
	logLevel string
	hostFlag string
	askPass  bool

	// loaded by PersistentPreRunE
	cfg config.Config
	log zerolog.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glacio-deploy",
		Short: "glacio-deploy — push, build, and restart glacio on its server",
		Long: "glacio-deploy pushes local commits, updates the checkout on the\n" +
			"deployment host, rebuilds the project there, and restarts the\n" +
			"supervised glacio-api service.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = config.DefaultFile
			}

			var err error

			cfg, err = config.Load(path)
			if err != nil {
				return err
			}

			if hostFlag != "" {
				cfg.Host = hostFlag
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = logging.New(nil, logLevel)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./"+config.DefaultFile+")")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, silent)")
	cmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", "", "deployment host (overrides config)")
	cmd.PersistentFlags().BoolVar(&askPass, "ask-pass", false, "prompt for an SSH password")

	cmd.AddCommand(newDeployCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newRestartCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// newRunner assembles the task runner: a local environment plus a lazy SSH
// dialer for the configured host.
func newRunner() (*tasks.Runner, error) {
	localEnv, err := local.New()
	if err != nil {
		return nil, err
	}

	var password string

	if askPass {
		password, err = promptPassword(cfg.Host)
		if err != nil {
			return nil, err
		}
	}

	dial := func(ctx context.Context) (run.Environment, error) {
		sshCfg, err := resolveSSHConfig(cfg)
		if err != nil {
			return nil, err
		}

		sshCfg.Password = password

		return ssh.New(sshCfg)
	}

	return tasks.New(cfg, localEnv, dial, tasks.WithLogger(log)), nil
}

// resolveSSHConfig maps the deployment config onto an SSH connection config,
// consulting ~/.ssh/config when enabled.
func resolveSSHConfig(cfg config.Config) (ssh.Config, error) {
	var (
		sshCfg ssh.Config
		err    error
	)

	if cfg.UseSSHConfig {
		sshCfg, err = ssh.FromSSHConfig(cfg.Host, "")
		if err != nil {
			return ssh.Config{}, err
		}
	} else {
		username := cfg.User
		if username == "" {
			if u, err := user.Current(); err == nil {
				username = u.Username
			}
		}

		sshCfg = ssh.NewConfig(cfg.Host, username)
	}

	// Explicit config values win over ssh config resolution
	if cfg.User != "" {
		sshCfg.User = cfg.User
	}

	if cfg.Port != 0 {
		sshCfg.Port = cfg.Port
	}

	if cfg.IdentityFile != "" {
		sshCfg.PrivateKeyPath = cfg.IdentityFile
	}

	if cfg.KnownHosts != "" {
		sshCfg.KnownHostsPath = cfg.KnownHosts
	}

	if cfg.InsecureSkipVerify {
		sshCfg.InsecureSkipVerify = true
	}

	return sshCfg, nil
}

func promptPassword(host string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--ask-pass requires an interactive terminal")
	}

	fmt.Fprintf(os.Stderr, "password for %s: ", host)

	pw, err := term.ReadPassword(fd)

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(pw), nil
}

// runTask drives one named task with styled progress output.
func runTask(name string, fn func(ctx context.Context, r *tasks.Runner) error) error {
	runner, err := newRunner()
	if err != nil {
		return err
	}

	defer func() { _ = runner.Close() }()

	fmt.Println(stepStyle.Render(fmt.Sprintf("%s → %s", name, cfg.Host)))

	start := time.Now()

	if err := fn(context.Background(), runner); err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("%s failed: %v", name, err)))

		return err
	}

	fmt.Println(checkStyle.Render(fmt.Sprintf("%s succeeded (took %s)", name, time.Since(start).Round(time.Millisecond))))

	return nil
}
