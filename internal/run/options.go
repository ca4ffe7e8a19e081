package run

import "os"

// ExecConfig holds configuration derived from options.
type ExecConfig struct {
	Sudo *SudoConfig
}

// SudoConfig defines privilege escalation options.
type SudoConfig struct {
	User        string // Target user (-u)
	PreserveEnv bool   // Preserve environment (-E)
}

// ExecOption defines a functional option for execution.
type ExecOption func(*ExecConfig)

// SudoOption defines a functional option for sudo configuration.
type SudoOption func(*SudoConfig)

// WithSudo wraps the command in non-interactive sudo.
func WithSudo(opts ...SudoOption) ExecOption {
	return func(c *ExecConfig) {
		if c.Sudo == nil {
			c.Sudo = &SudoConfig{}
		}
		for _, o := range opts {
			o(c.Sudo)
		}
	}
}

// WithSudoUser sets the target user.
func WithSudoUser(user string) SudoOption {
	return func(s *SudoConfig) {
		s.User = user
	}
}

// WithSudoPreserveEnv preserves the environment.
func WithSudoPreserveEnv() SudoOption {
	return func(s *SudoConfig) {
		s.PreserveEnv = true
	}
}

// FileConfig holds configuration for file transfers.
type FileConfig struct {
	Permissions os.FileMode // Destination perms override (0 means preserve/default)
	Recursive   bool        // Default true for directory transfers
	Progress    ProgressFunc
}

// DefaultFileConfig returns defaults.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Recursive: true,
	}
}

// FileOption defines a functional option for file transfers.
type FileOption func(*FileConfig)

// WithPermissions forces specific destination file mode.
func WithPermissions(mode os.FileMode) FileOption {
	return func(c *FileConfig) {
		c.Permissions = mode
	}
}

// ProgressFunc is a callback for tracking file transfer progress.
type ProgressFunc func(current, total int64)

// WithProgress calls fn with progress updates.
func WithProgress(fn ProgressFunc) FileOption {
	return func(c *FileConfig) {
		c.Progress = fn
	}
}
