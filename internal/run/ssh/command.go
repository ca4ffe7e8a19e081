package ssh

import (
	"fmt"
	"strings"

	"github.com/glacio/deploy/internal/run"
)

// buildEnvPrefix constructs the environment variable prefix for remote
// commands. OpenSSH defaults PermitUserEnvironment=no, so session.Setenv()
// is usually rejected; instead "export VAR='val';" is prepended to the
// command string.
func buildEnvPrefix(envVars []string) string {
	var envPrefix strings.Builder

	for _, env := range envVars {
		k, v, found := strings.Cut(env, "=")
		if !found {
			continue // Skip malformed env
		}

		fmt.Fprintf(&envPrefix, "export %s=%s; ", k, shellQuote(v))
	}

	return envPrefix.String()
}

// buildDirPrefix constructs the working directory prefix for remote commands.
// The && ensures the command does not run in the wrong directory if cd fails.
func buildDirPrefix(dir string) string {
	if dir == "" {
		return ""
	}

	return fmt.Sprintf("cd %s && ", shellQuote(dir))
}

// shellQuote wraps s in single quotes with embedded single quotes escaped,
// so the remote shell treats it as a literal.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// safeArg reports whether s can be passed to a POSIX shell without quoting.
func safeArg(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			return false
		}
	}

	return true
}

// quoteArg returns s quoted for a POSIX shell if needed.
func quoteArg(s string) string {
	if safeArg(s) {
		return s
	}

	return shellQuote(s)
}

// buildRemoteCommand constructs the complete command string executed on the
// remote server: env exports, then working directory change, then the
// shell-quoted command itself.
func buildRemoteCommand(cmd *run.Command) string {
	var b strings.Builder

	b.WriteString(buildEnvPrefix(cmd.Env))
	b.WriteString(buildDirPrefix(cmd.Dir))
	b.WriteString(cmd.Cmd)

	for _, arg := range cmd.Args {
		b.WriteString(" ")
		b.WriteString(quoteArg(arg))
	}

	return b.String()
}
