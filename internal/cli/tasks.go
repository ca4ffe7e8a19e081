package cli

import (
	"context"
	"fmt"

	"github.com/glacio/deploy/internal/run"
	"github.com/glacio/deploy/internal/tasks"
	"github.com/spf13/cobra"
)

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Push, update, and restart, in that order",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTask("deploy", func(ctx context.Context, r *tasks.Runner) error {
				return r.Deploy(ctx)
			})
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push local commits to the code host",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTask("push", func(ctx context.Context, r *tasks.Runner) error {
				return r.Push(ctx)
			})
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Pull, build, and test on the deployment host",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTask("update", func(ctx context.Context, r *tasks.Runner) error {
				return r.Update(ctx)
			})
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the supervised service",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTask("restart", func(ctx context.Context, r *tasks.Runner) error {
				return r.Restart(ctx)
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show supervisor status for the service",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTask("status", func(ctx context.Context, r *tasks.Runner) error {
				return r.Status(ctx)
			})
		},
	}
}

func newLogsCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the service log",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTask("logs", func(ctx context.Context, r *tasks.Runner) error {
				return r.Logs(ctx, lines)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of log lines to print")

	return cmd
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local> <remote>",
		Short: "Upload a file or directory to the deployment host",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTask("put", func(ctx context.Context, r *tasks.Runner) error {
				return r.Put(ctx, args[0], args[1], transferProgress())
			})
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote> <local>",
		Short: "Download a file or directory from the deployment host",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTask("get", func(ctx context.Context, r *tasks.Runner) error {
				return r.Get(ctx, args[0], args[1], transferProgress())
			})
		},
	}
}

func transferProgress() run.FileOption {
	return run.WithProgress(func(current, total int64) {
		if total > 0 {
			fmt.Printf("\r%d/%d bytes", current, total)
		}
	})
}
