package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
)

var mountCmd = &cobra.Command{
	Use:   "mount <namespace-root> <dir>",
	Short: "Expose a namespace as a read-only FUSE file system",
	Long: `Mount the virtual namespace rooted at <namespace-root> at the local
directory <dir>. The command serves requests until it receives SIGINT or
SIGTERM, or until the file system is unmounted externally.

Examples:
  mountfs mount mount://proj/ /mnt/proj --config mountfs.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runMount,
}

func runMount(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		root, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		view, err := a.MountFUSE(ctx, root, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at %s. Press Ctrl+C to stop.\n", root.Namespace(), view.GetMountPoint())

		if err := view.Wait(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		stats := view.GetStats()
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d lookups, %d reads, %d errors\n", stats.Lookups, stats.Reads, stats.Errors)
		return nil
	})
}
