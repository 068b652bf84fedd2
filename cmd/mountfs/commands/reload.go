package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
)

var reloadCmd = &cobra.Command{
	Use:   "reload <namespace-root>",
	Short: "Validate the mount table of a namespace",
	Long: `Load the mount table of a namespace and report how many entries it
holds. A malformed table is reported with the offending line.

Examples:
  mountfs reload mount://proj/`,
	Args: cobra.ExactArgs(1),
	RunE: runReload,
}

func runReload(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		root, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}
		m, err := a.Manager(ctx, root)
		if err != nil {
			return err
		}
		if err := m.ReloadMounts(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d mounts from %s\n", len(m.Snapshot().Reloadable), m.TablePath())
		return nil
	})
}
