package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
)

var addPersist bool

var addCmd = &cobra.Command{
	Use:   "add <real> <virtual>",
	Short: "Add an explicit mount",
	Long: `Map a real storage path to a virtual mount path.

Without --persist the mount only lives as long as the command, which is
useful to check a mapping. With --persist the entry is appended to the mount
table of the owning namespace.

Examples:
  # Persist a mount in the table of mount://proj
  mountfs add s3://archive/2020 mount://proj/old --persist`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addPersist, "persist", false, "Append the mount to the namespace mount table")
}

func runAdd(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		realPath, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}
		virtualPath, err := a.ParsePath(args[1])
		if err != nil {
			return err
		}
		if _, err := a.Manager(ctx, virtualPath); err != nil {
			return err
		}
		if err := a.MountFS().AddMount(ctx, realPath, virtualPath, addPersist); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mounted %s at %s\n", realPath, virtualPath)
		return nil
	})
}
