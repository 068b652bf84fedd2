package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
)

var catCmd = &cobra.Command{
	Use:   "cat <vpath>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func runCat(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		p, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}
		fsys, err := a.FileSystem(p)
		if err != nil {
			return err
		}
		r, err := fsys.Open(ctx, p)
		if err != nil {
			return err
		}
		defer r.Close()
		_, err = io.Copy(cmd.OutOrStdout(), r)
		return err
	})
}
