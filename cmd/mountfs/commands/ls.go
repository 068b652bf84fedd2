package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
	"github.com/objectfs/mountfs/pkg/types"
)

var lsOutput string

var lsCmd = &cobra.Command{
	Use:   "ls <vpath>",
	Short: "List a directory",
	Long: `List the children of a directory. Virtual paths are listed through
their mounts and reported with virtual names.

Examples:
  mountfs ls mount://proj/data
  mountfs ls file:///tmp -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().StringVarP(&lsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// Entry is one line of a directory listing.
type Entry struct {
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	Dir     bool      `json:"dir" yaml:"dir"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Listing is the result of the ls command.
type Listing []Entry

// Headers implements tableRenderer.
func (l Listing) Headers() []string {
	return []string{"PATH", "SIZE", "TYPE", "MODIFIED"}
}

// Rows implements tableRenderer.
func (l Listing) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		kind := "file"
		if e.Dir {
			kind = "dir"
		}
		modified := ""
		if !e.ModTime.IsZero() {
			modified = e.ModTime.Format(time.RFC3339)
		}
		rows = append(rows, []string{e.Path, strconv.FormatInt(e.Size, 10), kind, modified})
	}
	return rows
}

func newListing(statuses []types.FileStatus) Listing {
	l := make(Listing, 0, len(statuses))
	for _, s := range statuses {
		l = append(l, Entry{Path: s.Path.String(), Size: s.Size, Dir: s.IsDir, ModTime: s.ModTime})
	}
	return l
}

func runLs(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		p, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}
		fsys, err := a.FileSystem(p)
		if err != nil {
			return err
		}
		statuses, err := fsys.ListStatus(ctx, p)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), lsOutput, newListing(statuses))
	})
}
