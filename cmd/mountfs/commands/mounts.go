package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
	"github.com/objectfs/mountfs/internal/mount"
)

var mountsOutput string

var mountsCmd = &cobra.Command{
	Use:   "mounts <namespace-root>",
	Short: "List the mounts of a namespace",
	Long: `List the default, explicit and reloadable mounts of a namespace.
Dynamic mounts are created on demand and are not listed.

Examples:
  mountfs mounts mount://proj/
  mountfs mounts mount://proj/ -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runMounts,
}

func init() {
	mountsCmd.Flags().StringVarP(&mountsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// MountInfo describes one mount rule.
type MountInfo struct {
	VirtualRoot string `json:"virtual_root" yaml:"virtual_root"`
	RealRoot    string `json:"real_root" yaml:"real_root"`
	Tier        string `json:"tier" yaml:"tier"`
}

// MountList is the result of the mounts command.
type MountList []MountInfo

// Headers implements tableRenderer.
func (l MountList) Headers() []string {
	return []string{"VIRTUAL ROOT", "REAL ROOT", "TIER"}
}

// Rows implements tableRenderer.
func (l MountList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, m := range l {
		rows = append(rows, []string{m.VirtualRoot, m.RealRoot, m.Tier})
	}
	return rows
}

func newMountList(s mount.Snapshot) MountList {
	var l MountList
	add := func(tier mount.Tier, rules ...*mount.PathRewrite) {
		for _, r := range rules {
			l = append(l, MountInfo{
				VirtualRoot: r.VirtualRoot().String(),
				RealRoot:    r.RealRoot().String(),
				Tier:        string(tier),
			})
		}
	}
	add(mount.TierExplicit, s.Explicit...)
	add(mount.TierReloadable, s.Reloadable...)
	if s.Default != nil {
		add(mount.TierDefault, s.Default)
	}
	return l
}

func runMounts(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		root, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}
		m, err := a.Manager(ctx, root)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), mountsOutput, newMountList(m.Snapshot()))
	})
}
