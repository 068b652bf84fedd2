package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
)

var resolveOutput string

var resolveCmd = &cobra.Command{
	Use:   "resolve <vpath>",
	Short: "Show the real path a virtual path maps to",
	Long: `Resolve a mount:// path and print the real path it maps to together
with the mount rule and the tier that rule came from.

Examples:
  # Resolve a path
  mountfs resolve mount://proj/data/2020/report.csv --config mountfs.yaml

  # Output as JSON
  mountfs resolve mount://proj/data -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// Resolution is the result of the resolve command.
type Resolution struct {
	VirtualPath string `json:"virtual_path" yaml:"virtual_path"`
	RealPath    string `json:"real_path" yaml:"real_path"`
	Mount       string `json:"mount" yaml:"mount"`
	Tier        string `json:"tier" yaml:"tier"`
}

// Headers implements tableRenderer.
func (r Resolution) Headers() []string {
	return []string{"VIRTUAL PATH", "REAL PATH", "MOUNT", "TIER"}
}

// Rows implements tableRenderer.
func (r Resolution) Rows() [][]string {
	return [][]string{{r.VirtualPath, r.RealPath, r.Mount, r.Tier}}
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withAdapter(cmd, func(ctx context.Context, a *adapter.Adapter) error {
		p, err := a.ParsePath(args[0])
		if err != nil {
			return err
		}
		m, err := a.Manager(ctx, p)
		if err != nil {
			return err
		}
		mt, tier, err := m.Resolve(ctx, p)
		if err != nil {
			return err
		}
		resolved, err := mt.ToMountPath(p)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), resolveOutput, Resolution{
			VirtualPath: p.String(),
			RealPath:    resolved.String(),
			Mount:       mt.Key().String(),
			Tier:        string(tier),
		})
	})
}
