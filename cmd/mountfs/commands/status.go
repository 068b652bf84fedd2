package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
	"github.com/objectfs/mountfs/pkg/health"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the mount table health of every namespace",
	Long: `Load the mount table of every configured namespace and report whether
it could be read.

Examples:
  mountfs status --config mountfs.yaml
  mountfs status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// StatusReport is the result of the status command.
type StatusReport []health.ComponentHealth

// Headers implements tableRenderer.
func (r StatusReport) Headers() []string {
	return []string{"NAMESPACE", "STATE", "ERRORS", "LAST ERROR"}
}

// Rows implements tableRenderer.
func (r StatusReport) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, c := range r {
		rows = append(rows, []string{c.Name, c.State.String(), strconv.Itoa(c.ConsecutiveErrors), c.LastErrorMessage})
	}
	return rows
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withAdapter(cmd, func(_ context.Context, a *adapter.Adapter) error {
		return printOutput(cmd.OutOrStdout(), statusOutput, StatusReport(a.Health().GetAllComponents()))
	})
}
