package commands

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// NewUsageCommand creates the usage command.
func NewUsageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show today's live request count",
		Long: `Show how many live requests were made today, the daily limit and whether
safe mode blocks requests once the limit is reached. Cached responses are
never counted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, false, func(client yarasp.Client) error {
				status, err := client.Usage(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read usage: %w", err)
				}

				return render(cmd.OutOrStdout(), status, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("Day", status.Day)
					_ = table.Append("Count", strconv.Itoa(status.Count))
					_ = table.Append("Limit", strconv.Itoa(status.Limit))
					_ = table.Append("Remaining", strconv.Itoa(status.Remaining))
					_ = table.Append("Safe mode", enabled(status.SafeMode))
					_ = table.Append("Backend", status.Backend)
				})
			})
		},
	}
}
