package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
		Long:  "Inspect and clear cached API responses",
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Long:  "Remove every cached response from the configured cache backend. The usage counter is kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, false, func(client yarasp.Client) error {
				err := client.ClearCache(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")

				return nil
			})
		},
	}
}
