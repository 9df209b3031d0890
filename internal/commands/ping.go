package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gaborage/redisbridge/app"
)

// NewPingCommand creates the ping command
func NewPingCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured topology and check its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				status := a.Health(ctx)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n", status.Name, status.Status)

				keys := make([]string, 0, len(status.Details))
				for k := range status.Details {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %v\n", k, status.Details[k])
				}

				return status.Err
			})
		},
	}
}
