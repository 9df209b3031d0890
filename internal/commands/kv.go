package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/redisbridge/app"
)

// NewGetCommand creates the get command
func NewGetCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Read a value through the configured codecs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				value, found, err := a.Template().Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("key %q not found", args[0])
				}

				out, err := json.Marshal(value)
				if err != nil {
					return fmt.Errorf("failed to print value: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
}

// NewPutCommand creates the put command
func NewPutCommand(opts *GlobalOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Store a value through the configured codecs",
		Long: `Stores VALUE under KEY. VALUE is parsed as JSON when it is valid JSON and
stored as a plain string otherwise, then encoded with the configured value codec.`,
		Example: `  redisbridge put user:1 '{"name":"ada"}' --ttl 10m
  redisbridge put greeting hello`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Template().Put(ctx, args[0], parseValue(args[1]), ttl)
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Expiration, 0 keeps the key forever")
	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY",
		Aliases: []string{"del"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Template().Delete(ctx, args[0])
			})
		},
	}
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
