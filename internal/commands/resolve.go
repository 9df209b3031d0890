package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaborage/redisbridge/topology"
)

// NewResolveCommand creates the resolve command
func NewResolveCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved topology configuration",
		Long: `Validates the redisson properties and prints the resolved client configuration
as YAML. Passwords are masked. No connection is made.`,
		Example: `  # Resolve config.yaml in the current directory
  redisbridge resolve

  # Resolve from stdin with an environment override
  REDISSON_MODE=cluster redisbridge resolve -c - < cluster.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			resolved, err := topology.Resolve(cfg.Redisson)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(resolved.Redacted())
			if err != nil {
				return fmt.Errorf("failed to encode resolved config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
