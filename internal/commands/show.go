package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaborage/redisbridge/logger"
)

// configFilter masks secrets without hiding keyCodec and keystore paths.
var configFilter = &logger.FilterConfig{
	SensitiveFields: []string{"password", "secret", "token", "authorization", "credential"},
}

// NewConfigCommand creates the config command
func NewConfigCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config [key]",
		Short: "Print the merged configuration",
		Long: `Prints the configuration after the YAML file, dotenv files and environment
variables are merged, as flattened dotted keys. With a key, prints only that value
or section. Secrets are masked.`,
		Example: `  # Everything
  redisbridge config

  # One section or value
  redisbridge config redisson
  REDISSON_MODE=cluster redisbridge config redisson.mode`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			filter := logger.NewSensitiveDataFilter(configFilter)

			var out any
			if len(args) == 0 {
				out = filter.FilterFields(cfg.All())
			} else {
				key := strings.ToLower(args[0])
				if !cfg.Exists(key) {
					return fmt.Errorf("config key %q is not set", args[0])
				}
				section := map[string]any{}
				if cfg.Unmarshal(key, &section) == nil {
					out = filter.FilterValue(key, section)
				} else {
					out = filter.FilterString(key, cfg.GetString(key))
				}
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
