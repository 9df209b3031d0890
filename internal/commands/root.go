// Package commands implements the redisbridge command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gaborage/redisbridge/app"
	"github.com/gaborage/redisbridge/config"
	"github.com/gaborage/redisbridge/logger"
)

const (
	defaultEnvFile = ".env"
	stdinConfig    = "-"
)

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	EnvPrefix  string
	EnvFiles   []string
	LogLevel   string
}

// NewRootCommand creates the redisbridge root command with all subcommands attached.
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "redisbridge",
		Short: "Resolve and exercise Redisson-style Redis configuration",
		Long: `redisbridge reads a Redisson-style property set (YAML, .env files and
REDISSON_* environment variables), resolves it into one of the single, cluster,
sentinel, masterslave or replicated topologies, and talks to the result.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", config.DefaultFile, `YAML config file, "-" reads stdin`)
	flags.StringVar(&opts.EnvPrefix, "env-prefix", "", "Only read environment variables with this prefix")
	flags.StringSliceVar(&opts.EnvFiles, "env-file", nil, "Dotenv files to load (default .env when present)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Override log.level")

	root.AddCommand(
		NewResolveCommand(opts),
		NewConfigCommand(opts),
		NewPingCommand(opts),
		NewGetCommand(opts),
		NewPutCommand(opts),
		NewDeleteCommand(opts),
		NewLockCommand(opts),
	)

	return root
}

// loadConfig applies dotenv files and reads the configuration the flags point at.
func loadConfig(cmd *cobra.Command, opts *GlobalOptions) (*config.Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	loadOpts := config.Options{File: opts.ConfigFile, EnvPrefix: opts.EnvPrefix}
	if opts.ConfigFile == stdinConfig {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read config from stdin: %w", err)
		}
		loadOpts.File = config.DefaultFile
		loadOpts.Data = data
	}

	cfg, err := config.LoadFrom(loadOpts)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, nil
}

// loadEnvFiles loads the given dotenv files. Without explicit files, .env is loaded
// when it exists. Variables already present in the environment win.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{defaultEnvFile}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// newLogger writes to stderr so command output on stdout stays machine-readable.
func newLogger(cmd *cobra.Command, cfg *config.Config) logger.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty, logger.DefaultFilterConfig())
}

// withApp loads configuration, connects, runs fn and closes the connection.
func withApp(cmd *cobra.Command, opts *GlobalOptions, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, newLogger(cmd, cfg))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(ctx, a)
}
