// Package commands implements the mountfs command line.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/objectfs/mountfs/internal/adapter"
	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/pkg/utils"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "mountfs",
	Short: "mountfs - virtual mount paths over real storage",
	Long: `mountfs resolves mount:// paths to real storage locations through
explicit, reloadable, dynamic and default mount rules, and serves file
operations through the resolved mounts.

Use "mountfs [command] --help" for more information about a command.`,
	Version:       Version + " (" + Commit + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(mountsCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig builds the configuration from defaults, the --config file and
// the environment, in that order.
func loadConfig() (*config.Configuration, error) {
	cfg := config.NewDefault()
	if cfgFile != "" {
		if err := cfg.LoadFromFile(cfgFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withAdapter starts an adapter for the duration of fn.
func withAdapter(cmd *cobra.Command, fn func(ctx context.Context, a *adapter.Adapter) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := utils.SetupLogging(cfg.Global.LogLevel, cfg.Global.LogFile, cfg.Global.LogFormat)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closeQuietly(closer)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := adapter.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(context.Background()); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	if err := a.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
