package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clausewise/internal/bootstrap"
	"clausewise/internal/config"
	"clausewise/internal/logger"
)

// skipBootstrap marks commands that run without the store and engines.
const skipBootstrap = "skip-bootstrap"

var (
	cfgFile  string
	logLevel string

	cfg     *config.Config
	current *bootstrap.App
)

var rootCmd = &cobra.Command{
	Use:   "clausectl",
	Short: "Run the contract analysis pipeline from the command line",
	Long: `clausectl uploads legal documents, drives them through extraction,
classification, risk analysis and indexing, and answers questions about them.
It uses the same configuration and store as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
				return err
			}
		}
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if err := logger.Init(logLevel, "text"); err != nil {
			return err
		}
		if cmd.Annotations[skipBootstrap] != "" {
			return nil
		}
		current, err = bootstrap.NewWithConfig(cmd.Context(), cfg, bootstrap.Options{})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		return current.Close()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "clausectl: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_FILE or configs/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
