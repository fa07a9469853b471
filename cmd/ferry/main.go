package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgrewal/ferry/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "ferry",
	Short:   "Static file server with safe path resolution and chunked streaming",
	Long: `Ferry is a lightweight file server that resolves request paths
safely against a root directory and streams file content in
backpressure-friendly chunks.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if cf, _ := cmd.Flags().GetString("config"); cf != "" {
			configFiles = []string{cf}
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log.Level)

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "storage root directory (default: ./public, env: FERRY_STORAGE_ROOT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
