package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     *Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "proximity",
	Short: "Incremental accessibility engine",
	Long:  "Builds accessibility baseline over street network and interactive grid, then recomputes accessibility on every land-use change.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./proximity.yaml)")
	rootCmd.AddCommand(buildCmd, listenCmd, applyCmd, routeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
