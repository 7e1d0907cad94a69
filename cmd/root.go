// Package cmd wires the CLI commands to the engine, storage and reporting
// layers.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eve-hauler",
	Short: "Backtest and plan inter-station hauling strategies",
	Long: `eve-hauler plans capital allocation across hauling packages and
validates strategies against historical market data with walk-forward
backtests and scenario sweeps.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./hauler.yaml)")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(strategyCmd)
}

// parseDay parses a YYYY-MM-DD flag value.
func parseDay(flag, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, value)
	}
	return t, nil
}
