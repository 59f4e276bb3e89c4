package main

import (
	"errors"
	"fmt"
	"os"

	"SignalGate/internal/rules"
	"SignalGate/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "signalgate",
	Short: "Deterministic approve/reject engine for trading signals",
	Long: `SignalGate enriches incoming trading signals with options, volatility and
liquidity context, runs them through a fixed sequence of risk gates and
records every decision in an append-only ledger.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, rules.ErrConfigTampered) {
			fmt.Fprintln(os.Stderr, "terminating: decision configuration integrity check failed")
		}
		os.Exit(1)
	}
}
