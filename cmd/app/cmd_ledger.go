package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"SignalGate/internal/di"
	"SignalGate/internal/domain/models"
	"SignalGate/internal/usecase"

	"github.com/spf13/cobra"
)

var (
	ledgerTicker   string
	ledgerDecision string
	ledgerLimit    int
	ledgerCount    bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Print recent ledger entries, newest first",
	Long: `Query the configured decision ledger.

Examples:
  signalgate ledger --ticker SPY --limit 20
  signalgate ledger --decision REJECT --count`,
	RunE: runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.Flags().StringVar(&ledgerTicker, "ticker", "", "filter by ticker")
	ledgerCmd.Flags().StringVar(&ledgerDecision, "decision", "", "filter by decision (APPROVE, REJECT, ...)")
	ledgerCmd.Flags().IntVar(&ledgerLimit, "limit", models.DefaultLedgerLimit, "maximum entries to print")
	ledgerCmd.Flags().BoolVar(&ledgerCount, "count", false, "print only the number of matching entries")
}

func runLedger(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, cleanup, err := di.InitializeLedger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	uc := usecase.NewLedgerQueryUseCase(ledger)
	f := models.LedgerFilter{
		Limit:    ledgerLimit,
		Ticker:   models.NormalizeTicker(ledgerTicker),
		Decision: models.LedgerDecision(strings.ToUpper(ledgerDecision)),
	}

	if ledgerCount {
		n, err := uc.Count(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	}

	page, err := uc.List(cmd.Context(), f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, e := range page.Entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
