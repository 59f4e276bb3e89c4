package main

import (
	"encoding/json"

	"SignalGate/internal/rules"

	"github.com/spf13/cobra"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Print the frozen decision configuration and its checksum",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := rules.Default()
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Spec     rules.Spec `json:"spec"`
			Checksum string     `json:"checksum"`
		}{reg.Snapshot(), reg.FrozenChecksum()})
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
}
