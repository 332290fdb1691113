package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newGateCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate-check <archive.xlsx>",
		Short: "Run the ten hazard checks over a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			parts, err := ooxml.Scan(data)
			if err != nil {
				return err
			}
			report := ooxml.RunGateChecks(args[0], parts)
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newGateCheckCmd())
}
