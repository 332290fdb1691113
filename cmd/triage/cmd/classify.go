package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <candidate.xlsx> <repaired.xlsx>",
		Short: "Diff two packages and classify the result into named patterns",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			report, err := diffArchives(args[0], args[1])
			if err != nil {
				return err
			}
			patterns := ooxml.Classify(report)
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(patterns)
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newClassifyCmd())
}
