package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <candidate.xlsx> <repaired.xlsx>",
		Short: "Diff two packages part-by-part",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			report, err := diffArchives(args[0], args[1])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	return cmd
}

func diffArchives(candidatePath, repairedPath string) (ooxml.DiffReport, error) {
	candidateBytes, err := readFile(candidatePath)
	if err != nil {
		return ooxml.DiffReport{}, err
	}
	repairedBytes, err := readFile(repairedPath)
	if err != nil {
		return ooxml.DiffReport{}, err
	}
	candidate, err := ooxml.Scan(candidateBytes)
	if err != nil {
		return ooxml.DiffReport{}, err
	}
	repaired, err := ooxml.Scan(repairedBytes)
	if err != nil {
		return ooxml.DiffReport{}, err
	}
	return ooxml.Diff(candidate, repaired), nil
}

func init() {
	rootCmd.AddCommand(newDiffCmd())
}
