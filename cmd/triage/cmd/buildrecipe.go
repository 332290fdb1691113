package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newBuildRecipeCmd() *cobra.Command {
	var repairedPath string
	cmd := &cobra.Command{
		Use:   "build-recipe <candidate.xlsx>",
		Short: "Assemble a patch recipe from a candidate's gate findings and, optionally, a diff against a repaired copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			candidatePath := args[0]
			candidateBytes, err := readFile(candidatePath)
			if err != nil {
				return err
			}
			candidate, err := ooxml.Scan(candidateBytes)
			if err != nil {
				return err
			}
			gate := ooxml.RunGateChecks(candidatePath, candidate)

			var patterns []ooxml.Pattern
			var diffReport *ooxml.DiffReport
			var repaired *ooxml.PartMap
			if repairedPath != "" {
				repairedBytes, err := readFile(repairedPath)
				if err != nil {
					return err
				}
				rp, err := ooxml.Scan(repairedBytes)
				if err != nil {
					return err
				}
				repaired = &rp
				d := ooxml.Diff(candidate, rp)
				diffReport = &d
				patterns = ooxml.Classify(d)
			}

			recipe := ooxml.BuildRecipe(candidatePath, &gate, patterns, diffReport, repaired)
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recipe)
		},
	}
	cmd.Flags().StringVar(&repairedPath, "repaired", "", "path to a known-good repaired copy, enabling diff-derived patch rules")
	return cmd
}

func init() {
	rootCmd.AddCommand(newBuildRecipeCmd())
}
