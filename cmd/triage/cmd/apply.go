package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newApplyCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "apply <candidate.xlsx> <recipe.json>",
		Short: "Apply a patch recipe to a candidate package",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			archiveBytes, err := readFile(args[0])
			if err != nil {
				return err
			}
			recipeBytes, err := readFile(args[1])
			if err != nil {
				return err
			}
			recipe, err := ooxml.ParseRecipe(recipeBytes)
			if err != nil {
				return err
			}

			patched, skips, err := ooxml.Apply(archiveBytes, *recipe)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, patched, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
			}

			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				OutputPath string        `json:"output_path,omitempty"`
				OutputSize int           `json:"output_size"`
				SkipLog    ooxml.SkipLog `json:"skip_log"`
			}{OutputPath: outPath, OutputSize: len(patched), SkipLog: skips})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "path to write the patched archive (omit to only report)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newApplyCmd())
}
