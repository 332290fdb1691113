package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newReportCmd() *cobra.Command {
	var repairedPath string
	cmd := &cobra.Command{
		Use:   "report <candidate.xlsx>",
		Short: "Human-readable gate and pattern summary for a candidate package",
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

			printGateTable(c, gate)

			if repairedPath != "" {
				repairedBytes, err := readFile(repairedPath)
				if err != nil {
					return err
				}
				repaired, err := ooxml.Scan(repairedBytes)
				if err != nil {
					return err
				}
				diff := ooxml.Diff(candidate, repaired)
				printDiffTable(c, diff)
				printPatternTable(c, ooxml.Classify(diff))
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&repairedPath, "repaired", "", "path to a known-good repaired copy to diff and classify against")
	return cmd
}

func printGateTable(c *cobra.Command, report ooxml.GateReport) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Gate", "Findings"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	failing := report.FailingGates()
	total := 0
	for _, id := range []ooxml.GateID{
		ooxml.GateStopshipTokens, ooxml.GateCFRefHits, ooxml.GateTableColumnLF, ooxml.GateCalcChainInvalid,
		ooxml.GateSharedRefOOB, ooxml.GateSharedRefBBox, ooxml.GateStylesDxf, ooxml.GateXMLWellformed,
		ooxml.GateIllegalControl, ooxml.GateRelsMissing,
	} {
		n := failing[id]
		total += n
		table.Append([]string{string(id), fmt.Sprintf("%d", n)})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%d", total)})
	table.Render()
	fmt.Fprintf(c.OutOrStdout(), "%s\n%s", report.SourceFile, buf.String())
}

func printDiffTable(c *cobra.Command, report ooxml.DiffReport) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Part", "Status", "Before", "After"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, pd := range report.Parts {
		if pd.Status == ooxml.StatusUnchanged {
			continue
		}
		table.Append([]string{pd.Path, string(pd.Status), fmt.Sprintf("%d", pd.SizeBefore), fmt.Sprintf("%d", pd.SizeAfter)})
	}
	table.Render()
	fmt.Fprint(c.OutOrStdout(), buf.String())
}

func printPatternTable(c *cobra.Command, patterns []ooxml.Pattern) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Pattern", "Confidence", "Hint"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, p := range patterns {
		table.Append([]string{string(p.Name), string(p.Confidence), p.Hint})
	}
	table.Render()
	fmt.Fprint(c.OutOrStdout(), buf.String())
}

func init() {
	rootCmd.AddCommand(newReportCmd())
}
