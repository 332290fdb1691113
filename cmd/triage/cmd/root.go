// Package cmd provides the root command and CLI setup for triage.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Byte-faithful OOXML (.xlsx) triage engine",
		Long: `triage inspects a candidate .xlsx package for the ten known hazards a
repair pass can introduce, diffs it against a known-good repaired copy,
classifies the difference against seven named patterns, and can
assemble or apply a JSON patch recipe — all without ever re-serializing
a single XML part.`,
	}
	return cmd
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
