package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"triage/internal/ooxml"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <archive.xlsx>",
		Short: "Scan a package into its ordered part list",
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

			type entry struct {
				Path   string `json:"path"`
				Size   int    `json:"size"`
				Digest string `json:"digest"`
			}
			out := make([]entry, 0, parts.Len())
			for _, p := range parts.Order {
				part, _ := parts.Get(p)
				out = append(out, entry{Path: part.Path, Size: len(part.Bytes), Digest: part.DigestHex()})
			}
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newScanCmd())
}
