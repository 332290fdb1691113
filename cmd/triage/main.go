// Command triage runs the OOXML triage engine: scan, gate-check, diff,
// classify, build-recipe, apply, and report subcommands, each a thin shell
// around the pure functions in triage/internal/ooxml.
package main

import "triage/cmd/triage/cmd"

func main() {
	cmd.Execute()
}
