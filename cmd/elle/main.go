// Command elle is a thin CLI wrapper around the checker core. DOT
// rendering and workload generation are not implemented here; it decodes
// a JSON history file, wires flags to checker.Analyze, and prints the
// verdict.
package main

import (
	"fmt"
	"os"

	"github.com/hciniramy/elle/cmd/elle/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
