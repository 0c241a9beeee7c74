// Command modlayers compiles keyboard configs with modifier-held overlay
// layers, runs scenarios against them and replays recorded runs.
//
// Usage:
//
//	modlayers validate <config-dir>
//	modlayers compile <config-dir> [-o file]
//	modlayers test <config-dir> <scenarios-dir> [--update] [--filter glob]
//	modlayers run --db <db> <config-dir> <scenario.yaml> [--run-id id]
//	modlayers replay --db <db> [--run id]
//	modlayers trace --db <db> --run <id> [--masked]
package main

import (
	"fmt"
	"os"

	"github.com/roach88/modlayers/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
