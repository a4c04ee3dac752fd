// Command river runs the River message ledger: the HTTP endpoint, key and
// principal administration, message signing and scenario tests.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rivervm/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
