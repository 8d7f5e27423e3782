// Command ranked maintains ordered records in SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ranked/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
