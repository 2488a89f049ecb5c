// Command tohu generates reproducible random data from blueprints.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tohu/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tohu: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
