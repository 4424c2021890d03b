// Command cbrute enumerates candidate strings over an alphabet.
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/MRJAPPS/CBruteLib/internal/cli"
)

func main() {
	_, _ = maxprocs.Set()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cbrute:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
