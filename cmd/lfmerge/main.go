// Command lfmerge merges .lift.update files into Language Forge LIFT files.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/lfmerge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
