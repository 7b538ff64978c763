// Nsreg is the command line front of the namespace registry.
//
// Usage:
//
//	nsreg resolve app.util
//	nsreg use app.util --journal ./nsreg.db
//	nsreg serve --dir ./units
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nsreg/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
