// Command gitsvnsync runs the bidirectional SVN<->Git synchronization
// bridge: the daemon, the one-time initial import, and supporting
// diagnostics subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/chriscase/gitsvnsync/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
