// Command crawlwave is the entrypoint binary wiring internal/cli's command
// tree to the process, matching lib-lopez/src/lib.rs's `main!` macro exit
// code contract: 0 on success, 1 on any error or an incomplete/interrupted
// run.
package main

import (
	"fmt"
	"os"

	"github.com/codepr/crawlwave/internal/cli"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := cli.NewRootCmd(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
