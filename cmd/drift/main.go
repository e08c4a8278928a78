package main

import (
	"fmt"
	"os"

	"github.com/driftsql/drift/cmd/drift/cli"
	"github.com/driftsql/drift/internal/drifterr"
)

// Set via -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, "drift:", err)
		os.Exit(drifterr.ExitCode(err))
	}
}
