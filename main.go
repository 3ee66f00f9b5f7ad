package main

import (
	"os"

	"github.com/simbisect/simbisect/cli"
)

// Version information, set by goreleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	c := cli.New()
	c.SetVersion(version, commit, date)
	err := c.Run(os.Args)
	if err != nil {
		// Verdict exits are handled inside Run; anything arriving here is a
		// usage problem and must not look like a verdict to the driver.
		os.Exit(cli.ExitUsage)
	}
}
