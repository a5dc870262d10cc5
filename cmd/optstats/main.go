// Command optstats ingests an OPT mission or FPS log and prints the aggregated statistics.
//
// mission - Player scoreboard of a mission log
// fps - Per-player FPS summary of a performance log
package main

import (
	"os"
)

// Version info (set during build)
var Version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
