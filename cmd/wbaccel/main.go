package main

import (
	"github.com/neilberkman/wbaccel/internal/interface/cli"
)

// Version information (injected via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit, Date)
	cli.Execute()
}
