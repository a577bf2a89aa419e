package main

import (
	"os"

	"github.com/skewlabs/skewcapture/cmd/skew/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
