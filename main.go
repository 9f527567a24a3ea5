package main

import (
	"os"

	"github.com/spigell/marketsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
