package main

import (
	"os"

	"github.com/bnema/locus-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
