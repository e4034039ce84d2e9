// Package main is the entry point for the interp-pricing CLI.
package main

import (
	"os"

	"interpreting-pricing/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
