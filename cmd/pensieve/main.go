// Package main provides the entry point for the pensieve CLI.
package main

import (
	"os"

	"github.com/pensieve-kb/pensieve/cmd/pensieve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
