// Package main provides the entry point for the folderd CLI and daemon.
package main

import (
	"os"

	"github.com/foldermcp/folderd/cmd/folderd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
