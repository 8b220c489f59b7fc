// Package main provides the entry point for the baysets CLI.
package main

import (
	"os"

	"github.com/baysets/baysets/cmd/baysets/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
