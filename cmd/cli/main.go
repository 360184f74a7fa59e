// Package main is the entry point for the debugbar CLI binary.
package main

import (
	"os"

	cli "debugbar/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
