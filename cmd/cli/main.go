// Package main is the entry point for the gpsr CLI binary.
package main

import (
	"os"

	cli "gps-report/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
