// Package main is the entry point for the testops CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/testops/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
