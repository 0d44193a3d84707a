package main

import (
	"os"

	"github.com/bcnelson/trigger-macros/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
