package main

import (
	"os"

	"github.com/healthlens-dev/healthlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
