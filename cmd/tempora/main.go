package main

import (
	"os"

	"github.com/agentmem/tempora/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
