package main

import (
	"os"

	"github.com/agentgate/agentgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
