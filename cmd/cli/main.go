package main

import (
	"fmt"
	"os"

	// Import init package first to set up logging defaults
	_ "github.com/taghound/taghound/internal/init"

	"github.com/taghound/taghound/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
