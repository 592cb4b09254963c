package main

import (
	"os"

	"github.com/apresai/interviewer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
