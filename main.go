package main

import (
	"os"

	"github.com/attunedev/attune/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
