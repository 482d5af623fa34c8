package main

import (
	"os"

	"github.com/rustyeddy/fxterm/cmd/fxterm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
