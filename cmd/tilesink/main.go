package main

import (
	"os"

	"tilesink/cmd/tilesink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
