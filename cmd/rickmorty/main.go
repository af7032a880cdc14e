package main

import (
	"os"

	"github.com/Sternrassler/rickmorty-client/cmd/rickmorty/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
